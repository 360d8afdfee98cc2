package can

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

// appendCmsg builds one control message and appends it (with trailing
// padding to the next CmsgSpace boundary) to buf.
func appendCmsg(buf []byte, level, typ int32, data []byte) []byte {
	var h unix.Cmsghdr
	h.Level = level
	h.Type = typ
	h.SetLen(unix.CmsgLen(len(data)))
	hdrBytes := (*(*[unix.SizeofCmsghdr]byte)(unsafe.Pointer(&h)))[:]
	buf = append(buf, hdrBytes...)
	buf = append(buf, data...)
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func rxqOvflMsg(counter uint32) []byte {
	var b [4]byte
	*(*uint32)(unsafe.Pointer(&b[0])) = counter
	return appendCmsg(nil, unix.SOL_SOCKET, unix.SO_RXQ_OVFL, b[:])
}

func TestDropAccounting(t *testing.T) {
	ep := &Endpoint{}
	counters := []uint32{0, 0, 5}
	expected := []uint32{0, 0, 5}

	for i, c := range counters {
		_, delta := decodeAncillary(rxqOvflMsg(c), ep, false)
		if delta != expected[i] {
			t.Errorf("datagram %d: dropped delta = %d, want %d", i, delta, expected[i])
		}
	}
}

func TestHardwareTimestampPath(t *testing.T) {
	var ts [3]unix.Timespec
	ts[0] = unix.Timespec{Sec: 10, Nsec: 0}
	ts[1] = unix.Timespec{Sec: 0, Nsec: 0}
	ts[2] = unix.Timespec{Sec: 42, Nsec: 750_000_000}
	data := (*(*[3 * unsafe.Sizeof(unix.Timespec{})]byte)(unsafe.Pointer(&ts)))[:]
	oob := appendCmsg(nil, unix.SOL_SOCKET, unix.SO_TIMESTAMPING, data)

	ep := &Endpoint{}
	got, _ := decodeAncillary(oob, ep, true)
	want := Timestamp{Sec: 42, Usec: 750_000}
	if got != want {
		t.Errorf("hardware timestamp = %+v, want %+v", got, want)
	}
}

func TestProcessHeaderDisabledSkipsDecoding(t *testing.T) {
	// When process_header is false the caller never invokes
	// decodeAncillary at all; covered at the endpoint/reactor layer,
	// this test only pins the zero value an un-decoded event carries.
	var ev Event
	if ev.Timestamp != (Timestamp{}) || ev.DroppedFrames != 0 {
		t.Fatal("zero-value Event must carry a zero timestamp and zero drop delta")
	}
}
