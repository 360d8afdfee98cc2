package can

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Timestamp is a (seconds, microseconds) pair, the event-carried form
// spec.md §4.2 describes for both the software and the hardware path.
type Timestamp struct {
	Sec  int64
	Usec int64
}

// decodeAncillary walks a received datagram's control-message chain
// (scoped to SOL_SOCKET, as spec.md §4.2 requires) and extracts the
// timestamp and the receive-overflow counter delta for one endpoint.
//
// Technique grounded on the pack's raw-socket ancillary-message parser
// (tools/uping/pkg/uping/listener.go, other_examples): Recvmsg's oob
// buffer fed through unix.ParseSocketControlMessage, then cast per
// cm.Header.Type.
func decodeAncillary(oob []byte, ep *Endpoint, hwTimestamp bool) (ts Timestamp, droppedDelta uint32) {
	if len(oob) == 0 {
		return ts, 0
	}
	cms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return ts, 0
	}
	for _, cm := range cms {
		if cm.Header.Level != unix.SOL_SOCKET {
			continue
		}
		switch cm.Header.Type {
		case unix.SO_RXQ_OVFL:
			if len(cm.Data) < 4 {
				continue
			}
			current := *(*uint32)(unsafe.Pointer(&cm.Data[0]))
			droppedDelta = current - ep.lastOverflow
			ep.lastOverflow = current
		case unix.SO_TIMESTAMP:
			if hwTimestamp || len(cm.Data) < int(unsafe.Sizeof(unix.Timeval{})) {
				continue
			}
			tv := *(*unix.Timeval)(unsafe.Pointer(&cm.Data[0]))
			ts = Timestamp{Sec: int64(tv.Sec), Usec: int64(tv.Usec)}
		case unix.SO_TIMESTAMPING:
			if !hwTimestamp {
				continue
			}
			const tsSize = int(unsafe.Sizeof(unix.Timespec{}))
			if len(cm.Data) < 3*tsSize {
				continue
			}
			raw := (*(*[3]unix.Timespec)(unsafe.Pointer(&cm.Data[0])))[2]
			ts = Timestamp{Sec: int64(raw.Sec), Usec: int64(raw.Nsec) / 1000}
		}
	}
	return ts, droppedDelta
}
