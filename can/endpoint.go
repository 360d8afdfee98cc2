package can

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// role distinguishes the two Endpoint flavors spec.md §3 names.
type role int

const (
	roleTX role = iota
	roleRX
)

// Endpoint is an owned datagram endpoint bound to one CAN interface,
// grounded on the teacher's socketcanv2/socketcanv3 Bus type but
// reworked to own raw sockopt control (FD frames, filters, buffer
// sizing, timestamping) instead of delegating to brutella/can, since
// the Ancillary Decoder and CAN-FD requirements need that control
// directly (see DESIGN.md for the brutella/can drop rationale).
type Endpoint struct {
	fd           int
	role         role
	ifaceIndex   int
	canFD        bool
	hwTimestamp  bool
	lastOverflow uint32
}

// openEndpoint creates and binds a raw CAN socket, non-blocking, per
// spec.md §4.3 step 1 of both the TX and RX init sequences.
func openEndpoint(ifaceIndex int, r role) (*Endpoint, int, Code) {
	createErr, bindErr := ErrTxSocketCreate, ErrTxSocketBind
	if r == roleRX {
		createErr, bindErr = ErrRxSocketCreate, ErrRxSocketBind
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, 0, createErr
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, 0, createErr
	}
	addr := &unix.SockaddrCAN{Ifindex: ifaceIndex}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, 0, bindErr
	}
	return &Endpoint{fd: fd, role: r, ifaceIndex: ifaceIndex}, fd, None
}

// openTxEndpoint implements spec.md §4.3's TX initialization sequence.
func openTxEndpoint(ifaceName string, ifaceIndex int, cfg *Configuration) (*Endpoint, Code) {
	ep, fd, code := openEndpoint(ifaceIndex, roleTX)
	if code != None {
		return nil, code
	}

	if cfg.CanFDEnabled {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil || iface.MTU != fdMTU {
			unix.Close(fd)
			return nil, ErrNotCanFd
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1); err != nil {
			unix.Close(fd)
			return nil, ErrSockoptFDFrames
		}
		ep.canFD = true
	}

	// Empty receive filter: only error frames surface on the TX endpoint.
	if err := unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, nil); err != nil {
		unix.Close(fd)
		return nil, ErrSockoptRawFilter
	}

	if cfg.TxBufLen != 0 {
		granted, code := setSendBuf(fd, cfg.TxBufLen)
		if code != None {
			unix.Close(fd)
			return nil, code
		}
		cfg.TxBufLenActual = granted
	}

	if cfg.ErrorMask != 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, int(cfg.ErrorMask)); err != nil {
			unix.Close(fd)
			return nil, ErrSockoptErrFilter
		}
	}

	return ep, None
}

// openRxEndpoint implements spec.md §4.3's RX initialization sequence.
func openRxEndpoint(ifaceIndex int, cfg *Configuration, filters []unix.CanFilter) (*Endpoint, Code) {
	ep, fd, code := openEndpoint(ifaceIndex, roleRX)
	if code != None {
		return nil, code
	}

	if cfg.ProcessHeader {
		if cfg.HwTimestamp {
			opts := []struct {
				level, name, value int
			}{
				{unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1},
				{unix.SOL_SOCKET, unix.SO_TIMESTAMPING, unix.SOF_TIMESTAMPING_SOFTWARE | unix.SOF_TIMESTAMPING_RX_SOFTWARE | unix.SOF_TIMESTAMPING_RAW_HARDWARE},
			}
			for _, opt := range opts {
				if err := unix.SetsockoptInt(fd, opt.level, opt.name, opt.value); err != nil {
					unix.Close(fd)
					return nil, ErrSockoptTimestamp
				}
			}
			ep.hwTimestamp = true
		} else {
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1); err != nil {
				unix.Close(fd)
				return nil, ErrSockoptTimestamp
			}
		}
	}

	if cfg.CanFDEnabled {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1); err != nil {
			unix.Close(fd)
			return nil, ErrSockoptFDFrames
		}
		ep.canFD = true
	}

	if cfg.RxBufLen != 0 {
		granted, code := setRecvBuf(fd, cfg.RxBufLen)
		if code != None {
			unix.Close(fd)
			return nil, code
		}
		cfg.RxBufLenActual = granted
	}

	if cfg.ErrorMask != 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, int(cfg.ErrorMask)); err != nil {
			unix.Close(fd)
			return nil, ErrSockoptErrFilter
		}
	}

	if len(filters) > 0 {
		if err := unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters); err != nil {
			unix.Close(fd)
			return nil, ErrSockoptRawFilter
		}
	}

	return ep, None
}

// setSendBuf tries the privileged SO_SNDBUFFORCE first, falls back to
// the ordinary SO_SNDBUF, then reads the granted size back.
func setSendBuf(fd int, want uint32) (uint32, Code) {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUFFORCE, int(want)); err != nil {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, int(want)); err != nil {
			return 0, ErrSockoptSendBufSet
		}
	}
	got, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, ErrSockoptSendBufGet
	}
	return uint32(got), None
}

// setRecvBuf is setSendBuf's receive-side counterpart.
func setRecvBuf(fd int, want uint32) (uint32, Code) {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, int(want)); err != nil {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, int(want)); err != nil {
			return 0, ErrSockoptRecvBufSet
		}
	}
	got, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		return 0, ErrSockoptRecvBufGet
	}
	return uint32(got), None
}

// SetReceiveOwn toggles CAN_RAW_RECV_OWN_MSGS, a feature every teacher
// socketcan backend exposes (Bus.SetReceiveOwn in socketcanv2/v3).
func (ep *Endpoint) SetReceiveOwn(enabled bool) Code {
	v := 0
	if enabled {
		v = 1
	}
	if err := unix.SetsockoptInt(ep.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, v); err != nil {
		return ErrSockoptRawFilter
	}
	return None
}

// Write sends one frame at the endpoint's MTU (legacy or FD). A full
// kernel send queue is reported as TxRetryLater; a short write (bytes
// written < expected MTU) as IncompleteFrame; neither is retried.
func (ep *Endpoint) Write(frame Frame) Code {
	mtu := mtuFor(ep.canFD)
	raw := marshalFrame(frame, ep.canFD)

	n, err := unix.Write(ep.fd, raw)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.ENOBUFS {
			return ErrTxRetryLater
		}
		return ErrTxSocketWrite
	}
	if n != mtu {
		return ErrIncompleteFrame
	}
	return None
}

// Receive performs one non-blocking read with ancillary control data,
// the suspension point spec.md §5 allows only when a frame is present.
func (ep *Endpoint) Receive(cfg *Configuration) (Frame, Timestamp, uint32, error) {
	mtu := mtuFor(ep.canFD)
	buf := make([]byte, mtu)
	var oob []byte
	if cfg.ProcessHeader {
		oob = make([]byte, 256)
	}

	n, oobn, _, _, err := unix.Recvmsg(ep.fd, buf, oob, unix.MSG_DONTWAIT)
	if err != nil {
		return Frame{}, Timestamp{}, 0, err
	}

	frame := unmarshalFrame(buf[:n], ep.canFD)

	var ts Timestamp
	var dropped uint32
	if cfg.ProcessHeader && oobn > 0 {
		ts, dropped = decodeAncillary(oob[:oobn], ep, cfg.HwTimestamp)
	}
	return frame, ts, dropped, nil
}

// Close removes the endpoint's OS resources. Safe to call more than once.
func (ep *Endpoint) Close() error {
	if ep.fd < 0 {
		return nil
	}
	err := unix.Close(ep.fd)
	ep.fd = -1
	return err
}

func (ep *Endpoint) String() string {
	return fmt.Sprintf("can-endpoint(fd=%d if=%d fd-mode=%v)", ep.fd, ep.ifaceIndex, ep.canFD)
}
