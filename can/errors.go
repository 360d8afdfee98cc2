package can

// Code is a small negative error code returned by the public API, in the
// spirit of the teacher's driver.go CANopenError / CANOPEN_ERRORS pair:
// a stable integer plus a human string, success is zero.
type Code int

const (
	None Code = 0

	ErrNullInterface Code = -1
	ErrInterfaceIndex Code = -2

	ErrNetlinkStart             Code = -3
	ErrNetlinkStop              Code = -4
	ErrNetlinkGetState          Code = -5
	ErrNetlinkBitrateMismatch   Code = -6
	ErrNetlinkDBitrateMismatch  Code = -7
	ErrNetlinkRestartMsMismatch Code = -8
	ErrNetlinkCtrlModeMismatch  Code = -9
	ErrNetlinkBitTimingMismatch Code = -10
	ErrNetlinkStatsRead         Code = -11

	ErrTxSocketCreate Code = -12
	ErrTxSocketBind   Code = -13
	ErrRxSocketCreate Code = -14
	ErrRxSocketBind   Code = -15

	ErrSockoptTimestamp  Code = -16
	ErrSockoptFDFrames   Code = -17
	ErrSockoptRawFilter  Code = -18
	ErrSockoptErrFilter  Code = -19
	ErrSockoptSendBufSet Code = -20
	ErrSockoptSendBufGet Code = -21
	ErrSockoptRecvBufSet Code = -22
	ErrSockoptRecvBufGet Code = -23

	ErrTxRetryLater   Code = -24
	ErrIncompleteFrame Code = -25
	ErrTxSocketWrite  Code = -26

	ErrNetworkDown    Code = -27
	ErrDroppedFrames  Code = -28
	ErrNotCanFd       Code = -29

	ErrAlreadyRegistered Code = -30
	ErrNotFound          Code = -31

	ErrMutexInit    Code = -32
	ErrMutexLock    Code = -33
	ErrThreadAlloc  Code = -34
	ErrThreadCreate Code = -35
)

var codeStrings = map[Code]string{
	None: "operation completed successfully",

	ErrNullInterface:  "interface is nil",
	ErrInterfaceIndex: "could not resolve interface index",

	ErrNetlinkStart:             "netlink failed to start the interface",
	ErrNetlinkStop:              "netlink failed to stop the interface",
	ErrNetlinkGetState:          "netlink failed to read interface state",
	ErrNetlinkBitrateMismatch:   "bitrate read back does not match the value written",
	ErrNetlinkDBitrateMismatch:  "data bitrate read back does not match the value written",
	ErrNetlinkRestartMsMismatch: "restart-ms read back does not match the value written",
	ErrNetlinkCtrlModeMismatch:  "ctrl-mode read back does not match the value written",
	ErrNetlinkBitTimingMismatch: "bit timing read back does not match the value written",
	ErrNetlinkStatsRead:         "netlink failed to read interface statistics",

	ErrTxSocketCreate: "failed to create TX socket",
	ErrTxSocketBind:   "failed to bind TX socket",
	ErrRxSocketCreate: "failed to create RX socket",
	ErrRxSocketBind:   "failed to bind RX socket",

	ErrSockoptTimestamp:  "failed to configure timestamping",
	ErrSockoptFDFrames:   "failed to enable CAN-FD frames",
	ErrSockoptRawFilter:  "failed to install raw acceptance filter",
	ErrSockoptErrFilter:  "failed to install error filter",
	ErrSockoptSendBufSet: "failed to set send buffer size",
	ErrSockoptSendBufGet: "failed to read back send buffer size",
	ErrSockoptRecvBufSet: "failed to set receive buffer size",
	ErrSockoptRecvBufGet: "failed to read back receive buffer size",

	ErrTxRetryLater:    "transmit would block, retry later",
	ErrIncompleteFrame: "short write, frame not fully transmitted",
	ErrTxSocketWrite:   "transmit socket write failed",

	ErrNetworkDown:   "network interface is down",
	ErrDroppedFrames: "kernel dropped frames on receive",
	ErrNotCanFd:      "interface MTU does not support CAN-FD",

	ErrAlreadyRegistered: "a handler with this callback identity is already registered",
	ErrNotFound:          "no handler with this callback identity is registered",

	ErrMutexInit:    "failed to initialize interface mutex",
	ErrMutexLock:    "failed to lock interface mutex",
	ErrThreadAlloc:  "failed to allocate driver thread",
	ErrThreadCreate: "failed to start driver thread",
}

// Error implements the error interface so a Code can be returned and
// compared anywhere a plain error is expected.
func (c Code) Error() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return "unknown error"
}

// Strerror is the companion strerror(code) -> string mapping named in
// spec.md §6, kept alongside Code.Error() for callers coming from the
// C-flavored call surface this library's sibling collaborators use.
func Strerror(c Code) string {
	return c.Error()
}
