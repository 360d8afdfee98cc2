package can

// Sentinel values meaning "leave as set externally" / "unconfigured".
const (
	InvalidRate         uint32 = 0xFFFFFFFF
	CtrlModeUnconfigured uint32 = 0xFFFFFFFF
)

// Controller mode bits, matching the Linux CAN_CTRLMODE_* netlink flags
// the external netlink collaborator (spec.md §6) is expected to accept.
const (
	CtrlModeLoopback      uint32 = 0x01
	CtrlModeListenOnly    uint32 = 0x02
	CtrlModeTripleSampling uint32 = 0x04
	CtrlModeOneShot       uint32 = 0x08
	CtrlModeBerrReporting uint32 = 0x10
	CtrlModeFD            uint32 = 0x20
	CtrlModePresumeAck    uint32 = 0x40
	CtrlModeFDNonISO      uint32 = 0x80
)

// Error classes, matching the Linux CAN_ERR_* frame flags; ErrorMask
// selects which of these are delivered to user space as error frames.
const (
	ErrMaskTxTimeout  uint32 = 0x0001
	ErrMaskLostArb    uint32 = 0x0002
	ErrMaskController uint32 = 0x0004
	ErrMaskProtocol   uint32 = 0x0008
	ErrMaskTransceiver uint32 = 0x0010
	ErrMaskNoAck      uint32 = 0x0020
	ErrMaskBusOff     uint32 = 0x0040
	ErrMaskBusError   uint32 = 0x0080
	ErrMaskRestarted  uint32 = 0x0100

	defaultErrorMask = ErrMaskTxTimeout | ErrMaskController | ErrMaskBusOff | ErrMaskBusError | ErrMaskRestarted
)

// Configuration is the value record spec.md §3 describes: a snapshot
// applied once at Init. Afterwards only the TxBufLenActual and
// RxBufLenActual read-back fields change, written when an endpoint is
// opened with a non-zero buffer length.
type Configuration struct {
	NlCmdVerify    bool
	CanFDEnabled   bool
	ProcessHeader  bool
	HwTimestamp    bool
	Bitrate        uint32
	DBitrate       uint32
	RestartMs      uint32
	CtrlMode       uint32
	ErrorMask      uint32
	PolledMode     bool
	TxBufLen       uint32
	RxBufLen       uint32
	TxBufLenActual uint32
	RxBufLenActual uint32

	// BitTiming is nil (sentinel "leave as set externally") unless the
	// caller wants explicit bit-timing parameters applied during Init.
	BitTiming *BitTiming
}

// DefaultConfiguration returns the set_defconfig() defaults from
// spec.md §6.
func DefaultConfiguration() Configuration {
	return Configuration{
		NlCmdVerify:   true,
		CanFDEnabled:  false,
		ProcessHeader: true,
		HwTimestamp:   false,
		Bitrate:       InvalidRate,
		DBitrate:      InvalidRate,
		RestartMs:     InvalidRate,
		CtrlMode:      CtrlModeUnconfigured,
		ErrorMask:     defaultErrorMask,
		PolledMode:    false,
	}
}

// Validate checks option combinations the Data Model's invariants rule
// out before any socket is ever opened, in the same spirit as the
// pack's socket listener configs validating up front
// (ListenerConfig.Validate in tools/uping, other_examples).
func (c *Configuration) Validate() error {
	if c.HwTimestamp && !c.ProcessHeader {
		return ErrSockoptTimestamp
	}
	return nil
}
