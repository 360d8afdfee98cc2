package can

// Configurator is the call surface this core expects from the
// netlink-based interface configuration layer named OUT OF SCOPE by
// spec.md §1 — it is implemented by a sibling collaborator (e.g. an
// rtnetlink-backed package), not by this module. Init calls it with
// exactly the operations spec.md §4.7/§9 name; nothing else here
// speaks netlink directly.
type Configurator interface {
	Start(ifaceIndex int) error
	Stop(ifaceIndex int) error
	GetState(ifaceIndex int) (up bool, err error)

	SetBitrate(ifaceIndex int, bitrate uint32) error
	GetBitrate(ifaceIndex int) (uint32, error)

	SetDataBitrate(ifaceIndex int, bitrate uint32) error
	GetDataBitrate(ifaceIndex int) (uint32, error)

	SetRestartMs(ifaceIndex int, ms uint32) error
	GetRestartMs(ifaceIndex int) (uint32, error)

	SetCtrlMode(ifaceIndex int, mode uint32) error
	GetCtrlMode(ifaceIndex int) (uint32, error)

	SetBitTiming(ifaceIndex int, timing BitTiming) error
	GetBitTiming(ifaceIndex int) (BitTiming, error)

	Stats(ifaceIndex int) (Stats, error)
}

// BitTiming is the neutral shape of a CAN bit-timing configuration;
// the Configurator implementation maps it onto can_bittiming.
type BitTiming struct {
	BitrateHz uint32
	SamplePoint uint32
	TimeQuanta uint32
	PropSeg    uint32
	PhaseSeg1  uint32
	PhaseSeg2  uint32
	SJW        uint32
	BRP        uint32
}

// Stats is the neutral shape of interface-level CAN statistics read
// back through the netlink collaborator.
type Stats struct {
	BusErrors       uint32
	ArbitrationLost uint32
	ErrorWarning    uint32
	ErrorPassive    uint32
	BusOff          uint32
}

// applyNetlinkConfig drives the Configurator through the sequence
// spec.md §4.7/§9 describes for Init: apply every non-sentinel field,
// verifying the read-back when NlCmdVerify is set.
//
// Open-question resolutions (spec.md §9, items 1-2): the data-phase
// bitrate write uses cfg.DBitrate (not a copy of cfg.Bitrate), and the
// bit-timing branch actually calls SetBitTiming instead of writing
// RestartMs a second time.
func applyNetlinkConfig(nl Configurator, ifaceIndex int, cfg *Configuration) Code {
	if cfg.Bitrate != InvalidRate {
		if err := nl.SetBitrate(ifaceIndex, cfg.Bitrate); err != nil {
			return ErrNetlinkBitrateMismatch
		}
		if cfg.NlCmdVerify {
			got, err := nl.GetBitrate(ifaceIndex)
			if err != nil || got != cfg.Bitrate {
				return ErrNetlinkBitrateMismatch
			}
		}
	}

	if cfg.DBitrate != InvalidRate {
		if err := nl.SetDataBitrate(ifaceIndex, cfg.DBitrate); err != nil {
			return ErrNetlinkDBitrateMismatch
		}
		if cfg.NlCmdVerify {
			got, err := nl.GetDataBitrate(ifaceIndex)
			if err != nil || got != cfg.DBitrate {
				return ErrNetlinkDBitrateMismatch
			}
		}
	}

	if cfg.RestartMs != InvalidRate {
		if err := nl.SetRestartMs(ifaceIndex, cfg.RestartMs); err != nil {
			return ErrNetlinkRestartMsMismatch
		}
		if cfg.NlCmdVerify {
			got, err := nl.GetRestartMs(ifaceIndex)
			if err != nil || got != cfg.RestartMs {
				return ErrNetlinkRestartMsMismatch
			}
		}
	}

	if cfg.CtrlMode != CtrlModeUnconfigured {
		if err := nl.SetCtrlMode(ifaceIndex, cfg.CtrlMode); err != nil {
			return ErrNetlinkCtrlModeMismatch
		}
		if cfg.NlCmdVerify {
			got, err := nl.GetCtrlMode(ifaceIndex)
			if err != nil || got != cfg.CtrlMode {
				return ErrNetlinkCtrlModeMismatch
			}
		}
	}

	if cfg.BitTiming != nil {
		if err := nl.SetBitTiming(ifaceIndex, *cfg.BitTiming); err != nil {
			return ErrNetlinkBitTimingMismatch
		}
		if cfg.NlCmdVerify {
			got, err := nl.GetBitTiming(ifaceIndex)
			if err != nil || got != *cfg.BitTiming {
				return ErrNetlinkBitTimingMismatch
			}
		}
	}

	return None
}
