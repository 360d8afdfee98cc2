package can

import (
	"time"

	"golang.org/x/sys/unix"
)

// errorCodeFromFrame derives the error Code spec.md §4.5 dispatch rules
// ask for ("the error code derived from the frame's CAN id") by
// checking the CAN_ERR_* bits in priority order, worst condition first.
func errorCodeFromFrame(f Frame) Code {
	id := f.ID
	switch {
	case id&ErrMaskBusOff != 0:
		return ErrNetworkDown
	case id&ErrMaskBusError != 0:
		return ErrNetlinkStatsRead
	case id&ErrMaskController != 0:
		return ErrNetlinkGetState
	case id&ErrMaskTxTimeout != 0:
		return ErrTxRetryLater
	case id&ErrMaskRestarted != 0:
		return ErrNetlinkStart
	default:
		return ErrNetlinkStatsRead
	}
}

// dispatch routes one decoded Event to the registered handlers.
//
// Open-question resolution (spec.md §9 item 3): the error-handler list
// is invoked exactly once per event — either because the event is a
// link error, or, for a clean RX event, once more if it additionally
// carries a dropped-frame delta — never both for the same event.
func (ci *Interface) dispatch(ev Event) {
	ci.mu.Lock()
	errorHandlers := append([]errorHandlerRecord(nil), ci.errorHandlers...)
	rxHandlers := append([]rxHandlerRecord(nil), ci.rxHandlers...)
	ci.mu.Unlock()

	if ev.IsError {
		code := errorCodeFromFrame(ev.Frame)
		for _, h := range errorHandlers {
			h.fn(code)
		}
		return
	}

	if ev.DroppedFrames > 0 {
		for _, h := range errorHandlers {
			h.fn(ErrDroppedFrames)
		}
	}

	if ev.IsRx {
		for _, h := range rxHandlers {
			if h.endpoint != nil && h.endpoint.fd == ev.EndpointID {
				h.fn(ev)
			}
		}
	}
}

// drain repeatedly performs a non-blocking receive on ep until it
// yields no bytes ("would block") or an unrecoverable error, decoding
// and dispatching each event. Returns ErrNetworkDown if the kernel
// reports the link down; that return takes precedence over further
// draining within this pump (spec.md §7 propagation policy).
func (ci *Interface) drain(ep *Endpoint, isRx bool) Code {
	for {
		frame, ts, dropped, err := ep.Receive(&ci.cfg)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return None
			}
			if err == unix.ENETDOWN {
				return ErrNetworkDown
			}
			// Other transient errnos are tolerated; the next pump retries.
			return None
		}

		ci.mu.Lock()
		ci.LastDropped = ep.lastOverflow
		ci.mu.Unlock()

		ev := Event{
			Frame:         frame,
			Timestamp:     ts,
			EndpointID:    ep.fd,
			IsRx:          isRx,
			IsError:       IsErrorFrame(frame.ID),
			DroppedFrames: dropped,
		}
		ci.dispatch(ev)
	}
}

// readinessSnapshot is a defensive copy of the pollfd set plus the
// endpoints it corresponds to, taken under the interface mutex so the
// kernel wait itself need not hold it (spec.md §5, and the §9 "MAY
// clone the readiness set" improvement — chosen here; see DESIGN.md).
type readinessSnapshot struct {
	pollfds []unix.PollFd
	rx      []*Endpoint
	tx      *Endpoint
}

func (ci *Interface) snapshot() readinessSnapshot {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return readinessSnapshot{
		pollfds: append([]unix.PollFd(nil), ci.pollfds...),
		rx:      append([]*Endpoint(nil), ci.rx...),
		tx:      ci.tx,
	}
}

// Poll waits for readiness up to timeout and drains every ready
// endpoint, dispatching through the handler tables (spec.md §4.5
// "blocking single pump"). RX endpoints are drained in registration
// order, then TX last (spec.md §5 ordering guarantee).
func (ci *Interface) Poll(timeout time.Duration) Code {
	snap := ci.snapshot()
	if len(snap.pollfds) == 0 {
		return None
	}

	n, err := unix.Poll(snap.pollfds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return None
		}
		return ErrNetworkDown
	}
	if n == 0 {
		return None
	}

	for i, ep := range snap.rx {
		if snap.pollfds[i].Revents&unix.POLLIN != 0 {
			if code := ci.drain(ep, true); code != None {
				return code
			}
		}
	}
	if snap.tx != nil {
		txIdx := len(snap.pollfds) - 1
		if snap.pollfds[txIdx].Revents&unix.POLLIN != 0 {
			if code := ci.drain(snap.tx, false); code != None {
				return code
			}
		}
	}
	return None
}

// PollMsec is Poll's millisecond convenience form (spec.md §4.5).
func (ci *Interface) PollMsec(ms int) Code {
	return ci.Poll(time.Duration(ms) * time.Millisecond)
}

// PollOne waits for readiness, reads and decodes at most one event and
// returns it (nil when nothing was read) without invoking any user
// handler (spec.md §4.5 "single-event pump").
//
// Open-question note (spec.md §9 item 5): this returns after the first
// ready RX endpoint without checking the rest, matching the
// documented "one event at a time" intent; callers must re-pump to
// observe further activity, including a ready TX.
func (ci *Interface) PollOne(timeout time.Duration) (*Event, Code) {
	snap := ci.snapshot()
	if len(snap.pollfds) == 0 {
		return nil, None
	}

	n, err := unix.Poll(snap.pollfds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return nil, None
		}
		return nil, ErrNetworkDown
	}
	if n == 0 {
		return nil, None
	}

	for i, ep := range snap.rx {
		if snap.pollfds[i].Revents&unix.POLLIN != 0 {
			return ci.readOne(ep, true)
		}
	}
	if snap.tx != nil {
		txIdx := len(snap.pollfds) - 1
		if snap.pollfds[txIdx].Revents&unix.POLLIN != 0 {
			return ci.readOne(snap.tx, false)
		}
	}
	return nil, None
}

func (ci *Interface) readOne(ep *Endpoint, isRx bool) (*Event, Code) {
	frame, ts, dropped, err := ep.Receive(&ci.cfg)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, None
		}
		if err == unix.ENETDOWN {
			return nil, ErrNetworkDown
		}
		return nil, None
	}
	ev := &Event{
		Frame:         frame,
		Timestamp:     ts,
		EndpointID:    ep.fd,
		IsRx:          isRx,
		IsError:       IsErrorFrame(frame.ID),
		DroppedFrames: dropped,
	}
	return ev, None
}
