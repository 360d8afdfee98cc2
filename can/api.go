package can

import "golang.org/x/sys/unix"

// TxFrame writes one frame on the interface's TX endpoint at the
// appropriate MTU (spec.md §4.7 tx_frame()).
func (ci *Interface) TxFrame(frame Frame) Code {
	ci.mu.Lock()
	tx := ci.tx
	ci.mu.Unlock()
	if tx == nil {
		return ErrNullInterface
	}
	return tx.Write(frame)
}

// RegisterErrorHandler adds fn to the error-handler list. Two records
// on one interface must not share callback identity (spec.md §3/§4.4).
func (ci *Interface) RegisterErrorHandler(fn ErrorHandler) Code {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	handlers, code := addErrorHandler(ci.errorHandlers, fn)
	ci.errorHandlers = handlers
	return code
}

// UnregisterErrorHandler removes fn from the error-handler list.
func (ci *Interface) UnregisterErrorHandler(fn ErrorHandler) Code {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	handlers, code := removeErrorHandlerByID(ci.errorHandlers, handlerIdentity(fn))
	ci.errorHandlers = handlers
	return code
}

// RegisterRxHandler atomically opens an RX endpoint with the given
// filter vector and links fn to it (spec.md §4.7
// register_rx_handler()).
func (ci *Interface) RegisterRxHandler(fn RxHandler, filters []unix.CanFilter) Code {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	id := handlerIdentity(fn)
	for _, r := range ci.rxHandlers {
		if r.id == id {
			return ErrAlreadyRegistered
		}
	}

	ep, code := openRxEndpoint(ci.Index, &ci.cfg, filters)
	if code != None {
		return code
	}

	ci.rx = append(ci.rx, ep)
	ci.rxHandlers = append(ci.rxHandlers, rxHandlerRecord{id: id, fn: fn, endpoint: ep})
	ci.rebuildReadinessLocked()
	return None
}

// UnregisterRxHandler closes the endpoint registered against fn and
// drops its handler record.
func (ci *Interface) UnregisterRxHandler(fn RxHandler) Code {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	records, ep, code := removeRxHandlerByID(ci.rxHandlers, handlerIdentity(fn))
	if code != None {
		return code
	}
	ci.rxHandlers = records
	ci.removeRxEndpointLocked(ep)
	return None
}

// OpenRxSocket opens an RX endpoint with no attached callback, for
// poll-one workflows (spec.md §4.7). The returned Endpoint's identity
// is what Event.EndpointID will carry for frames read from it.
func (ci *Interface) OpenRxSocket(filters []unix.CanFilter) (*Endpoint, Code) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	ep, code := openRxEndpoint(ci.Index, &ci.cfg, filters)
	if code != None {
		return nil, code
	}
	ci.rx = append(ci.rx, ep)
	ci.rebuildReadinessLocked()
	return ep, None
}

// CloseRxSocket is OpenRxSocket's inverse.
func (ci *Interface) CloseRxSocket(ep *Endpoint) Code {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.removeRxEndpointLocked(ep)
	return None
}

// removeRxEndpointLocked drops ep from the RX list, closes it, and
// rebuilds the cached readiness set. Must be called with mu held.
func (ci *Interface) removeRxEndpointLocked(ep *Endpoint) {
	if ep == nil {
		return
	}
	for i, e := range ci.rx {
		if e == ep {
			// Order-preserving removal: Poll drains RX endpoints in
			// registration order.
			ci.rx = append(ci.rx[:i], ci.rx[i+1:]...)
			break
		}
	}
	ep.Close()
	ci.rebuildReadinessLocked()
}
