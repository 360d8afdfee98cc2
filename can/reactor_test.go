package can

import (
	"sync"
	"testing"
)

func TestDispatchErrorEventCallsErrorHandlersOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	ci := &Interface{}
	ci.errorHandlers = append(ci.errorHandlers, errorHandlerRecord{
		id: 1,
		fn: func(Code) {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	})

	ep := &Endpoint{fd: 5}
	ci.rx = append(ci.rx, ep)
	ci.rxHandlers = append(ci.rxHandlers, rxHandlerRecord{id: 2, fn: func(Event) {
		t.Fatal("an error event must not reach an RX handler")
	}, endpoint: ep})

	ev := Event{
		Frame:      Frame{ID: CanErrFlag | ErrMaskBusOff},
		EndpointID: ep.fd,
		IsRx:       true,
		IsError:    true,
	}
	ci.dispatch(ev)

	if calls != 1 {
		t.Fatalf("error handler invoked %d times, want exactly 1 (open question #3)", calls)
	}
}

func TestDispatchRxEventRoutesOnlyToMatchingEndpoint(t *testing.T) {
	ci := &Interface{}
	epA := &Endpoint{fd: 1}
	epB := &Endpoint{fd: 2}
	ci.rx = append(ci.rx, epA, epB)

	var gotA, gotB int
	ci.rxHandlers = append(ci.rxHandlers,
		rxHandlerRecord{id: 10, fn: func(Event) { gotA++ }, endpoint: epA},
		rxHandlerRecord{id: 11, fn: func(Event) { gotB++ }, endpoint: epB},
	)

	ci.dispatch(Event{EndpointID: epA.fd, IsRx: true})

	if gotA != 1 || gotB != 0 {
		t.Fatalf("gotA=%d gotB=%d, want gotA=1 gotB=0", gotA, gotB)
	}
}

func TestDispatchDroppedFramesAlsoNotifiesErrorHandlers(t *testing.T) {
	ci := &Interface{}
	var errCalls []Code
	ci.errorHandlers = append(ci.errorHandlers, errorHandlerRecord{id: 1, fn: func(c Code) {
		errCalls = append(errCalls, c)
	}})
	ep := &Endpoint{fd: 9}
	ci.rx = append(ci.rx, ep)
	var rxCalls int
	ci.rxHandlers = append(ci.rxHandlers, rxHandlerRecord{id: 2, fn: func(Event) { rxCalls++ }, endpoint: ep})

	// Scenario: three datagrams with overflow deltas 0, 0, 5.
	deltas := []uint32{0, 0, 5}
	for _, d := range deltas {
		ci.dispatch(Event{EndpointID: ep.fd, IsRx: true, DroppedFrames: d})
	}

	if rxCalls != 3 {
		t.Fatalf("rxCalls = %d, want 3", rxCalls)
	}
	if len(errCalls) != 1 || errCalls[0] != ErrDroppedFrames {
		t.Fatalf("errCalls = %v, want exactly one ErrDroppedFrames", errCalls)
	}
}

func TestErrorCodeFromFrameBusOff(t *testing.T) {
	code := errorCodeFromFrame(Frame{ID: CanErrFlag | ErrMaskBusOff})
	if code != ErrNetworkDown {
		t.Fatalf("got %v, want ErrNetworkDown", code)
	}
}
