package can

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const defaultPollTimeout = 1 * time.Second

// Interface is the per-interface aggregate spec.md §3/§4.4 names: one
// TX endpoint, any number of RX endpoints, the handler tables, the
// readiness set, and the synchronization state guarding all of it.
//
// Grounded on the teacher's BusManager (bus_manager.go) for the
// listener-table/dispatch shape, generalized from "one bus, one
// CAN-id-indexed table" to "N sockets, two handler tables, a kernel
// readiness wait".
type Interface struct {
	Name  string
	Index int

	logger *slog.Logger

	mu  sync.Mutex
	cfg Configuration

	tx *Endpoint
	rx []*Endpoint

	rxHandlers    []rxHandlerRecord
	errorHandlers []errorHandlerRecord

	pollfds []unix.PollFd // cached readiness set, rebuilt under mu

	pollTimeout time.Duration
	running     bool
	worker      *driverThread

	LastDropped uint32

	defaultHandlerID uintptr
}

// RequestInterface resolves a CAN interface by name and allocates a
// fresh, unopened Interface with empty handler lists and the default
// poll timeout, per spec.md §4.7 request().
func RequestInterface(name string) (*Interface, Code) {
	if name == "" {
		return nil, ErrNullInterface
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, ErrInterfaceIndex
	}
	return &Interface{
		Name:        name,
		Index:       iface.Index,
		logger:      slog.Default(),
		pollTimeout: defaultPollTimeout,
	}, None
}

// SetLogger overrides the default *slog.Logger used by the built-in
// error handler.
func (ci *Interface) SetLogger(logger *slog.Logger) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.logger = logger
}

// Init applies netlink configuration (if supplied and non-sentinel),
// starts the interface, opens and binds the TX endpoint, registers the
// default error handler, and spawns the driver thread unless
// cfg.PolledMode is set. Every failure path releases whatever it
// opened, per spec.md §5 "Resource scoping".
func (ci *Interface) Init(cfg Configuration, nl Configurator) Code {
	if err := cfg.Validate(); err != nil {
		return err.(Code)
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	if nl != nil {
		if err := nl.Start(ci.Index); err != nil {
			return ErrNetlinkStart
		}
		if code := applyNetlinkConfig(nl, ci.Index, &cfg); code != None {
			nl.Stop(ci.Index)
			return code
		}
	}

	tx, code := openTxEndpoint(ci.Name, ci.Index, &cfg)
	if code != None {
		if nl != nil {
			nl.Stop(ci.Index)
		}
		return code
	}

	ci.cfg = cfg
	ci.tx = tx
	ci.rebuildReadinessLocked()

	ci.registerDefaultErrorHandlerLocked()

	if !cfg.PolledMode {
		ci.worker = newDriverThread(ci)
		ci.running = true
		ci.worker.start()
	}

	return None
}

// Free stops the driver thread, closes every endpoint, and releases
// all handler records.
//
// Open-question resolution (spec.md §9 item 4): the run flag is
// cleared and the worker is joined before endpoints are released;
// Go's sync.Mutex needs no explicit destruction, so there is no
// "destroy mutex before cancel" ordering hazard to reproduce.
func (ci *Interface) Free() Code {
	ci.mu.Lock()
	ci.running = false
	worker := ci.worker
	ci.worker = nil
	ci.mu.Unlock()

	if worker != nil {
		worker.stop()
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	for _, ep := range ci.rx {
		ep.Close()
	}
	ci.rx = nil
	ci.rxHandlers = nil
	ci.errorHandlers = nil

	if ci.tx != nil {
		ci.tx.Close()
		ci.tx = nil
	}
	ci.pollfds = nil
	return None
}

// rebuildReadinessLocked regenerates the cached pollfd set from the TX
// endpoint plus every open RX endpoint. Must be called with mu held.
// Invariant (spec.md §3): the readiness set always equals {TX} ∪ {RX}.
func (ci *Interface) rebuildReadinessLocked() {
	pollfds := make([]unix.PollFd, 0, len(ci.rx)+1)
	for _, ep := range ci.rx {
		pollfds = append(pollfds, unix.PollFd{Fd: int32(ep.fd), Events: unix.POLLIN})
	}
	if ci.tx != nil {
		pollfds = append(pollfds, unix.PollFd{Fd: int32(ci.tx.fd), Events: unix.POLLIN})
	}
	ci.pollfds = pollfds
}

// registerDefaultErrorHandlerLocked installs the library-supplied
// logging handler spec.md §3/§9 requires be present after Init and
// addressable for later unregistration. A bound-method value's
// reflect code pointer is stable across calls to the same method, so
// storing it once here lets UnregisterErrorHandler(DefaultHandler-
// equivalent) match it back out of the table.
func (ci *Interface) registerDefaultErrorHandlerLocked() {
	handler := ci.logDefaultError
	ci.defaultHandlerID = handlerIdentity(ErrorHandler(handler))
	ci.errorHandlers = append(ci.errorHandlers, errorHandlerRecord{id: ci.defaultHandlerID, fn: handler})
}

func (ci *Interface) logDefaultError(code Code) {
	if code == ErrNetworkDown {
		ci.logger.Error("can link error", "interface", ci.Name, "code", int(code), "reason", code.Error())
		return
	}
	ci.logger.Warn("can link error", "interface", ci.Name, "code", int(code), "reason", code.Error())
}

func (ci *Interface) String() string {
	return fmt.Sprintf("can-interface(%s#%d)", ci.Name, ci.Index)
}
