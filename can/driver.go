package can

import (
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// driverThread is the owned worker spec.md §4.6 describes: it repeats
// the full Reactor pump at the interface's configured poll timeout and
// yields each iteration until told to stop.
type driverThread struct {
	iface *Interface
	done  chan struct{}
	quit  chan struct{}
}

func newDriverThread(iface *Interface) *driverThread {
	return &driverThread{iface: iface, done: make(chan struct{}), quit: make(chan struct{})}
}

func (d *driverThread) start() {
	go d.run()
}

func (d *driverThread) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.done)

	setRealtimeFIFO()

	for {
		select {
		case <-d.quit:
			return
		default:
		}

		d.iface.mu.Lock()
		running := d.iface.running
		timeout := d.iface.pollTimeout
		d.iface.mu.Unlock()
		if !running {
			return
		}

		d.iface.Poll(timeout)
		runtime.Gosched()
	}
}

// stop clears the run flag's effect by closing quit, then waits for
// the worker goroutine to observe it and exit.
func (d *driverThread) stop() {
	close(d.quit)
	<-d.done
}

// setRealtimeFIFO best-effort schedules the calling OS thread as
// SCHED_FIFO, "where the host permits" per spec.md §4.6. There is no
// wrapper for sched_setscheduler in golang.org/x/sys/unix, so this
// issues the raw syscall the same way the teacher's socketcanv3 issues
// SYS_RECVMMSG directly (pkg/can/socketcanv3/socketcanv3.go).
func setRealtimeFIFO() {
	const schedFIFO = 1
	param := struct{ priority int32 }{priority: 10}
	tid, _, _ := unix.Syscall(unix.SYS_GETTID, 0, 0, 0)
	unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, tid, uintptr(schedFIFO), uintptr(unsafe.Pointer(&param)))
	// Failure (no CAP_SYS_NICE, non-Linux host, etc) is silently
	// tolerated: the worker still runs, just at the default scheduling
	// class.
}

// SetThreadPollRate mutates the worker's per-iteration timeout
// (spec.md §4.7).
func (ci *Interface) SetThreadPollRate(d time.Duration) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.pollTimeout = d
}

// SetThreadPollRateMsec is SetThreadPollRate's millisecond convenience form.
func (ci *Interface) SetThreadPollRateMsec(ms int) {
	ci.SetThreadPollRate(time.Duration(ms) * time.Millisecond)
}
