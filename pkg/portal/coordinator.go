package portal

import (
	"fmt"
	"sync"

	golog "github.com/fclairamb/go-log"
	"github.com/godbus/dbus/v5"

	"github.com/wavegate/wavegate/pkg/logging"
)

// State of one consent dialog.
type State int

const (
	// StateIssuing means the AccessDevice call is in flight.
	StateIssuing State = iota
	// StateAwaiting means the portal accepted the request and the user has
	// not answered yet.
	StateAwaiting
	// StateDone means the dialog was answered, timed out, or cancelled.
	StateDone
)

// Dialog is one in-flight consent request. Its result callback fires at most
// once; cancelling drops the callback without firing it.
type Dialog struct {
	mu       sync.Mutex
	state    State
	path     dbus.ObjectPath
	remove   func()
	onResult func(granted bool)
}

// Coordinator issues consent dialogs over a portal connection.
type Coordinator struct {
	conn Conn
	log  golog.Logger
}

// NewCoordinator wraps conn. A nil logger falls back to the global app
// logger.
func NewCoordinator(conn Conn, logger golog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.App
	}
	return &Coordinator{conn: conn, log: logger}
}

// Begin asks the portal whether pid may use device. onResult is invoked once
// with the user's decision, from the bus dispatch goroutine; it is never
// invoked after Cancel. Errors from the portal round-trip or the signal
// subscription are returned without invoking onResult.
func (c *Coordinator) Begin(pid uint32, device string, onResult func(granted bool)) (*Dialog, error) {
	d := &Dialog{state: StateIssuing, onResult: onResult}

	handle, err := c.conn.AccessDevice(pid, []string{device})
	if err != nil {
		return nil, fmt.Errorf("portal call: %w", err)
	}
	d.path = handle

	remove, err := c.conn.AddResponseFilter(d.response)
	if err != nil {
		return nil, fmt.Errorf("portal response subscription: %w", err)
	}

	d.mu.Lock()
	if d.state == StateDone {
		// answered before the subscription was recorded
		d.mu.Unlock()
		remove()
		return d, nil
	}
	d.remove = remove
	d.state = StateAwaiting
	d.mu.Unlock()

	c.log.Debug("portal dialog issued", "device", device, "pid", pid, "path", string(handle))
	return d, nil
}

// response handles a Response signal, ignoring those for other requests.
func (d *Dialog) response(path dbus.ObjectPath, code uint32) {
	d.mu.Lock()
	match := path == d.path
	d.mu.Unlock()
	if !match {
		return
	}
	d.Resolve(code == 0)
}

// Resolve finishes the dialog with the given outcome and reports whether
// this call was the one that finished it.
func (d *Dialog) Resolve(granted bool) bool {
	d.mu.Lock()
	if d.state == StateDone {
		d.mu.Unlock()
		return false
	}
	d.state = StateDone
	remove := d.remove
	cb := d.onResult
	d.onResult = nil
	d.mu.Unlock()

	if remove != nil {
		remove()
	}
	if cb != nil {
		cb(granted)
	}
	return true
}

// Cancel tears down the signal subscription and forgets the result callback
// without invoking it.
func (d *Dialog) Cancel() {
	d.mu.Lock()
	if d.state == StateDone {
		d.mu.Unlock()
		return
	}
	d.state = StateDone
	remove := d.remove
	d.onResult = nil
	d.mu.Unlock()

	if remove != nil {
		remove()
	}
}

// State returns the dialog's current state.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Path returns the portal request object path.
func (d *Dialog) Path() dbus.ObjectPath {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}
