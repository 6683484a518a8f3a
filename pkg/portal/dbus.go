package portal

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// SessionConn implements Conn on the user's session bus.
type SessionConn struct {
	conn *dbus.Conn

	mu      sync.Mutex
	filters map[uint64]func(dbus.ObjectPath, uint32)
	nextID  uint64
	matched bool
}

// Dial connects to the session bus.
func Dial() (*SessionConn, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return &SessionConn{
		conn:    conn,
		filters: make(map[uint64]func(dbus.ObjectPath, uint32)),
	}, nil
}

// AccessDevice implements Conn.
func (s *SessionConn) AccessDevice(pid uint32, devices []string) (dbus.ObjectPath, error) {
	var handle dbus.ObjectPath
	obj := s.conn.Object(BusName, DesktopPath)
	call := obj.Call(DeviceInterface+".AccessDevice", 0, pid, devices, map[string]dbus.Variant{})
	if err := call.Store(&handle); err != nil {
		return "", fmt.Errorf("calling AccessDevice: %w", err)
	}
	return handle, nil
}

// AddResponseFilter implements Conn. The first subscription installs the
// signal match and starts the dispatch goroutine.
func (s *SessionConn) AddResponseFilter(fn func(path dbus.ObjectPath, code uint32)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.matched {
		err := s.conn.AddMatchSignal(
			dbus.WithMatchInterface(RequestInterface),
			dbus.WithMatchMember(ResponseMember),
		)
		if err != nil {
			return nil, fmt.Errorf("subscribing to Request signals: %w", err)
		}

		ch := make(chan *dbus.Signal, 16)
		s.conn.Signal(ch)
		go s.dispatch(ch)
		s.matched = true
	}

	s.nextID++
	id := s.nextID
	s.filters[id] = fn

	remove := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.filters, id)
	}
	return remove, nil
}

func (s *SessionConn) dispatch(ch <-chan *dbus.Signal) {
	for sig := range ch {
		if sig.Name != RequestInterface+"."+ResponseMember {
			continue
		}
		code, ok := responseCode(sig.Body)
		if !ok {
			continue
		}

		s.mu.Lock()
		fns := make([]func(dbus.ObjectPath, uint32), 0, len(s.filters))
		for _, fn := range s.filters {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		for _, fn := range fns {
			fn(sig.Path, code)
		}
	}
}

// responseCode pulls the UINT32 response code out of a Response signal body.
func responseCode(body []interface{}) (uint32, bool) {
	if len(body) == 0 {
		return 0, false
	}
	code, ok := body[0].(uint32)
	return code, ok
}

// Close implements Conn. Closing the connection also closes the signal
// channel, ending the dispatch goroutine.
func (s *SessionConn) Close() error {
	return s.conn.Close()
}
