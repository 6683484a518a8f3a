// Package portal runs the asynchronous consent flow against the desktop
// portal: one AccessDevice method call per dialog, then a Response signal
// that carries the user's decision.
package portal

import "github.com/godbus/dbus/v5"

// Device tags understood by the portal.
const (
	DeviceMicrophone = "microphone"
	DeviceSpeakers   = "speakers"
)

// Portal service coordinates. The wire contract is fixed: AccessDevice takes
// (UINT32 pid, ARRAY<STRING> devices, DICT<STRING,VARIANT> options) and
// replies with the OBJECT_PATH of a request object, which later emits a
// Response signal whose first argument is a UINT32 code (0 = granted).
const (
	BusName          = "org.freedesktop.portal.Desktop"
	DesktopPath      = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	DeviceInterface  = "org.freedesktop.portal.Device"
	RequestInterface = "org.freedesktop.portal.Request"
	ResponseMember   = "Response"
)

// Conn is the slice of the session bus the coordinator needs.
type Conn interface {
	// AccessDevice performs the AccessDevice round-trip and returns the
	// portal request object path. The call blocks the caller until the
	// portal replies; the portal is a local service, but a stalled portal
	// stalls the caller with it.
	AccessDevice(pid uint32, devices []string) (dbus.ObjectPath, error)

	// AddResponseFilter subscribes fn to Response signals. The returned
	// function removes the subscription.
	AddResponseFilter(fn func(path dbus.ObjectPath, code uint32)) (remove func(), err error)

	// Close releases the underlying connection.
	Close() error
}
