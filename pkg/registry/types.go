// Package registry models the host server's object graph as seen by the
// access-control core: connected clients with their credentials, and the
// playback/record streams whose ownership the core checks.
package registry

import "github.com/wavegate/wavegate/pkg/hooks"

// NoClient marks a stream with no owning client.
const NoClient = hooks.NoIndex

// Client is the host's view of a connected client.
type Client struct {
	Index uint32

	// PID is the peer process id supplied by the credentials mechanism.
	// Only meaningful when CredsValid is true.
	PID        int32
	CredsValid bool

	Proplist map[string]string
}

// SinkInput is a playback stream. Client is NoClient when the stream was
// created without a client attachment.
type SinkInput struct {
	Index  uint32
	Client uint32
}

// SourceOutput is a record stream.
type SourceOutput struct {
	Index  uint32
	Client uint32
}

// ObjectSource resolves stream indices to their records.
type ObjectSource interface {
	SinkInput(index uint32) (*SinkInput, bool)
	SourceOutput(index uint32) (*SourceOutput, bool)
}

// ClientWatcher receives client lifecycle notifications from the registry.
// Callbacks are delivered in the order the registry processes the
// corresponding transitions.
type ClientWatcher interface {
	// ClientPut is called when a client connects, before it authenticates.
	ClientPut(c *Client)
	// ClientAuth is called once the client's credentials are established.
	ClientAuth(c *Client)
	// ClientProplistChanged is called when the client updates its properties.
	ClientProplistChanged(c *Client)
	// ClientUnlink is called when the client disconnects.
	ClientUnlink(c *Client)
}
