package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingWatcher struct {
	events []string
}

func (w *recordingWatcher) ClientPut(c *Client)             { w.events = append(w.events, "put") }
func (w *recordingWatcher) ClientAuth(c *Client)            { w.events = append(w.events, "auth") }
func (w *recordingWatcher) ClientProplistChanged(c *Client) { w.events = append(w.events, "proplist") }
func (w *recordingWatcher) ClientUnlink(c *Client)          { w.events = append(w.events, "unlink") }

func TestClientLifecycleNotifications(t *testing.T) {
	r := NewMemoryRegistry()
	w := &recordingWatcher{}
	r.Watch(w)

	r.PutClient(&Client{Index: 1, PID: 100})
	r.AuthClient(1)
	r.SetClientProplist(1, map[string]string{"application.name": "player"})
	r.UnlinkClient(1)

	assert.Equal(t, []string{"put", "auth", "proplist", "unlink"}, w.events)

	_, ok := r.Client(1)
	assert.False(t, ok)
}

func TestLifecycleIgnoresUnknownClients(t *testing.T) {
	r := NewMemoryRegistry()
	w := &recordingWatcher{}
	r.Watch(w)

	r.AuthClient(9)
	r.SetClientProplist(9, nil)
	r.UnlinkClient(9)

	assert.Empty(t, w.events)
}

func TestAuthMarksCredsValid(t *testing.T) {
	r := NewMemoryRegistry()
	r.PutClient(&Client{Index: 3, PID: 42})

	c, ok := r.Client(3)
	assert.True(t, ok)
	assert.False(t, c.CredsValid)

	r.AuthClient(3)
	c, _ = r.Client(3)
	assert.True(t, c.CredsValid)
}

func TestStreamLookups(t *testing.T) {
	r := NewMemoryRegistry()

	r.AddSinkInput(&SinkInput{Index: 42, Client: 9})
	r.AddSourceOutput(&SourceOutput{Index: 7, Client: NoClient})

	si, ok := r.SinkInput(42)
	assert.True(t, ok)
	assert.Equal(t, uint32(9), si.Client)

	so, ok := r.SourceOutput(7)
	assert.True(t, ok)
	assert.Equal(t, NoClient, so.Client)

	_, ok = r.SinkInput(1)
	assert.False(t, ok)

	r.RemoveSinkInput(42)
	_, ok = r.SinkInput(42)
	assert.False(t, ok)

	r.RemoveSourceOutput(7)
	_, ok = r.SourceOutput(7)
	assert.False(t, ok)
}
