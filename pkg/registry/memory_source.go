package registry

import "sync"

// MemoryRegistry implements ObjectSource and drives ClientWatcher callbacks
// from explicit lifecycle calls. It stands in for the host server in tests
// and in the simulation command.
type MemoryRegistry struct {
	mu            sync.RWMutex
	clients       map[uint32]*Client
	sinkInputs    map[uint32]*SinkInput
	sourceOutputs map[uint32]*SourceOutput
	watchers      []ClientWatcher
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		clients:       make(map[uint32]*Client),
		sinkInputs:    make(map[uint32]*SinkInput),
		sourceOutputs: make(map[uint32]*SourceOutput),
	}
}

// Watch subscribes w to client lifecycle notifications.
func (r *MemoryRegistry) Watch(w ClientWatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, w)
}

func (r *MemoryRegistry) snapshotWatchers() []ClientWatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws := make([]ClientWatcher, len(r.watchers))
	copy(ws, r.watchers)
	return ws
}

// PutClient registers a newly connected client and notifies watchers.
func (r *MemoryRegistry) PutClient(c *Client) {
	r.mu.Lock()
	r.clients[c.Index] = c
	r.mu.Unlock()

	for _, w := range r.snapshotWatchers() {
		w.ClientPut(c)
	}
}

// AuthClient marks a client's credentials as established and notifies
// watchers. Unknown indices are ignored.
func (r *MemoryRegistry) AuthClient(index uint32) {
	r.mu.Lock()
	c, ok := r.clients[index]
	if ok {
		c.CredsValid = true
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	for _, w := range r.snapshotWatchers() {
		w.ClientAuth(c)
	}
}

// SetClientProplist replaces a client's property list and notifies watchers.
func (r *MemoryRegistry) SetClientProplist(index uint32, proplist map[string]string) {
	r.mu.Lock()
	c, ok := r.clients[index]
	if ok {
		c.Proplist = proplist
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	for _, w := range r.snapshotWatchers() {
		w.ClientProplistChanged(c)
	}
}

// UnlinkClient removes a client and notifies watchers.
func (r *MemoryRegistry) UnlinkClient(index uint32) {
	r.mu.Lock()
	c, ok := r.clients[index]
	if ok {
		delete(r.clients, index)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	for _, w := range r.snapshotWatchers() {
		w.ClientUnlink(c)
	}
}

// Client returns the client record for an index.
func (r *MemoryRegistry) Client(index uint32) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[index]
	return c, ok
}

// AddSinkInput registers a playback stream.
func (r *MemoryRegistry) AddSinkInput(si *SinkInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinkInputs[si.Index] = si
}

// RemoveSinkInput drops a playback stream.
func (r *MemoryRegistry) RemoveSinkInput(index uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinkInputs, index)
}

// SinkInput implements ObjectSource.
func (r *MemoryRegistry) SinkInput(index uint32) (*SinkInput, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	si, ok := r.sinkInputs[index]
	return si, ok
}

// AddSourceOutput registers a record stream.
func (r *MemoryRegistry) AddSourceOutput(so *SourceOutput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sourceOutputs[so.Index] = so
}

// RemoveSourceOutput drops a record stream.
func (r *MemoryRegistry) RemoveSourceOutput(index uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sourceOutputs, index)
}

// SourceOutput implements ObjectSource.
func (r *MemoryRegistry) SourceOutput(index uint32) (*SourceOutput, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	so, ok := r.sourceOutputs[index]
	return so, ok
}
