package access

import (
	"time"

	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/portal"
	"github.com/wavegate/wavegate/pkg/registry"
	"github.com/wavegate/wavegate/pkg/subscription"
)

// asyncCache is one cached portal answer. granted is only meaningful when
// checked is true.
type asyncCache struct {
	checked bool
	granted bool
}

type seenKey struct {
	facility subscription.Facility
	object   uint32
}

// clientData is the per-client record: assigned policy, credential PID, the
// portal answer cache, the set of objects the client has been told about,
// and the single in-flight dialog slot.
type clientData struct {
	index  uint32
	policy uint32
	pid    int32

	cached [hooks.KindMax]asyncCache
	seen   map[seenKey]struct{}
	dialog *portal.Dialog
	timer  *time.Timer
}

// ClientPut implements registry.ClientWatcher. The client just connected and
// may not have authenticated yet; it still gets classified, which can only
// tighten later on auth.
func (m *Module) ClientPut(c *registry.Client) {
	pol := m.policyForClient(c)

	cd := &clientData{
		index:  c.Index,
		policy: pol,
		pid:    c.PID,
		seen:   make(map[seenKey]struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.clients[c.Index] = cd
	m.mu.Unlock()

	m.log.Debug("new client", "client", c.Index, "pid", c.PID, "policy", pol)
}

// ClientAuth implements registry.ClientWatcher. Credentials are established
// now, so the policy is re-evaluated.
func (m *Module) ClientAuth(c *registry.Client) {
	m.reclassify(c)
}

// ClientProplistChanged implements registry.ClientWatcher.
func (m *Module) ClientProplistChanged(c *registry.Client) {
	m.reclassify(c)
}

func (m *Module) reclassify(c *registry.Client) {
	pol := m.policyForClient(c)

	m.mu.Lock()
	cd, ok := m.clients[c.Index]
	if ok {
		cd.policy = pol
		cd.pid = c.PID
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.log.Debug("client reclassified", "client", c.Index, "pid", c.PID, "policy", pol)
}

// ClientUnlink implements registry.ClientWatcher. The record, any pending
// dialog and the timer go away together; a consent answer arriving after
// this point is dropped.
func (m *Module) ClientUnlink(c *registry.Client) {
	m.mu.Lock()
	cd, ok := m.clients[c.Index]
	if ok {
		delete(m.clients, c.Index)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if cd.timer != nil {
		cd.timer.Stop()
	}
	if cd.dialog != nil {
		cd.dialog.Cancel()
	}

	m.log.Debug("removed client", "client", c.Index)
}

// policyForClient picks the policy for a client: the portal policy for
// sandboxed processes, the default policy otherwise. Untrusted credentials
// classify as not sandboxed.
func (m *Module) policyForClient(c *registry.Client) uint32 {
	if !c.CredsValid {
		m.log.Debug("no trusted pid, assuming not sandboxed", "client", c.Index)
		return m.defaultPolicy
	}

	if m.classifier.IsSandboxed(c.PID) {
		m.log.Debug("client is sandboxed, choosing portal policy", "client", c.Index, "pid", c.PID)
		return m.portalPolicy
	}

	m.log.Debug("client not sandboxed, choosing default policy", "client", c.Index, "pid", c.PID)
	return m.defaultPolicy
}
