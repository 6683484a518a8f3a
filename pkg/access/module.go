// Package access is the access-control core: it intercepts every sensitive
// operation a connected client attempts against the server's object graph
// and decides, per operation, whether to allow it, block it, or defer to the
// desktop portal for user consent.
package access

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	golog "github.com/fclairamb/go-log"

	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/logging"
	"github.com/wavegate/wavegate/pkg/metrics"
	"github.com/wavegate/wavegate/pkg/policy"
	"github.com/wavegate/wavegate/pkg/portal"
	"github.com/wavegate/wavegate/pkg/registry"
	"github.com/wavegate/wavegate/pkg/sandbox"
)

// Options configures the access module.
type Options struct {
	// Bus is the host's access-hook bus. Required.
	Bus *hooks.Bus

	// Objects resolves stream indices for ownership checks. Required.
	Objects registry.ObjectSource

	// Portal issues consent dialogs. When nil, check_portal rules deny.
	Portal *portal.Coordinator

	// Sandbox classifies client processes. When nil a classifier on the
	// real filesystem is used.
	Sandbox *sandbox.Classifier

	// Overrides adjusts the built-in policies at initialization.
	Overrides *policy.Overrides

	// PortalTimeout arms a per-dialog timer that resolves an unanswered
	// dialog as granted. Zero disables the timer.
	PortalTimeout time.Duration

	Logger  golog.Logger
	Metrics metrics.Metrics
}

// Module is the root of the access-control core. It owns the policy table
// and the per-client records, and registers one handler per access-hook kind
// on the bus. Register it on the host's client registry to receive lifecycle
// notifications.
type Module struct {
	bus        *hooks.Bus
	objects    registry.ObjectSource
	portal     *portal.Coordinator
	classifier *sandbox.Classifier
	log        golog.Logger
	metrics    metrics.Metrics

	policies      *policy.Table
	defaultPolicy uint32
	portalPolicy  uint32

	portalTimeout time.Duration

	mu      sync.Mutex
	clients map[uint32]*clientData
	slots   []*hooks.Slot
	closed  bool

	started   time.Time
	decisions atomic.Uint64
}

// New builds the policy table and attaches the module to the hook bus.
func New(opts Options) (*Module, error) {
	if opts.Bus == nil {
		return nil, errors.New("hook bus is required")
	}
	if opts.Objects == nil {
		return nil, errors.New("object source is required")
	}

	log := opts.Logger
	if log == nil {
		log = logging.App
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.Noop{}
	}
	cls := opts.Sandbox
	if cls == nil {
		cls = sandbox.NewClassifier(nil)
	}

	m := &Module{
		bus:           opts.Bus,
		objects:       opts.Objects,
		portal:        opts.Portal,
		classifier:    cls,
		log:           log,
		metrics:       met,
		policies:      policy.NewTable(),
		portalTimeout: opts.PortalTimeout,
		clients:       make(map[uint32]*clientData),
		started:       time.Now(),
	}

	m.defaultPolicy, m.portalPolicy = buildPolicies(m.policies)
	if err := opts.Overrides.Apply(m.policies, m.defaultPolicy, m.portalPolicy); err != nil {
		return nil, err
	}

	for k := hooks.Kind(0); k < hooks.KindMax; k++ {
		cb := m.checkAccess
		if k == hooks.FilterSubscribeEvent {
			cb = m.filterEvent
		}
		m.slots = append(m.slots, m.bus.Register(k, hooks.Early-1, cb))
	}

	return m, nil
}

// buildPolicies creates the two well-known policies. Both start all-block;
// the portal policy differs from the default only in deferring playback,
// record and sample playback to the portal.
func buildPolicies(t *policy.Table) (defaultPolicy, portalPolicy uint32) {
	infoHooks := []hooks.Kind{
		hooks.GetSinkInfo,
		hooks.GetSourceInfo,
		hooks.GetServerInfo,
		hooks.GetModuleInfo,
		hooks.GetCardInfo,
		hooks.Stat,
		hooks.GetSampleInfo,
	}
	ownerHooks := []hooks.Kind{
		hooks.GetClientInfo,
		hooks.KillClient,
		hooks.GetSinkInputInfo,
		hooks.MoveSinkInput,
		hooks.SetSinkInputVolume,
		hooks.SetSinkInputMute,
		hooks.KillSinkInput,
		hooks.GetSourceOutputInfo,
		hooks.MoveSourceOutput,
		hooks.SetSourceOutputVolume,
		hooks.SetSourceOutputMute,
		hooks.KillSourceOutput,
	}
	mediaHooks := []hooks.Kind{
		hooks.PlaySample,
		hooks.ConnectPlayback,
		hooks.ConnectRecord,
	}

	defaultPolicy = t.CreatePolicy(policy.Block)
	for _, k := range infoHooks {
		t.SetRule(defaultPolicy, k, policy.Allow)
	}
	for _, k := range ownerHooks {
		t.SetRule(defaultPolicy, k, policy.CheckOwner)
	}
	for _, k := range mediaHooks {
		t.SetRule(defaultPolicy, k, policy.Allow)
	}

	portalPolicy = t.CreatePolicy(policy.Block)
	for _, k := range infoHooks {
		t.SetRule(portalPolicy, k, policy.Allow)
	}
	for _, k := range ownerHooks {
		t.SetRule(portalPolicy, k, policy.CheckOwner)
	}
	for _, k := range mediaHooks {
		t.SetRule(portalPolicy, k, policy.CheckPortal)
	}

	return defaultPolicy, portalPolicy
}

// DefaultPolicy returns the index of the policy assigned to trusted clients.
func (m *Module) DefaultPolicy() uint32 { return m.defaultPolicy }

// PortalPolicy returns the index of the policy assigned to sandboxed clients.
func (m *Module) PortalPolicy() uint32 { return m.portalPolicy }

// Policies returns the policy table.
func (m *Module) Policies() *policy.Table { return m.policies }

// Close unregisters the hook handlers in reverse registration order and
// drops all client records, cancelling pending dialogs and timers.
func (m *Module) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	slots := m.slots
	m.slots = nil
	cds := make([]*clientData, 0, len(m.clients))
	for _, cd := range m.clients {
		cds = append(cds, cd)
	}
	m.clients = make(map[uint32]*clientData)
	m.mu.Unlock()

	for i := len(slots) - 1; i >= 0; i-- {
		m.bus.Unregister(slots[i])
	}
	for _, cd := range cds {
		if cd.timer != nil {
			cd.timer.Stop()
		}
		if cd.dialog != nil {
			cd.dialog.Cancel()
		}
	}
}

// ClientCount reports how many clients are currently tracked.
func (m *Module) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// DecisionCount reports how many verdicts the module has produced.
func (m *Module) DecisionCount() uint64 {
	return m.decisions.Load()
}

// StartTime reports when the module was created.
func (m *Module) StartTime() time.Time {
	return m.started
}
