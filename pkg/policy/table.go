package policy

import (
	"sync"

	"github.com/wavegate/wavegate/pkg/hooks"
)

// Policy maps every access hook kind to a rule.
type Policy struct {
	index uint32
	rules [hooks.KindMax]Rule
}

// Index returns the stable identifier of the policy.
func (p *Policy) Index() uint32 { return p.index }

// Rule returns the rule assigned to a hook kind.
func (p *Policy) Rule(k hooks.Kind) Rule {
	if !k.Valid() {
		return Unset
	}
	return p.rules[k]
}

// Table is the registry of policies. Policies are created and shaped during
// initialization; lookups are constant-time.
type Table struct {
	mu       sync.RWMutex
	next     uint32
	policies map[uint32]*Policy
}

// NewTable creates an empty policy table.
func NewTable() *Table {
	return &Table{policies: make(map[uint32]*Policy)}
}

// CreatePolicy allocates a policy with every hook set to def and returns its
// index.
func (t *Table) CreatePolicy(def Rule) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := &Policy{index: t.next}
	t.next++
	for i := range p.rules {
		p.rules[i] = def
	}
	t.policies[p.index] = p
	return p.index
}

// SetRule assigns a rule to one hook of an existing policy.
func (t *Table) SetRule(policyIndex uint32, k hooks.Kind, r Rule) error {
	if !k.Valid() {
		return ErrUnknownHook
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.policies[policyIndex]
	if !ok {
		return ErrUnknownPolicy
	}
	p.rules[k] = r
	return nil
}

// Rule returns the rule a policy assigns to a hook kind.
func (t *Table) Rule(policyIndex uint32, k hooks.Kind) (Rule, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.policies[policyIndex]
	if !ok {
		return Unset, ErrUnknownPolicy
	}
	return p.Rule(k), nil
}

// Lookup returns the policy for an index.
func (t *Table) Lookup(policyIndex uint32) (*Policy, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.policies[policyIndex]
	return p, ok
}
