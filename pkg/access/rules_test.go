package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/policy"
	"github.com/wavegate/wavegate/pkg/registry"
)

func TestTrustedClientInfoQuery(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(7)

	v := f.bus.Fire(&hooks.Request{Hook: hooks.GetSinkInfo, ClientIndex: 7, ObjectIndex: 3})
	assert.Equal(t, hooks.OK, v)
}

func TestUnknownClientIsDenied(t *testing.T) {
	f := newFixture(t, nil)

	v := f.bus.Fire(&hooks.Request{Hook: hooks.GetSinkInfo, ClientIndex: 99, ObjectIndex: 3})
	assert.Equal(t, hooks.Stop, v)
}

func TestCheckOwnerSinkInput(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(9)
	f.addTrustedClient(10)
	f.reg.AddSinkInput(&registry.SinkInput{Index: 42, Client: 9})

	v := f.bus.Fire(&hooks.Request{Hook: hooks.SetSinkInputVolume, ClientIndex: 9, ObjectIndex: 42})
	assert.Equal(t, hooks.OK, v)

	v = f.bus.Fire(&hooks.Request{Hook: hooks.SetSinkInputVolume, ClientIndex: 10, ObjectIndex: 42})
	assert.Equal(t, hooks.Stop, v)
}

func TestCheckOwnerSinkInputWithoutOwner(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(9)
	f.reg.AddSinkInput(&registry.SinkInput{Index: 43, Client: registry.NoClient})

	v := f.bus.Fire(&hooks.Request{Hook: hooks.KillSinkInput, ClientIndex: 9, ObjectIndex: 43})
	assert.Equal(t, hooks.Stop, v)
}

func TestCheckOwnerSinkInputMissing(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(9)

	v := f.bus.Fire(&hooks.Request{Hook: hooks.MoveSinkInput, ClientIndex: 9, ObjectIndex: 1})
	assert.Equal(t, hooks.Stop, v)
}

func TestCheckOwnerSourceOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)
	f.addTrustedClient(5)
	f.reg.AddSourceOutput(&registry.SourceOutput{Index: 8, Client: 4})

	v := f.bus.Fire(&hooks.Request{Hook: hooks.SetSourceOutputMute, ClientIndex: 4, ObjectIndex: 8})
	assert.Equal(t, hooks.OK, v)

	v = f.bus.Fire(&hooks.Request{Hook: hooks.KillSourceOutput, ClientIndex: 5, ObjectIndex: 8})
	assert.Equal(t, hooks.Stop, v)
}

func TestCheckOwnerClientOps(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(6)

	// a client may inspect and kill itself
	v := f.bus.Fire(&hooks.Request{Hook: hooks.GetClientInfo, ClientIndex: 6, ObjectIndex: 6})
	assert.Equal(t, hooks.OK, v)
	v = f.bus.Fire(&hooks.Request{Hook: hooks.KillClient, ClientIndex: 6, ObjectIndex: 6})
	assert.Equal(t, hooks.OK, v)

	// but not other clients
	v = f.bus.Fire(&hooks.Request{Hook: hooks.GetClientInfo, ClientIndex: 6, ObjectIndex: 7})
	assert.Equal(t, hooks.Stop, v)
	v = f.bus.Fire(&hooks.Request{Hook: hooks.KillClient, ClientIndex: 6, ObjectIndex: 7})
	assert.Equal(t, hooks.Stop, v)
}

func TestBlockRuleNeverPermits(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Overrides = &policy.Overrides{
			Default: map[string]string{"stat": "block"},
		}
	})
	f.addTrustedClient(3)

	for i := 0; i < 3; i++ {
		v := f.bus.Fire(&hooks.Request{Hook: hooks.Stat, ClientIndex: 3})
		assert.Equal(t, hooks.Stop, v)
	}
}
