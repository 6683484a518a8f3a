package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/registry"
	"github.com/wavegate/wavegate/pkg/subscription"
)

func fireEvent(f *fixture, client uint32, typ subscription.EventType, fac subscription.Facility, object uint32) hooks.Verdict {
	return f.bus.Fire(&hooks.Request{
		Hook:        hooks.FilterSubscribeEvent,
		ClientIndex: client,
		ObjectIndex: object,
		Event:       uint32(subscription.MakeEvent(typ, fac)),
	})
}

func (f *fixture) seen(client uint32, fac subscription.Facility, object uint32) bool {
	f.mod.mu.Lock()
	defer f.mod.mu.Unlock()
	cd, ok := f.mod.clients[client]
	if !ok {
		return false
	}
	_, ok = cd.seen[seenKey{facility: fac, object: object}]
	return ok
}

func TestEventForUnknownClientBlocked(t *testing.T) {
	f := newFixture(t, nil)

	v := fireEvent(f, 99, subscription.EventNew, subscription.FacilitySink, 1)
	assert.Equal(t, hooks.Stop, v)
}

func TestNewEventAdmittedWhenInspectable(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	// sinks are visible to everyone on the default policy
	v := fireEvent(f, 4, subscription.EventNew, subscription.FacilitySink, 3)
	assert.Equal(t, hooks.OK, v)
	assert.True(t, f.seen(4, subscription.FacilitySink, 3))
}

func TestNewEventBlockedForForeignStream(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)
	f.reg.AddSinkInput(&registry.SinkInput{Index: 77, Client: 5})

	v := fireEvent(f, 4, subscription.EventNew, subscription.FacilitySinkInput, 77)
	assert.Equal(t, hooks.Stop, v)
	assert.False(t, f.seen(4, subscription.FacilitySinkInput, 77))
}

func TestNewEventAdmittedForOwnStream(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)
	f.reg.AddSinkInput(&registry.SinkInput{Index: 77, Client: 4})

	v := fireEvent(f, 4, subscription.EventNew, subscription.FacilitySinkInput, 77)
	assert.Equal(t, hooks.OK, v)
	assert.True(t, f.seen(4, subscription.FacilitySinkInput, 77))
}

func TestChangeEventForSeenObjectPasses(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)
	f.reg.AddSinkInput(&registry.SinkInput{Index: 77, Client: 4})

	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventNew, subscription.FacilitySinkInput, 77))

	// the stream moves to another client; the change still reaches the
	// client that already knows the object
	f.reg.RemoveSinkInput(77)
	f.reg.AddSinkInput(&registry.SinkInput{Index: 77, Client: 5})
	v := fireEvent(f, 4, subscription.EventChange, subscription.FacilitySinkInput, 77)
	assert.Equal(t, hooks.OK, v)
}

func TestChangeEventForUnseenObjectRechecks(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	// change on an unseen sink behaves like new: admitted and remembered
	v := fireEvent(f, 4, subscription.EventChange, subscription.FacilitySink, 2)
	assert.Equal(t, hooks.OK, v)
	assert.True(t, f.seen(4, subscription.FacilitySink, 2))

	// change on an unseen foreign stream stays blocked
	f.reg.AddSourceOutput(&registry.SourceOutput{Index: 9, Client: 5})
	v = fireEvent(f, 4, subscription.EventChange, subscription.FacilitySourceOutput, 9)
	assert.Equal(t, hooks.Stop, v)
}

func TestRemoveOnlyForSeenObjects(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	// remove before new: blocked
	v := fireEvent(f, 4, subscription.EventRemove, subscription.FacilitySink, 3)
	assert.Equal(t, hooks.Stop, v)

	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventNew, subscription.FacilitySink, 3))

	// remove after new: passes and purges
	v = fireEvent(f, 4, subscription.EventRemove, subscription.FacilitySink, 3)
	assert.Equal(t, hooks.OK, v)
	assert.False(t, f.seen(4, subscription.FacilitySink, 3))

	// second remove: blocked again
	v = fireEvent(f, 4, subscription.EventRemove, subscription.FacilitySink, 3)
	assert.Equal(t, hooks.Stop, v)
}

func TestNewRemoveNewLeavesSingleEntry(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventNew, subscription.FacilitySink, 3))
	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventRemove, subscription.FacilitySink, 3))
	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventNew, subscription.FacilitySink, 3))

	f.mod.mu.Lock()
	entries := len(f.mod.clients[4].seen)
	f.mod.mu.Unlock()
	assert.Equal(t, 1, entries)
}

func TestSeenSetsAreTrackedPerClient(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)
	f.addTrustedClient(5)

	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventNew, subscription.FacilitySink, 3))
	assert.True(t, f.seen(4, subscription.FacilitySink, 3))
	assert.False(t, f.seen(5, subscription.FacilitySink, 3))

	// client 5 never learned about the sink, its remove is blocked
	v := fireEvent(f, 5, subscription.EventRemove, subscription.FacilitySink, 3)
	assert.Equal(t, hooks.Stop, v)
}

func TestUnknownEventTypeBlocked(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	v := f.bus.Fire(&hooks.Request{
		Hook:        hooks.FilterSubscribeEvent,
		ClientIndex: 4,
		ObjectIndex: 1,
		Event:       uint32(subscription.FacilitySink) | 0x30,
	})
	assert.Equal(t, hooks.Stop, v)
}

func TestUnknownFacilityBlocked(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	v := f.bus.Fire(&hooks.Request{
		Hook:        hooks.FilterSubscribeEvent,
		ClientIndex: 4,
		ObjectIndex: 1,
		Event:       0x000F, // facility with no info hook
	})
	assert.Equal(t, hooks.Stop, v)
}

func TestSeenSetClearedOnUnlink(t *testing.T) {
	f := newFixture(t, nil)
	f.addTrustedClient(4)

	require.Equal(t, hooks.OK, fireEvent(f, 4, subscription.EventNew, subscription.FacilitySink, 3))
	f.reg.UnlinkClient(4)

	// reconnecting starts with an empty seen set
	f.addTrustedClient(4)
	v := fireEvent(f, 4, subscription.EventRemove, subscription.FacilitySink, 3)
	assert.Equal(t, hooks.Stop, v)
}
