package access

import (
	"fmt"

	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/logging"
	"github.com/wavegate/wavegate/pkg/subscription"
)

// infoHookByFacility maps a facility to the info hook that gates whether a
// client may learn the object exists.
var infoHookByFacility = map[subscription.Facility]hooks.Kind{
	subscription.FacilitySink:         hooks.GetSinkInfo,
	subscription.FacilitySource:       hooks.GetSourceInfo,
	subscription.FacilitySinkInput:    hooks.GetSinkInputInfo,
	subscription.FacilitySourceOutput: hooks.GetSourceOutputInfo,
	subscription.FacilityModule:       hooks.GetModuleInfo,
	subscription.FacilityClient:       hooks.GetClientInfo,
	subscription.FacilitySampleCache:  hooks.GetSampleInfo,
	subscription.FacilityServer:       hooks.GetServerInfo,
	subscription.FacilityCard:         hooks.GetCardInfo,
}

// filterEvent is the handler for filter_subscribe_event. A client only ever
// sees events for objects it could learn about through info queries, and
// REMOVE/CHANGE events only for objects it has already been told exist.
func (m *Module) filterEvent(req *hooks.Request) hooks.Verdict {
	ev := subscription.Event(req.Event)
	facility := ev.Facility()
	key := seenKey{facility: facility, object: req.ObjectIndex}

	m.mu.Lock()
	cd, ok := m.clients[req.ClientIndex]
	if !ok {
		m.mu.Unlock()
		// unknown destination, block the event
		return m.recordEvent(req, ev, hooks.Stop)
	}

	switch ev.Type() {
	case subscription.EventRemove:
		// pass only if the client saw this object before
		if _, seen := cd.seen[key]; seen {
			delete(cd.seen, key)
			m.mu.Unlock()
			return m.recordEvent(req, ev, hooks.OK)
		}
		m.mu.Unlock()
		return m.recordEvent(req, ev, hooks.Stop)

	case subscription.EventNew, subscription.EventChange:
		if ev.Type() == subscription.EventChange {
			if _, seen := cd.seen[key]; seen {
				m.mu.Unlock()
				return m.recordEvent(req, ev, hooks.OK)
			}
		}
		m.mu.Unlock()

		// new object: check whether the client may inspect it
		infoHook, ok := infoHookByFacility[facility]
		if !ok {
			return m.recordEvent(req, ev, hooks.Stop)
		}

		probe := hooks.Request{
			Hook:        infoHook,
			ClientIndex: req.ClientIndex,
			ObjectIndex: req.ObjectIndex,
		}
		if m.bus.Fire(&probe) != hooks.OK {
			return m.recordEvent(req, ev, hooks.Stop)
		}

		// the client may inspect the object, remember that it now knows
		m.mu.Lock()
		if cd, ok := m.clients[req.ClientIndex]; ok {
			cd.seen[key] = struct{}{}
		}
		m.mu.Unlock()
		return m.recordEvent(req, ev, hooks.OK)

	default:
		m.mu.Unlock()
		return m.recordEvent(req, ev, hooks.Stop)
	}
}

// recordEvent logs and counts a filtering outcome and passes it through.
func (m *Module) recordEvent(req *hooks.Request, ev subscription.Event, v hooks.Verdict) hooks.Verdict {
	outcome := "block"
	if v == hooks.OK {
		outcome = "pass"
	}
	m.decisions.Add(1)
	m.metrics.IncEventFiltered(outcome)
	logging.Decision.LogEvent(
		fmt.Sprintf("%s:%s", ev.Type(), ev.Facility()),
		req.ClientIndex, req.ObjectIndex, v.String())
	return v
}
