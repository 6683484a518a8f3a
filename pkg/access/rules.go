package access

import (
	"time"

	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/logging"
	"github.com/wavegate/wavegate/pkg/policy"
	"github.com/wavegate/wavegate/pkg/portal"
)

// checkAccess is the handler for every access hook except
// filter_subscribe_event. It resolves the client's policy, picks the rule
// for the hook, and evaluates it.
func (m *Module) checkAccess(req *hooks.Request) hooks.Verdict {
	m.mu.Lock()
	cd, ok := m.clients[req.ClientIndex]
	if !ok {
		m.mu.Unlock()
		return m.record(req, hooks.Stop, "unknown client")
	}

	rule := policy.Unset
	if pol, ok := m.policies.Lookup(cd.policy); ok {
		rule = pol.Rule(req.Hook)
	}
	m.mu.Unlock()

	var verdict hooks.Verdict
	switch rule {
	case policy.Allow:
		verdict = hooks.OK
	case policy.Block:
		verdict = hooks.Stop
	case policy.CheckOwner:
		verdict = m.ruleCheckOwner(req)
	case policy.CheckPortal:
		verdict = m.ruleCheckPortal(req)
	default:
		verdict = hooks.Stop
	}

	return m.record(req, verdict, "")
}

// record logs and counts a verdict and passes it through.
func (m *Module) record(req *hooks.Request, v hooks.Verdict, reason string) hooks.Verdict {
	m.decisions.Add(1)
	m.metrics.IncDecision(req.Hook.String(), v.String())
	if reason != "" {
		logging.Decision.LogDecision(req.Hook.String(), req.ClientIndex, req.ObjectIndex, v.String(), "reason", reason)
	} else {
		logging.Decision.LogDecision(req.Hook.String(), req.ClientIndex, req.ObjectIndex, v.String())
	}
	return v
}

// ruleCheckOwner authorizes an operation only when the requesting client
// owns the target object.
func (m *Module) ruleCheckOwner(req *hooks.Request) hooks.Verdict {
	owner := hooks.NoIndex

	switch req.Hook {
	case hooks.GetClientInfo, hooks.KillClient:
		owner = req.ObjectIndex

	case hooks.GetSinkInputInfo,
		hooks.MoveSinkInput,
		hooks.SetSinkInputVolume,
		hooks.SetSinkInputMute,
		hooks.KillSinkInput:
		if si, ok := m.objects.SinkInput(req.ObjectIndex); ok {
			owner = si.Client
		}

	case hooks.GetSourceOutputInfo,
		hooks.MoveSourceOutput,
		hooks.SetSourceOutputVolume,
		hooks.SetSourceOutputMute,
		hooks.KillSourceOutput:
		if so, ok := m.objects.SourceOutput(req.ObjectIndex); ok {
			owner = so.Client
		}
	}

	if owner != hooks.NoIndex && owner == req.ClientIndex {
		return hooks.OK
	}

	m.log.Debug("blocked operation on foreign object",
		"hook", req.Hook.String(), "object", req.ObjectIndex,
		"owner", owner, "client", req.ClientIndex)
	return hooks.Stop
}

// deviceForHook maps a hook kind to the portal device tag it asks consent
// for. Hooks outside this table must never carry a check_portal rule.
func deviceForHook(k hooks.Kind) (string, bool) {
	switch k {
	case hooks.ConnectRecord:
		return portal.DeviceMicrophone, true
	case hooks.ConnectPlayback, hooks.PlaySample:
		return portal.DeviceSpeakers, true
	}
	return "", false
}

// ruleCheckPortal resolves from the per-client cache when possible and
// otherwise opens a consent dialog, returning Cancel while the user decides.
func (m *Module) ruleCheckPortal(req *hooks.Request) hooks.Verdict {
	m.mu.Lock()
	cd, ok := m.clients[req.ClientIndex]
	if !ok {
		m.mu.Unlock()
		return hooks.Stop
	}

	if c := cd.cached[req.Hook]; c.checked {
		m.mu.Unlock()
		m.log.Debug("cached portal answer", "client", req.ClientIndex, "hook", req.Hook.String(), "granted", c.granted)
		if c.granted {
			return hooks.OK
		}
		return hooks.Stop
	}

	if cd.dialog != nil {
		m.mu.Unlock()
		m.log.Debug("portal dialog already pending, denying", "client", req.ClientIndex, "hook", req.Hook.String())
		return hooks.Stop
	}
	pid := cd.pid
	m.mu.Unlock()

	device, ok := deviceForHook(req.Hook)
	if !ok {
		m.log.Error("check_portal rule on hook without device mapping", "hook", req.Hook.String())
		return hooks.Stop
	}

	if m.portal == nil {
		m.log.Warn("portal unavailable, denying", "client", req.ClientIndex, "hook", req.Hook.String())
		return hooks.Stop
	}

	m.log.Debug("asking portal", "client", req.ClientIndex, "hook", req.Hook.String(), "device", device)

	reqCopy := *req
	dlg, err := m.portal.Begin(uint32(pid), device, func(granted bool) {
		m.portalResult(&reqCopy, granted)
	})
	if err != nil {
		// deny this request but leave the cache alone
		m.log.Error("portal dialog failed", "client", req.ClientIndex, "error", err)
		return hooks.Stop
	}
	m.metrics.IncPortalRequest(device)

	m.mu.Lock()
	cd2, ok := m.clients[req.ClientIndex]
	if !ok || cd2 != cd {
		// client went away during the portal round-trip
		m.mu.Unlock()
		dlg.Cancel()
		return hooks.Stop
	}
	if dlg.State() != portal.StateDone {
		cd.dialog = dlg
		if m.portalTimeout > 0 {
			index := req.ClientIndex
			cd.timer = time.AfterFunc(m.portalTimeout, func() {
				m.dialogTimedOut(index)
			})
		}
	}
	m.mu.Unlock()

	return hooks.Cancel
}

// portalResult receives the consent outcome, caches it for the (client,
// hook) pair, and completes the original request. Outcomes for clients that
// unlinked in the meantime are dropped.
func (m *Module) portalResult(req *hooks.Request, granted bool) {
	m.mu.Lock()
	cd, ok := m.clients[req.ClientIndex]
	if !ok {
		m.mu.Unlock()
		return
	}
	cd.cached[req.Hook] = asyncCache{checked: true, granted: granted}
	cd.dialog = nil
	if cd.timer != nil {
		cd.timer.Stop()
		cd.timer = nil
	}
	m.mu.Unlock()

	result := "denied"
	verdict := hooks.Stop
	if granted {
		result = "granted"
		verdict = hooks.OK
	}
	m.metrics.IncPortalResult(result)
	m.log.Debug("portal check result", "client", req.ClientIndex, "hook", req.Hook.String(), "granted", granted)
	logging.Decision.LogDecision(req.Hook.String(), req.ClientIndex, req.ObjectIndex, verdict.String(), "portal", result)

	if req.AsyncFinish != nil {
		req.AsyncFinish(req, granted)
	}
}

// dialogTimedOut force-resolves an unanswered dialog as granted. Treating
// timeout as grant is a configured choice, hence the warning.
func (m *Module) dialogTimedOut(clientIndex uint32) {
	m.mu.Lock()
	var dlg *portal.Dialog
	if cd, ok := m.clients[clientIndex]; ok {
		dlg = cd.dialog
	}
	m.mu.Unlock()
	if dlg == nil {
		return
	}

	m.log.Warn("portal dialog timed out, treating as granted", "client", clientIndex)
	dlg.Resolve(true)
}
