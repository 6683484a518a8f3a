package hooks

// NoIndex marks an absent object or client index.
const NoIndex = ^uint32(0)

// Kind identifies one category of sensitive operation a client may attempt.
// The set is fixed at build time; KindMax is its cardinality.
type Kind int

const (
	GetSinkInfo Kind = iota
	GetSourceInfo
	GetSinkInputInfo
	GetSourceOutputInfo
	GetClientInfo
	GetModuleInfo
	GetCardInfo
	GetSampleInfo
	GetServerInfo
	Stat
	PlaySample
	ConnectPlayback
	ConnectRecord
	MoveSinkInput
	SetSinkInputVolume
	SetSinkInputMute
	KillSinkInput
	MoveSourceOutput
	SetSourceOutputVolume
	SetSourceOutputMute
	KillSourceOutput
	KillClient
	FilterSubscribeEvent

	KindMax
)

var kindNames = [KindMax]string{
	GetSinkInfo:           "get_sink_info",
	GetSourceInfo:         "get_source_info",
	GetSinkInputInfo:      "get_sink_input_info",
	GetSourceOutputInfo:   "get_source_output_info",
	GetClientInfo:         "get_client_info",
	GetModuleInfo:         "get_module_info",
	GetCardInfo:           "get_card_info",
	GetSampleInfo:         "get_sample_info",
	GetServerInfo:         "get_server_info",
	Stat:                  "stat",
	PlaySample:            "play_sample",
	ConnectPlayback:       "connect_playback",
	ConnectRecord:         "connect_record",
	MoveSinkInput:         "move_sink_input",
	SetSinkInputVolume:    "set_sink_input_volume",
	SetSinkInputMute:      "set_sink_input_mute",
	KillSinkInput:         "kill_sink_input",
	MoveSourceOutput:      "move_source_output",
	SetSourceOutputVolume: "set_source_output_volume",
	SetSourceOutputMute:   "set_source_output_mute",
	KillSourceOutput:      "kill_source_output",
	KillClient:            "kill_client",
	FilterSubscribeEvent:  "filter_subscribe_event",
}

func (k Kind) String() string {
	if k >= 0 && k < KindMax {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k names a real hook kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < KindMax
}

// ParseKind resolves a hook name as used in policy override files.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Verdict is the result of evaluating a hook.
type Verdict int

const (
	// OK permits the operation.
	OK Verdict = iota
	// Stop denies the operation.
	Stop
	// Cancel means the decision is pending asynchronously; the caller must
	// await the request's AsyncFinish instead of treating this as denial.
	Cancel
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case Stop:
		return "stop"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// AsyncCompleter delivers a late boolean verdict for a request that returned
// Cancel.
type AsyncCompleter func(req *Request, granted bool)

// Request describes one pending operation passed into a hook.
type Request struct {
	Hook        Kind
	ClientIndex uint32
	ObjectIndex uint32

	// Event is the packed subscription event word; only meaningful for
	// FilterSubscribeEvent.
	Event uint32

	// AsyncFinish is invoked with the final verdict after a Cancel return.
	AsyncFinish AsyncCompleter
}
