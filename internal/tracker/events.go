package tracker

// HookEvent is one parsed inbound hook payload. It is consumed immediately
// to update a SessionState and never stored.
type HookEvent struct {
	EventName      string
	SessionID      string
	Cwd            string
	ToolName       string
	ToolInput      map[string]any
	Message        string
	TranscriptPath string
}

// UnknownEvent is the sentinel event name used when the payload carries no
// hook_event_name.
const UnknownEvent = "Unknown"

// EventSessionEnd terminates a session: notifications are dismissed and the
// session is unregistered.
const EventSessionEnd = "SessionEnd"

// ParseHookEvent extracts the known fields from a raw payload object.
// Missing fields become zero values; a missing event name becomes
// UnknownEvent. Unrecognized fields are ignored.
func ParseHookEvent(payload map[string]any) HookEvent {
	ev := HookEvent{
		EventName:      stringField(payload, "hook_event_name"),
		SessionID:      stringField(payload, "session_id"),
		Cwd:            stringField(payload, "cwd"),
		ToolName:       stringField(payload, "tool_name"),
		Message:        stringField(payload, "message"),
		TranscriptPath: stringField(payload, "transcript_path"),
	}
	if ev.EventName == "" {
		ev.EventName = UnknownEvent
	}
	if input, ok := payload["tool_input"].(map[string]any); ok {
		ev.ToolInput = input
	}
	return ev
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// DetermineState classifies an event into the state the session should be
// in. Events meaning "assistant is actively working" map to StateWorking;
// events meaning "assistant stopped and is waiting" map to
// StateNeedsAttention. Everything else, including UnknownEvent, defaults to
// StateWorking.
func DetermineState(ev HookEvent) State {
	switch ev.EventName {
	case "PreToolUse", "PostToolUse", "UserPromptSubmit", "SessionStart":
		return StateWorking
	case "Stop", "SubagentStop", "Notification":
		return StateNeedsAttention
	default:
		return StateWorking
	}
}
