package capture

// State is the capture controller's position in the recording lifecycle.
//
// The happy path is IDLE → ARMED → RECORDING → STOPPING → IDLE. Transcription
// is not a state: it runs asynchronously after the STOPPING transition has
// assembled the payload, so the controller is never parked waiting on network
// I/O. ERROR is transient — a caught fault surfaces a notice, tears down the
// active session, and returns to IDLE.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateStopping
	StateError
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	case StateRecording:
		return "RECORDING"
	case StateStopping:
		return "STOPPING"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
