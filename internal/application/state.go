package application

type Mode int

const (
	ModeIdle Mode = iota
	ModeActive
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	default:
		return "idle"
	}
}

// SessionState is the single conversational state of the process. It is
// owned by the supervisor's event loop; Stream != nil implies Recording.
type SessionState struct {
	Mode      Mode
	Listening bool
	Recording bool
	Stream    *StreamHandle
}

// Status is a read-only copy of SessionState for callers outside the loop.
type Status struct {
	Mode      string `json:"mode"`
	Listening bool   `json:"listening"`
	Recording bool   `json:"recording"`
	StreamID  string `json:"stream_id,omitempty"`
	Corpus    string `json:"corpus"`
	Entries   int    `json:"entries"`
}
