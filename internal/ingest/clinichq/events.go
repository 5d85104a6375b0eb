package clinichq

// EventType tags a streaming progress message.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one streaming message. Progress events carry the current
// aggregate index, the total, and a stats snapshot; the terminal
// complete event carries the full result; error events carry the
// orchestration failure. Each event marshals independently.
type Event struct {
	Type   EventType        `json:"type"`
	Index  int              `json:"index,omitempty"`
	Total  int              `json:"total,omitempty"`
	Stats  *ProcessingStats `json:"stats,omitempty"`
	Result *Result          `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}
