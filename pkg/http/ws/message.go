package ws

import "encoding/json"

// MessageType constants for the WebSocket protocol.
const (
	// Server -> Client
	TypeQuestionTick    = "question_tick"
	TypeQuestionTimeout = "question_timeout"
	TypeScoreUpdate     = "score_update"
	TypeError           = "error"
	TypePing            = "ping"
	TypePong            = "pong"
)

// Message wraps all WebSocket payloads with a type tag.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals a payload into a typed message. Marshal failures return
// a bare message of the given type.
func NewMessage(msgType string, payload any) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{Type: msgType}
	}
	return Message{Type: msgType, Payload: data}
}

// QuestionTickPayload is the per-second display state for the active question.
type QuestionTickPayload struct {
	QuestionID       string `json:"questionId"`
	RemainingSeconds int    `json:"remainingSeconds"`
	DisplayedPoints  int    `json:"displayedPoints"`
	Phase            string `json:"phase"`
}

// QuestionTimeoutPayload signals that a question's countdown expired.
type QuestionTimeoutPayload struct {
	QuestionID string `json:"questionId"`
}

// ScoreUpdatePayload carries the running totals.
type ScoreUpdatePayload struct {
	Score         int `json:"score"`
	TotalPossible int `json:"totalPossible"`
}
