package rabbitmq

import (
	"encoding/json"
	"time"
)

// InvalidationMessage tells subscribers which of a user's views went stale.
// It carries no transaction data; consumers re-read what they need. Origin
// names the publishing instance so it can skip its own messages.
type InvalidationMessage struct {
	Origin    string    `json:"origin,omitempty"`
	UserID    string    `json:"user_id"`
	Scopes    []string  `json:"scopes"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *InvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvalidationMessageFromJSON(data []byte) (*InvalidationMessage, error) {
	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
