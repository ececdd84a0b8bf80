package dto

// MutationResponse acknowledges a write and names the views the client
// should re-fetch.
type MutationResponse struct {
	Success     bool     `json:"success"`
	ID          string   `json:"id"`
	Invalidated []string `json:"invalidated"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
