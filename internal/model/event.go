package model

// Event is an entry of the activity journal.
type Event struct {
	ID        int64          `json:"id"`
	CreatedAt string         `json:"created_at"`
	Kind      string         `json:"kind"`
	Details   map[string]any `json:"details"`
}
