package entity

import "time"

// HistoryMessage is one line of a session transcript.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
