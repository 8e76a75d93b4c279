package events

import "time"

const CommentExchange = "comments.comment"

// Event names
const (
	CommentDeletedEvent = "comment.deleted"
)

// Event versions
const (
	EventVersionV1 = "v1"
)

// CommentDeletedPayload represents the payload for comment.deleted event
type CommentDeletedPayload struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	UserID    string    `json:"userId"`
	DeletedAt time.Time `json:"deletedAt"`
}
