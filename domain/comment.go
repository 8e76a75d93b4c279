package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrInvalidCommentID = errors.New("invalid comment id")
)

// Document field names, shared by filters and indexes.
const (
	CommentFieldItemID = "itemId"
	CommentFieldUserID = "userId"
)

type Comment struct {
	ID        bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	ItemID    string        `json:"itemId" bson:"itemId"`
	UserID    string        `json:"userId" bson:"userId"`
	Body      string        `json:"body" bson:"body"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// CommentFilter is an equality filter keyed by document field name.
// An empty filter matches every comment.
type CommentFilter map[string]string
