package app

import (
	"comments/domain"
	"context"
)

type Repository interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	// FindComments returns every comment matching all keys of filter.
	FindComments(ctx context.Context, filter domain.CommentFilter) ([]domain.Comment, error)
	// DeleteCommentByID removes the comment and returns it as it was before removal.
	// It returns domain.ErrCommentNotFound when no comment has that id.
	DeleteCommentByID(ctx context.Context, id string) (domain.Comment, error)
}
