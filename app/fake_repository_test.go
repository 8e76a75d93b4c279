package app

import (
	"comments/domain"
	"comments/pkg/events"
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeRepository struct {
	comments   []domain.Comment
	err        error
	lastFilter domain.CommentFilter
	calls      int
}

func (r *fakeRepository) Close(ctx context.Context) error { return nil }

func (r *fakeRepository) Ping(ctx context.Context) error { return r.err }

func (r *fakeRepository) FindComments(ctx context.Context, filter domain.CommentFilter) ([]domain.Comment, error) {
	r.calls++
	r.lastFilter = filter
	if r.err != nil {
		return nil, r.err
	}

	var out []domain.Comment
	for _, c := range r.comments {
		if v, ok := filter[domain.CommentFieldItemID]; ok && c.ItemID != v {
			continue
		}
		if v, ok := filter[domain.CommentFieldUserID]; ok && c.UserID != v {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepository) DeleteCommentByID(ctx context.Context, id string) (domain.Comment, error) {
	r.calls++
	if r.err != nil {
		return domain.Comment{}, r.err
	}

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return domain.Comment{}, domain.ErrInvalidCommentID
	}

	for i, c := range r.comments {
		if c.ID == oid {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return c, nil
		}
	}
	return domain.Comment{}, domain.ErrCommentNotFound
}

type publishedEvent struct {
	exchange string
	event    *events.Event
	headers  events.Headers
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, exchange string, event *events.Event, headers events.Headers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedEvent{exchange: exchange, event: event, headers: headers})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }
