package app

import (
	"comments/domain"
	"context"
)

type GetCommentsHandler struct {
	repository Repository
}

func NewGetCommentsHandler(repository Repository) *GetCommentsHandler {
	return &GetCommentsHandler{
		repository: repository,
	}
}

type GetCommentsRequest struct {
	ItemID string `query:"itemId"`
	UserID string `query:"userId"`
}

// GetCommentsResponse is rendered as a bare JSON array.
type GetCommentsResponse []domain.Comment

func (h *GetCommentsHandler) Handle(ctx context.Context, req *GetCommentsRequest) (*GetCommentsResponse, error) {
	filter := BuildCommentFilter(req.ItemID, req.UserID)

	comments, err := h.repository.FindComments(ctx, filter)
	if err != nil {
		return nil, err
	}

	if comments == nil {
		comments = []domain.Comment{}
	}

	res := GetCommentsResponse(comments)
	return &res, nil
}
