package app

import (
	"comments/domain"
	"comments/pkg/events"
	"comments/pkg/httperror"
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type DeleteCommentHandler struct {
	repository     Repository
	eventPublisher events.Publisher
	validate       *validator.Validate
}

type DeleteCommentRequest struct {
	CommentID string `params:"id" validate:"required"`
}

type DeleteCommentResponse struct {
	Message string         `json:"message"`
	Comment domain.Comment `json:"comment"`
}

func NewDeleteCommentHandler(repository Repository, eventPublisher events.Publisher) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *DeleteCommentHandler) Handle(ctx context.Context, req *DeleteCommentRequest) (*DeleteCommentResponse, error) {
	if err := h.validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			return nil, httperror.BadRequest(
				"comments.destroy.validation_failed",
				"Validation failed for the request",
				ve.Error(),
			)
		}

		return nil, httperror.InternalServerError(
			"comments.destroy.validation_error",
			"An unexpected validation error occurred",
			nil,
		)
	}

	comment, err := h.repository.DeleteCommentByID(ctx, req.CommentID)
	if err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return nil, httperror.NotFound("comments.destroy.not_found", "Comment not found", nil)
		}
		return nil, err
	}

	h.publishEvent(ctx, comment)

	return &DeleteCommentResponse{
		Message: "Comment deleted successfully",
		Comment: comment,
	}, nil
}

func (h *DeleteCommentHandler) publishEvent(ctx context.Context, comment domain.Comment) {
	if h.eventPublisher == nil {
		return
	}

	eventPayload := events.CommentDeletedPayload{
		ID:        comment.ID.Hex(),
		ItemID:    comment.ItemID,
		UserID:    comment.UserID,
		DeletedAt: time.Now().UTC(),
	}

	headers := events.HeadersFromContext(ctx)

	event := events.NewEvent(
		events.CommentDeletedEvent,
		events.EventVersionV1,
		eventPayload,
		headers,
	)

	if err := h.eventPublisher.Publish(ctx, events.CommentExchange, event, headers); err != nil {
		zap.L().Error("Failed to publish comment.deleted event",
			zap.String("commentId", comment.ID.Hex()),
			zap.String("traceId", headers.TraceID),
			zap.Error(err),
		)
	}
}
