package app

import "comments/domain"

// BuildCommentFilter keeps only the non-empty arguments, with their values as given.
func BuildCommentFilter(itemID, userID string) domain.CommentFilter {
	filter := domain.CommentFilter{}
	if itemID != "" {
		filter[domain.CommentFieldItemID] = itemID
	}
	if userID != "" {
		filter[domain.CommentFieldUserID] = userID
	}
	return filter
}
