package transport

import (
	"context"

	"challenge-hub/internal/models"
)

// CommentPage is one page of comments as reported by the platform backend.
// Comments are flat; threading is reconstructed client-side.
type CommentPage struct {
	Comments   []*models.Comment
	TotalCount int
	Page       int
	HasMore    bool
}

// LikeResult is the authoritative like state after a toggle round-trip.
type LikeResult struct {
	LikeCount int
	LikedByMe bool
}

// API is the contract the discussion engine consumes. The engine is agnostic
// to the wire format beyond these five operations.
type API interface {
	FetchComments(ctx context.Context, challengeID, solutionID string, page int) (*CommentPage, error)
	CreateComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, body, parentID string) (*models.Comment, error)
	LikeComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, commentID string) (*LikeResult, error)
	DeleteComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, commentID string) error
	ReportComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, commentID, reason string) error
}
