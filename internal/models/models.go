package models

// Identity describes the authenticated user performing an operation. It is
// passed explicitly into every mutation instead of living in ambient state,
// so the engine can be tested without a real session. A nil *Identity means
// the caller is not authenticated.
type Identity struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Token     string `json:"-"` // raw bearer token, forwarded to the platform API
}

// StatusResponse is a generic success/failure reply from a discussion actor.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LikeState is the reply to a like toggle: the like state as applied locally.
type LikeState struct {
	CommentID string `json:"commentId"`
	LikeCount int    `json:"likeCount"`
	LikedByMe bool   `json:"likedByMe"`
}

// CommentDraft carries user input for a new comment or reply. Validated
// locally before any network call.
type CommentDraft struct {
	Body     string `json:"body" validate:"required,max=2000"`
	ParentID string `json:"parentId,omitempty"`
}

// ReportDraft carries user input for reporting a comment.
type ReportDraft struct {
	CommentID string `json:"commentId" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=500"`
}
