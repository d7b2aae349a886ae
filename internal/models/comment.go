package models

import (
	"strings"
	"time"
)

const (
	// AnonymousAuthor is the display fallback when the backend omits author details.
	AnonymousAuthor = "Anonymous"

	// LocalIDPrefix namespaces client-issued comment IDs so a temporary ID can
	// never collide with a server-issued one.
	LocalIDPrefix = "local-"

	// MaxCommentLength mirrors the backend's comment body limit.
	MaxCommentLength = 2000
)

// Comment is a single comment on a solution, either confirmed by the platform
// backend or still optimistic (inserted locally, awaiting confirmation).
type Comment struct {
	ID           string     `json:"id"`
	Body         string     `json:"body"`
	AuthorID     string     `json:"authorId"`
	AuthorName   string     `json:"authorName"`
	AuthorAvatar string     `json:"authorAvatar,omitempty"`
	ParentID     string     `json:"parentId,omitempty"` // empty for root comments
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"` // set only when edited
	LikeCount    int        `json:"likeCount"`
	LikedByMe    bool       `json:"likedByMe"`
	IsOptimistic bool       `json:"-"` // internal flag, never leaves the client
}

// IsLocal reports whether the comment still carries a client-issued ID.
func (c *Comment) IsLocal() bool {
	return strings.HasPrefix(c.ID, LocalIDPrefix)
}

// IsRoot reports whether the comment is a top-level comment.
func (c *Comment) IsRoot() bool {
	return c.ParentID == ""
}

// CommentNode is a comment with its resolved children, the shape the UI renders.
// ReplyCount is always len(Children), recomputed from the tree.
type CommentNode struct {
	Comment
	ReplyCount int            `json:"replyCount"`
	Children   []*CommentNode `json:"children"`
}

// DiscussionSnapshot is a read-only, fully copied view of one discussion's
// current state. It is safe to serialize outside the owning actor.
type DiscussionSnapshot struct {
	ChallengeID string         `json:"challengeId"`
	SolutionID  string         `json:"solutionId"`
	Roots       []*CommentNode `json:"roots"`
	TotalCount  int            `json:"totalCount"`
	Page        int            `json:"page"`
	HasMore     bool           `json:"hasMore"`
	IsLoading   bool           `json:"isLoading"`
	LastError   string         `json:"lastError,omitempty"`
}
