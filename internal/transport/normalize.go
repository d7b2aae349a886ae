package transport

import (
	"bytes"
	"encoding/json"
	"log"
	"time"

	"challenge-hub/internal/models"
)

// flexID accepts both string and numeric IDs from the backend. Older backend
// endpoints return numeric comment IDs, newer ones return strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// wireAuthor is the loose author shape on the wire; every field may be absent.
type wireAuthor struct {
	ID        flexID  `json:"id"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

// wireComment is the loose comment shape returned by the backend. Fields may
// be absent or null in practice; normalization maps it into the strict model.
type wireComment struct {
	ID        flexID      `json:"id"`
	Body      *string     `json:"body"`
	Author    *wireAuthor `json:"author"`
	ParentID  flexID      `json:"parentId"`
	CreatedAt *time.Time  `json:"createdAt"`
	UpdatedAt *time.Time  `json:"updatedAt"`
	LikeCount *int        `json:"likeCount"`
	LikedByMe *bool       `json:"likedByMe"`
}

// wirePage is the paginated list shape returned by the backend.
type wirePage struct {
	Comments   []wireComment `json:"comments"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	HasMore    bool          `json:"hasMore"`
}

// normalizeComment maps a loose wire comment into the strict Comment type.
// Returns nil for records without an ID, which cannot be keyed.
func normalizeComment(w *wireComment) *models.Comment {
	if w.ID == "" {
		return nil
	}

	c := &models.Comment{
		ID:         string(w.ID),
		AuthorName: models.AnonymousAuthor,
		ParentID:   string(w.ParentID),
	}

	if w.Body != nil {
		c.Body = *w.Body
	}
	if w.Author != nil {
		c.AuthorID = string(w.Author.ID)
		if w.Author.Name != nil && *w.Author.Name != "" {
			c.AuthorName = *w.Author.Name
		}
		if w.Author.AvatarURL != nil {
			c.AuthorAvatar = *w.Author.AvatarURL
		}
	}
	if w.CreatedAt != nil {
		c.CreatedAt = *w.CreatedAt
	}
	c.UpdatedAt = w.UpdatedAt
	if w.LikeCount != nil && *w.LikeCount > 0 {
		c.LikeCount = *w.LikeCount
	}
	if w.LikedByMe != nil {
		c.LikedByMe = *w.LikedByMe
	}

	return c
}

// normalizePage converts a wire page, dropping only records without an ID.
func normalizePage(w *wirePage) *CommentPage {
	comments := make([]*models.Comment, 0, len(w.Comments))
	for i := range w.Comments {
		c := normalizeComment(&w.Comments[i])
		if c == nil {
			log.Printf("Skipping comment without ID at index %d of page %d", i, w.Page)
			continue
		}
		comments = append(comments, c)
	}

	total := w.TotalCount
	if total < len(comments) {
		total = len(comments)
	}

	return &CommentPage{
		Comments:   comments,
		TotalCount: total,
		Page:       w.Page,
		HasMore:    w.HasMore,
	}
}
