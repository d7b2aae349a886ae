// Package transport implements the REST client for the platform comment API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"challenge-hub/internal/models"
	"challenge-hub/internal/utils"
)

// Client talks to the platform backend over HTTP. It implements API.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a new platform API client.
func NewClient(baseURL string, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{
		baseURL:  baseURL,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func commentsPath(challengeID, solutionID string) string {
	return fmt.Sprintf("/api/v1/challenges/%s/solutions/%s/comments",
		url.PathEscape(challengeID), url.PathEscape(solutionID))
}

// FetchComments retrieves one flat page of comments with pagination metadata.
func (c *Client) FetchComments(ctx context.Context, challengeID, solutionID string, page int) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("%s?page=%d&limit=%d", commentsPath(challengeID, solutionID), page, c.pageSize)

	var result wirePage
	if err := c.do(ctx, http.MethodGet, path, "", nil, &result); err != nil {
		return nil, err
	}
	if result.Page == 0 {
		result.Page = page
	}
	return normalizePage(&result), nil
}

// CreateComment posts a new comment or reply and returns the created record.
func (c *Client) CreateComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, body, parentID string) (*models.Comment, error) {
	payload := map[string]string{"body": body}
	if parentID != "" {
		payload["parentId"] = parentID
	}

	var result wireComment
	if err := c.do(ctx, http.MethodPost, commentsPath(challengeID, solutionID), ident.Token, payload, &result); err != nil {
		return nil, err
	}

	comment := normalizeComment(&result)
	if comment == nil {
		return nil, utils.NewAppError(utils.ErrServer, "backend returned a comment without an ID", nil)
	}
	return comment, nil
}

// LikeComment toggles the caller's like on a comment.
func (c *Client) LikeComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, commentID string) (*LikeResult, error) {
	path := commentsPath(challengeID, solutionID) + "/" + url.PathEscape(commentID) + "/like"

	var result struct {
		LikeCount int  `json:"likeCount"`
		LikedByMe bool `json:"likedByMe"`
	}
	if err := c.do(ctx, http.MethodPost, path, ident.Token, nil, &result); err != nil {
		return nil, err
	}
	if result.LikeCount < 0 {
		result.LikeCount = 0
	}
	return &LikeResult{LikeCount: result.LikeCount, LikedByMe: result.LikedByMe}, nil
}

// DeleteComment deletes a comment; the backend cascades to its replies.
func (c *Client) DeleteComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, commentID string) error {
	path := commentsPath(challengeID, solutionID) + "/" + url.PathEscape(commentID)
	return c.do(ctx, http.MethodDelete, path, ident.Token, nil, nil)
}

// ReportComment files a report against a comment.
func (c *Client) ReportComment(ctx context.Context, ident *models.Identity, challengeID, solutionID, commentID, reason string) error {
	path := commentsPath(challengeID, solutionID) + "/" + url.PathEscape(commentID) + "/report"
	payload := map[string]string{"reason": reason}
	return c.do(ctx, http.MethodPost, path, ident.Token, payload, nil)
}

// errorBody is the backend's error envelope; message may be absent.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path, token string, payload, result any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return utils.NewAppError(utils.ErrServer, "marshal request", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return utils.NewAppError(utils.ErrServer, "build request", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.NewNetworkError(method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return utils.NewNetworkError("read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("backend returned %d", resp.StatusCode)
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			if eb.Message != "" {
				message = eb.Message
			} else if eb.Error != "" {
				message = eb.Error
			}
		}
		return utils.NewAppError(utils.CodeFromHTTPStatus(resp.StatusCode), message, nil)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return utils.NewAppError(utils.ErrServer, "decode response", err)
		}
	}
	return nil
}
