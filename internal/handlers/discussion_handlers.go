package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"challenge-hub/internal/auth"
	"challenge-hub/internal/engine/actors"
	"challenge-hub/internal/models"
	"challenge-hub/internal/utils"
)

// Replies nested deeper than this are rendered flat under their depth-3
// ancestor. The stored tree keeps its full depth.
const defaultRenderDepth = 3

// CreateCommentRequest represents a request to post a comment or reply
type CreateCommentRequest struct {
	ChallengeID string `json:"challengeId"`
	SolutionID  string `json:"solutionId"`
	Body        string `json:"body"`
	ParentID    string `json:"parentId,omitempty"` // Optional, for replies
}

// CommentActionRequest targets an existing comment in a discussion
type CommentActionRequest struct {
	ChallengeID string `json:"challengeId"`
	SolutionID  string `json:"solutionId"`
	CommentID   string `json:"commentId"`
	Reason      string `json:"reason,omitempty"` // reports only
}

// DiscussionRequest identifies a discussion without targeting a comment
type DiscussionRequest struct {
	ChallengeID string `json:"challengeId"`
	SolutionID  string `json:"solutionId"`
}

func discussionParams(r *http.Request) (string, string, bool) {
	challengeID := r.URL.Query().Get("challengeId")
	solutionID := r.URL.Query().Get("solutionId")
	return challengeID, solutionID, challengeID != "" && solutionID != ""
}

// identity resolves the caller from the Authorization header. Absent header
// means anonymous; a malformed or invalid token is rejected here.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	ident, err := auth.IdentityFromRequest(r, s.JWTSecret)
	if err != nil {
		log.Printf("Rejected token from %s: %v", r.RemoteAddr, err)
		writeAppError(w, utils.NewAppError(utils.ErrUnauthenticated, "Invalid or expired token", nil))
		return nil, false
	}
	return ident, true
}

// HandleDiscussion serves the threaded view of a discussion (GET) and closes
// a discussion session (DELETE).
func (s *Server) HandleDiscussion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		challengeID, solutionID, ok := discussionParams(r)
		if !ok {
			writeAppError(w, utils.NewValidationError("challengeId and solutionId are required"))
			return
		}

		switch r.Method {
		case http.MethodGet:
			depth := defaultRenderDepth
			if depthStr := r.URL.Query().Get("depth"); depthStr != "" {
				if d, err := strconv.Atoi(depthStr); err == nil && d > 0 {
					depth = d
				}
			}

			pid := s.Engine.DiscussionPID(challengeID, solutionID)
			future := s.Context.RequestFuture(pid, &actors.GetSnapshotMsg{}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				log.Printf("Snapshot request for %s/%s failed: %v", challengeID, solutionID, err)
				writeAppError(w, utils.NewActorTimeoutError("discussion"))
				return
			}

			if snapshot, ok := result.(*models.DiscussionSnapshot); ok {
				snapshot.Roots = actors.FlattenDeepReplies(snapshot.Roots, depth)
				writeJSON(w, http.StatusOK, snapshot)
				return
			}
			writeActorResult(w, result)

		case http.MethodDelete:
			closed := s.Engine.CloseDiscussion(challengeID, solutionID)
			writeJSON(w, http.StatusOK, &models.StatusResponse{
				Success: closed,
				Message: map[bool]string{true: "discussion closed", false: "discussion was not open"}[closed],
			})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleComments posts new comments (POST) and deletes existing ones (DELETE)
func (s *Server) HandleComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := s.identity(w, r)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req CreateCommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeAppError(w, utils.NewValidationError("invalid request body"))
				return
			}
			if req.ChallengeID == "" || req.SolutionID == "" {
				writeAppError(w, utils.NewValidationError("challengeId and solutionId are required"))
				return
			}

			pid := s.Engine.DiscussionPID(req.ChallengeID, req.SolutionID)
			future := s.Context.RequestFuture(pid, &actors.CreateCommentMsg{
				Identity: ident,
				Body:     req.Body,
				ParentID: req.ParentID,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				writeAppError(w, utils.NewActorTimeoutError("discussion"))
				return
			}
			writeActorResult(w, result)

		case http.MethodDelete:
			challengeID, solutionID, ok := discussionParams(r)
			commentID := r.URL.Query().Get("commentId")
			if !ok || commentID == "" {
				writeAppError(w, utils.NewValidationError("challengeId, solutionId and commentId are required"))
				return
			}

			pid := s.Engine.DiscussionPID(challengeID, solutionID)
			future := s.Context.RequestFuture(pid, &actors.DeleteCommentMsg{
				Identity:  ident,
				CommentID: commentID,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				writeAppError(w, utils.NewActorTimeoutError("discussion"))
				return
			}
			writeActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleLike toggles the caller's like on a comment
func (s *Server) HandleLike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ident, ok := s.identity(w, r)
		if !ok {
			return
		}

		var req CommentActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, utils.NewValidationError("invalid request body"))
			return
		}
		if req.ChallengeID == "" || req.SolutionID == "" || req.CommentID == "" {
			writeAppError(w, utils.NewValidationError("challengeId, solutionId and commentId are required"))
			return
		}

		pid := s.Engine.DiscussionPID(req.ChallengeID, req.SolutionID)
		future := s.Context.RequestFuture(pid, &actors.ToggleLikeMsg{
			Identity:  ident,
			CommentID: req.CommentID,
		}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			writeAppError(w, utils.NewActorTimeoutError("discussion"))
			return
		}
		writeActorResult(w, result)
	}
}

// HandleReport files a moderation report against a comment
func (s *Server) HandleReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ident, ok := s.identity(w, r)
		if !ok {
			return
		}

		var req CommentActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, utils.NewValidationError("invalid request body"))
			return
		}
		if req.ChallengeID == "" || req.SolutionID == "" || req.CommentID == "" {
			writeAppError(w, utils.NewValidationError("challengeId, solutionId and commentId are required"))
			return
		}

		pid := s.Engine.DiscussionPID(req.ChallengeID, req.SolutionID)
		future := s.Context.RequestFuture(pid, &actors.ReportCommentMsg{
			Identity:  ident,
			CommentID: req.CommentID,
			Reason:    req.Reason,
		}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			writeAppError(w, utils.NewActorTimeoutError("discussion"))
			return
		}
		writeActorResult(w, result)
	}
}

// HandleLoadMore fetches the next page of a discussion
func (s *Server) HandleLoadMore() http.HandlerFunc {
	return s.handleDiscussionAction(func() interface{} { return &actors.LoadMoreMsg{} })
}

// HandleRefresh re-fetches a discussion from the first page
func (s *Server) HandleRefresh() http.HandlerFunc {
	return s.handleDiscussionAction(func() interface{} { return &actors.RefreshMsg{} })
}

func (s *Server) handleDiscussionAction(makeMsg func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req DiscussionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAppError(w, utils.NewValidationError("invalid request body"))
			return
		}
		if req.ChallengeID == "" || req.SolutionID == "" {
			writeAppError(w, utils.NewValidationError("challengeId and solutionId are required"))
			return
		}

		pid := s.Engine.DiscussionPID(req.ChallengeID, req.SolutionID)
		future := s.Context.RequestFuture(pid, makeMsg(), s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			writeAppError(w, utils.NewActorTimeoutError("discussion"))
			return
		}
		writeActorResult(w, result)
	}
}
