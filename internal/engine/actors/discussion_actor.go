package actors

import (
	stdctx "context"
	"log"
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"challenge-hub/internal/models"
	"challenge-hub/internal/transport"
	"challenge-hub/internal/utils"
	"challenge-hub/internal/validation"
)

// Message types for DiscussionActor
type (
	// InitializeMsg triggers the first page fetch if it has not happened yet.
	InitializeMsg struct{}

	// GetSnapshotMsg requests a read-only view of the discussion state.
	GetSnapshotMsg struct{}

	// LoadMoreMsg requests the next page of comments.
	LoadMoreMsg struct{}

	// RefreshMsg discards incremental page state and re-fetches from page 1.
	RefreshMsg struct{}

	CreateCommentMsg struct {
		Identity *models.Identity
		Body     string
		ParentID string // empty for a root comment, set for a reply
	}

	ToggleLikeMsg struct {
		Identity  *models.Identity
		CommentID string
	}

	DeleteCommentMsg struct {
		Identity  *models.Identity
		CommentID string
	}

	ReportCommentMsg struct {
		Identity  *models.Identity
		CommentID string
		Reason    string
	}

	// Internal completion messages, sent back to the actor's own mailbox by
	// the goroutines doing network I/O. State only ever changes in Receive.
	pageResultMsg struct {
		gen    uint64
		page   int
		reset  bool
		result *transport.CommentPage
		err    error
	}

	createResultMsg struct {
		mutationID string
		localID    string
		comment    *models.Comment
		err        error
	}

	likeResultMsg struct {
		mutationID string
		commentID  string
		version    uint64
		result     *transport.LikeResult
		err        error
	}

	deleteResultMsg struct {
		mutationID string
		commentID  string
		err        error
	}

	reportResultMsg struct {
		mutationID string
		commentID  string
		err        error
	}

	reconcileTickMsg struct{}
)

// Mutation kinds tracked in the pending set
const (
	mutationCreate = "create"
	mutationLike   = "like"
	mutationDelete = "delete"
	mutationReport = "report"
)

type pendingMutation struct {
	kind       string
	localID    string   // create: temporary comment id
	commentID  string   // like/delete/report target
	removedIDs []string // delete: confirmed ids removed optimistically
}

// heldReply is a reply whose parent is still optimistic. Its network call is
// deferred until the parent gets a server id.
type heldReply struct {
	mutationID string
	localID    string
	ident      *models.Identity
}

// DiscussionActor owns the comment state for one (challenge, solution) pair.
// All mutations against a discussion are serialized through its mailbox, so
// every state change is atomic from the caller's point of view.
type DiscussionActor struct {
	challengeID string
	solutionID  string
	api         transport.API
	metrics     *utils.MetricsCollector

	comments   map[string]*models.Comment
	tombstones map[string]bool // confirmed ids removed by an optimistic delete

	pending       map[string]*pendingMutation
	heldReplies   map[string][]heldReply // parent local id -> deferred replies
	likeVersions  map[string]uint64      // comment id -> latest local toggle version
	likesInFlight map[string]int         // comment id -> outstanding like requests

	serverTotal int // last authoritative total reported by the backend
	page        int
	hasMore     bool
	loading     bool
	initialized bool
	lastErr     string

	fetchGen        uint64 // stale-response guard for page/reconcile fetches
	reconcileDelay  time.Duration
	reconcileQueued bool
}

func NewDiscussionActor(challengeID, solutionID string, api transport.API, metrics *utils.MetricsCollector, reconcileDelay time.Duration) actor.Actor {
	return &DiscussionActor{
		challengeID:    challengeID,
		solutionID:     solutionID,
		api:            api,
		metrics:        metrics,
		comments:       make(map[string]*models.Comment),
		tombstones:     make(map[string]bool),
		pending:        make(map[string]*pendingMutation),
		heldReplies:    make(map[string][]heldReply),
		likeVersions:   make(map[string]uint64),
		likesInFlight:  make(map[string]int),
		reconcileDelay: reconcileDelay,
	}
}

func (a *DiscussionActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("DiscussionActor started for challenge %s solution %s", a.challengeID, a.solutionID)
		a.startFetch(context, 1, true)

	case *actor.Stopping, *actor.Stopped:
		// In-flight completion messages for a stopped actor go to dead letters;
		// nothing here can leak into a new discussion (fresh actor, fresh state).

	case *InitializeMsg:
		a.handleInitialize(context)

	case *GetSnapshotMsg:
		a.handleGetSnapshot(context)

	case *LoadMoreMsg:
		a.handleLoadMore(context)

	case *RefreshMsg:
		a.startFetch(context, 1, true)
		context.Respond(&models.StatusResponse{Success: true})

	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)

	case *ToggleLikeMsg:
		a.handleToggleLike(context, msg)

	case *DeleteCommentMsg:
		a.handleDeleteComment(context, msg)

	case *ReportCommentMsg:
		a.handleReportComment(context, msg)

	case *pageResultMsg:
		a.handlePageResult(msg)

	case *createResultMsg:
		a.handleCreateResult(context, msg)

	case *likeResultMsg:
		a.handleLikeResult(context, msg)

	case *deleteResultMsg:
		a.handleDeleteResult(context, msg)

	case *reportResultMsg:
		a.handleReportResult(msg)

	case *reconcileTickMsg:
		a.reconcileQueued = false
		log.Printf("Reconciling discussion %s/%s with backend", a.challengeID, a.solutionID)
		a.startFetch(context, 1, true)

	default:
		log.Printf("DiscussionActor: Unknown message type %T", msg)
	}
}

// displayedTotal derives the total shown to the UI: the server's count plus
// unconfirmed inserts, minus optimistic deletions the server still counts.
func (a *DiscussionActor) displayedTotal() int {
	total := a.serverTotal
	for _, c := range a.comments {
		if c.IsOptimistic {
			total++
		}
	}
	total -= len(a.tombstones)
	if total < len(a.comments) {
		total = len(a.comments)
	}
	return total
}

func (a *DiscussionActor) handleInitialize(context actor.Context) {
	if a.initialized || a.loading {
		context.Respond(&models.StatusResponse{Success: true, Message: "already initialized"})
		return
	}
	a.startFetch(context, 1, true)
	context.Respond(&models.StatusResponse{Success: true})
}

func (a *DiscussionActor) handleGetSnapshot(context actor.Context) {
	flat := make([]*models.Comment, 0, len(a.comments))
	for _, c := range a.comments {
		flat = append(flat, c)
	}

	context.Respond(&models.DiscussionSnapshot{
		ChallengeID: a.challengeID,
		SolutionID:  a.solutionID,
		Roots:       BuildCommentTree(flat),
		TotalCount:  a.displayedTotal(),
		Page:        a.page,
		HasMore:     a.hasMore,
		IsLoading:   a.loading,
		LastError:   a.lastErr,
	})
}

func (a *DiscussionActor) handleLoadMore(context actor.Context) {
	if a.loading {
		context.Respond(&models.StatusResponse{Success: false, Message: "a fetch is already in progress"})
		return
	}
	if !a.hasMore {
		context.Respond(&models.StatusResponse{Success: false, Message: "no more comments"})
		return
	}
	a.startFetch(context, a.page+1, false)
	context.Respond(&models.StatusResponse{Success: true})
}

// startFetch issues a page fetch in the background. reset=true means the
// result replaces all incremental page state (initial load and reconciles).
func (a *DiscussionActor) startFetch(context actor.Context, page int, reset bool) {
	a.fetchGen++
	gen := a.fetchGen
	a.loading = true
	a.initialized = true

	self := context.Self()
	system := context.ActorSystem()
	go func() {
		start := time.Now()
		result, err := a.api.FetchComments(stdctx.Background(), a.challengeID, a.solutionID, page)
		a.metrics.AddOperationLatency("fetch_comments", time.Since(start))
		if err != nil {
			a.metrics.IncrementErrors()
		}
		system.Root.Send(self, &pageResultMsg{gen: gen, page: page, reset: reset, result: result, err: err})
	}()
}

func (a *DiscussionActor) handlePageResult(msg *pageResultMsg) {
	if msg.gen != a.fetchGen {
		log.Printf("Discarding stale fetch result (gen %d, current %d)", msg.gen, a.fetchGen)
		return
	}
	a.loading = false

	if msg.err != nil {
		// Reads are retried only by explicit caller action, never in a loop.
		a.lastErr = msg.err.Error()
		log.Printf("Fetch failed for discussion %s/%s: %v", a.challengeID, a.solutionID, msg.err)
		return
	}
	a.lastErr = ""

	if msg.reset {
		a.mergeReset(msg.result)
	} else {
		a.mergePage(msg.result)
		a.page = msg.page
	}
	a.hasMore = msg.result.HasMore
	a.serverTotal = msg.result.TotalCount
}

// mergeReset rebuilds the comment set from a fresh page 1, then re-merges
// local work the server cannot know about yet: still-optimistic comments and
// like state with a toggle round-trip in flight.
func (a *DiscussionActor) mergeReset(page *transport.CommentPage) {
	pendingDeletes := a.pendingDeleteTombstones()

	fresh := make(map[string]*models.Comment, len(page.Comments))
	for _, c := range page.Comments {
		if pendingDeletes[c.ID] {
			continue
		}
		fresh[c.ID] = c
	}

	for id, local := range a.comments {
		if local.IsOptimistic {
			fresh[id] = local
			continue
		}
		if a.likesInFlight[id] > 0 {
			if srv, ok := fresh[id]; ok {
				srv.LikeCount = local.LikeCount
				srv.LikedByMe = local.LikedByMe
			}
		}
	}

	a.comments = fresh
	a.tombstones = pendingDeletes
	a.page = 1
}

// mergePage merges an incremental page into the union of comments seen so
// far, de-duplicated by id. The server version wins for confirmed comments;
// optimistic ones are never overwritten until confirmed or rolled back.
func (a *DiscussionActor) mergePage(page *transport.CommentPage) {
	for _, c := range page.Comments {
		if a.tombstones[c.ID] {
			continue
		}
		if existing, ok := a.comments[c.ID]; ok {
			if existing.IsOptimistic {
				continue
			}
			if a.likesInFlight[c.ID] > 0 {
				c.LikeCount = existing.LikeCount
				c.LikedByMe = existing.LikedByMe
			}
		}
		a.comments[c.ID] = c
	}
}

func (a *DiscussionActor) pendingDeleteTombstones() map[string]bool {
	out := make(map[string]bool)
	for _, p := range a.pending {
		if p.kind != mutationDelete {
			continue
		}
		for _, id := range p.removedIDs {
			out[id] = true
		}
	}
	return out
}

func (a *DiscussionActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	a.metrics.IncrementRequests()

	if msg.Identity == nil {
		context.Respond(utils.NewUnauthenticatedError("post a comment"))
		return
	}

	draft := models.CommentDraft{Body: strings.TrimSpace(msg.Body), ParentID: msg.ParentID}
	if err := validation.Struct(&draft); err != nil {
		context.Respond(utils.NewValidationError(err.Error()))
		return
	}

	localID := models.LocalIDPrefix + uuid.New().String()
	mutationID := uuid.New().String()

	comment := &models.Comment{
		ID:           localID,
		Body:         draft.Body,
		AuthorID:     msg.Identity.UserID,
		AuthorName:   msg.Identity.Username,
		AuthorAvatar: msg.Identity.AvatarURL,
		ParentID:     draft.ParentID,
		CreatedAt:    time.Now(),
		IsOptimistic: true,
	}
	a.comments[localID] = comment
	a.pending[mutationID] = &pendingMutation{kind: mutationCreate, localID: localID}

	log.Printf("Optimistically inserted comment %s (parent %q) in %s/%s",
		localID, draft.ParentID, a.challengeID, a.solutionID)

	created := *comment
	context.Respond(&created)

	// A reply to a comment that has no server id yet cannot be sent; hold it
	// until the parent is confirmed, then issue it with the real parent id.
	if parent, ok := a.comments[draft.ParentID]; ok && parent.IsLocal() {
		a.heldReplies[draft.ParentID] = append(a.heldReplies[draft.ParentID],
			heldReply{mutationID: mutationID, localID: localID, ident: msg.Identity})
		log.Printf("Holding reply %s until parent %s is confirmed", localID, draft.ParentID)
		return
	}

	a.sendCreate(context, mutationID, localID, msg.Identity, draft.Body, draft.ParentID)
}

func (a *DiscussionActor) sendCreate(context actor.Context, mutationID, localID string, ident *models.Identity, body, parentID string) {
	self := context.Self()
	system := context.ActorSystem()
	go func() {
		start := time.Now()
		created, err := a.api.CreateComment(stdctx.Background(), ident, a.challengeID, a.solutionID, body, parentID)
		a.metrics.AddOperationLatency("create_comment", time.Since(start))
		if err != nil {
			a.metrics.IncrementErrors()
		}
		system.Root.Send(self, &createResultMsg{mutationID: mutationID, localID: localID, comment: created, err: err})
	}()
}

func (a *DiscussionActor) handleCreateResult(context actor.Context, msg *createResultMsg) {
	p, ok := a.pending[msg.mutationID]
	if !ok {
		log.Printf("Ignoring duplicate create result for mutation %s", msg.mutationID)
		return
	}
	delete(a.pending, msg.mutationID)

	node := a.comments[p.localID]

	if msg.err != nil {
		if node != nil {
			a.rollbackCreate(p.localID)
		}
		a.lastErr = msg.err.Error()
		log.Printf("Create failed, rolled back %s: %v", p.localID, msg.err)
		return
	}

	if node == nil {
		// Deleted locally before confirmation arrived. The server has the
		// comment now; only a reconcile can restore the true state.
		log.Printf("Comment %s confirmed after local removal, reconciling", p.localID)
		a.scheduleReconcile(context)
		return
	}

	// Swap the temporary id for the server-issued one in place. The node
	// itself survives, so the UI keeps its position, focus and scroll state.
	delete(a.comments, p.localID)
	node.ID = msg.comment.ID
	if !msg.comment.CreatedAt.IsZero() {
		node.CreatedAt = msg.comment.CreatedAt
	}
	node.UpdatedAt = msg.comment.UpdatedAt
	node.LikeCount = msg.comment.LikeCount
	node.LikedByMe = msg.comment.LikedByMe
	node.IsOptimistic = false
	a.comments[node.ID] = node

	// Re-point replies that referenced the temporary id
	for _, c := range a.comments {
		if c.ParentID == p.localID {
			c.ParentID = node.ID
		}
	}

	a.serverTotal++
	log.Printf("Comment %s confirmed as %s", p.localID, node.ID)

	// Release replies that were waiting for this parent's server id
	for _, held := range a.heldReplies[p.localID] {
		reply := a.comments[held.localID]
		if reply == nil {
			delete(a.pending, held.mutationID)
			continue
		}
		log.Printf("Releasing held reply %s with parent %s", held.localID, node.ID)
		a.sendCreate(context, held.mutationID, held.localID, held.ident, reply.Body, node.ID)
	}
	delete(a.heldReplies, p.localID)

	a.scheduleReconcile(context)
}

// rollbackCreate removes a failed optimistic comment together with any local
// replies that were queued underneath it.
func (a *DiscussionActor) rollbackCreate(localID string) {
	for _, id := range a.collectSubtree(localID) {
		delete(a.comments, id)
		a.dropHeldReplies(id)
	}
}

func (a *DiscussionActor) dropHeldReplies(parentID string) {
	for _, held := range a.heldReplies[parentID] {
		delete(a.pending, held.mutationID)
		delete(a.comments, held.localID)
		a.dropHeldReplies(held.localID)
	}
	delete(a.heldReplies, parentID)
}

func (a *DiscussionActor) handleToggleLike(context actor.Context, msg *ToggleLikeMsg) {
	a.metrics.IncrementRequests()

	if msg.Identity == nil {
		context.Respond(utils.NewUnauthenticatedError("like a comment"))
		return
	}

	comment, ok := a.comments[msg.CommentID]
	if !ok {
		context.Respond(utils.NewCommentNotFoundError(msg.CommentID))
		return
	}
	if comment.IsLocal() {
		context.Respond(utils.NewValidationError("comment is still being posted"))
		return
	}

	// Apply the toggle against the latest local state, not a stale snapshot
	if comment.LikedByMe {
		comment.LikedByMe = false
		if comment.LikeCount > 0 {
			comment.LikeCount--
		}
	} else {
		comment.LikedByMe = true
		comment.LikeCount++
	}

	version := a.likeVersions[msg.CommentID] + 1
	a.likeVersions[msg.CommentID] = version
	a.likesInFlight[msg.CommentID]++

	mutationID := uuid.New().String()
	a.pending[mutationID] = &pendingMutation{kind: mutationLike, commentID: msg.CommentID}

	context.Respond(&models.LikeState{
		CommentID: msg.CommentID,
		LikeCount: comment.LikeCount,
		LikedByMe: comment.LikedByMe,
	})

	self := context.Self()
	system := context.ActorSystem()
	ident := msg.Identity
	commentID := msg.CommentID
	go func() {
		start := time.Now()
		result, err := a.api.LikeComment(stdctx.Background(), ident, a.challengeID, a.solutionID, commentID)
		a.metrics.AddOperationLatency("like_comment", time.Since(start))
		if err != nil {
			a.metrics.IncrementErrors()
		}
		system.Root.Send(self, &likeResultMsg{
			mutationID: mutationID,
			commentID:  commentID,
			version:    version,
			result:     result,
			err:        err,
		})
	}()
}

func (a *DiscussionActor) handleLikeResult(context actor.Context, msg *likeResultMsg) {
	if _, ok := a.pending[msg.mutationID]; !ok {
		log.Printf("Ignoring duplicate like result for mutation %s", msg.mutationID)
		return
	}
	delete(a.pending, msg.mutationID)

	if a.likesInFlight[msg.commentID] > 0 {
		a.likesInFlight[msg.commentID]--
		if a.likesInFlight[msg.commentID] == 0 {
			delete(a.likesInFlight, msg.commentID)
		}
	}

	if msg.err != nil {
		// A failed toggle can leave local state drifted even when the
		// response is stale; a reconcile restores the server's truth.
		a.lastErr = msg.err.Error()
		a.scheduleReconcile(context)
	}

	comment, ok := a.comments[msg.commentID]
	if !ok {
		return // deleted while the toggle was in flight
	}

	// Last local intent wins: a response for an older toggle must not
	// overwrite the state of a newer one.
	if msg.version != a.likeVersions[msg.commentID] {
		log.Printf("Ignoring stale like response for %s (version %d, current %d)",
			msg.commentID, msg.version, a.likeVersions[msg.commentID])
		return
	}

	if msg.err != nil {
		// Revert exactly the toggle that was applied, not a blind re-fetch
		if comment.LikedByMe {
			comment.LikedByMe = false
			if comment.LikeCount > 0 {
				comment.LikeCount--
			}
		} else {
			comment.LikedByMe = true
			comment.LikeCount++
		}
		log.Printf("Like toggle failed for %s, reverted: %v", msg.commentID, msg.err)
		return
	}

	// No newer local toggle exists, so the server count is safe to adopt
	// (it also reflects concurrent likes by other users).
	comment.LikeCount = msg.result.LikeCount
	comment.LikedByMe = msg.result.LikedByMe
}

func (a *DiscussionActor) handleDeleteComment(context actor.Context, msg *DeleteCommentMsg) {
	a.metrics.IncrementRequests()

	if msg.Identity == nil {
		context.Respond(utils.NewUnauthenticatedError("delete a comment"))
		return
	}

	comment, ok := a.comments[msg.CommentID]
	if !ok {
		context.Respond(utils.NewCommentNotFoundError(msg.CommentID))
		return
	}
	if comment.AuthorID != msg.Identity.UserID {
		context.Respond(utils.NewForbiddenError("only the author can delete a comment"))
		return
	}

	// Remove the comment and all of its descendants in one synchronous update
	removed := a.collectSubtree(msg.CommentID)
	removedConfirmed := make([]string, 0, len(removed))
	for _, id := range removed {
		c := a.comments[id]
		delete(a.comments, id)
		a.dropHeldReplies(id)
		if c != nil && !c.IsOptimistic {
			a.tombstones[id] = true
			removedConfirmed = append(removedConfirmed, id)
		}
	}

	log.Printf("Removed comment %s and %d descendants from %s/%s",
		msg.CommentID, len(removed)-1, a.challengeID, a.solutionID)

	if comment.IsLocal() {
		// Never reached the server; nothing to delete remotely
		context.Respond(&models.StatusResponse{Success: true, Message: "comment removed"})
		return
	}

	mutationID := uuid.New().String()
	a.pending[mutationID] = &pendingMutation{
		kind:       mutationDelete,
		commentID:  msg.CommentID,
		removedIDs: removedConfirmed,
	}

	context.Respond(&models.StatusResponse{Success: true, Message: "comment removed"})

	self := context.Self()
	system := context.ActorSystem()
	ident := msg.Identity
	commentID := msg.CommentID
	go func() {
		start := time.Now()
		err := a.api.DeleteComment(stdctx.Background(), ident, a.challengeID, a.solutionID, commentID)
		a.metrics.AddOperationLatency("delete_comment", time.Since(start))
		if err != nil {
			a.metrics.IncrementErrors()
		}
		system.Root.Send(self, &deleteResultMsg{mutationID: mutationID, commentID: commentID, err: err})
	}()
}

func (a *DiscussionActor) handleDeleteResult(context actor.Context, msg *deleteResultMsg) {
	p, ok := a.pending[msg.mutationID]
	if !ok {
		log.Printf("Ignoring duplicate delete result for mutation %s", msg.mutationID)
		return
	}
	delete(a.pending, msg.mutationID)

	if msg.err != nil {
		// The true outcome is unknown; the subtree is deliberately not
		// restored from a guess. Surface the failure and re-fetch.
		a.lastErr = msg.err.Error()
		log.Printf("Delete failed for %s, scheduling reconcile: %v", msg.commentID, msg.err)
		a.scheduleReconcile(context)
		return
	}

	for _, id := range p.removedIDs {
		delete(a.tombstones, id)
	}
	a.serverTotal -= len(p.removedIDs)
	if a.serverTotal < 0 {
		a.serverTotal = 0
	}
	log.Printf("Delete of %s confirmed by backend", msg.commentID)
	a.scheduleReconcile(context)
}

func (a *DiscussionActor) handleReportComment(context actor.Context, msg *ReportCommentMsg) {
	a.metrics.IncrementRequests()

	if msg.Identity == nil {
		context.Respond(utils.NewUnauthenticatedError("report a comment"))
		return
	}

	draft := models.ReportDraft{CommentID: msg.CommentID, Reason: strings.TrimSpace(msg.Reason)}
	if err := validation.Struct(&draft); err != nil {
		context.Respond(utils.NewValidationError(err.Error()))
		return
	}

	comment, ok := a.comments[msg.CommentID]
	if !ok {
		context.Respond(utils.NewCommentNotFoundError(msg.CommentID))
		return
	}
	if comment.IsLocal() {
		context.Respond(utils.NewValidationError("comment is still being posted"))
		return
	}

	// Reports have no optimistic local effect; they are not safe to guess at
	mutationID := uuid.New().String()
	a.pending[mutationID] = &pendingMutation{kind: mutationReport, commentID: msg.CommentID}

	context.Respond(&models.StatusResponse{Success: true, Message: "report submitted"})

	self := context.Self()
	system := context.ActorSystem()
	ident := msg.Identity
	commentID := msg.CommentID
	reason := draft.Reason
	go func() {
		start := time.Now()
		err := a.api.ReportComment(stdctx.Background(), ident, a.challengeID, a.solutionID, commentID, reason)
		a.metrics.AddOperationLatency("report_comment", time.Since(start))
		if err != nil {
			a.metrics.IncrementErrors()
		}
		system.Root.Send(self, &reportResultMsg{mutationID: mutationID, commentID: commentID, err: err})
	}()
}

func (a *DiscussionActor) handleReportResult(msg *reportResultMsg) {
	if _, ok := a.pending[msg.mutationID]; !ok {
		log.Printf("Ignoring duplicate report result for mutation %s", msg.mutationID)
		return
	}
	delete(a.pending, msg.mutationID)

	if msg.err != nil {
		a.lastErr = msg.err.Error()
		log.Printf("Report failed for %s: %v", msg.commentID, msg.err)
		return
	}
	log.Printf("Report for %s accepted by backend", msg.commentID)
}

// collectSubtree returns the comment and all of its descendants, breadth-first.
func (a *DiscussionActor) collectSubtree(rootID string) []string {
	childrenOf := make(map[string][]string, len(a.comments))
	for id, c := range a.comments {
		if c.ParentID != "" {
			childrenOf[c.ParentID] = append(childrenOf[c.ParentID], id)
		}
	}

	out := make([]string, 0, 4)
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, childrenOf[id]...)
	}
	return out
}

// scheduleReconcile queues a delayed re-fetch of page 1 so optimistic state
// cannot drift from the backend indefinitely. Coalesces repeated requests;
// the fetch generation counter makes superseded results harmless.
func (a *DiscussionActor) scheduleReconcile(context actor.Context) {
	if a.reconcileQueued {
		return
	}
	a.reconcileQueued = true

	self := context.Self()
	system := context.ActorSystem()
	time.AfterFunc(a.reconcileDelay, func() {
		system.Root.Send(self, &reconcileTickMsg{})
	})
}
