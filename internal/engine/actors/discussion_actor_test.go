package actors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challenge-hub/internal/models"
	"challenge-hub/internal/transport"
	"challenge-hub/internal/utils"
)

// fakeBackend is an in-memory stand-in for the platform API. Gates are
// unbuffered-or-buffered channels a call blocks on before returning, so tests
// can hold a mutation in flight while asserting optimistic state.
type fakeBackend struct {
	mu       sync.Mutex
	pageSize int
	comments []*models.Comment
	nextID   int

	fetchFn func(page int) (*transport.CommentPage, error)

	createGate chan struct{}
	likeGate   chan struct{}
	deleteGate chan struct{}

	createErr error
	likeErr   error
	deleteErr error
	reportErr error

	fetches int
	creates int
	likes   int
	deletes int
	reports int
}

func newFakeBackend(seed ...*models.Comment) *fakeBackend {
	b := &fakeBackend{pageSize: 20}
	for _, c := range seed {
		cp := *c
		b.comments = append(b.comments, &cp)
	}
	return b
}

func (b *fakeBackend) FetchComments(_ context.Context, _, _ string, page int) (*transport.CommentPage, error) {
	b.mu.Lock()
	b.fetches++
	fn := b.fetchFn
	b.mu.Unlock()

	if fn != nil {
		return fn(page)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := (page - 1) * b.pageSize
	out := make([]*models.Comment, 0, b.pageSize)
	for i := start; i < len(b.comments) && i < start+b.pageSize; i++ {
		cp := *b.comments[i]
		out = append(out, &cp)
	}
	return &transport.CommentPage{
		Comments:   out,
		TotalCount: len(b.comments),
		Page:       page,
		HasMore:    start+b.pageSize < len(b.comments),
	}, nil
}

func (b *fakeBackend) CreateComment(_ context.Context, ident *models.Identity, _, _, body, parentID string) (*models.Comment, error) {
	b.mu.Lock()
	b.creates++
	gate := b.createGate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.createErr != nil {
		return nil, b.createErr
	}
	if parentID != "" && b.find(parentID) == nil {
		return nil, utils.NewValidationError("unknown parent " + parentID)
	}

	b.nextID++
	created := &models.Comment{
		ID:         fmt.Sprintf("srv-%d", b.nextID),
		Body:       body,
		AuthorID:   ident.UserID,
		AuthorName: ident.Username,
		ParentID:   parentID,
		CreatedAt:  time.Now(),
	}
	b.comments = append(b.comments, created)

	cp := *created
	return &cp, nil
}

func (b *fakeBackend) LikeComment(_ context.Context, _ *models.Identity, _, _, commentID string) (*transport.LikeResult, error) {
	b.mu.Lock()
	b.likes++
	gate := b.likeGate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.likeErr != nil {
		return nil, b.likeErr
	}
	c := b.find(commentID)
	if c == nil {
		return nil, utils.NewCommentNotFoundError(commentID)
	}
	if c.LikedByMe {
		c.LikedByMe = false
		c.LikeCount--
	} else {
		c.LikedByMe = true
		c.LikeCount++
	}
	return &transport.LikeResult{LikeCount: c.LikeCount, LikedByMe: c.LikedByMe}, nil
}

func (b *fakeBackend) DeleteComment(_ context.Context, _ *models.Identity, _, _, commentID string) error {
	b.mu.Lock()
	b.deletes++
	gate := b.deleteGate
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.deleteErr != nil {
		return b.deleteErr
	}
	if b.find(commentID) == nil {
		return utils.NewCommentNotFoundError(commentID)
	}

	doomed := map[string]bool{commentID: true}
	for grew := true; grew; {
		grew = false
		for _, c := range b.comments {
			if !doomed[c.ID] && doomed[c.ParentID] {
				doomed[c.ID] = true
				grew = true
			}
		}
	}
	kept := b.comments[:0]
	for _, c := range b.comments {
		if !doomed[c.ID] {
			kept = append(kept, c)
		}
	}
	b.comments = kept
	return nil
}

func (b *fakeBackend) ReportComment(_ context.Context, _ *models.Identity, _, _, _, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports++
	return b.reportErr
}

func (b *fakeBackend) find(id string) *models.Comment {
	for _, c := range b.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *fakeBackend) counts() (fetches, creates, likes, deletes, reports int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches, b.creates, b.likes, b.deletes, b.reports
}

func testIdentity(userID string) *models.Identity {
	return &models.Identity{UserID: userID, Username: "user_" + userID, Token: "token-" + userID}
}

func serverComment(id, parentID, authorID string, likeCount int) *models.Comment {
	return &models.Comment{
		ID:        id,
		Body:      "body of " + id,
		AuthorID:  authorID,
		ParentID:  parentID,
		CreatedAt: time.Now().Add(-time.Hour),
		LikeCount: likeCount,
	}
}

func spawnDiscussion(t *testing.T, api transport.API, reconcileDelay time.Duration) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDiscussionActor("challenge-1", "solution-1", api, utils.NewMetricsCollector(), reconcileDelay)
	})
	return system, system.Root.Spawn(props)
}

func getSnapshot(t *testing.T, system *actor.ActorSystem, pid *actor.PID) *models.DiscussionSnapshot {
	t.Helper()
	future := system.Root.RequestFuture(pid, &GetSnapshotMsg{}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	snap, ok := result.(*models.DiscussionSnapshot)
	require.True(t, ok, "expected snapshot, got %T", result)
	return snap
}

func eventuallySnapshot(t *testing.T, system *actor.ActorSystem, pid *actor.PID, cond func(*models.DiscussionSnapshot) bool) {
	t.Helper()
	assert.Eventually(t, func() bool {
		future := system.Root.RequestFuture(pid, &GetSnapshotMsg{}, time.Second)
		result, err := future.Result()
		if err != nil {
			return false
		}
		snap, ok := result.(*models.DiscussionSnapshot)
		return ok && cond(snap)
	}, 3*time.Second, 10*time.Millisecond)
}

func waitLoaded(t *testing.T, system *actor.ActorSystem, pid *actor.PID) {
	t.Helper()
	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return !s.IsLoading
	})
}

func request(t *testing.T, system *actor.ActorSystem, pid *actor.PID, msg interface{}) interface{} {
	t.Helper()
	future := system.Root.RequestFuture(pid, msg, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func TestInitialLoadBuildsThreadedSnapshot(t *testing.T) {
	backend := newFakeBackend(
		serverComment("srv-1", "", "alice", 0),
		serverComment("srv-2", "srv-1", "bob", 0),
	)
	system, pid := spawnDiscussion(t, backend, time.Hour)

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return !s.IsLoading && len(s.Roots) == 1
	})

	snap := getSnapshot(t, system, pid)
	assert.Equal(t, "srv-1", snap.Roots[0].ID)
	require.Len(t, snap.Roots[0].Children, 1)
	assert.Equal(t, "srv-2", snap.Roots[0].Children[0].ID)
	assert.Equal(t, 2, snap.TotalCount)
	assert.Equal(t, 1, snap.Page)
	assert.False(t, snap.HasMore)
	assert.Empty(t, snap.LastError)
}

func TestCreateCommentOptimisticallyThenConfirm(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{})
	system, pid := spawnDiscussion(t, backend, 30*time.Millisecond)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &CreateCommentMsg{
		Identity: testIdentity("u1"),
		Body:     "first!",
	})
	created, ok := result.(*models.Comment)
	require.True(t, ok, "expected comment, got %T", result)
	assert.True(t, created.IsLocal())
	assert.True(t, created.IsOptimistic)
	assert.Equal(t, "first!", created.Body)

	// Visible immediately, before the backend has answered
	snap := getSnapshot(t, system, pid)
	require.Len(t, snap.Roots, 1)
	assert.Equal(t, created.ID, snap.Roots[0].ID)
	assert.Equal(t, 1, snap.TotalCount)

	backend.createGate <- struct{}{}

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 1 && s.Roots[0].ID == "srv-1" && !s.Roots[0].IsOptimistic
	})
	snap = getSnapshot(t, system, pid)
	assert.Equal(t, 1, snap.TotalCount)
}

func TestCreateRollsBackOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{})
	backend.createErr = errors.New("boom")
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	request(t, system, pid, &CreateCommentMsg{Identity: testIdentity("u1"), Body: "doomed"})
	require.Len(t, getSnapshot(t, system, pid).Roots, 1)

	backend.createGate <- struct{}{}

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 0 && s.LastError != "" && s.TotalCount == 0
	})
}

func TestCreateCommentValidation(t *testing.T) {
	backend := newFakeBackend()
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	for _, body := range []string{"", "   ", strings.Repeat("a", 2001)} {
		result := request(t, system, pid, &CreateCommentMsg{Identity: testIdentity("u1"), Body: body})
		appErr, ok := result.(*utils.AppError)
		require.True(t, ok, "expected error for body %q, got %T", body, result)
		assert.Equal(t, utils.ErrValidation, appErr.Code)
	}

	assert.Empty(t, getSnapshot(t, system, pid).Roots)
	_, creates, _, _, _ := backend.counts()
	assert.Zero(t, creates)
}

func TestMutationsRequireIdentity(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	messages := []interface{}{
		&CreateCommentMsg{Body: "hello"},
		&ToggleLikeMsg{CommentID: "srv-1"},
		&DeleteCommentMsg{CommentID: "srv-1"},
		&ReportCommentMsg{CommentID: "srv-1", Reason: "spam"},
	}
	for _, msg := range messages {
		result := request(t, system, pid, msg)
		appErr, ok := result.(*utils.AppError)
		require.True(t, ok, "expected error for %T, got %T", msg, result)
		assert.Equal(t, utils.ErrUnauthenticated, appErr.Code)
	}

	_, creates, likes, deletes, reports := backend.counts()
	assert.Zero(t, creates+likes+deletes+reports)
	assert.Len(t, getSnapshot(t, system, pid).Roots, 1)
}

func TestLikeAppliesImmediatelyAndConfirms(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 2))
	backend.likeGate = make(chan struct{})
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &ToggleLikeMsg{Identity: testIdentity("u1"), CommentID: "srv-1"})
	state, ok := result.(*models.LikeState)
	require.True(t, ok, "expected like state, got %T", result)
	assert.Equal(t, 3, state.LikeCount)
	assert.True(t, state.LikedByMe)

	snap := getSnapshot(t, system, pid)
	assert.Equal(t, 3, snap.Roots[0].LikeCount)
	assert.True(t, snap.Roots[0].LikedByMe)

	backend.likeGate <- struct{}{}

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return s.Roots[0].LikeCount == 3 && s.Roots[0].LikedByMe
	})
}

func TestLikeRevertsOnFailure(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 2))
	backend.likeGate = make(chan struct{})
	backend.likeErr = errors.New("backend down")
	system, pid := spawnDiscussion(t, backend, 50*time.Millisecond)
	waitLoaded(t, system, pid)

	request(t, system, pid, &ToggleLikeMsg{Identity: testIdentity("u1"), CommentID: "srv-1"})
	snap := getSnapshot(t, system, pid)
	assert.Equal(t, 3, snap.Roots[0].LikeCount)

	backend.likeGate <- struct{}{}

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 1 && s.Roots[0].LikeCount == 2 && !s.Roots[0].LikedByMe
	})
}

func TestRapidToggleLastIntentWins(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 2))
	backend.likeGate = make(chan struct{}, 2)
	backend.likeErr = errors.New("backend down")
	system, pid := spawnDiscussion(t, backend, 50*time.Millisecond)
	waitLoaded(t, system, pid)

	// Like, then unlike, before either round-trip finishes
	request(t, system, pid, &ToggleLikeMsg{Identity: testIdentity("u1"), CommentID: "srv-1"})
	request(t, system, pid, &ToggleLikeMsg{Identity: testIdentity("u1"), CommentID: "srv-1"})

	snap := getSnapshot(t, system, pid)
	assert.Equal(t, 2, snap.Roots[0].LikeCount)
	assert.False(t, snap.Roots[0].LikedByMe)

	backend.likeGate <- struct{}{}
	backend.likeGate <- struct{}{}

	// The stale failure must not corrupt the final state
	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 1 && s.Roots[0].LikeCount == 2 && !s.Roots[0].LikedByMe && !s.IsLoading
	})
}

func TestLikeOnUnconfirmedCommentRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{}, 1)
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	created := request(t, system, pid, &CreateCommentMsg{Identity: testIdentity("u1"), Body: "pending"}).(*models.Comment)

	result := request(t, system, pid, &ToggleLikeMsg{Identity: testIdentity("u1"), CommentID: created.ID})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected error, got %T", result)
	assert.Equal(t, utils.ErrValidation, appErr.Code)

	backend.createGate <- struct{}{}
}

func TestDeleteRemovesSubtreeImmediately(t *testing.T) {
	backend := newFakeBackend(
		serverComment("srv-1", "", "alice", 0),
		serverComment("srv-2", "srv-1", "bob", 0),
		serverComment("srv-3", "srv-2", "alice", 0),
		serverComment("srv-4", "", "bob", 0),
	)
	system, pid := spawnDiscussion(t, backend, 30*time.Millisecond)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &DeleteCommentMsg{Identity: testIdentity("alice"), CommentID: "srv-1"})
	status, ok := result.(*models.StatusResponse)
	require.True(t, ok, "expected status, got %T", result)
	assert.True(t, status.Success)

	// Root, reply and nested reply are gone in one synchronous update
	snap := getSnapshot(t, system, pid)
	require.Len(t, snap.Roots, 1)
	assert.Equal(t, "srv-4", snap.Roots[0].ID)
	assert.Equal(t, 1, snap.TotalCount)

	// Still gone after the backend confirms and the reconcile lands
	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		_, _, _, deletes, _ := backend.counts()
		return deletes == 1 && len(s.Roots) == 1 && s.TotalCount == 1 && !s.IsLoading
	})
}

func TestDeleteForbiddenForNonAuthor(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &DeleteCommentMsg{Identity: testIdentity("mallory"), CommentID: "srv-1"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected error, got %T", result)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)

	assert.Len(t, getSnapshot(t, system, pid).Roots, 1)
	_, _, _, deletes, _ := backend.counts()
	assert.Zero(t, deletes)
}

func TestDeleteFailureReconcilesInsteadOfRollingBack(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	backend.deleteGate = make(chan struct{})
	backend.deleteErr = errors.New("backend down")
	system, pid := spawnDiscussion(t, backend, 100*time.Millisecond)
	waitLoaded(t, system, pid)

	request(t, system, pid, &DeleteCommentMsg{Identity: testIdentity("alice"), CommentID: "srv-1"})
	assert.Empty(t, getSnapshot(t, system, pid).Roots)

	backend.deleteGate <- struct{}{}

	// The failure is surfaced, and the comment is not restored from a local
	// guess: it comes back only when the reconcile fetch returns it.
	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 1 && s.Roots[0].ID == "srv-1" && !s.IsLoading
	})
}

func TestDeleteUnconfirmedCommentIsLocalOnly(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{}, 1)
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	created := request(t, system, pid, &CreateCommentMsg{Identity: testIdentity("u1"), Body: "oops"}).(*models.Comment)

	result := request(t, system, pid, &DeleteCommentMsg{Identity: testIdentity("u1"), CommentID: created.ID})
	status, ok := result.(*models.StatusResponse)
	require.True(t, ok, "expected status, got %T", result)
	assert.True(t, status.Success)
	assert.Empty(t, getSnapshot(t, system, pid).Roots)

	backend.createGate <- struct{}{}

	_, _, _, deletes, _ := backend.counts()
	assert.Zero(t, deletes)
}

func TestReportHasNoLocalEffect(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &ReportCommentMsg{
		Identity:  testIdentity("u1"),
		CommentID: "srv-1",
		Reason:    "spam",
	})
	status, ok := result.(*models.StatusResponse)
	require.True(t, ok, "expected status, got %T", result)
	assert.True(t, status.Success)

	snap := getSnapshot(t, system, pid)
	require.Len(t, snap.Roots, 1)
	assert.Equal(t, "srv-1", snap.Roots[0].ID)

	assert.Eventually(t, func() bool {
		_, _, _, _, reports := backend.counts()
		return reports == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReportValidation(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &ReportCommentMsg{Identity: testIdentity("u1"), CommentID: "srv-1"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected error, got %T", result)
	assert.Equal(t, utils.ErrValidation, appErr.Code)

	_, _, _, _, reports := backend.counts()
	assert.Zero(t, reports)
}

func TestRefreshPreservesOptimisticComment(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	backend.createGate = make(chan struct{})
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	created := request(t, system, pid, &CreateCommentMsg{Identity: testIdentity("u1"), Body: "mine"}).(*models.Comment)

	request(t, system, pid, &RefreshMsg{})

	// The refresh replaces server state but must not drop unconfirmed work
	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return !s.IsLoading && len(s.Roots) == 2 && s.Roots[0].ID == created.ID && s.Roots[0].IsOptimistic
	})

	backend.createGate <- struct{}{}

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 2 && !s.Roots[0].IsOptimistic && !s.Roots[1].IsOptimistic
	})
}

func TestLoadMoreMergesAndDeduplicates(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	a := serverComment("srv-a", "", "alice", 0)
	b := serverComment("srv-b", "", "bob", 0)
	c := serverComment("srv-c", "", "carol", 0)
	a.CreatedAt = base.Add(3 * time.Minute)
	b.CreatedAt = base.Add(2 * time.Minute)
	c.CreatedAt = base.Add(1 * time.Minute)

	backend := newFakeBackend()
	backend.fetchFn = func(page int) (*transport.CommentPage, error) {
		if page == 1 {
			return &transport.CommentPage{Comments: []*models.Comment{a, b}, TotalCount: 3, Page: 1, HasMore: true}, nil
		}
		// Page boundary shifted server-side: srv-b appears again
		return &transport.CommentPage{Comments: []*models.Comment{b, c}, TotalCount: 3, Page: page, HasMore: false}, nil
	}
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	snap := getSnapshot(t, system, pid)
	assert.Len(t, snap.Roots, 2)
	assert.True(t, snap.HasMore)

	result := request(t, system, pid, &LoadMoreMsg{})
	assert.True(t, result.(*models.StatusResponse).Success)

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return !s.IsLoading && len(s.Roots) == 3 && s.Page == 2 && !s.HasMore && s.TotalCount == 3
	})
}

func TestLoadMoreWithoutMorePages(t *testing.T) {
	backend := newFakeBackend(serverComment("srv-1", "", "alice", 0))
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	result := request(t, system, pid, &LoadMoreMsg{})
	status := result.(*models.StatusResponse)
	assert.False(t, status.Success)

	fetches, _, _, _, _ := backend.counts()
	assert.Equal(t, 1, fetches)
}

func TestRefreshSupersedesInFlightLoadMore(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	a := serverComment("srv-a", "", "alice", 0)
	b := serverComment("srv-b", "", "bob", 0)
	c := serverComment("srv-c", "", "carol", 0)
	a.CreatedAt = base.Add(3 * time.Minute)
	b.CreatedAt = base.Add(2 * time.Minute)
	c.CreatedAt = base.Add(1 * time.Minute)

	var calls int32
	gate := make(chan struct{}, 2)
	backend := newFakeBackend()
	backend.fetchFn = func(page int) (*transport.CommentPage, error) {
		if atomic.AddInt32(&calls, 1) > 1 {
			<-gate
		}
		if page == 1 {
			return &transport.CommentPage{Comments: []*models.Comment{a, b}, TotalCount: 3, Page: 1, HasMore: true}, nil
		}
		return &transport.CommentPage{Comments: []*models.Comment{c}, TotalCount: 3, Page: page, HasMore: false}, nil
	}
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	// Both requests are accepted and their fetches are now blocked
	request(t, system, pid, &LoadMoreMsg{})
	request(t, system, pid, &RefreshMsg{})

	gate <- struct{}{}
	gate <- struct{}{}

	// The refresh wins regardless of response arrival order: the page-2
	// result belongs to a superseded generation and is discarded.
	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return !s.IsLoading && s.Page == 1 && len(s.Roots) == 2
	})
	for _, root := range getSnapshot(t, system, pid).Roots {
		assert.NotEqual(t, "srv-c", root.ID)
	}
}

func TestFetchFailureKeepsExistingState(t *testing.T) {
	var calls int32
	a := serverComment("srv-a", "", "alice", 0)
	backend := newFakeBackend()
	backend.fetchFn = func(page int) (*transport.CommentPage, error) {
		if atomic.AddInt32(&calls, 1) > 1 {
			return nil, errors.New("backend down")
		}
		return &transport.CommentPage{Comments: []*models.Comment{a}, TotalCount: 1, Page: 1, HasMore: false}, nil
	}
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	request(t, system, pid, &RefreshMsg{})

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return !s.IsLoading && s.LastError != ""
	})
	snap := getSnapshot(t, system, pid)
	require.Len(t, snap.Roots, 1)
	assert.Equal(t, "srv-a", snap.Roots[0].ID)
}

func TestHeldReplyWaitsForParentConfirmation(t *testing.T) {
	backend := newFakeBackend()
	backend.createGate = make(chan struct{}, 2)
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	parent := request(t, system, pid, &CreateCommentMsg{Identity: testIdentity("u1"), Body: "parent"}).(*models.Comment)
	reply := request(t, system, pid, &CreateCommentMsg{
		Identity: testIdentity("u1"),
		Body:     "reply",
		ParentID: parent.ID,
	}).(*models.Comment)
	assert.True(t, reply.IsLocal())

	// The reply is threaded under its optimistic parent right away
	snap := getSnapshot(t, system, pid)
	require.Len(t, snap.Roots, 1)
	require.Len(t, snap.Roots[0].Children, 1)
	assert.Equal(t, reply.ID, snap.Roots[0].Children[0].ID)

	// Only the parent's network call has been issued so far
	_, creates, _, _, _ := backend.counts()
	assert.Equal(t, 1, creates)

	backend.createGate <- struct{}{}
	backend.createGate <- struct{}{}

	eventuallySnapshot(t, system, pid, func(s *models.DiscussionSnapshot) bool {
		return len(s.Roots) == 1 && s.Roots[0].ID == "srv-1" &&
			len(s.Roots[0].Children) == 1 && s.Roots[0].Children[0].ID == "srv-2" &&
			!s.Roots[0].Children[0].IsOptimistic
	})
}

func TestSnapshotIsDetachedFromLiveState(t *testing.T) {
	backend := newFakeBackend(
		serverComment("srv-1", "", "alice", 0),
		serverComment("srv-2", "srv-1", "bob", 0),
	)
	system, pid := spawnDiscussion(t, backend, time.Hour)
	waitLoaded(t, system, pid)

	snap := getSnapshot(t, system, pid)
	snap.Roots[0].Body = "mutated"
	snap.Roots[0].Children[0].Body = "also mutated"
	snap.Roots[0].Children = nil

	fresh := getSnapshot(t, system, pid)
	require.Len(t, fresh.Roots, 1)
	assert.Equal(t, "body of srv-1", fresh.Roots[0].Body)
	require.Len(t, fresh.Roots[0].Children, 1)
	assert.Equal(t, "body of srv-2", fresh.Roots[0].Children[0].Body)
}
