// Package simulator drives the discussion gateway over HTTP with a
// population of simulated users posting, liking and deleting comments.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"challenge-hub/internal/auth"
	"challenge-hub/internal/models"
)

type SimConfig struct {
	NumUsers         int
	NumDiscussions   int
	SimulationTime   time.Duration
	CommentFrequency float64 // comments per user per minute
	LikeFrequency    float64 // likes per user per minute
	ReadFrequency    float64 // snapshot reads per user per minute
	DeleteRate       float64 // fraction of own comments deleted
	ReportRate       float64 // fraction of read comments reported
	AnonymousRate    float64 // fraction of users browsing without a token
	EngineURL        string
	JWTSecret        string
}

type SimulationStats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalComments   int
	TotalLikes      int
	TotalDeletes    int
	TotalReports    int
	TotalReads      int
	Latencies       []time.Duration
}

// SimulatedUser is one participant. Anonymous users read but never mutate.
type SimulatedUser struct {
	ID       string
	Username string
	Token    string // empty for anonymous users
	Comments []string
}

type discussion struct {
	ChallengeID string
	SolutionID  string
}

type Simulator struct {
	config      SimConfig
	stats       *SimulationStats
	users       []*SimulatedUser
	discussions []discussion
	client      *http.Client
	mu          sync.Mutex
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime: time.Now(),
			Latencies: make([]time.Duration, 0),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting discussion simulation...")

	if err := s.initialize(); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup
	for _, user := range s.users {
		wg.Add(1)
		go func(u *SimulatedUser) {
			defer wg.Done()
			s.simulateUser(ctx, u)
		}(user)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.reportProgress(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) initialize() error {
	log.Printf("Creating %d users across %d discussions...", s.config.NumUsers, s.config.NumDiscussions)

	s.discussions = make([]discussion, 0, s.config.NumDiscussions)
	for i := 0; i < s.config.NumDiscussions; i++ {
		s.discussions = append(s.discussions, discussion{
			ChallengeID: fmt.Sprintf("challenge-%d", i+1),
			SolutionID:  uuid.New().String(),
		})
	}

	s.users = make([]*SimulatedUser, 0, s.config.NumUsers)
	for i := 0; i < s.config.NumUsers; i++ {
		user := &SimulatedUser{
			ID:       uuid.New().String(),
			Username: fmt.Sprintf("simuser_%d", i+1),
		}
		if rand.Float64() >= s.config.AnonymousRate {
			token, err := auth.GenerateToken(&models.Identity{
				UserID:   user.ID,
				Username: user.Username,
			}, s.config.JWTSecret)
			if err != nil {
				return fmt.Errorf("failed to sign token for %s: %v", user.Username, err)
			}
			user.Token = token
		}
		s.users = append(s.users, user)
	}
	return nil
}

// simulateUser runs one user's activity loop until the context expires.
func (s *Simulator) simulateUser(ctx context.Context, user *SimulatedUser) {
	perMinute := s.config.CommentFrequency + s.config.LikeFrequency + s.config.ReadFrequency
	if perMinute <= 0 {
		return
	}
	interval := time.Duration(float64(time.Minute) / perMinute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.performAction(user)
		}
	}
}

func (s *Simulator) performAction(user *SimulatedUser) {
	d := s.discussions[rand.Intn(len(s.discussions))]

	total := s.config.CommentFrequency + s.config.LikeFrequency + s.config.ReadFrequency
	roll := rand.Float64() * total

	switch {
	case roll < s.config.ReadFrequency || user.Token == "":
		s.readDiscussion(user, d)
	case roll < s.config.ReadFrequency+s.config.CommentFrequency:
		s.postComment(user, d)
	default:
		s.likeRandomComment(user, d)
	}
}

func (s *Simulator) readDiscussion(user *SimulatedUser, d discussion) {
	path := fmt.Sprintf("/discussion?challengeId=%s&solutionId=%s",
		url.QueryEscape(d.ChallengeID), url.QueryEscape(d.SolutionID))

	var snapshot models.DiscussionSnapshot
	if err := s.request(http.MethodGet, path, user.Token, nil, &snapshot); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalReads++
	s.stats.mu.Unlock()

	// Occasionally report something just read
	if user.Token != "" && len(snapshot.Roots) > 0 && rand.Float64() < s.config.ReportRate {
		target := snapshot.Roots[rand.Intn(len(snapshot.Roots))]
		s.reportComment(user, d, target.ID)
	}
}

func (s *Simulator) postComment(user *SimulatedUser, d discussion) {
	payload := map[string]string{
		"challengeId": d.ChallengeID,
		"solutionId":  d.SolutionID,
		"body":        fmt.Sprintf("Comment from %s at %s", user.Username, time.Now().Format(time.RFC3339Nano)),
	}

	// Sometimes reply to a confirmed comment from the current snapshot
	if rand.Float64() < 0.3 {
		path := fmt.Sprintf("/discussion?challengeId=%s&solutionId=%s",
			url.QueryEscape(d.ChallengeID), url.QueryEscape(d.SolutionID))
		var snapshot models.DiscussionSnapshot
		if err := s.request(http.MethodGet, path, user.Token, nil, &snapshot); err == nil {
			confirmed := make([]string, 0, len(snapshot.Roots))
			for _, root := range snapshot.Roots {
				if !root.IsLocal() {
					confirmed = append(confirmed, root.ID)
				}
			}
			if len(confirmed) > 0 {
				payload["parentId"] = confirmed[rand.Intn(len(confirmed))]
			}
		}
	}

	var created models.Comment
	if err := s.request(http.MethodPost, "/discussion/comments", user.Token, payload, &created); err != nil {
		return
	}

	s.mu.Lock()
	user.Comments = append(user.Comments, created.ID)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalComments++
	s.stats.mu.Unlock()

	// Some users clean up after themselves
	if rand.Float64() < s.config.DeleteRate {
		s.deleteComment(user, d, created.ID)
	}
}

func (s *Simulator) likeRandomComment(user *SimulatedUser, d discussion) {
	path := fmt.Sprintf("/discussion?challengeId=%s&solutionId=%s",
		url.QueryEscape(d.ChallengeID), url.QueryEscape(d.SolutionID))

	var snapshot models.DiscussionSnapshot
	if err := s.request(http.MethodGet, path, user.Token, nil, &snapshot); err != nil {
		return
	}
	if len(snapshot.Roots) == 0 {
		return
	}

	target := snapshot.Roots[rand.Intn(len(snapshot.Roots))]
	payload := map[string]string{
		"challengeId": d.ChallengeID,
		"solutionId":  d.SolutionID,
		"commentId":   target.ID,
	}
	if err := s.request(http.MethodPost, "/discussion/like", user.Token, payload, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalLikes++
	s.stats.mu.Unlock()
}

func (s *Simulator) deleteComment(user *SimulatedUser, d discussion, commentID string) {
	path := fmt.Sprintf("/discussion/comments?challengeId=%s&solutionId=%s&commentId=%s",
		url.QueryEscape(d.ChallengeID), url.QueryEscape(d.SolutionID), url.QueryEscape(commentID))
	if err := s.request(http.MethodDelete, path, user.Token, nil, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalDeletes++
	s.stats.mu.Unlock()
}

func (s *Simulator) reportComment(user *SimulatedUser, d discussion, commentID string) {
	payload := map[string]string{
		"challengeId": d.ChallengeID,
		"solutionId":  d.SolutionID,
		"commentId":   commentID,
		"reason":      "flagged by simulation",
	}
	if err := s.request(http.MethodPost, "/discussion/report", user.Token, payload, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalReports++
	s.stats.mu.Unlock()
}

func (s *Simulator) request(method, path, token string, payload map[string]string, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.config.EngineURL+path, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	s.stats.mu.Lock()
	s.stats.TotalRequests++
	s.stats.Latencies = append(s.stats.Latencies, latency)
	s.stats.mu.Unlock()

	if err != nil {
		s.recordFailure()
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.recordFailure()
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.recordFailure()
		return fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
	}

	s.stats.mu.Lock()
	s.stats.SuccessRequests++
	s.stats.mu.Unlock()

	if result != nil {
		return json.Unmarshal(data, result)
	}
	return nil
}

func (s *Simulator) recordFailure() {
	s.stats.mu.Lock()
	s.stats.FailedRequests++
	s.stats.mu.Unlock()
}

func (s *Simulator) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			log.Printf("Progress: %d requests (%d failed), %d comments, %d likes, %d deletes, %d reports",
				m.TotalRequests, m.FailedRequests, m.TotalComments, m.TotalLikes, m.TotalDeletes, m.TotalReports)
		}
	}
}

// Metrics is a point-in-time copy of the simulation counters.
type Metrics struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalComments   int
	TotalLikes      int
	TotalDeletes    int
	TotalReports    int
	TotalReads      int
	AverageLatency  time.Duration
}

func (s *Simulator) GetMetrics() Metrics {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	var avg time.Duration
	if len(s.stats.Latencies) > 0 {
		var sum time.Duration
		for _, l := range s.stats.Latencies {
			sum += l
		}
		avg = sum / time.Duration(len(s.stats.Latencies))
	}

	return Metrics{
		TotalRequests:   s.stats.TotalRequests,
		SuccessRequests: s.stats.SuccessRequests,
		FailedRequests:  s.stats.FailedRequests,
		TotalComments:   s.stats.TotalComments,
		TotalLikes:      s.stats.TotalLikes,
		TotalDeletes:    s.stats.TotalDeletes,
		TotalReports:    s.stats.TotalReports,
		TotalReads:      s.stats.TotalReads,
		AverageLatency:  avg,
	}
}
