package engine

import (
	"log"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"challenge-hub/internal/engine/actors"
	"challenge-hub/internal/transport"
	"challenge-hub/internal/utils"
)

// Engine manages the discussion actors. Each open discussion, keyed by
// (challengeID, solutionID), gets its own actor; the engine spawns them
// lazily and stops them when the discussion is closed.
type Engine struct {
	system         *actor.ActorSystem
	api            transport.API
	metrics        *utils.MetricsCollector
	reconcileDelay time.Duration

	mu          sync.Mutex
	discussions map[string]*actor.PID
}

func NewEngine(system *actor.ActorSystem, api transport.API, metrics *utils.MetricsCollector, reconcileDelay time.Duration) *Engine {
	return &Engine{
		system:         system,
		api:            api,
		metrics:        metrics,
		reconcileDelay: reconcileDelay,
		discussions:    make(map[string]*actor.PID),
	}
}

func discussionKey(challengeID, solutionID string) string {
	return challengeID + "/" + solutionID
}

// DiscussionPID returns the PID of the actor owning the given discussion,
// spawning it on first use. Spawning triggers the initial page fetch.
func (e *Engine) DiscussionPID(challengeID, solutionID string) *actor.PID {
	key := discussionKey(challengeID, solutionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if pid, ok := e.discussions[key]; ok {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewDiscussionActor(challengeID, solutionID, e.api, e.metrics, e.reconcileDelay)
	})
	pid := e.system.Root.Spawn(props)
	e.discussions[key] = pid

	log.Printf("Opened discussion %s", key)
	return pid
}

// CloseDiscussion stops the discussion's actor and forgets its state.
// In-flight network completions for the stopped actor become dead letters;
// reopening the discussion starts from a clean fetch.
func (e *Engine) CloseDiscussion(challengeID, solutionID string) bool {
	key := discussionKey(challengeID, solutionID)

	e.mu.Lock()
	pid, ok := e.discussions[key]
	if ok {
		delete(e.discussions, key)
	}
	e.mu.Unlock()

	if !ok {
		return false
	}

	e.system.Root.Stop(pid)
	log.Printf("Closed discussion %s", key)
	return true
}

// OpenCount reports how many discussions currently have a live actor.
func (e *Engine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.discussions)
}
