package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"challenge-hub/internal/engine"
	"challenge-hub/internal/utils"
)

// Server holds all gateway dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	JWTSecret      string
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(system *actor.ActorSystem, eng *engine.Engine, metrics *utils.MetricsCollector, jwtSecret string, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Metrics:        metrics,
		JWTSecret:      jwtSecret,
		RequestTimeout: requestTimeout,
	}
}

// errorResponse is the JSON envelope for failed requests
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeAppError(w http.ResponseWriter, appErr *utils.AppError) {
	writeJSON(w, utils.AppErrorToHTTPStatus(appErr.Code), errorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
	})
}

// writeActorResult sends an actor reply to the client: AppError replies map to
// their HTTP status, everything else is encoded as-is with 200.
func writeActorResult(w http.ResponseWriter, result interface{}) {
	if appErr, ok := result.(*utils.AppError); ok {
		writeAppError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleHealth reports gateway liveness plus engine and request metrics
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":           "healthy",
			"open_discussions": s.Engine.OpenCount(),
			"metrics":          s.Metrics.Snapshot(),
			"server_time":      time.Now(),
		})
	}
}
