package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/asynkron/protoactor-go/actor"

	"challenge-hub/internal/config"
	"challenge-hub/internal/engine"
	"challenge-hub/internal/handlers"
	"challenge-hub/internal/middleware"
	"challenge-hub/internal/transport"
	"challenge-hub/internal/utils"
)

func main() {
	// Initialize components
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	metrics := utils.NewMetricsCollector()

	// REST client for the platform backend
	apiClient := transport.NewClient(cfg.Backend.BaseURL, cfg.Discussion.PageSize, cfg.Backend.RequestTimeout)

	// Initialize actor system
	system := actor.NewActorSystem()

	// Initialize the discussion engine
	discussionEngine := engine.NewEngine(system, apiClient, metrics, cfg.Discussion.ReconcileDelay)

	// Create server instance
	server := handlers.NewServer(system, discussionEngine, metrics, cfg.JWTSecret, cfg.Discussion.ActorTimeout)

	// Set up HTTP handlers
	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/discussion", server.HandleDiscussion())
	mux.HandleFunc("/discussion/comments", server.HandleComments())
	mux.HandleFunc("/discussion/like", server.HandleLike())
	mux.HandleFunc("/discussion/report", server.HandleReport())
	mux.HandleFunc("/discussion/more", server.HandleLoadMore())
	mux.HandleFunc("/discussion/refresh", server.HandleRefresh())

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	handler := middleware.CORSMiddleware(corsConfig)(mux)

	// Start server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting discussion gateway on %s (backend %s)", serverAddr, cfg.Backend.BaseURL)
	if err := http.ListenAndServe(serverAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
