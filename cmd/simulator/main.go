package main

import (
	"context"
	"log"
	"os"
	"time"

	"challenge-hub/simulator"
)

func main() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	engineURL := os.Getenv("ENGINE_URL")
	if engineURL == "" {
		engineURL = "http://localhost:8080"
	}

	config := simulator.SimConfig{
		NumUsers:         25,
		NumDiscussions:   5,
		SimulationTime:   5 * time.Minute,
		CommentFrequency: 6.0,
		LikeFrequency:    12.0,
		ReadFrequency:    20.0,
		DeleteRate:       0.05,
		ReportRate:       0.01,
		AnonymousRate:    0.2,
		EngineURL:        engineURL,
		JWTSecret:        secret,
	}

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Number of users: %d", config.NumUsers)
	log.Printf("- Number of discussions: %d", config.NumDiscussions)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Comment frequency: %.1f comments/user/minute", config.CommentFrequency)
	log.Printf("- Like frequency: %.1f likes/user/minute", config.LikeFrequency)
	log.Printf("- Read frequency: %.1f reads/user/minute", config.ReadFrequency)
	log.Printf("- Anonymous rate: %.0f%%", config.AnonymousRate*100)

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	metrics := sim.GetMetrics()
	log.Printf("\nSimulation completed. Final metrics:")
	log.Printf("- Total requests: %d", metrics.TotalRequests)
	log.Printf("- Successful requests: %d", metrics.SuccessRequests)
	log.Printf("- Failed requests: %d", metrics.FailedRequests)
	log.Printf("- Comments posted: %d", metrics.TotalComments)
	log.Printf("- Likes toggled: %d", metrics.TotalLikes)
	log.Printf("- Comments deleted: %d", metrics.TotalDeletes)
	log.Printf("- Reports filed: %d", metrics.TotalReports)
	log.Printf("- Average latency: %v", metrics.AverageLatency)
}
