package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bioattend/internal/attendance"
	"bioattend/internal/biometric"
	"bioattend/internal/config"
	"bioattend/internal/course"
	"bioattend/internal/domain"
	"bioattend/internal/identity"
	"bioattend/internal/metrics"
	"bioattend/internal/queue"
	"bioattend/internal/store"
)

// The worker consumes session-close events and backfills ABSENT records
// for enrolled students who never marked.
func main() {
	cfg := config.Load()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	q := queue.NewRedisQueue(redisClient.Client, "bioattend:events")

	userRepo := identity.NewPostgresRepo(db.Client)
	courses := course.NewService(course.NewPostgresRepo(db.Client), userRepo, domain.SystemClock)
	bio := biometric.NewService(biometric.NewPostgresRepo(db.Client), userRepo, domain.SystemClock)
	attRepo := attendance.NewPostgresRepo(db.Client)
	marks := attendance.NewMarkingService(attRepo, attRepo, userRepo, courses, bio, domain.SystemClock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down worker...")
		cancel()
	}()

	msgs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume failed: %v", err)
	}

	log.Println("worker started, waiting for session events")
	for msg := range msgs {
		switch msg.Type {
		case queue.TypeSessionClosed:
			n, err := marks.ReconcileAbsentees(ctx, msg.SessionID)
			if err != nil {
				log.Printf("session %d absentee reconciliation failed: %v", msg.SessionID, err)
				continue
			}
			metrics.AbsenteesReconciled.Add(float64(n))
			log.Printf("session %d reconciled, %d absentees recorded", msg.SessionID, n)
		default:
			log.Printf("skipping unknown message type %q", msg.Type)
		}
	}
	log.Println("worker exited")
}
