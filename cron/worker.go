package cron

import (
	"context"
	"log"
	"time"

	"goodfoods/config"
	reservationRepo "goodfoods/database/repository/reservation"

	"github.com/hibiken/asynq"
)

const TypeCompletionSweep = "reservation:complete"

// InitCompletionWorker runs the nightly sweep that flips past confirmed
// reservations to completed, so contact lookups and rebooking suggestions
// only ever surface live bookings.
func InitCompletionWorker(reservations reservationRepo.ReservationRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCompletionSweep, handleCompletionSweep(reservations))

	go func() {
		log.Println("[CompletionWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[CompletionWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[CompletionWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runScheduler(redisOpts)
}

// runScheduler enqueues the sweep shortly after midnight every day.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, nil)
	task := asynq.NewTask(TypeCompletionSweep, nil)

	if _, err := scheduler.Register("5 0 * * *", task); err != nil {
		log.Printf("[CompletionWorker] Failed to register sweep schedule: %v", err)
		return
	}
	if err := scheduler.Run(); err != nil {
		log.Printf("[CompletionWorker] Scheduler stopped: %v", err)
	}
}

func handleCompletionSweep(reservations reservationRepo.ReservationRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		today := time.Now().Format("2006-01-02")
		n, err := reservations.MarkCompletedBefore(ctx, today)
		if err != nil {
			log.Printf("[CompletionWorker] Sweep failed: %v", err)
			return err
		}
		log.Printf("[CompletionWorker] Marked %d past reservations completed", n)
		return nil
	}
}
