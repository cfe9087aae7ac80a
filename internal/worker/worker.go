package worker

import (
	"context"
	"fmt"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/tasks"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type LoyaltyAwarder interface {
	AwardForBooking(ctx context.Context, bookingID int64) (models.LoyaltyAward, bool, error)
}

// NewServer serves only the default queue; booking events are left for the
// notification service.
func NewServer(opt asynq.RedisClientOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			tasks.QueueDefault: 1,
		},
		Logger: utils.Logger().Sugar(),
	})
}

func NewMux(awarder LoyaltyAwarder) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeLoyaltyAward, HandleLoyaltyAward(awarder))
	return mux
}

func HandleLoyaltyAward(awarder LoyaltyAwarder) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseLoyaltyPayload(task)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		award, applied, err := awarder.AwardForBooking(ctx, p.BookingID)
		if domain.IsNotFound(err) {
			utils.LogWarn("", "worker", tasks.TypeLoyaltyAward, "booking or customer missing, dropping task",
				zap.Int64("booking_id", p.BookingID),
				zap.Error(err),
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err != nil {
			return err
		}

		utils.LogEvent("", "worker", tasks.TypeLoyaltyAward, "task done",
			zap.Int64("booking_id", p.BookingID),
			zap.Int64("points", award.Points),
			zap.Bool("applied", applied),
		)
		return nil
	}
}
