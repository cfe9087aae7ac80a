package tasks

import (
	"context"
	"errors"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the triggers use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func alreadyQueued(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}

// QueueLoyaltyTrigger hands loyalty awards to the worker.
type QueueLoyaltyTrigger struct {
	Client Enqueuer
}

func (q QueueLoyaltyTrigger) OnBookingCompleted(ctx context.Context, bookingID int64) error {
	task, opts, err := NewLoyaltyTask(bookingID)
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, task, opts...)
	if alreadyQueued(err) {
		utils.LogEvent(utils.RequestID(ctx), "loyalty", "enqueue", "award already queued", zap.Int64("booking_id", bookingID))
		return nil
	}
	if err != nil {
		return err
	}
	utils.LogEvent(utils.RequestID(ctx), "loyalty", "enqueue", "award queued",
		zap.Int64("booking_id", bookingID),
		zap.String("task_id", info.ID),
	)
	return nil
}

// QueueEventPublisher forwards booking lifecycle events to the notification queue.
type QueueEventPublisher struct {
	Client Enqueuer
}

func (q QueueEventPublisher) Publish(ctx context.Context, ev models.BookingEvent) error {
	task, opts, err := NewBookingEventTask(ev)
	if err != nil {
		return err
	}
	if _, err := q.Client.EnqueueContext(ctx, task, opts...); err != nil && !alreadyQueued(err) {
		return err
	}
	return nil
}
