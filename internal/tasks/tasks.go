package tasks

import (
	"fmt"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
)

const (
	TypeLoyaltyAward = "loyalty:award"
	TypeBookingEvent = "booking:event"

	// QueueDefault is served by this process; QueueNotifications is drained
	// by the notification service.
	QueueDefault       = "default"
	QueueNotifications = "notifications"
)

type LoyaltyPayload struct {
	BookingID int64 `json:"booking_id"`
}

// LoyaltyTaskID is stable per booking so asynq refuses a second award task.
func LoyaltyTaskID(bookingID int64) string {
	return fmt.Sprintf("loyalty:%d", bookingID)
}

func NewLoyaltyTask(bookingID int64) (*asynq.Task, []asynq.Option, error) {
	b, err := jsoniter.ConfigFastest.Marshal(LoyaltyPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeLoyaltyAward, b)
	opts := []asynq.Option{
		asynq.TaskID(LoyaltyTaskID(bookingID)),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(10),
	}
	return task, opts, nil
}

func ParseLoyaltyPayload(task *asynq.Task) (LoyaltyPayload, error) {
	var p LoyaltyPayload
	if err := jsoniter.ConfigFastest.Unmarshal(task.Payload(), &p); err != nil {
		return LoyaltyPayload{}, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	if p.BookingID <= 0 {
		return LoyaltyPayload{}, fmt.Errorf("%s payload: missing booking_id", task.Type())
	}
	return p, nil
}

func NewBookingEventTask(ev models.BookingEvent) (*asynq.Task, []asynq.Option, error) {
	b, err := jsoniter.ConfigFastest.Marshal(ev)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingEvent, b)
	opts := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%d", ev.Type, ev.BookingID)),
		asynq.Queue(QueueNotifications),
	}
	return task, opts, nil
}
