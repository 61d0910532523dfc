package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeAnalyticsWarm recomputes cached analytics after new bills.
const TypeAnalyticsWarm = "analytics:warm"

// WarmPayload identifies the bill that triggered a warm-up.
type WarmPayload struct {
	BillID string `json:"billId"`
	Topic  string `json:"topic"`
}

// NewWarmTask builds an analytics warm-up task.
func NewWarmTask(p WarmPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("queue: encode warm payload: %w", err)
	}
	return asynq.NewTask(TypeAnalyticsWarm, raw), nil
}
