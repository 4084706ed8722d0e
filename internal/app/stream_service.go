package app

import (
	"context"
	"time"

	"books-api/internal/metrics"
)

// UpdateEvent is the payload of one stream emission.
type UpdateEvent struct {
	Timestamp string `json:"timestamp"`
}

// StreamService drives the periodic update stream. A stream emits
// timeout/interval events, one immediately and one after each interval, and
// ends one interval after the last emission.
type StreamService struct {
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewStreamService(interval, timeout time.Duration) *StreamService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout < interval {
		timeout = interval
	}
	return &StreamService{
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Events is the number of emissions in a complete stream.
func (s *StreamService) Events() int {
	return int(s.timeout / s.interval)
}

// Run calls emit until the budget is spent or ctx is done. Cancellation is a
// normal end of stream and returns nil; an emit error is returned as is.
func (s *StreamService) Run(ctx context.Context, emit func(UpdateEvent) error) error {
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for i := 0; i < s.Events(); i++ {
		if ctx.Err() != nil {
			return nil
		}
		if err := emit(UpdateEvent{Timestamp: s.now().UTC().Format(time.RFC3339Nano)}); err != nil {
			return err
		}

		if i > 0 {
			timer.Reset(s.interval)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
	return nil
}
