// Package notification delivers payment confirmations and welcome messages by
// email and SMS, and records every attempt.
package notification

import (
	"context"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
)

// LogStatus is the outcome of one dispatch attempt
type LogStatus string

const (
	LogStatusSent   LogStatus = "SENT"
	LogStatusFailed LogStatus = "FAILED"
)

// LogEntry is one row of the notification log
type LogEntry struct {
	Channel   settlement.Channel
	Recipient string
	Template  string
	Reference string
	Status    LogStatus
	Error     string
	CreatedAt time.Time
}

// LogStore persists dispatch attempts
type LogStore interface {
	Record(ctx context.Context, entry LogEntry) error
}
