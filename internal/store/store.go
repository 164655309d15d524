// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/boardview-ai/boardview/internal/domain"
)

// Repository defines the interface for persisting per-user usage records.
type Repository interface {
	// GetUsage retrieves the usage record for a user. A zero-valued record is
	// created and persisted on first access (read-through default).
	GetUsage(ctx context.Context, userID int64) (*domain.UsageRecord, error)

	// SaveUsage writes the record as a full, idempotent overwrite.
	SaveUsage(ctx context.Context, rec *domain.UsageRecord) error

	// SaveIdentity updates only the display-name columns of a user's record,
	// creating the record if needed. Counters and quota bonus are untouched,
	// so it cannot clobber a concurrent grant.
	SaveIdentity(ctx context.Context, userID int64, firstName, lastName, username string) error

	// ConsumeConsultation atomically increments the user's consultation
	// counter in place and returns the updated record.
	ConsumeConsultation(ctx context.Context, userID int64) (*domain.UsageRecord, error)

	// GrantQuota adds extra consultations to a user's quota bonus in place.
	// The record is created if it does not exist yet.
	GrantQuota(ctx context.Context, userID int64, amount int) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
