package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/artmarket/curator/internal/domain"
	"gorm.io/gorm"
)

// EventRepository handles the append-only interaction event log. Events are
// never updated or deleted; derived state is rebuilt by replaying them.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append writes a new event to the log.
func (r *EventRepository) Append(ctx context.Context, event *domain.InteractionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByUser retrieves a user's events ordered by timestamp ascending, the
// order required for rebuild replay equivalence.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user whose events to list.
// Returns:
//   - []domain.InteractionEvent: events in timestamp order.
//   - error: non-nil if the query fails.
func (r *EventRepository) ListByUser(ctx context.Context, userID string) ([]domain.InteractionEvent, error) {
	var events []domain.InteractionEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events for user %s: %w", userID, err)
	}
	return events, nil
}

// ListPositiveSince retrieves positive-signal events within [since, until),
// for trending computation.
func (r *EventRepository) ListPositiveSince(ctx context.Context, since, until time.Time) ([]domain.InteractionEvent, error) {
	var events []domain.InteractionEvent
	if err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", since, until).
		Where("type IN ?", []domain.EventType{
			domain.EventLike,
			domain.EventFeedbackPositive,
			domain.EventContractRequest,
		}).
		Order("timestamp ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list positive events: %w", err)
	}
	return events, nil
}

// ListSeenSince returns artwork IDs the user viewed at or after the cutoff.
// Used for the session-window seen-exclusion rule.
func (r *EventRepository) ListSeenSince(ctx context.Context, userID string, cutoff time.Time) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Where("user_id = ? AND type = ? AND timestamp >= ?", userID, domain.EventView, cutoff).
		Distinct("artwork_id").
		Pluck("artwork_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListUserIDs returns the distinct user IDs present in the event log.
func (r *EventRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	return ids, nil
}

// CountByUser counts all events recorded for a user.
func (r *EventRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.InteractionEvent{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
