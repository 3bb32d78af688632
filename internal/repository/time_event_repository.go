package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TimeEventRepository reads raw time-tracking events recorded by the learning
// player. This component only sums them; producing the events is owned by an
// external collaborator.
type TimeEventRepository struct {
	db *sqlx.DB
}

// NewTimeEventRepository constructs the repository.
func NewTimeEventRepository(db *sqlx.DB) *TimeEventRepository {
	return &TimeEventRepository{db: db}
}

// SumMinutesForLearner returns the total tracked minutes across all of a
// learner's enrollments.
func (r *TimeEventRepository) SumMinutesForLearner(ctx context.Context, learnerID string) (int, error) {
	const query = `SELECT COALESCE(SUM(minutes), 0) FROM time_events WHERE learner_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, learnerID); err != nil {
		return 0, fmt.Errorf("sum time events: %w", err)
	}
	return total, nil
}
