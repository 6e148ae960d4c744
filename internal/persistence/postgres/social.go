package postgres

import (
	"context"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

// SocialRepo persists the directed follow graph.
type SocialRepo struct {
	db *DB
}

// NewSocialRepo constructs a SocialRepo.
func NewSocialRepo(db *DB) *SocialRepo {
	return &SocialRepo{db: db}
}

// Follow inserts the edge. The primary key absorbs repeats and the self-edge
// check constraint stays the final arbiter even if the caller's pre-check
// raced.
func (r *SocialRepo) Follow(ctx context.Context, followerID, followedID string) error {
	const stmt = `INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	_, err := r.db.Pool.Exec(ctx, stmt, followerID, followedID)
	switch {
	case isCheckViolation(err):
		return domain.ErrSelfFollow
	case isForeignKeyViolation(err, ""):
		return domain.ErrNotFound
	}
	return err
}

// Unfollow removes the edge if present.
func (r *SocialRepo) Unfollow(ctx context.Context, followerID, followedID string) error {
	const stmt = `DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`

	_, err := r.db.Pool.Exec(ctx, stmt, followerID, followedID)
	return err
}

// IsFollowing reports whether the edge exists.
func (r *SocialRepo) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`

	var following bool
	if err := r.db.Pool.QueryRow(ctx, query, followerID, followedID).Scan(&following); err != nil {
		return false, err
	}
	return following, nil
}

// FollowedWorkouts pages through workouts of followed profiles plus the
// user's own, newest first, with exercise trees attached.
func (r *SocialRepo) FollowedWorkouts(ctx context.Context, userID string, page domain.Page) ([]domain.Workout, error) {
	const query = `SELECT w.id, w.owner_id, u.username, w.title, w.started_at, w.created_at
        FROM workouts w
        JOIN users u ON u.id = w.owner_id
        WHERE w.owner_id = $1
           OR w.owner_id IN (SELECT followed_id FROM follows WHERE follower_id = $1)
        ORDER BY w.started_at DESC, w.id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := scanWorkoutHeaders(rows)
	if err != nil {
		return nil, err
	}
	return attachExercises(ctx, r.db.Pool, workouts)
}
