package domain

import "context"

// SocialRepository captures persistence operations for the follow graph.
type SocialRepository interface {
	Follow(ctx context.Context, followerID, followedID string) error
	Unfollow(ctx context.Context, followerID, followedID string) error
	IsFollowing(ctx context.Context, followerID, followedID string) (bool, error)
	FollowedWorkouts(ctx context.Context, userID string, page Page) ([]Workout, error)
}

// SocialService manages directed follow edges between profiles.
type SocialService struct {
	repo  SocialRepository
	users UserRepository
}

// NewSocialService constructs a SocialService.
func NewSocialService(repo SocialRepository, users UserRepository) *SocialService {
	return &SocialService{repo: repo, users: users}
}

// Follow adds a follow edge from follower to the named profile. Following an
// already followed profile is a no-op.
func (s *SocialService) Follow(ctx context.Context, followerID, followedUsername string) error {
	target, err := s.resolveTarget(ctx, followerID, followedUsername)
	if err != nil {
		return err
	}
	return s.repo.Follow(ctx, followerID, target.ID)
}

// Unfollow removes the follow edge towards the named profile, if present.
func (s *SocialService) Unfollow(ctx context.Context, followerID, followedUsername string) error {
	target, err := s.resolveTarget(ctx, followerID, followedUsername)
	if err != nil {
		return err
	}
	return s.repo.Unfollow(ctx, followerID, target.ID)
}

// IsFollowing reports whether a follow edge exists from follower to followed.
func (s *SocialService) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == followedID {
		return false, nil
	}
	return s.repo.IsFollowing(ctx, followerID, followedID)
}

// FollowedWorkouts lists workouts authored by followed profiles plus the
// user's own, newest first.
func (s *SocialService) FollowedWorkouts(ctx context.Context, userID string, page Page) ([]Workout, error) {
	return s.repo.FollowedWorkouts(ctx, userID, page)
}

func (s *SocialService) resolveTarget(ctx context.Context, followerID, followedUsername string) (*User, error) {
	target, err := s.users.GetByUsername(ctx, followedUsername)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if target.ID == followerID {
		return nil, ErrSelfFollow
	}
	return target, nil
}
