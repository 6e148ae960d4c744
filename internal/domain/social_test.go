package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	byUsername map[string]*User
	upserts    int
	err        error
}

func (f *fakeUserRepo) UpsertSeen(_ context.Context, id, username string, seenAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.upserts++
	return nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUsername[username], nil
}

type fakeSocialRepo struct {
	edges map[[2]string]bool
}

func newFakeSocialRepo() *fakeSocialRepo {
	return &fakeSocialRepo{edges: map[[2]string]bool{}}
}

func (f *fakeSocialRepo) Follow(_ context.Context, followerID, followedID string) error {
	f.edges[[2]string{followerID, followedID}] = true
	return nil
}

func (f *fakeSocialRepo) Unfollow(_ context.Context, followerID, followedID string) error {
	delete(f.edges, [2]string{followerID, followedID})
	return nil
}

func (f *fakeSocialRepo) IsFollowing(_ context.Context, followerID, followedID string) (bool, error) {
	return f.edges[[2]string{followerID, followedID}], nil
}

func (f *fakeSocialRepo) FollowedWorkouts(_ context.Context, userID string, page Page) ([]Workout, error) {
	return nil, nil
}

func socialFixture() (*SocialService, *fakeSocialRepo) {
	users := &fakeUserRepo{byUsername: map[string]*User{
		"anna": {ID: "user-anna", Username: "anna"},
		"ben":  {ID: "user-ben", Username: "ben"},
	}}
	repo := newFakeSocialRepo()
	return NewSocialService(repo, users), repo
}

func TestFollowAndUnfollow(t *testing.T) {
	service, repo := socialFixture()
	ctx := context.Background()

	require.NoError(t, service.Follow(ctx, "user-anna", "ben"))
	following, err := service.IsFollowing(ctx, "user-anna", "user-ben")
	require.NoError(t, err)
	require.True(t, following)

	// Re-following stays a no-op.
	require.NoError(t, service.Follow(ctx, "user-anna", "ben"))
	require.Len(t, repo.edges, 1)

	require.NoError(t, service.Unfollow(ctx, "user-anna", "ben"))
	following, err = service.IsFollowing(ctx, "user-anna", "user-ben")
	require.NoError(t, err)
	require.False(t, following)

	// Unfollowing again stays a no-op.
	require.NoError(t, service.Unfollow(ctx, "user-anna", "ben"))
}

func TestFollowSelf(t *testing.T) {
	service, _ := socialFixture()

	err := service.Follow(context.Background(), "user-anna", "anna")
	require.ErrorIs(t, err, ErrSelfFollow)
	require.ErrorIs(t, err, ErrConflict)

	err = service.Unfollow(context.Background(), "user-anna", "anna")
	require.ErrorIs(t, err, ErrSelfFollow)
}

func TestFollowUnknownUser(t *testing.T) {
	service, _ := socialFixture()

	err := service.Follow(context.Background(), "user-anna", "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIsFollowingSelf(t *testing.T) {
	service, _ := socialFixture()

	following, err := service.IsFollowing(context.Background(), "user-anna", "user-anna")
	require.NoError(t, err)
	require.False(t, following)
}
