package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocialConnectionTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewSocialConnectionRepository(db, newTestCipher(t))

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	_, err := r.Upsert(ctx, &models.SocialConnection{
		UserID:       1,
		Platform:     models.PlatformXCom,
		ProfileID:    "12345",
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh",
		ExpiresAt:    expires,
	})
	require.NoError(t, err)

	var storedAccess string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT access_token FROM social_connections WHERE user_id = $1`, 1).Scan(&storedAccess))
	assert.NotEqual(t, "plain-access", storedAccess, "token must be encrypted at rest")

	got, err := r.Get(ctx, 1, models.PlatformXCom)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "plain-access", got.AccessToken)
	assert.Equal(t, "plain-refresh", got.RefreshToken)
	assert.True(t, expires.Equal(got.ExpiresAt))
}

func TestSocialConnectionUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	r := NewSocialConnectionRepository(newTestDB(t), newTestCipher(t))

	first := &models.SocialConnection{UserID: 1, Platform: models.PlatformLinkedIn, ProfileID: "a", AccessToken: "t1", ExpiresAt: time.Now()}
	id1, err := r.Upsert(ctx, first)
	require.NoError(t, err)

	second := &models.SocialConnection{UserID: 1, Platform: models.PlatformLinkedIn, ProfileID: "b", AccessToken: "t2", ExpiresAt: time.Now()}
	id2, err := r.Upsert(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "one connection per account and platform")

	got, err := r.Get(ctx, 1, models.PlatformLinkedIn)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ProfileID)
	assert.Equal(t, "t2", got.AccessToken)

	list, err := r.ListByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].AccessToken)
}

func TestSocialConnectionExpiringAndUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewSocialConnectionRepository(newTestDB(t), newTestCipher(t))
	now := time.Now().UTC()

	soon := &models.SocialConnection{UserID: 1, Platform: models.PlatformXCom, ProfileID: "x", AccessToken: "a", RefreshToken: "r", ExpiresAt: now.Add(10 * time.Minute)}
	later := &models.SocialConnection{UserID: 2, Platform: models.PlatformXCom, ProfileID: "y", AccessToken: "a", RefreshToken: "r", ExpiresAt: now.Add(5 * time.Hour)}
	_, err := r.Upsert(ctx, soon)
	require.NoError(t, err)
	_, err = r.Upsert(ctx, later)
	require.NoError(t, err)

	expiring, err := r.ListExpiringBetween(ctx, now, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, int64(1), expiring[0].UserID)
	assert.Equal(t, "r", expiring[0].RefreshToken)

	require.NoError(t, r.UpdateTokens(ctx, expiring[0].ID, "new-a", "new-r", now.Add(2*time.Hour)))
	got, err := r.Get(ctx, 1, models.PlatformXCom)
	require.NoError(t, err)
	assert.Equal(t, "new-a", got.AccessToken)
	assert.Equal(t, "new-r", got.RefreshToken)
}

func TestSocialConnectionRemove(t *testing.T) {
	ctx := context.Background()
	r := NewSocialConnectionRepository(newTestDB(t), newTestCipher(t))
	_, err := r.Upsert(ctx, &models.SocialConnection{UserID: 1, Platform: models.PlatformXCom, ProfileID: "x", AccessToken: "a", ExpiresAt: time.Now()})
	require.NoError(t, err)

	ok, err := r.Remove(ctx, 1, models.PlatformXCom)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.Get(ctx, 1, models.PlatformXCom)
	require.NoError(t, err)
	assert.Nil(t, got)
}
