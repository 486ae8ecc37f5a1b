package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/store"
	"github.com/hugh/go-accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_FindStaleUnverified(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	now := time.Now().UTC()

	stale := testutil.CreateTestUser(t, db, testutil.CreatedAt(now.Add(-72*time.Hour)))
	testutil.CreateTestUser(t, db, testutil.CreatedAt(now.Add(-24*time.Hour)))
	testutil.CreateTestUser(t, db, testutil.Verified(), testutil.CreatedAt(now.Add(-72*time.Hour)))

	policy := NewPolicy(store.NewGormUserStore(db), 2, testutil.Logger(), WithClock(func() time.Time { return now }))

	found, err := policy.FindStaleUnverified(ctx, 2)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ExternalID, found[0].ExternalID)
}

func TestPolicy_Run(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	users := store.NewGormUserStore(db)
	now := time.Now().UTC()

	var staleEmails []string
	for i := 0; i < 3; i++ {
		u := testutil.CreateTestUser(t, db, testutil.CreatedAt(now.Add(-time.Duration(50+i)*time.Hour)))
		staleEmails = append(staleEmails, u.Email)
	}
	fresh := testutil.CreateTestUser(t, db, testutil.CreatedAt(now.Add(-time.Hour)))
	verified := testutil.CreateTestUser(t, db, testutil.Verified(), testutil.CreatedAt(now.Add(-100*time.Hour)))

	policy := NewPolicy(users, 2, testutil.Logger(), WithClock(func() time.Time { return now }))

	result, err := policy.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Deleted)
	assert.ElementsMatch(t, staleEmails, result.Emails)

	total, err := users.Count(ctx, store.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = users.GetByExternalID(ctx, fresh.ExternalID)
	assert.NoError(t, err)
	_, err = users.GetByExternalID(ctx, verified.ExternalID)
	assert.NoError(t, err)

	t.Run("nothing to do", func(t *testing.T) {
		result, err := policy.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Deleted)
	})
}

func TestPolicy_Purge(t *testing.T) {
	ctx := context.Background()

	t.Run("empty set", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		policy := NewPolicy(store.NewGormUserStore(db), 2, testutil.Logger())

		n, err := policy.Purge(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("rolls back on count mismatch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		users := store.NewGormUserStore(db)
		policy := NewPolicy(users, 2, testutil.Logger())

		a := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		ghost := models.User{Base: models.Base{ID: 9999}}

		_, err := policy.Purge(ctx, []models.User{*a, *b, ghost})
		assert.ErrorIs(t, err, ErrPartialPurge)

		total, err := users.Count(ctx, store.UserFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total, "no user may be deleted when the purge fails")
	})

	t.Run("user verified after selection survives", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		users := store.NewGormUserStore(db)
		now := time.Now().UTC()
		policy := NewPolicy(users, 2, testutil.Logger(), WithClock(func() time.Time { return now }))

		late := testutil.CreateTestUser(t, db, testutil.CreatedAt(now.Add(-72*time.Hour)))
		other := testutil.CreateTestUser(t, db, testutil.CreatedAt(now.Add(-72*time.Hour)))

		stale, err := policy.FindStaleUnverified(ctx, 2)
		require.NoError(t, err)
		require.Len(t, stale, 2)

		late.MarkVerified()
		require.NoError(t, users.Update(ctx, late))

		_, err = policy.Purge(ctx, stale)
		assert.ErrorIs(t, err, ErrPartialPurge)

		got, err := users.GetByExternalID(ctx, late.ExternalID)
		require.NoError(t, err)
		assert.True(t, got.IsVerified)
		_, err = users.GetByExternalID(ctx, other.ExternalID)
		assert.NoError(t, err, "purge must roll back as a unit")
	})
}
