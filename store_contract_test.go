package phoneconfirm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	phoneconfirm "github.com/goliatone/go-phoneconfirm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractBase = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newRecord(phone, code string, createdAt time.Time) *phoneconfirm.Confirmation {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return &phoneconfirm.Confirmation{
		ID:            id,
		CreatedAt:     createdAt,
		PhoneNumber:   phone,
		Code:          code,
		ActivationKey: fmt.Sprintf("key-%s", id),
	}
}

// runStoreContract exercises the behavior every ConfirmationStore must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) phoneconfirm.ConfirmationStore) {
	t.Run("insert and find by id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		name := "Ana"
		record := newRecord(testPhone, "123456", contractBase)
		record.FirstName = &name

		id, err := store.Insert(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, record.ID, id)

		found, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, testPhone, found.PhoneNumber)
		assert.Equal(t, "123456", found.Code)
		assert.Equal(t, "Ana", found.GetFirstName())
		assert.Equal(t, record.ActivationKey, found.ActivationKey)
		assert.True(t, contractBase.Equal(found.CreatedAt))
	})

	t.Run("missing records are not found", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		_, err := store.FindByID(ctx, uuid.New())
		assert.True(t, phoneconfirm.IsConfirmationNotFound(err))

		_, err = store.Find(ctx, testPhone, "123456", contractBase.Add(-time.Hour))
		assert.True(t, phoneconfirm.IsConfirmationNotFound(err))

		_, err = store.OldestByPhone(ctx, testPhone)
		assert.True(t, phoneconfirm.IsConfirmationNotFound(err))
	})

	t.Run("duplicate activation key", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		first := newRecord(testPhone, "111111", contractBase)
		_, err := store.Insert(ctx, first)
		require.NoError(t, err)

		second := newRecord(testPhone, "222222", contractBase)
		second.ActivationKey = first.ActivationKey
		_, err = store.Insert(ctx, second)
		require.Error(t, err)
		assert.True(t, errors.Is(err, phoneconfirm.ErrDuplicateConfirmation))

		count, err := store.CountByPhone(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("count and oldest per phone", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		oldest := newRecord(testPhone, "000001", contractBase)
		_, err := store.Insert(ctx, newRecord(testPhone, "000002", contractBase.Add(2*time.Second)))
		require.NoError(t, err)
		_, err = store.Insert(ctx, oldest)
		require.NoError(t, err)
		_, err = store.Insert(ctx, newRecord(testOtherPhone, "000003", contractBase.Add(-time.Hour)))
		require.NoError(t, err)

		count, err := store.CountByPhone(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		found, err := store.OldestByPhone(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, oldest.ID, found.ID)
	})

	t.Run("find honours the window and picks the most recent", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		stale := newRecord(testPhone, "424242", contractBase.Add(-20*time.Minute))
		older := newRecord(testPhone, "424242", contractBase.Add(-5*time.Minute))
		newer := newRecord(testPhone, "424242", contractBase.Add(-1*time.Minute))
		for _, r := range []*phoneconfirm.Confirmation{newer, stale, older} {
			_, err := store.Insert(ctx, r)
			require.NoError(t, err)
		}

		found, err := store.Find(ctx, testPhone, "424242", contractBase.Add(-15*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, newer.ID, found.ID)

		_, err = store.Find(ctx, testPhone, "424242", contractBase)
		assert.True(t, phoneconfirm.IsConfirmationNotFound(err))

		_, err = store.Find(ctx, testOtherPhone, "424242", contractBase.Add(-time.Hour))
		assert.True(t, phoneconfirm.IsConfirmationNotFound(err))
	})

	t.Run("find breaks created_at ties by id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		first := newRecord(testPhone, "777777", contractBase)
		second := newRecord(testPhone, "777777", contractBase)
		require.Less(t, first.ID.String(), second.ID.String())

		_, err := store.Insert(ctx, second)
		require.NoError(t, err)
		_, err = store.Insert(ctx, first)
		require.NoError(t, err)

		found, err := store.Find(ctx, testPhone, "777777", contractBase.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, second.ID, found.ID)
	})

	t.Run("delete and delete all by phone", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		a := newRecord(testPhone, "100000", contractBase)
		b := newRecord(testPhone, "200000", contractBase.Add(time.Second))
		c := newRecord(testPhone, "300000", contractBase.Add(2*time.Second))
		other := newRecord(testOtherPhone, "100000", contractBase)
		for _, r := range []*phoneconfirm.Confirmation{a, b, c, other} {
			_, err := store.Insert(ctx, r)
			require.NoError(t, err)
		}

		require.NoError(t, store.Delete(ctx, a))
		_, err := store.FindByID(ctx, a.ID)
		assert.True(t, phoneconfirm.IsConfirmationNotFound(err))

		deleted, err := store.DeleteAllByPhone(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		count, err := store.CountByPhone(ctx, testPhone)
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = store.CountByPhone(ctx, testOtherPhone)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		reused := newRecord(testPhone, "400000", contractBase)
		reused.ActivationKey = b.ActivationKey
		_, err = store.Insert(ctx, reused)
		assert.NoError(t, err, "purged activation keys can be reused")
	})
}
