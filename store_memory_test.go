package phoneconfirm_test

import (
	"context"
	"sync"
	"testing"

	phoneconfirm "github.com/goliatone/go-phoneconfirm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) phoneconfirm.ConfirmationStore {
		return phoneconfirm.NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := phoneconfirm.NewMemoryStore()

	record := newRecord(testPhone, "123456", contractBase)
	_, err := store.Insert(ctx, record)
	require.NoError(t, err)

	record.Code = "999999"

	found, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "123456", found.Code)

	found.PhoneNumber = testOtherPhone
	again, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, testPhone, again.PhoneNumber)
}

func TestMemoryStoreAssignsIDs(t *testing.T) {
	store := phoneconfirm.NewMemoryStore()
	record := &phoneconfirm.Confirmation{
		CreatedAt:     contractBase,
		PhoneNumber:   testPhone,
		Code:          "123456",
		ActivationKey: "k",
	}

	id, err := store.Insert(context.Background(), record)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	store := phoneconfirm.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Insert(ctx, newRecord(testPhone, "123456", contractBase))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := phoneconfirm.NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Insert(ctx, newRecord(testPhone, "123456", contractBase))
			assert.NoError(t, err)
			_, _ = store.CountByPhone(ctx, testPhone)
			_, _ = store.Find(ctx, testPhone, "123456", contractBase)
		}()
	}
	wg.Wait()

	count, err := store.CountByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}
