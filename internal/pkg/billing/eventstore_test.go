package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleBilling/app/models"
)

func TestEventStore_RecordIfNew(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)
	ctx := context.Background()

	created, event, err := store.RecordIfNew(ctx, "evt_1", "transaction.completed", mustParse(t, completedPayload))
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, event)
	assert.NotZero(t, event.ID)
	assert.Equal(t, "evt_1", event.PaddleEventID)
	assert.Equal(t, "transaction.completed", event.EventType)
	assert.False(t, event.ReceivedAt().IsZero())

	stored, err := PayloadFromJSON(event.Payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", stored.EventID())

	created, again, err := store.RecordIfNew(ctx, "evt_1", "transaction.completed", mustParse(t, `{"changed":true}`))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, event.ID, again.ID)
	assert.Equal(t, int64(1), countRows(t, db, &models.PaddleEvent{}))
}

func TestEventStore_NormalizesIDAndType(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)
	ctx := context.Background()
	payload := mustParse(t, `{"data":{"id":"txn_x"}}`)

	created, event, err := store.RecordIfNew(ctx, "  ", "", payload)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.PaddleEventUnknown, event.EventType)
	assert.Contains(t, event.PaddleEventID, "hash:")

	created, _, err = store.RecordIfNew(ctx, "", "", payload)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEventStore_FindUnknown(t *testing.T) {
	store := NewEventStore(newTestDB(t))
	_, err := store.Find(context.Background(), "evt_missing")
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestEventStore_ConcurrentDeliveries(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)
	payload := mustParse(t, completedPayload)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, _, err := store.RecordIfNew(context.Background(), "evt_race", "transaction.completed", payload)
			assert.NoError(t, err)
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for created := range results {
		if created {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, int64(1), countRows(t, db, &models.PaddleEvent{}))
}
