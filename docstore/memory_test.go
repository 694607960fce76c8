package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/record"
)

func heroRecord(name string, level float64) *record.StoredRecord {
	return &record.StoredRecord{
		Name:            name,
		CreationDate:    "2024-01-15",
		Level:           level,
		Abilities:       record.Abilities{Security: 3, Elasticity: 7, Durability: 2, Versioning: true},
		Inventory:       []string{"map"},
		ServicesVisited: []string{"s3", "lambda"},
		Events:          []map[string]string{{"x": "true"}, {"y": "true"}},
	}
}

func TestMemoryStore_UpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 5)))

	got, err := store.Get(ctx, "Hubert")
	require.NoError(t, err)
	assert.Equal(t, float64(5), got.Level)
	assert.True(t, got.Abilities.Versioning)
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 5)))
	require.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 9)))

	got, err := store.Get(ctx, "Hubert")
	require.NoError(t, err)
	assert.Equal(t, float64(9), got.Level)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_DuplicateUpsertIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Two identical cycles for the same name leave exactly one unchanged item.
	require.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 5)))
	first, err := store.Get(ctx, "Hubert")
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 5)))
	second, err := store.Get(ctx, "Hubert")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMemoryStore_UpsertWithoutName(t *testing.T) {
	store := NewMemoryStore()

	err := store.Upsert(context.Background(), &record.StoredRecord{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMemoryStore_FailureInjection(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.FailWith(errors.ErrStorageUnavailable)
	err := store.Upsert(ctx, heroRecord("Hubert", 5))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	store.FailWith(nil)
	assert.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 5)))
}

func TestMemoryStore_MutationIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, heroRecord("Hubert", 5)))

	got, err := store.Get(ctx, "Hubert")
	require.NoError(t, err)
	got.Level = 99

	again, err := store.Get(ctx, "Hubert")
	require.NoError(t, err)
	assert.Equal(t, float64(5), again.Level)
}
