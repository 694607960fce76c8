//go:build integration

package objectstore_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
	"github.com/darko-mesaros/adventures-of-json/storage/objectstore"
)

// Package-level shared test client to avoid Docker resource exhaustion
var (
	sharedTestClient *natsclient.TestClient
	sharedNATSClient *natsclient.Client
)

// TestMain sets up a single shared NATS container for all objectstore tests
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") != "" {
		testClient, err := natsclient.NewSharedTestClient(
			natsclient.WithJetStream(),
			natsclient.WithTestTimeout(5*time.Second),
			natsclient.WithStartTimeout(30*time.Second),
		)
		if err != nil {
			panic("Failed to create shared test client: " + err.Error())
		}

		sharedTestClient = testClient
		sharedNATSClient = testClient.Client
	}

	exitCode := m.Run()

	if sharedTestClient != nil {
		sharedTestClient.Terminate()
	}

	os.Exit(exitCode)
}

func getSharedNATSClient(t *testing.T) *natsclient.Client {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}
	if sharedNATSClient == nil {
		t.Fatal("Shared NATS client not initialized - TestMain should have created it")
	}
	return sharedNATSClient
}

func TestIntegration_PutAndGet(t *testing.T) {
	natsClient := getSharedNATSClient(t)

	ctx := context.Background()
	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, objectstore.Config{
		BucketName: "TEST_OBJECTS",
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	key := "lobby/hero.json"
	testData := []byte(`{"name": "Hubert"}`)

	require.NoError(t, store.Put(ctx, key, testData))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, testData, data)
}

func TestIntegration_GetMissing(t *testing.T) {
	natsClient := getSharedNATSClient(t)

	ctx := context.Background()
	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, objectstore.Config{
		BucketName: "TEST_OBJECTS",
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, "does/not/exist")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestIntegration_ListByPrefix(t *testing.T) {
	natsClient := getSharedNATSClient(t)

	ctx := context.Background()
	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, objectstore.Config{
		BucketName: "TEST_OBJECTS",
	})
	require.NoError(t, err)

	prefix := "list/test"
	for i := 0; i < 3; i++ {
		key := prefix + "/" + string(rune('a'+i))
		require.NoError(t, store.Put(ctx, key, []byte(`{"n": 1}`)))
	}

	keys, err := store.List(ctx, prefix)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(keys), 3)
}

func TestIntegration_DeleteIdempotent(t *testing.T) {
	natsClient := getSharedNATSClient(t)

	ctx := context.Background()
	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, objectstore.Config{
		BucketName: "TEST_OBJECTS",
	})
	require.NoError(t, err)

	key := "delete/me"
	require.NoError(t, store.Put(ctx, key, []byte(`{"temp": "data"}`)))
	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	assert.Error(t, err)

	// Second delete of the same key is a no-op
	assert.NoError(t, store.Delete(ctx, key))
}

func TestIntegration_PutPublishesEvent(t *testing.T) {
	natsClient := getSharedNATSClient(t)

	ctx := context.Background()
	subject := "test.objectstore.events"
	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, objectstore.Config{
		BucketName:    "TEST_EVENTS",
		EventsSubject: subject,
	})
	require.NoError(t, err)

	received := make(chan []byte, 1)
	err = natsClient.Subscribe(ctx, subject, func(_ context.Context, data []byte) {
		received <- data
	})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "lobby/hero.json", []byte(`{"name": "Hubert"}`)))

	select {
	case data := <-received:
		var event message.RawEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, message.SourceObjectStorage, event.Source)
		assert.Equal(t, message.TypeObjectCreated, event.Type)
		assert.Equal(t, "TEST_EVENTS", event.Bucket)
		assert.Equal(t, "lobby/hero.json", event.Key)
		assert.False(t, event.Time.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no storage event received")
	}
}
