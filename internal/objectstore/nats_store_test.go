package objectstore_test

import (
	"context"
	"testing"

	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/dlops-io/mega-pipeline-aws/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func newNatsStore(t *testing.T) *objectstore.NatsObjectStore {
	t.Helper()

	natsServer, natsConnection := StartTestServer(t)
	t.Cleanup(natsServer.Shutdown)
	t.Cleanup(natsConnection.Close)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.NewNatsObjectStore(jetstreamContext, "test-bucket")
	require.NoError(t, err)

	return store
}

func TestNatsObjectStore_WriteRead(t *testing.T) {
	t.Parallel()

	store := newNatsStore(t)
	ctx := context.Background()
	uploadData := []byte("hello world, this is a test")

	err := store.Write(ctx, core.KindParagraphText, "item-1", uploadData)
	require.NoError(t, err)

	downloadData, err := store.Read(ctx, core.KindParagraphText, "item-1")
	require.NoError(t, err)
	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_ExistsAndList(t *testing.T) {
	t.Parallel()

	store := newNatsStore(t)
	ctx := context.Background()

	ids, err := store.List(ctx, core.KindPromptText)
	require.NoError(t, err)
	assert.Empty(t, ids)

	exists, err := store.Exists(ctx, core.KindPromptText, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(ctx, core.KindPromptText, "a", []byte("a")))
	require.NoError(t, store.Write(ctx, core.KindPromptText, "b", []byte("b")))
	require.NoError(t, store.Write(ctx, core.KindParagraphText, "c", []byte("c")))

	exists, err = store.Exists(ctx, core.KindPromptText, "a")
	require.NoError(t, err)
	assert.True(t, exists)

	ids, err = store.List(ctx, core.KindPromptText)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestNewNatsObjectStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.NewNatsObjectStore(jetstreamContext, "shared")
	require.NoError(t, err)
	require.NoError(t, first.Write(context.Background(), core.KindInputAudio, "x", []byte("mp3")))

	second, err := objectstore.NewNatsObjectStore(jetstreamContext, "shared")
	require.NoError(t, err)

	exists, err := second.Exists(context.Background(), core.KindInputAudio, "x")
	require.NoError(t, err)
	assert.True(t, exists)
}
