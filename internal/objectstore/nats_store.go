package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsObjectStore keeps artifacts in a NATS JetStream object store bucket under
// <prefix>/<id><ext>.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNatsObjectStore creates the bucket, or binds to it when it already exists.
func NewNatsObjectStore(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	if strings.TrimSpace(bucketName) == "" {
		return nil, ErrBucketName
	}

	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Pipeline artifacts for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// List returns the ids of all live objects of kind.
func (n *NatsObjectStore) List(_ context.Context, kind core.Kind) ([]string, error) {
	infos, err := n.store.List()
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list bucket '%s': %w", n.bucket, err)
	}

	prefix := kind.Prefix + "/"
	ids := make([]string, 0, len(infos))

	for _, info := range infos {
		if info.Deleted || !strings.HasPrefix(info.Name, prefix) {
			continue
		}

		id, ok := idFromName(strings.TrimPrefix(info.Name, prefix), kind.Ext)
		if ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// Exists reports whether a live object for id is present.
func (n *NatsObjectStore) Exists(_ context.Context, kind core.Kind, id string) (bool, error) {
	info, err := n.store.GetInfo(kind.Key(id))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat object '%s' in bucket '%s': %w", kind.Key(id), n.bucket, err)
	}

	return !info.Deleted, nil
}

// Read retrieves an object from the NATS object store.
func (n *NatsObjectStore) Read(_ context.Context, kind core.Kind, id string) ([]byte, error) {
	key := kind.Key(id)

	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Write saves an object to the NATS object store, replacing any previous one.
func (n *NatsObjectStore) Write(_ context.Context, kind core.Kind, id string, data []byte) error {
	key := kind.Key(id)

	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: kind.Name,
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}
