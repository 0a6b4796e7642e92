package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"installerhub/internal/domain/repository"
	"installerhub/pkg/errors"
)

const (
	firestoreStateCollection = "engine_state"
	firestoreChunkCollection = "chunks"

	// Firestore caps a document at 1 MiB. Larger values are split into
	// chunk documents under the key's document.
	firestoreChunkSize = 900 * 1024
)

type stateDocument struct {
	Value     []byte    `firestore:"value"`
	Chunks    int       `firestore:"chunks"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type stateChunk struct {
	Data []byte `firestore:"data"`
}

type firestoreStateStore struct {
	client *firestore.Client
}

func NewFirestoreStateStore(client *firestore.Client) repository.StateStore {
	return &firestoreStateStore{
		client: client,
	}
}

func (r *firestoreStateStore) doc(key string) *firestore.DocumentRef {
	return r.client.Collection(firestoreStateCollection).Doc(key)
}

func (r *firestoreStateStore) chunkRefs(key string, from, to int) []*firestore.DocumentRef {
	if to <= from {
		return nil
	}
	refs := make([]*firestore.DocumentRef, 0, to-from)
	for i := from; i < to; i++ {
		refs = append(refs, r.doc(key).Collection(firestoreChunkCollection).Doc(strconv.Itoa(i)))
	}
	return refs
}

func (r *firestoreStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	found := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(r.doc(key))
		if err != nil {
			return err
		}

		var state stateDocument
		if err := doc.DataTo(&state); err != nil {
			return fmt.Errorf("failed to parse state document: %w", err)
		}
		found = true
		if state.Chunks == 0 {
			value = state.Value
			return nil
		}

		docs, err := tx.GetAll(r.chunkRefs(key, 0, state.Chunks))
		if err != nil {
			return err
		}
		parts := make([][]byte, 0, len(docs))
		for i, d := range docs {
			if !d.Exists() {
				return fmt.Errorf("chunk %d of %d missing", i, state.Chunks)
			}
			var chunk stateChunk
			if err := d.DataTo(&chunk); err != nil {
				return fmt.Errorf("failed to parse chunk %d: %w", i, err)
			}
			parts = append(parts, chunk.Data)
		}
		value = joinChunks(parts)
		return nil
	}, firestore.ReadOnly)

	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, errors.Internal("Failed to load state "+key, err)
	}
	return value, found, nil
}

// Save writes value inline when it fits one document and as chunk documents
// otherwise. Chunks left over from a larger previous value are deleted in
// the same transaction.
func (r *firestoreStateStore) Save(ctx context.Context, key string, value []byte) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		previous := 0
		doc, err := tx.Get(r.doc(key))
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			var state stateDocument
			if err := doc.DataTo(&state); err == nil {
				previous = state.Chunks
			}
		}

		state := stateDocument{UpdatedAt: time.Now()}
		if len(value) <= firestoreChunkSize {
			state.Value = value
		} else {
			parts := splitChunks(value, firestoreChunkSize)
			for i, ref := range r.chunkRefs(key, 0, len(parts)) {
				if err := tx.Set(ref, stateChunk{Data: parts[i]}); err != nil {
					return err
				}
			}
			state.Chunks = len(parts)
		}

		for _, ref := range r.chunkRefs(key, state.Chunks, previous) {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		return tx.Set(r.doc(key), state)
	})
	if err != nil {
		return errors.Internal("Failed to save state "+key, err)
	}
	return nil
}

func splitChunks(value []byte, size int) [][]byte {
	parts := make([][]byte, 0, len(value)/size+1)
	for len(value) > size {
		parts = append(parts, value[:size])
		value = value[size:]
	}
	return append(parts, value)
}

func joinChunks(parts [][]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
