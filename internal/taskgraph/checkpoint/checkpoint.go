// Package checkpoint implements the minimal Save/Load checkpointing
// interface the task graph engine requires: a thread-keyed blob store so
// a crashed or paused run can resume from the last completed node.
package checkpoint

import "context"

// Checkpointer persists opaque per-thread state. Implementers may back
// this with the Store or an ephemeral in-memory map; the contract is
// identical either way.
type Checkpointer interface {
	Save(ctx context.Context, threadID string, state []byte) error
	Load(ctx context.Context, threadID string) (state []byte, found bool, err error)
	Delete(ctx context.Context, threadID string) error
}
