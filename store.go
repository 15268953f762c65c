package leanimt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/minio/blake2b-simd"
)

var (
	defaultUnmarshal = json.Unmarshal
	defaultMarshal   = json.Marshal
)

// Persist is the interface for loading and storing serialized tree
// snapshots. The given string identity corresponds to the content,
// which is immutable (never modified).
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(ctx context.Context, name string, value []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(ctx context.Context, name string) ([]byte, error)
}

// StoreConfig controls how snapshots are persisted and loaded.
type StoreConfig struct {
	// StoreImmutablePartsWith is used to store and load serialized snapshots.
	StoreImmutablePartsWith Persist

	// Marshal function for node values, defaults to JSON.
	Marshal func(interface{}) ([]byte, error)

	// Unmarshal function for node values, defaults to JSON.
	Unmarshal func([]byte, interface{}) error

	// SnapshotCache caches decoded snapshots and may be shared across
	// multiple trees.
	SnapshotCache SnapshotCache
}

// Snapshot identifies a version of a tree whose serialized state is
// accessible in the persistent store.
type Snapshot struct {
	Link  *string
	Size  int
	Depth int
}

// Save serializes the tree state into the persistent store under its
// content hash and returns a Snapshot handle for loading it back. An
// unchanged tree saves to the same name, so repeated saves are cheap.
func (t *LeanIMT[V]) Save(ctx context.Context, config *StoreConfig) (*Snapshot, error) {
	if config == nil || config.StoreImmutablePartsWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set StoreConfig.StoreImmutablePartsWith")
	}
	marshal := config.Marshal
	if marshal == nil {
		marshal = defaultMarshal
	}
	encoded, err := marshalSnapshot(t, marshal)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	hashBytes := blake2b.Sum256(encoded)
	link := base64.RawURLEncoding.EncodeToString(hashBytes[:])
	if config.SnapshotCache == nil || !config.SnapshotCache.Contains(link) {
		err = config.StoreImmutablePartsWith.Store(ctx, link, encoded)
		if err != nil {
			return nil, fmt.Errorf("persist store: %w", err)
		}
		if config.SnapshotCache != nil {
			config.SnapshotCache.Add(link, t.Clone())
		}
	}
	return &Snapshot{&link, t.size, t.depth}, nil
}

// Load reconstructs a tree from a snapshot. The snapshot is loaded
// whole and verified against the combine function before the tree is
// returned; a combiner different from the one that produced the
// snapshot fails verification.
func Load[V comparable](ctx context.Context, s *Snapshot, combine func(a, b V) V, config *StoreConfig) (*LeanIMT[V], error) {
	t, err := New(combine)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Link == nil {
		return t, nil
	}
	if config == nil || config.StoreImmutablePartsWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set StoreConfig.StoreImmutablePartsWith")
	}
	if config.SnapshotCache != nil {
		if value, ok := config.SnapshotCache.Get(*s.Link); ok {
			if cached, ok := value.(*LeanIMT[V]); ok {
				loaded := cached.Clone()
				loaded.combine = combine
				if err = loaded.validate(); err != nil {
					return nil, fmt.Errorf("validate: %w", err)
				}
				return loaded, nil
			}
		}
	}
	encoded, err := config.StoreImmutablePartsWith.Load(ctx, *s.Link)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", *s.Link, err)
	}
	unmarshal := config.Unmarshal
	if unmarshal == nil {
		unmarshal = defaultUnmarshal
	}
	if err = unmarshalSnapshot(encoded, t, unmarshal); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", *s.Link, err)
	}
	if t.size != s.Size || t.depth != s.Depth {
		return nil, fmt.Errorf("snapshot %s holds size %d depth %d, handle says size %d depth %d",
			*s.Link, t.size, t.depth, s.Size, s.Depth)
	}
	var zero V
	for i, leaf := range t.levels[0] {
		if leaf == zero {
			continue
		}
		if _, dup := t.index[leaf]; dup {
			return nil, fmt.Errorf("snapshot %s has duplicate leaf %v", *s.Link, leaf)
		}
		t.index[leaf] = i
	}
	if err = t.validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if config.SnapshotCache != nil {
		config.SnapshotCache.Add(*s.Link, t.Clone())
	}
	return t, nil
}
