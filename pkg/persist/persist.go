package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	navstack "github.com/goliatone/go-navstack"
	"github.com/goliatone/go-navstack/pkg/hydrate"
)

var (
	// ErrETagMismatch indicates a save raced another writer for the same ref.
	ErrETagMismatch = errors.New("persist: etag mismatch")
)

// Ref identifies one persisted navigation path: a session plus the surface
// the path belongs to, so one session can persist several independent stacks.
type Ref struct {
	Session string
	Surface string
}

// Identifier returns the canonical storage key for the ref.
func (r Ref) Identifier() (string, error) {
	if r.Session == "" {
		return "", fmt.Errorf("persist: session is required")
	}
	if r.Surface == "" {
		return "", fmt.Errorf("persist: surface is required")
	}
	return fmt.Sprintf("%s/%s", r.Session, r.Surface), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one serialized path payload per ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (payload []byte, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, payload []byte, meta Meta) (Meta, error)
}

// Mutator edits a restored path in place before it is saved back.
type Mutator[T any] func(*navstack.Stack[T]) error

// Keeper couples a Store with the codec used to serialize paths. The zero
// Decoder means plain JSON decoding.
type Keeper[T any] struct {
	Store   Store
	Decoder *hydrate.Decoder[T]
}

// Save serializes path and writes it under ref. Meta is passed through to the
// store, which owns ETag minting.
func (k Keeper[T]) Save(ctx context.Context, ref Ref, path navstack.Stack[T], meta Meta) (Meta, error) {
	if k.Store == nil {
		return Meta{}, fmt.Errorf("persist: store is required")
	}
	payload, err := path.MarshalJSON()
	if err != nil {
		return Meta{}, fmt.Errorf("persist: marshal path for %q/%q: %w", ref.Session, ref.Surface, err)
	}
	saved, err := k.Store.Save(ctx, ref, payload, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("persist: save %q/%q: %w", ref.Session, ref.Surface, err)
	}
	return saved, nil
}

// Load restores the path saved under ref, re-appending elements through gen.
// ok reports whether anything was stored.
func (k Keeper[T]) Load(ctx context.Context, ref Ref, gen navstack.IDGenerator) (navstack.Stack[T], Meta, bool, error) {
	if k.Store == nil {
		return navstack.Stack[T]{}, Meta{}, false, fmt.Errorf("persist: store is required")
	}
	payload, meta, ok, err := k.Store.Load(ctx, ref)
	if err != nil {
		return navstack.Stack[T]{}, Meta{}, false, fmt.Errorf("persist: load %q/%q: %w", ref.Session, ref.Surface, err)
	}
	if !ok {
		return navstack.Stack[T]{}, Meta{}, false, nil
	}
	path, err := navstack.DecodeStackWith(gen, payload, k.Decoder)
	if err != nil {
		return navstack.Stack[T]{}, Meta{}, false, err
	}
	return path, meta, true, nil
}

// Mutate loads the path under ref (an absent record starts empty), applies fn,
// and saves the result carrying the loaded ETag so concurrent writers conflict
// instead of clobbering each other.
func (k Keeper[T]) Mutate(ctx context.Context, ref Ref, gen navstack.IDGenerator, fn Mutator[T]) (navstack.Stack[T], Meta, error) {
	if fn == nil {
		return navstack.Stack[T]{}, Meta{}, fmt.Errorf("persist: mutator is required")
	}
	path, meta, ok, err := k.Load(ctx, ref, gen)
	if err != nil {
		return navstack.Stack[T]{}, Meta{}, err
	}
	if !ok {
		path = navstack.NewStack[T]()
		meta = Meta{}
	}
	if err := fn(&path); err != nil {
		return navstack.Stack[T]{}, meta, err
	}
	saved, err := k.Save(ctx, ref, path, meta)
	if err != nil {
		return navstack.Stack[T]{}, meta, err
	}
	return path, saved, nil
}
