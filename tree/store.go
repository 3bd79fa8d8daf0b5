package tree

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

/*
Store is an interface to manage a store where decision trees can be
created, retrieved, updated and deleted.

All it methods take a context that may allow cancelling the operation
(thus forcing the return of an error) if the implementation allows it.
*/
type Store interface {
	// Create takes a tree and stores it for the first time in the store,
	// creating an ID for it and setting it for the tree. It returns an
	// error if the tree cannot be stored.
	Create(ctx context.Context, t *Tree) error
	// Get takes an id and returns the tree in the store with that id,
	// ErrTreeNotFound if it cannot be found or another error if the store
	// cannot be queried.
	Get(ctx context.Context, id string) (*Tree, error)
	// Store takes a tree with an ID and creates or updates it on the
	// store. It returns an error if the tree cannot be stored.
	Store(ctx context.Context, t *Tree) error
	// Delete takes an id and deletes the tree with that id from the store.
	// Deleting an absent tree is not an error.
	Delete(ctx context.Context, id string) error
	// Close closes the store, freeing any resources in use. It returns an
	// error if the Close cannot be completed.
	Close(ctx context.Context) error
}

/*
EncodeDecoder is an interface for objects that allow encoding trees into
slices of bytes and decoding them back to trees, used by stores with
a serialized backend.
*/
type EncodeDecoder interface {
	Encode(*Tree) ([]byte, error)
	Decode([]byte) (*Tree, error)
}

// NewID returns a new random tree ID.
func NewID() string {
	return uuid.NewString()
}

type memoryStore struct {
	trees map[string]*Tree
	lock  *sync.RWMutex
}

// NewMemoryStore returns an implementation of Store with the process
// memory space as underlying backend
func NewMemoryStore() Store {
	return &memoryStore{
		trees: make(map[string]*Tree),
		lock:  &sync.RWMutex{},
	}
}

func (ms *memoryStore) Create(ctx context.Context, t *Tree) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		taken := true
		for taken {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.ID = NewID()
			_, taken = ms.trees[t.ID]
		}
		ms.trees[t.ID] = t
		return nil
	})
}

func (ms *memoryStore) Store(ctx context.Context, t *Tree) error {
	if t.ID == "" {
		return fmt.Errorf("storing tree: tree has no ID")
	}
	return ms.withLock(ctx, func(ctx context.Context) error {
		ms.trees[t.ID] = t
		return nil
	})
}

func (ms *memoryStore) Get(ctx context.Context, id string) (*Tree, error) {
	var t *Tree
	err := ms.withRLock(ctx, func(ctx context.Context) error {
		t = ms.trees[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTreeNotFound
	}
	return t, nil
}

func (ms *memoryStore) Delete(ctx context.Context, id string) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		delete(ms.trees, id)
		return nil
	})
}

func (ms *memoryStore) Close(ctx context.Context) error {
	return nil
}

func (ms *memoryStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.Lock()
		select {
		case <-ctx.Done():
			ms.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.Unlock()
	}
	return f(ctx)
}

func (ms *memoryStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.RLock()
		select {
		case <-ctx.Done():
			ms.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.RUnlock()
	}
	return f(ctx)
}

type cachingStore struct {
	backend Store
	cache   Store
	loads   singleflight.Group
	onLoad  func(id string)
}

/*
NewCachingStore takes a backend store and returns a Store keeping the trees
it retrieves in memory. Concurrent retrievals of the same tree missing from
memory query the backend once. The optional onLoad function is called with
the ID of every tree retrieved from the backend.
*/
func NewCachingStore(backend Store, onLoad func(id string)) Store {
	return &cachingStore{backend: backend, cache: NewMemoryStore(), onLoad: onLoad}
}

func (cs *cachingStore) Get(ctx context.Context, id string) (*Tree, error) {
	t, err := cs.cache.Get(ctx, id)
	if err == nil {
		return t, nil
	}
	if err != ErrTreeNotFound {
		return nil, err
	}
	v, err, _ := cs.loads.Do(id, func() (interface{}, error) {
		// the load outlives the cancellation of the caller that started it
		ctx := context.WithoutCancel(ctx)
		t, err := cs.backend.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if cs.onLoad != nil {
			cs.onLoad(id)
		}
		t.ID = id
		return t, cs.cache.Store(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tree), nil
}

func (cs *cachingStore) Create(ctx context.Context, t *Tree) error {
	if err := cs.backend.Create(ctx, t); err != nil {
		return err
	}
	return cs.cache.Store(ctx, t)
}

func (cs *cachingStore) Store(ctx context.Context, t *Tree) error {
	if err := cs.backend.Store(ctx, t); err != nil {
		return err
	}
	return cs.cache.Store(ctx, t)
}

func (cs *cachingStore) Delete(ctx context.Context, id string) error {
	if err := cs.backend.Delete(ctx, id); err != nil {
		return err
	}
	return cs.cache.Delete(ctx, id)
}

func (cs *cachingStore) Close(ctx context.Context) error {
	return cs.backend.Close(ctx)
}
