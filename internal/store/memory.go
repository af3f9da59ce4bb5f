// File: internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"quickfix_backend/internal/common"
)

// MemoryStore is an embedded Store used by tests and by local development
// (STORE_BACKEND=memory). Subscriptions are notified synchronously from the
// mutating call, after the internal lock is released, so tests observe
// deterministic delivery. Snapshot order is unspecified, matching the remote
// store's lack of ordering guarantees.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]interface{}
	subs        map[int]*memorySubscription
	nextSubID   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		subs:        make(map[int]*memorySubscription),
	}
}

type memorySubscription struct {
	store      *MemoryStore
	id         int
	collection string
	preds      []Predicate
	onChange   SnapshotFunc
	once       sync.Once
}

func (s *memorySubscription) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()
	})
}

func (m *MemoryStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", common.NewStoreAPIError(err)
	}
	id := uuid.NewString()

	m.mu.Lock()
	coll := m.collections[collection]
	if coll == nil {
		coll = make(map[string]map[string]interface{})
		m.collections[collection] = coll
	}
	coll[id] = copyFields(fields)
	pending := m.pendingDeliveriesLocked(collection)
	m.mu.Unlock()

	m.deliver(pending)
	return id, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewStoreAPIError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.collections[collection][id]
	if !ok {
		return nil, common.ErrNotFound.WithDetails(fmt.Sprintf("Document %s/%s not found.", collection, id))
	}
	return &Document{ID: id, Data: copyFields(fields)}, nil
}

func (m *MemoryStore) QueryOnce(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewStoreAPIError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collection, preds), nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, collection string, preds []Predicate, onChange SnapshotFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewStoreAPIError(err)
	}

	m.mu.Lock()
	m.nextSubID++
	sub := &memorySubscription{
		store:      m,
		id:         m.nextSubID,
		collection: collection,
		preds:      preds,
		onChange:   onChange,
	}
	m.subs[sub.id] = sub
	initial := m.snapshotLocked(collection, preds)
	m.mu.Unlock()

	// First snapshot carries the current result set, like a remote listener.
	onChange(initial)
	return sub, nil
}

func (m *MemoryStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return common.NewStoreAPIError(err)
	}

	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return common.ErrNotFound.WithDetails(fmt.Sprintf("Document %s/%s not found.", collection, id))
	}
	for k, v := range fields {
		doc[k] = v
	}
	pending := m.pendingDeliveriesLocked(collection)
	m.mu.Unlock()

	m.deliver(pending)
	return nil
}

type delivery struct {
	sub  *memorySubscription
	docs []Document
}

// pendingDeliveriesLocked recomputes the full snapshot for every subscription
// on the collection, oldest subscription first. Callers invoke the callbacks
// after unlocking so that a callback may re-enter the store (e.g. to tear
// down and re-subscribe).
func (m *MemoryStore) pendingDeliveriesLocked(collection string) []delivery {
	var pending []delivery
	for _, sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		pending = append(pending, delivery{sub: sub, docs: m.snapshotLocked(collection, sub.preds)})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].sub.id < pending[j].sub.id })
	return pending
}

// deliver re-checks registration at delivery time: a handle cancelled after
// the batch was computed (by an earlier callback in the batch, or from
// another goroutine) receives nothing.
func (m *MemoryStore) deliver(pending []delivery) {
	for _, d := range pending {
		m.mu.Lock()
		_, live := m.subs[d.sub.id]
		m.mu.Unlock()
		if live {
			d.sub.onChange(d.docs)
		}
	}
}

func (m *MemoryStore) snapshotLocked(collection string, preds []Predicate) []Document {
	docs := make([]Document, 0)
	for id, fields := range m.collections[collection] {
		if matches(fields, preds) {
			docs = append(docs, Document{ID: id, Data: copyFields(fields)})
		}
	}
	return docs
}

func matches(fields map[string]interface{}, preds []Predicate) bool {
	for _, p := range preds {
		if p.Op != "==" {
			return false
		}
		if !reflect.DeepEqual(fields[p.Field], p.Value) {
			return false
		}
	}
	return true
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
