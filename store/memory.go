package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jacentio/pantry/item"
	"github.com/jacentio/pantry/query"
)

// Memory keeps documents in memory. Data is lost on restart. Safe for
// concurrent use; documents are deep-copied on the way in and out.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[item.ID]map[string]any
	order       map[string][]item.ID
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[item.ID]map[string]any),
		order:       make(map[string][]item.ID),
	}
}

// deepCopy round-trips a document through JSON so callers can never
// alias stored state.
func deepCopy(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst map[string]any
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (m *Memory) List(_ context.Context, collection string, q query.Query) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := []map[string]any{}
	for _, id := range m.order[collection] {
		doc, ok := m.collections[collection][id]
		if !ok || !q.Matches(doc) {
			continue
		}
		docs = append(docs, deepCopy(doc))
	}
	q.Sort(docs)
	for i, doc := range docs {
		docs[i] = q.Project(doc)
	}
	return docs, nil
}

func (m *Memory) Get(_ context.Context, collection string, id item.ID) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(doc), nil
}

func (m *Memory) Create(_ context.Context, collection string, fields item.Fields) (item.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := item.NewID()
	doc := deepCopy(map[string]any(fields))
	doc["id"] = id.String()

	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = make(map[item.ID]map[string]any)
	}
	m.collections[collection][id] = doc
	m.order[collection] = append(m.order[collection], id)
	return id, nil
}

func (m *Memory) Replace(_ context.Context, collection string, id item.ID, fields item.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	doc := map[string]any{"id": id.String()}
	if created, exists := current["createdAt"]; exists {
		doc["createdAt"] = created
	}
	for k, v := range deepCopy(map[string]any(fields)) {
		doc[k] = v
	}
	m.collections[collection][id] = doc
	return nil
}

func (m *Memory) Patch(_ context.Context, collection string, id item.ID, fields item.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range deepCopy(map[string]any(fields)) {
		doc[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection string, id item.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	ids := m.order[collection]
	for i, existing := range ids {
		if existing == id {
			m.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
