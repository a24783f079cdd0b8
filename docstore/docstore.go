// Package docstore defines the per-user document store used for profiles and wallets.
package docstore

import (
	"context"
	"errors"
	"sync"
)

// Namespaces.
const (
	Profiles = "profile"
	Wallets  = "wallet"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a conditional write finds a different revision than expected.
	ErrConflict = errors.New("document was modified concurrently")
)

// Document is a stored JSON body and its revision. Revision 0 means "does not exist yet".
type Document struct {
	Body     []byte
	Revision int64
}

// Store gets and overwrites whole documents keyed by (namespace, key).
type Store interface {
	Get(ctx context.Context, namespace, key string) (Document, error)
	// Put overwrites the document if its current revision equals expected (0 to create) and returns the new
	// revision. A mismatch yields ErrConflict.
	Put(ctx context.Context, namespace, key string, body []byte, expected int64) (int64, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func memoryKey(namespace, key string) string { return namespace + "/" + key }

func (m *Memory) Get(ctx context.Context, namespace, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[memoryKey(namespace, key)]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Body = append([]byte(nil), doc.Body...)
	return doc, nil
}

func (m *Memory) Put(ctx context.Context, namespace, key string, body []byte, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(namespace, key)
	if m.docs[k].Revision != expected {
		return 0, ErrConflict
	}
	next := expected + 1
	m.docs[k] = Document{Body: append([]byte(nil), body...), Revision: next}
	return next, nil
}
