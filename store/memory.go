// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package store

import (
	"context"
	"sync"
	"time"
)

// Memory keeps documents in a map. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Document),
		now:  time.Now,
	}
}

func (m *Memory) Create(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		return Document{}, ErrIDEmpty
	}

	doc = doc.withDefaults(m.now())

	m.mu.Lock()
	m.docs[doc.ID] = doc
	m.mu.Unlock()

	return doc, nil
}

func (m *Memory) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return Document{}, newNotFoundError(id)
	}
	return doc, nil
}

func (m *Memory) Load(ctx context.Context, id string) (string, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// Save replaces the text of id, creating the document if needed.
func (m *Memory) Save(ctx context.Context, id, text string) error {
	if id == "" {
		return ErrIDEmpty
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.docs[id]
	doc.ID = id
	doc.Text = text
	doc.LastModified = m.now()
	m.docs[id] = doc

	return nil
}
