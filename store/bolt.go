// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package store

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

var documentsBucket = []byte("documents")

// Bolt stores each document as JSON under its id in a single bbolt bucket.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, newStoreError("open", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, newStoreError("create bucket", err)
	}

	return &Bolt{db: db, now: time.Now}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Create(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		return Document{}, ErrIDEmpty
	}

	doc = doc.withDefaults(b.now())
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return put(tx, doc)
	}); err != nil {
		return Document{}, newStoreError("create", err)
	}
	return doc, nil
}

func (b *Bolt) Get(ctx context.Context, id string) (Document, error) {
	var (
		doc   Document
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(documentsBucket).Get([]byte(id))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return Document{}, newStoreError("get", err)
	}
	if !found {
		return Document{}, newNotFoundError(id)
	}
	return doc, nil
}

func (b *Bolt) Load(ctx context.Context, id string) (string, error) {
	doc, err := b.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// Save replaces the text of id in one transaction, creating the document if
// needed.
func (b *Bolt) Save(ctx context.Context, id, text string) error {
	if id == "" {
		return ErrIDEmpty
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		doc := Document{ID: id}
		if raw := tx.Bucket(documentsBucket).Get([]byte(id)); raw != nil {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}
		}
		doc.Text = text
		doc.LastModified = b.now()
		return put(tx, doc)
	})
	if err != nil {
		return newStoreError("save", err)
	}
	return nil
}

func put(tx *bolt.Tx, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return tx.Bucket(documentsBucket).Put([]byte(doc.ID), raw)
}
