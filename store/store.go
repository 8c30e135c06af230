// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

// Package store persists documents for the session client. The relay never
// touches a store; every client saves its own copy after a quiet period.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultText is the content of a newly created document.
const DefaultText = "## Start editing!"

var (
	ErrNotFound = errors.New("document not found")
	ErrIDEmpty  = errors.New("document id cannot be empty")
	ErrStore    = errors.New("document store failure")
)

// DocumentStore is what the session client needs from persistence.
type DocumentStore interface {
	Load(ctx context.Context, id string) (string, error)
	Save(ctx context.Context, id, text string) error
}

type Document struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	Text         string    `json:"text"`
	LastModified time.Time `json:"lastModified"`
}

// withDefaults fills the text of a new document and stamps it.
func (d Document) withDefaults(now time.Time) Document {
	if d.Text == "" {
		d.Text = DefaultText
	}
	d.LastModified = now
	return d
}

func newNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func newStoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
