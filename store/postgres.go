// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	owner         TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	text          TEXT NOT NULL DEFAULT '',
	last_modified TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores documents in a "documents" table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url and creates the table if it is missing.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, newStoreError("connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, newStoreError("ping", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, newStoreError("migrate", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Create(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		return Document{}, ErrIDEmpty
	}
	if doc.Text == "" {
		doc.Text = DefaultText
	}

	err := p.pool.QueryRow(ctx,
		`INSERT INTO documents (id, owner, name, text, last_modified)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING last_modified`,
		doc.ID, doc.Owner, doc.Name, doc.Text,
	).Scan(&doc.LastModified)
	if err != nil {
		return Document{}, newStoreError("create", err)
	}
	return doc, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := p.pool.QueryRow(ctx,
		`SELECT id, owner, name, text, last_modified FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Owner, &doc.Name, &doc.Text, &doc.LastModified)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, newNotFoundError(id)
	}
	if err != nil {
		return Document{}, newStoreError("get", err)
	}
	return doc, nil
}

func (p *Postgres) Load(ctx context.Context, id string) (string, error) {
	doc, err := p.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

func (p *Postgres) Save(ctx context.Context, id, text string) error {
	if id == "" {
		return ErrIDEmpty
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO documents (id, text, last_modified)
		 VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, last_modified = EXCLUDED.last_modified`,
		id, text,
	)
	if err != nil {
		return newStoreError("save", err)
	}
	return nil
}
