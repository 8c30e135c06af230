// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "doc:"

// Redis stores each document as a hash at "doc:<id>".
type Redis struct {
	rdb *redis.Client
	now func() time.Time
}

// OpenRedis connects to the server at addr and checks it answers.
func OpenRedis(ctx context.Context, addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, newStoreError("ping", err)
	}
	return NewRedis(rdb), nil
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, now: time.Now}
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Create(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		return Document{}, ErrIDEmpty
	}

	doc = doc.withDefaults(r.now())
	err := r.rdb.HSet(ctx, redisKeyPrefix+doc.ID,
		"owner", doc.Owner,
		"name", doc.Name,
		"text", doc.Text,
		"last_modified", doc.LastModified.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return Document{}, newStoreError("create", err)
	}
	return doc, nil
}

func (r *Redis) Get(ctx context.Context, id string) (Document, error) {
	fields, err := r.rdb.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return Document{}, newStoreError("get", err)
	}
	if len(fields) == 0 {
		return Document{}, newNotFoundError(id)
	}

	doc := Document{
		ID:    id,
		Owner: fields["owner"],
		Name:  fields["name"],
		Text:  fields["text"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["last_modified"]); err == nil {
		doc.LastModified = ts
	}
	return doc, nil
}

func (r *Redis) Load(ctx context.Context, id string) (string, error) {
	text, err := r.rdb.HGet(ctx, redisKeyPrefix+id, "text").Result()
	if err == redis.Nil {
		return "", newNotFoundError(id)
	}
	if err != nil {
		return "", newStoreError("load", err)
	}
	return text, nil
}

func (r *Redis) Save(ctx context.Context, id, text string) error {
	if id == "" {
		return ErrIDEmpty
	}

	err := r.rdb.HSet(ctx, redisKeyPrefix+id,
		"text", text,
		"last_modified", r.now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return newStoreError("save", err)
	}
	return nil
}
