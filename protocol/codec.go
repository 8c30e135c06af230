// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrEncodeEvent    = errors.New("failed to encode event")
)

type envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps the event in its envelope.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil event", ErrEncodeEvent)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodeEvent, e.Kind(), err)
	}

	out, err := json.Marshal(envelope{Event: e.Kind(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodeEvent, e.Kind(), err)
	}
	return out, nil
}

// MustEncode is Encode for events whose payload cannot fail to marshal.
func MustEncode(e Event) []byte {
	out, err := Encode(e)
	if err != nil {
		panic(err)
	}
	return out
}

// DecodeRequest decodes a frame sent by a client to the relay.
func DecodeRequest(frame []byte) (Event, error) {
	kind, data, err := peek(frame)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindJoin:
		return decodeInto[JoinRequest](kind, data)
	case KindSync:
		return decodeInto[SyncRequest](kind, data)
	case KindLeave:
		return decodeInto[LeaveRequest](kind, data)
	case KindQuery:
		return decodeInto[QueryRequest](kind, data)
	default:
		return nil, newUnknownEventError(kind)
	}
}

// DecodeBroadcast decodes a frame sent by the relay to a client.
func DecodeBroadcast(frame []byte) (Event, error) {
	kind, data, err := peek(frame)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindJoin:
		return decodeInto[JoinBroadcast](kind, data)
	case KindSync:
		return decodeInto[SyncBroadcast](kind, data)
	case KindQuery:
		return decodeInto[QueryResponse](kind, data)
	case KindFull:
		return Full{}, nil
	default:
		return nil, newUnknownEventError(kind)
	}
}

// peek reads the event tag without decoding the payload.
func peek(frame []byte) (Kind, []byte, error) {
	if !gjson.ValidBytes(frame) {
		return "", nil, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}

	tag := gjson.GetBytes(frame, "event")
	if tag.Type != gjson.String || tag.String() == "" {
		return "", nil, fmt.Errorf("%w: missing event tag", ErrMalformedEvent)
	}

	data := gjson.GetBytes(frame, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return Kind(tag.String()), nil, nil
	}
	if !data.IsObject() {
		return "", nil, fmt.Errorf("%w: %s payload is not an object", ErrMalformedEvent, tag.String())
	}
	return Kind(tag.String()), []byte(data.Raw), nil
}

func decodeInto[T Event](kind Kind, data []byte) (Event, error) {
	var v T
	if data == nil {
		return nil, fmt.Errorf("%w: %s without payload", ErrMalformedEvent, kind)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedEvent, kind, err)
	}
	return v, nil
}

func newUnknownEventError(kind Kind) error {
	return fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
}
