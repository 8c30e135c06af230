// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package editor

import "fmt"

// Pos is a 0-based line/column position. Ch counts runes from the start of
// the line.
type Pos struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Ch)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Pos) Compare(other Pos) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Ch < other.Ch:
		return -1
	case p.Ch > other.Ch:
		return 1
	}
	return 0
}

func (p Pos) Before(other Pos) bool {
	return p.Compare(other) < 0
}

func (p Pos) After(other Pos) bool {
	return p.Compare(other) > 0
}

// Selection is a range between where the selection started (Anchor) and where
// the caret is (Head). Anchor == Head is a plain cursor.
type Selection struct {
	Anchor Pos `json:"anchor"`
	Head   Pos `json:"head"`
}

func CursorAt(p Pos) Selection {
	return Selection{Anchor: p, Head: p}
}

func (s Selection) Empty() bool {
	return s.Anchor == s.Head
}

// Ordered returns the selection with Anchor preceding Head in document order.
// A selection made from bottom to top is swapped.
func (s Selection) Ordered() Selection {
	if s.Head.Before(s.Anchor) {
		return Selection{Anchor: s.Head, Head: s.Anchor}
	}
	return s
}
