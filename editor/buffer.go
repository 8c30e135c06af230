// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

// Package editor is the markdown formatting engine. It owns a line based text
// buffer with a single selection and implements the toolbar transformations
// (inline markers, list/block prefixes, link, image, table and line break
// insertion) on top of it. Nothing here touches the network.
//
// Every operation is a no-op on a nil or zero value Buffer, which is how an
// editor that has not been initialised yet behaves. SetValue initialises a
// zero value Buffer.
package editor

import (
	"strings"
	"unicode/utf8"
)

// Origin tells listeners where a change came from.
type Origin string

const (
	OriginInput    Origin = "input"
	OriginFormat   Origin = "format"
	OriginSetValue Origin = "setValue"
)

// Change is delivered to listeners once per completed operation.
type Change struct {
	Origin Origin
	Text   string
	Cursor Pos
}

type Buffer struct {
	lines     []string
	sel       Selection
	listeners []func(Change)

	depth   int
	changed bool
	origin  Origin
}

func NewBuffer(text string) *Buffer {
	return &Buffer{lines: splitLines(text)}
}

// OnChange registers fn to be called after every operation that modified the
// text. fn runs synchronously on the goroutine that made the change.
func (b *Buffer) OnChange(fn func(Change)) {
	if b == nil || fn == nil {
		return
	}
	b.listeners = append(b.listeners, fn)
}

func (b *Buffer) Value() string {
	if b == nil {
		return ""
	}
	return strings.Join(b.lines, "\n")
}

// SetValue replaces the whole text and moves the cursor to (0:0). Listeners
// see OriginSetValue.
func (b *Buffer) SetValue(text string) {
	if b == nil {
		return
	}
	b.operation(OriginSetValue, func() {
		b.lines = splitLines(text)
		b.sel = Selection{}
		b.changed = true
	})
}

// ready reports whether b holds a document. A zero value Buffer has no lines
// until SetValue is called.
func (b *Buffer) ready() bool {
	return b != nil && len(b.lines) > 0
}

func (b *Buffer) LineCount() int {
	if b == nil {
		return 0
	}
	return len(b.lines)
}

// Line returns the text of line i, or "" when i is out of range.
func (b *Buffer) Line(i int) string {
	if b == nil || i < 0 || i >= len(b.lines) {
		return ""
	}
	return b.lines[i]
}

func (b *Buffer) lineLen(i int) int {
	return utf8.RuneCountInString(b.Line(i))
}

func (b *Buffer) Selection() Selection {
	if b == nil {
		return Selection{}
	}
	return b.sel
}

// Cursor returns the selection head.
func (b *Buffer) Cursor() Pos {
	if b == nil {
		return Pos{}
	}
	return b.sel.Head
}

func (b *Buffer) SomethingSelected() bool {
	return b != nil && !b.sel.Empty()
}

func (b *Buffer) SetCursor(p Pos) {
	if !b.ready() {
		return
	}
	b.sel = CursorAt(b.clip(p))
}

func (b *Buffer) SetSelection(anchor, head Pos) {
	if !b.ready() {
		return
	}
	b.sel = Selection{Anchor: b.clip(anchor), Head: b.clip(head)}
}

// Range returns the text between two positions, in either order.
func (b *Buffer) Range(from, to Pos) string {
	if !b.ready() {
		return ""
	}
	from, to = b.clip(from), b.clip(to)
	if to.Before(from) {
		from, to = to, from
	}

	if from.Line == to.Line {
		r := []rune(b.lines[from.Line])
		return string(r[from.Ch:to.Ch])
	}

	var sb strings.Builder
	sb.WriteString(string([]rune(b.lines[from.Line])[from.Ch:]))
	for i := from.Line + 1; i < to.Line; i++ {
		sb.WriteByte('\n')
		sb.WriteString(b.lines[i])
	}
	sb.WriteByte('\n')
	sb.WriteString(string([]rune(b.lines[to.Line])[:to.Ch]))
	return sb.String()
}

// ReplaceRange replaces the text between from and to with text. The selection
// is carried along the change the way an editor would move it.
func (b *Buffer) ReplaceRange(text string, from, to Pos) {
	if !b.ready() {
		return
	}
	b.operation(OriginInput, func() {
		b.replaceRange(text, from, to)
	})
}

// Insert puts text at p.
func (b *Buffer) Insert(text string, p Pos) {
	b.ReplaceRange(text, p, p)
}

// ReplaceSelection replaces the selected text (or inserts at the cursor) and
// collapses the selection to the end of the inserted text.
func (b *Buffer) ReplaceSelection(text string) {
	if !b.ready() {
		return
	}
	b.operation(OriginInput, func() {
		sel := b.sel.Ordered()
		end := b.replaceRange(text, sel.Anchor, sel.Head)
		b.sel = CursorAt(end)
	})
}

// operation groups the edits made by fn into a single change notification.
func (b *Buffer) operation(origin Origin, fn func()) {
	if b.depth == 0 {
		b.origin = origin
		b.changed = false
	}
	b.depth++
	fn()
	b.depth--

	if b.depth > 0 || !b.changed {
		return
	}
	b.changed = false

	change := Change{Origin: b.origin, Text: b.Value(), Cursor: b.sel.Head}
	for _, fn := range b.listeners {
		fn(change)
	}
}

func (b *Buffer) replaceRange(text string, from, to Pos) Pos {
	from, to = b.clip(from), b.clip(to)
	if to.Before(from) {
		from, to = to, from
	}

	inserted := splitLines(text)
	head := string([]rune(b.lines[from.Line])[:from.Ch])
	tail := string([]rune(b.lines[to.Line])[to.Ch:])

	lines := make([]string, 0, len(b.lines)-(to.Line-from.Line)+len(inserted)-1)
	lines = append(lines, b.lines[:from.Line]...)
	for i, l := range inserted {
		if i == 0 {
			l = head + l
		}
		if i == len(inserted)-1 {
			l += tail
		}
		lines = append(lines, l)
	}
	lines = append(lines, b.lines[to.Line+1:]...)
	b.lines = lines

	end := changeEnd(from, inserted)
	b.sel.Anchor = adjustForChange(b.sel.Anchor, from, to, end)
	b.sel.Head = adjustForChange(b.sel.Head, from, to, end)

	if text != "" || from != to {
		b.changed = true
	}
	return end
}

// clip keeps p inside the document. A line before the first clips to (0:0),
// a line after the last clips to the end of the document.
func (b *Buffer) clip(p Pos) Pos {
	last := len(b.lines) - 1
	if p.Line < 0 {
		return Pos{}
	}
	if p.Line > last {
		return Pos{Line: last, Ch: b.lineLen(last)}
	}
	if n := b.lineLen(p.Line); p.Ch > n {
		p.Ch = n
	}
	if p.Ch < 0 {
		p.Ch = 0
	}
	return p
}

// advance returns the position reached after inserting text at p.
func advance(p Pos, text string) Pos {
	return changeEnd(p, splitLines(text))
}

func changeEnd(from Pos, inserted []string) Pos {
	last := inserted[len(inserted)-1]
	if len(inserted) == 1 {
		return Pos{Line: from.Line, Ch: from.Ch + utf8.RuneCountInString(last)}
	}
	return Pos{Line: from.Line + len(inserted) - 1, Ch: utf8.RuneCountInString(last)}
}

func adjustForChange(p, from, to, end Pos) Pos {
	if p.Before(from) {
		return p
	}
	if !p.After(to) {
		return end
	}
	if p.Line == to.Line {
		return Pos{Line: end.Line, Ch: end.Ch + p.Ch - to.Ch}
	}
	return Pos{Line: p.Line + end.Line - to.Line, Ch: p.Ch}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
