// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package editor

import (
	"regexp"
	"unicode/utf8"
)

// Inline is a marker pair wrapped around a span of text.
type Inline int

const (
	Bold Inline = iota
	Italic
	Strikethrough
)

var inlineMarkers = map[Inline]string{
	Bold:          "**",
	Italic:        "*",
	Strikethrough: "~~",
}

// italic markers are a single '*', so the two characters around a selection
// are matched loosely to avoid taking one half of a bold marker for them
var (
	italicLeft  = regexp.MustCompile(`^[^*]?\*$`)
	italicRight = regexp.MustCompile(`^\*(?:[^*]|$)`)
)

// adjacency window inspected on each side of a selection
const markerWindow = 2

func (i Inline) Marker() string {
	return inlineMarkers[i]
}

func (i Inline) String() string {
	switch i {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Strikethrough:
		return "strikethrough"
	}
	return "unknown"
}

// ToggleInline wraps or unwraps the selection (or the cursor position) with
// the marker of style.
//
// Without a selection the cursor either collapses an empty pair it sits in
// ("ab**|**cd" -> "ab|cd") or opens a new one ("ab|cd" -> "ab**|**cd").
//
// With a selection, markers directly outside the selection are merged rather
// than nested: markers on both sides unformat the enclosing span, a marker on
// one side is moved to the other edge of the selection, and no marker wraps
// the selection. The selected text stays selected.
func (b *Buffer) ToggleInline(style Inline) {
	if !b.ready() {
		return
	}
	marker := style.Marker()
	if marker == "" {
		return
	}

	b.operation(OriginFormat, func() {
		if b.SomethingSelected() {
			b.toggleInlineSelection(style, marker)
		} else {
			b.toggleInlineCursor(marker)
		}
	})
}

func (b *Buffer) toggleInlineCursor(marker string) {
	offset := utf8.RuneCountInString(marker)
	cur := b.sel.Head
	left := Pos{Line: cur.Line, Ch: cur.Ch - offset}
	right := Pos{Line: cur.Line, Ch: cur.Ch + offset}

	if b.Range(left, cur) == marker && b.Range(cur, right) == marker {
		b.replaceRange("", left, right)
		b.SetCursor(left)
		return
	}

	b.replaceRange(marker+marker, cur, cur)
	b.SetCursor(Pos{Line: cur.Line, Ch: cur.Ch + offset})
}

func (b *Buffer) toggleInlineSelection(style Inline, marker string) {
	offset := utf8.RuneCountInString(marker)
	sel := b.sel.Ordered()
	anchor, head := sel.Anchor, sel.Head
	text := b.Range(anchor, head)

	leftWindow := b.Range(Pos{Line: anchor.Line, Ch: anchor.Ch - markerWindow}, anchor)
	rightWindow := b.Range(head, Pos{Line: head.Line, Ch: head.Ch + markerWindow})

	var leftMatch, rightMatch bool
	if style == Italic {
		leftMatch = italicLeft.MatchString(leftWindow)
		rightMatch = italicRight.MatchString(rightWindow)
	} else {
		leftMatch = leftWindow == marker
		rightMatch = rightWindow == marker
	}

	leftMarker := Pos{Line: anchor.Line, Ch: anchor.Ch - offset}
	rightMarker := Pos{Line: head.Line, Ch: head.Ch + offset}

	var start Pos
	switch {
	case leftMatch && rightMatch:
		// "**123**|a|**456**" -> "**123a456**"
		b.replaceRange(text, leftMarker, rightMarker)
		start = leftMarker
	case leftMatch:
		// "**123**|a|" -> "**123a**"
		b.replaceRange(text+marker, leftMarker, head)
		start = leftMarker
	case rightMatch:
		// "|a|**123**" -> "**a123**"
		b.replaceRange(marker+text, anchor, rightMarker)
		start = Pos{Line: anchor.Line, Ch: anchor.Ch + offset}
	default:
		b.replaceRange(marker+text+marker, anchor, head)
		start = Pos{Line: anchor.Line, Ch: anchor.Ch + offset}
	}

	b.SetSelection(start, advance(start, text))
}
