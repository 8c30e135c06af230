// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package editor

import "unicode/utf8"

const (
	LinkTemplate          = "[message](**URL)"
	ImagePlaceholder      = "image URL"
	TableTemplate         = "\n|  |  |\n|--|--|\n|  |  |"
	LineBreakTemplate     = "\n&nbsp;  \n"
	imageTemplateAltLabel = "alt. text"
)

// insertionPoint is where templates go: the lower end of the selection, or
// the cursor.
func (b *Buffer) insertionPoint() Pos {
	return b.sel.Ordered().Head
}

// InsertLink inserts a link template and leaves the cursor after it.
func (b *Buffer) InsertLink() {
	b.insertTemplate(LinkTemplate)
}

// InsertImage inserts an image reference to url. An empty url leaves a
// placeholder to be filled in.
func (b *Buffer) InsertImage(url string) {
	if url == "" {
		url = ImagePlaceholder
	}
	b.insertTemplate("![" + imageTemplateAltLabel + "](" + url + ")")
}

func (b *Buffer) insertTemplate(tmpl string) {
	if !b.ready() {
		return
	}
	b.operation(OriginFormat, func() {
		at := b.insertionPoint()
		b.replaceRange(tmpl, at, at)
		b.SetCursor(Pos{Line: at.Line, Ch: at.Ch + utf8.RuneCountInString(tmpl)})
	})
}

// InsertTable inserts an empty 2x2 table below the insertion point with the
// cursor in the first cell.
func (b *Buffer) InsertTable() {
	if !b.ready() {
		return
	}
	b.operation(OriginFormat, func() {
		at := b.insertionPoint()
		b.replaceRange(TableTemplate, at, at)
		b.SetCursor(Pos{Line: at.Line + 1, Ch: 2})
	})
}

// InsertLineBreak adds a hard break after the current line (or the last
// selected line) and moves the cursor two lines down.
func (b *Buffer) InsertLineBreak() {
	if !b.ready() {
		return
	}
	b.operation(OriginFormat, func() {
		line := b.insertionPoint().Line
		eol := Pos{Line: line, Ch: b.lineLen(line)}
		b.replaceRange(LineBreakTemplate, eol, eol)
		b.SetCursor(Pos{Line: line + 2})
	})
}
