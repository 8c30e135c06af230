// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package editor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Block is a line prefix.
type Block int

const (
	Unordered Block = iota
	Ordered
	Code
	Checklist
	Quote
)

var blockPrefixes = map[Block]string{
	Unordered: "- ",
	Ordered:   "1. ",
	Code:      "    ",
	Checklist: "- [ ] ",
	Quote:     "> ",
}

func (k Block) Prefix() string {
	return blockPrefixes[k]
}

func (k Block) String() string {
	switch k {
	case Unordered:
		return "unordered"
	case Ordered:
		return "ordered"
	case Code:
		return "code"
	case Checklist:
		return "checklist"
	case Quote:
		return "quote"
	}
	return "unknown"
}

// OrderedItem is the number parsed from an ordered list line. NumInList is
// the matched prefix, e.g. "12. ".
type OrderedItem struct {
	Value     int
	NumInList string
}

// LinePrefix is the classification of one line.
type LinePrefix struct {
	Block   Block
	Prefix  string
	Ordered *OrderedItem

	// Indent is the leading whitespace trimmed before matching, zero for code
	// lines.
	Indent int
}

// Len is the number of runes to delete from the start of the line to remove
// the prefix and the indentation before it.
func (p LinePrefix) Len() int {
	return p.Indent + utf8.RuneCountInString(p.Prefix)
}

type blockRule struct {
	block Block
	match func(line string) (string, bool)
	parse func(prefix string) *OrderedItem
}

var (
	unorderedRe = regexp.MustCompile(`^-\s`)
	orderedRe   = regexp.MustCompile(`^(\d+)\.\s`)
	codeRe      = regexp.MustCompile(`^\s{4}`)
	checklistRe = regexp.MustCompile(`^-\s\[[Xx\s]\]\s`)
	quoteRe     = regexp.MustCompile(`^>\s?`)
)

// blockRules is evaluated top to bottom and the first match wins. A checklist
// line also starts like an unordered one, so it must be tested first.
var blockRules = []blockRule{
	{block: Quote, match: regexpMatcher(quoteRe)},
	{block: Checklist, match: regexpMatcher(checklistRe)},
	{block: Code, match: regexpMatcher(codeRe)},
	{block: Ordered, match: regexpMatcher(orderedRe), parse: parseOrdered},
	{block: Unordered, match: func(line string) (string, bool) {
		if checklistRe.MatchString(line) {
			return "", false
		}
		return regexpMatcher(unorderedRe)(line)
	}},
}

func regexpMatcher(re *regexp.Regexp) func(string) (string, bool) {
	return func(line string) (string, bool) {
		m := re.FindString(line)
		return m, m != ""
	}
}

func parseOrdered(prefix string) *OrderedItem {
	m := orderedRe.FindStringSubmatch(prefix)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &OrderedItem{Value: n, NumInList: prefix}
}

// ClassifyLine reports which block prefix line carries, if any. Lines that are
// not code-indented have their leading whitespace ignored.
func ClassifyLine(line string) (LinePrefix, bool) {
	indent := 0
	if !codeRe.MatchString(line) {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		indent = utf8.RuneCountInString(line) - utf8.RuneCountInString(trimmed)
		line = trimmed
	}

	for _, rule := range blockRules {
		prefix, ok := rule.match(line)
		if !ok {
			continue
		}
		lp := LinePrefix{Block: rule.block, Prefix: prefix, Indent: indent}
		if rule.parse != nil {
			lp.Ordered = rule.parse(prefix)
		}
		return lp, true
	}
	return LinePrefix{Indent: indent}, false
}

// ToggleBlock applies a line prefix.
//
// Without a selection, a line that already carries a prefix is continued: a
// new line is opened below it (numbered one past the current item for
// ordered lists) and the prefix is written there. Otherwise the prefix is
// written at column 0 of the current line.
//
// With a selection, every covered line is re-prefixed: indentation and any
// existing prefix are stripped, and the new prefix is written unless the line
// already had the same kind, in which case the prefix is toggled off.
// Ordered numbering continues from the line above the selection when that
// line is an ordered item, and starts at 1 otherwise. The cursor ends at the
// end of the last affected line.
func (b *Buffer) ToggleBlock(kind Block) {
	if !b.ready() {
		return
	}
	if kind.Prefix() == "" {
		return
	}

	b.operation(OriginFormat, func() {
		if b.SomethingSelected() {
			b.toggleBlockSelection(kind)
		} else {
			b.toggleBlockCursor(kind)
		}
	})
}

func (b *Buffer) toggleBlockCursor(kind Block) {
	cur := b.sel.Head
	current := b.Line(cur.Line)
	prefix := kind.Prefix()

	lp, ok := ClassifyLine(current)
	if !ok {
		if kind == Ordered {
			prefix = nextOrderedPrefix(b.Line(cur.Line-1), 1)
		}
		b.replaceRange(prefix, Pos{Line: cur.Line}, Pos{Line: cur.Line})
		return
	}

	if kind == Ordered && lp.Ordered != nil {
		prefix = fmt.Sprintf("%d. ", lp.Ordered.Value+1)
	}

	eol := Pos{Line: cur.Line, Ch: utf8.RuneCountInString(current)}
	b.replaceRange("\n", eol, eol)
	b.SetCursor(Pos{Line: cur.Line + 1})

	next := Pos{Line: cur.Line + 1}
	b.replaceRange(prefix, next, next)
}

func (b *Buffer) toggleBlockSelection(kind Block) {
	sel := b.sel.Ordered()

	count := 1
	if prev, ok := ClassifyLine(b.Line(sel.Anchor.Line - 1)); ok && prev.Ordered != nil {
		count = prev.Ordered.Value + 1
	}

	for i := sel.Anchor.Line; i <= sel.Head.Line; i++ {
		lp, ok := ClassifyLine(b.Line(i))

		b.replaceRange("", Pos{Line: i}, Pos{Line: i, Ch: lp.Len()})

		var replacement string
		switch {
		case ok && lp.Block == kind:
			// same prefix again: toggle it off
		case kind == Ordered:
			replacement = fmt.Sprintf("%d. ", count)
			count++
		default:
			replacement = kind.Prefix()
		}

		if replacement != "" {
			b.replaceRange(replacement, Pos{Line: i}, Pos{Line: i})
		}
	}

	b.SetCursor(Pos{Line: sel.Head.Line, Ch: b.lineLen(sel.Head.Line)})
}

// nextOrderedPrefix numbers a new item after prev when prev is an ordered
// list item, and falls back to start.
func nextOrderedPrefix(prev string, start int) string {
	if lp, ok := ClassifyLine(prev); ok && lp.Ordered != nil {
		return fmt.Sprintf("%d. ", lp.Ordered.Value+1)
	}
	return fmt.Sprintf("%d. ", start)
}
