package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer("ab\ncd\r\nef")

	assert.Equal(t, "ab\ncd\nef", b.Value())
	assert.Equal(t, 3, b.LineCount())
	assert.Equal(t, "cd", b.Line(1))
	assert.Equal(t, "", b.Line(-1))
	assert.Equal(t, "", b.Line(3))
	assert.Equal(t, Pos{}, b.Cursor())
	assert.False(t, b.SomethingSelected())
}

func TestBuffer_Range(t *testing.T) {
	b := NewBuffer("héllo\nworld\n!")

	tests := []struct {
		name     string
		from, to Pos
		expected string
	}{
		{"single line", Pos{0, 1}, Pos{0, 4}, "éll"},
		{"reversed", Pos{0, 4}, Pos{0, 1}, "éll"},
		{"multi line", Pos{0, 3}, Pos{2, 1}, "lo\nworld\n!"},
		{"negative column clips", Pos{1, -3}, Pos{1, 2}, "wo"},
		{"past end of line clips", Pos{1, 3}, Pos{1, 30}, "ld"},
		{"past last line clips", Pos{2, 0}, Pos{9, 0}, "!"},
		{"before first line clips", Pos{-1, 4}, Pos{0, 2}, "hé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, b.Range(tt.from, tt.to))
		})
	}
}

func TestBuffer_ReplaceRangeMovesSelection(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		cursor   Pos
		insert   string
		from, to Pos
		value    string
		expected Pos
	}{
		{
			name:     "insert before cursor shifts it",
			text:     "hello",
			cursor:   Pos{0, 3},
			insert:   "XX",
			from:     Pos{0, 1},
			to:       Pos{0, 1},
			value:    "hXXello",
			expected: Pos{0, 5},
		},
		{
			name:     "insert at cursor pushes it",
			text:     "hello",
			cursor:   Pos{0, 2},
			insert:   "--",
			from:     Pos{0, 2},
			to:       Pos{0, 2},
			value:    "he--llo",
			expected: Pos{0, 4},
		},
		{
			name:     "insert after cursor keeps it",
			text:     "hello",
			cursor:   Pos{0, 1},
			insert:   "!",
			from:     Pos{0, 5},
			to:       Pos{0, 5},
			value:    "hello!",
			expected: Pos{0, 1},
		},
		{
			name:     "multi line insert moves later lines",
			text:     "ab\ncd",
			cursor:   Pos{1, 1},
			insert:   "x\ny",
			from:     Pos{0, 1},
			to:       Pos{0, 1},
			value:    "ax\nyb\ncd",
			expected: Pos{2, 1},
		},
		{
			name:     "cursor inside deleted range lands at its start",
			text:     "abcdef",
			cursor:   Pos{0, 3},
			insert:   "",
			from:     Pos{0, 1},
			to:       Pos{0, 5},
			value:    "af",
			expected: Pos{0, 1},
		},
		{
			name:     "joining lines",
			text:     "ab\ncd\nef",
			cursor:   Pos{2, 1},
			insert:   "",
			from:     Pos{0, 2},
			to:       Pos{1, 0},
			value:    "abcd\nef",
			expected: Pos{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.text)
			b.SetCursor(tt.cursor)
			b.ReplaceRange(tt.insert, tt.from, tt.to)

			assert.Equal(t, tt.value, b.Value())
			assert.Equal(t, tt.expected, b.Cursor())
		})
	}
}

func TestBuffer_ReplaceSelection(t *testing.T) {
	b := NewBuffer("hello world")
	b.SetSelection(Pos{0, 11}, Pos{0, 6})
	b.ReplaceSelection("there")

	assert.Equal(t, "hello there", b.Value())
	assert.Equal(t, CursorAt(Pos{0, 11}), b.Selection())
}

func TestBuffer_SetValue(t *testing.T) {
	b := NewBuffer("old")
	b.SetCursor(Pos{0, 2})

	var changes []Change
	b.OnChange(func(c Change) { changes = append(changes, c) })

	b.SetValue("new\ntext")

	assert.Equal(t, "new\ntext", b.Value())
	assert.Equal(t, Pos{}, b.Cursor())
	require.Len(t, changes, 1)
	assert.Equal(t, OriginSetValue, changes[0].Origin)
}

func TestBuffer_OnChangeOncePerOperation(t *testing.T) {
	b := NewBuffer("a\nb\nc")

	var changes []Change
	b.OnChange(func(c Change) { changes = append(changes, c) })

	b.SetSelection(Pos{0, 0}, Pos{2, 1})
	b.ToggleBlock(Ordered)

	require.Len(t, changes, 1)
	assert.Equal(t, OriginFormat, changes[0].Origin)
	assert.Equal(t, "1. a\n2. b\n3. c", changes[0].Text)
	assert.Equal(t, Pos{2, 4}, changes[0].Cursor)

	b.Insert("x", Pos{0, 0})
	require.Len(t, changes, 2)
	assert.Equal(t, OriginInput, changes[1].Origin)

	// no-op edits are not reported
	b.ReplaceRange("", Pos{0, 1}, Pos{0, 1})
	assert.Len(t, changes, 2)
}

func TestBuffer_Nil(t *testing.T) {
	var b *Buffer

	assert.NotPanics(t, func() {
		b.OnChange(func(Change) {})
		b.SetValue("x")
		b.SetCursor(Pos{1, 1})
		b.SetSelection(Pos{}, Pos{0, 1})
		b.ReplaceRange("x", Pos{}, Pos{})
		b.ReplaceSelection("x")
		b.ToggleInline(Bold)
		b.ToggleBlock(Ordered)
		b.InsertLink()
		b.InsertImage("http://example.com/a.png")
		b.InsertTable()
		b.InsertLineBreak()
	})
	assert.Equal(t, "", b.Value())
	assert.Equal(t, 0, b.LineCount())
	assert.Equal(t, Pos{}, b.Cursor())
	assert.False(t, b.SomethingSelected())
}

func TestBuffer_ZeroValue(t *testing.T) {
	var b Buffer
	changes := 0
	b.OnChange(func(Change) { changes++ })

	assert.NotPanics(t, func() {
		b.SetCursor(Pos{1, 1})
		b.SetSelection(Pos{}, Pos{0, 1})
		b.ReplaceRange("x", Pos{}, Pos{})
		b.Insert("x", Pos{})
		b.ReplaceSelection("x")
		b.ToggleInline(Bold)
		b.ToggleBlock(Ordered)
		b.InsertLink()
		b.InsertImage("")
		b.InsertTable()
		b.InsertLineBreak()
	})
	assert.Equal(t, "", b.Range(Pos{}, Pos{0, 3}))
	assert.Equal(t, "", b.Value())
	assert.Equal(t, 0, b.LineCount())
	assert.Equal(t, Selection{}, b.Selection())
	assert.Zero(t, changes)

	b.SetValue("hi")
	b.SetSelection(Pos{}, Pos{0, 2})
	b.ToggleInline(Bold)
	assert.Equal(t, "**hi**", b.Value())
	assert.Equal(t, 2, changes)
}

func TestSelection_Ordered(t *testing.T) {
	forward := Selection{Anchor: Pos{0, 1}, Head: Pos{1, 0}}
	backward := Selection{Anchor: Pos{1, 0}, Head: Pos{0, 1}}

	assert.Equal(t, forward, forward.Ordered())
	assert.Equal(t, forward, backward.Ordered())
	assert.True(t, CursorAt(Pos{2, 2}).Empty())
}
