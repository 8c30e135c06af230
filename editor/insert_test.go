package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertLink(t *testing.T) {
	t.Run("at cursor", func(t *testing.T) {
		b := NewBuffer("ab")
		b.SetCursor(Pos{0, 1})
		b.InsertLink()

		assert.Equal(t, "a[message](**URL)b", b.Value())
		assert.Equal(t, Pos{0, 17}, b.Cursor())
	})

	t.Run("after a backward selection", func(t *testing.T) {
		b := NewBuffer("abc")
		b.SetSelection(Pos{0, 3}, Pos{0, 1})
		b.InsertLink()

		assert.Equal(t, "abc[message](**URL)", b.Value())
		assert.Equal(t, Pos{0, 19}, b.Cursor())
	})
}

func TestInsertImage(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "with url", url: "http://cdn.example.com/a.png", expected: "![alt. text](http://cdn.example.com/a.png)"},
		{name: "placeholder", expected: "![alt. text](image URL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer("")
			b.InsertImage(tt.url)

			assert.Equal(t, tt.expected, b.Value())
			assert.Equal(t, Pos{0, len(tt.expected)}, b.Cursor())
		})
	}
}

func TestInsertTable(t *testing.T) {
	b := NewBuffer("ab")
	b.SetCursor(Pos{0, 2})
	b.InsertTable()

	assert.Equal(t, "ab\n|  |  |\n|--|--|\n|  |  |", b.Value())
	assert.Equal(t, Pos{1, 2}, b.Cursor())
}

func TestInsertLineBreak(t *testing.T) {
	t.Run("after the current line", func(t *testing.T) {
		b := NewBuffer("ab\ncd")
		b.SetCursor(Pos{0, 1})
		b.InsertLineBreak()

		assert.Equal(t, "ab\n&nbsp;  \ncd", b.Value())
		assert.Equal(t, Pos{2, 0}, b.Cursor())
	})

	t.Run("after the lower selected line", func(t *testing.T) {
		b := NewBuffer("ab\ncd")
		b.SetSelection(Pos{1, 1}, Pos{0, 0})
		b.InsertLineBreak()

		assert.Equal(t, "ab\ncd\n&nbsp;  \n", b.Value())
		assert.Equal(t, Pos{3, 0}, b.Cursor())
	})
}
