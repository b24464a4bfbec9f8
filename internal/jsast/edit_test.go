package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_NoEdits(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("const a = 1;\n"))
	out, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "const a = 1;\n", out)
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_ReplaceAndInsert(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("abc def"))
	b.Replace(4, 7, "xyz")
	b.Insert(0, "// ")
	out, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "// abc xyz", out)
}

func TestBuffer_InsertOrderIsStable(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("x"))
	b.Insert(0, "a")
	b.Insert(0, "b")
	b.Insert(1, "c")
	out, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "abxc", out)
}

func TestBuffer_LazyEditRendersNestedEdits(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("f(a.b)"))
	b.Replace(2, 5, "x")
	b.ReplaceFunc(0, 6, func(r Renderer) string {
		return "g(" + r.Text(2, 5) + ")"
	})
	out, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "g(x)", out)
}

func TestBuffer_LazyEditCanRenderOwnRange(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("foo;"))
	b.ReplaceFunc(0, 4, func(r Renderer) string {
		return "[" + r.Text(0, 4) + "]"
	})
	b.Insert(0, "X")
	b.Replace(1, 2, "O")
	out, err := b.String()
	require.NoError(t, err)
	// The boundary insertion stays outside the wrapped range.
	assert.Equal(t, "X[fOo;]", out)
}

func TestBuffer_StaticReplacementAbsorbsInnerEdits(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("one two three"))
	b.Replace(4, 7, "TWO")
	b.Replace(0, 13, "gone")
	out, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "gone", out)
}

func TestBuffer_OverlappingEdits(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("abcdef"))
	b.Replace(0, 3, "x")
	b.Replace(2, 5, "y")
	_, err := b.String()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverlappingEdits)
}

func TestBuffer_InvalidRangePanics(t *testing.T) {
	t.Parallel()
	b := NewBuffer([]byte("abc"))
	assert.Panics(t, func() { b.Replace(2, 9, "x") })
}

func TestStatementSpan(t *testing.T) {
	t.Parallel()
	src := []byte("a();\n  b();\nc(); d();\n")

	start, end := StatementSpan(src, 7, 11)
	assert.Equal(t, "  b();\n", string(src[start:end]))

	start, end = StatementSpan(src, 12, 16)
	assert.Equal(t, "c(); ", string(src[start:end]))
}

func TestLineIndent(t *testing.T) {
	t.Parallel()
	src := []byte("x\n\t  y\n")
	assert.Equal(t, "\t  ", LineIndent(src, 5))
	assert.Equal(t, "", LineIndent(src, 0))
}

func TestQuote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"a"`, Quote("a", `"`))
	assert.Equal(t, `'it\'s'`, Quote("it's", "'"))
}

func TestIsIdentifierName(t *testing.T) {
	t.Parallel()
	assert.True(t, IsIdentifierName("foo_1"))
	assert.True(t, IsIdentifierName("$id"))
	assert.False(t, IsIdentifierName("1abc"))
	assert.False(t, IsIdentifierName("a-b"))
	assert.False(t, IsIdentifierName(""))
}
