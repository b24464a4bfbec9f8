package nextrouter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codemod/internal/jsast"
)

func pathAccessor(path []string, rest bool) string {
	if rest {
		return "rest(" + strings.Join(path, ".") + ")"
	}
	return "get(" + strings.Join(path, ".") + ")"
}

func TestFlattenPattern(t *testing.T) {
	t.Parallel()

	f := parse(t, "a.ts", `const { a, b: c, d = 1, e: { f, g: h = 2 }, ...others } = value;`)
	pattern := jsast.FindAll(f.Root, "object_pattern")[0]

	bindings, ok := FlattenPattern(f, pattern, pathAccessor)
	require.True(t, ok)

	var got []string
	for _, b := range bindings {
		line := b.Local + "=" + b.Expr
		if b.Default != nil {
			line += "??" + f.Text(b.Default)
		}
		got = append(got, line)
	}
	assert.Equal(t, []string{
		"a=get(a)",
		"c=get(b)",
		"d=get(d)??1",
		"f=get(e.f)",
		"h=get(e.g)??2",
		"others=rest()",
	}, got)
}

func TestFlattenPattern_Unsupported(t *testing.T) {
	t.Parallel()

	called := false
	acc := func(path []string, rest bool) string {
		called = true
		return ""
	}
	for _, src := range []string{
		`const { [key]: v } = value;`,
		`const { a: [first] } = value;`,
	} {
		f := parse(t, "a.ts", src)
		pattern := jsast.FindAll(f.Root, "object_pattern")[0]
		_, ok := FlattenPattern(f, pattern, acc)
		assert.False(t, ok, src)
	}
	assert.False(t, called, "accessor must not run for rejected patterns")
}
