package jsast

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTS(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse(context.Background(), "page.tsx", []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

// declaratorNamed returns the name node of the first declarator binding name.
func declaratorNamed(t *testing.T, f *File, name string) *sitter.Node {
	t.Helper()
	for _, d := range FindAll(f.Root, "variable_declarator") {
		if id := Field(d, "name"); id != nil && f.Text(id) == name {
			return id
		}
	}
	t.Fatalf("no declarator named %s", name)
	return nil
}

func refLines(f *File, refs []*sitter.Node) []int {
	var lines []int
	for _, r := range refs {
		lines = append(lines, int(r.StartPoint().Row))
	}
	return lines
}

func TestParse_Languages(t *testing.T) {
	t.Parallel()
	for path, want := range map[string]Language{
		"a.js":  JavaScript,
		"a.jsx": JavaScript,
		"a.ts":  TypeScript,
		"a.tsx": TSX,
	} {
		f, err := Parse(context.Background(), path, []byte("const a = 1;\n"))
		require.NoError(t, err, path)
		assert.Equal(t, want, f.Lang)
		assert.Equal(t, "program", f.Root.Type())
		f.Close()
	}

	_, err := Parse(context.Background(), "types.d.ts", []byte("declare const a: number;\n"))
	require.Error(t, err)
	_, err = Parse(context.Background(), "main.go", []byte("package main\n"))
	require.Error(t, err)
}

func TestCheckSyntax(t *testing.T) {
	t.Parallel()

	require.NoError(t, parseTS(t, "const a = <div>{b}</div>;\n").CheckSyntax())

	f, err := Parse(context.Background(), "broken.ts", []byte("const a = ;\nfunction (\n"))
	require.NoError(t, err)
	defer f.Close()
	err = f.CheckSyntax()
	require.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "broken.ts")
}

func TestReferences_SimpleBinding(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `function Page() {
  const router = useRouter();
  console.log(router.query);
  return router.pathname;
}
`)
	decl := declaratorNamed(t, f, "router")
	refs := References(f, "router", decl, DeclarationScope(decl.Parent().Parent()))
	assert.Equal(t, []int{2, 3}, refLines(f, refs))
}

func TestReferences_ShadowedByParameter(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `function Page() {
  const router = useRouter();
  const go = (router) => router.push("/");
  function inner(router) { return router; }
  return router.query;
}
`)
	decl := declaratorNamed(t, f, "router")
	refs := References(f, "router", decl, DeclarationScope(decl.Parent().Parent()))
	assert.Equal(t, []int{4}, refLines(f, refs))
}

func TestReferences_ShadowedByInnerDeclaration(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `function Page() {
  const router = useRouter();
  if (ready) {
    const router = other;
    router.back();
  }
  router.reload();
}
`)
	decl := declaratorNamed(t, f, "router")
	refs := References(f, "router", decl, DeclarationScope(decl.Parent().Parent()))
	assert.Equal(t, []int{6}, refLines(f, refs))
}

func TestReferences_ShorthandProperty(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `const router = useRouter();
send({ router });
`)
	decl := declaratorNamed(t, f, "router")
	refs := References(f, "router", decl, DeclarationScope(decl.Parent().Parent()))
	require.Len(t, refs, 1)
	assert.Equal(t, "shorthand_property_identifier", refs[0].Type())
}

func TestReferences_IgnoresPropertyNames(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `const router = useRouter();
const x = { router: 1 };
x.router;
`)
	decl := declaratorNamed(t, f, "router")
	refs := References(f, "router", decl, DeclarationScope(decl.Parent().Parent()))
	assert.Empty(t, refs)
}

func TestEnclosingStatement(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `function Page() {
  const q = useRouter().query;
}
const Inline = () => useRouter().query;
`)
	calls := FindAll(f.Root, "call_expression")
	require.Len(t, calls, 2)

	stmt, block := EnclosingStatement(calls[0])
	require.NotNil(t, stmt)
	assert.Equal(t, "lexical_declaration", stmt.Type())
	assert.Equal(t, "statement_block", block.Type())

	stmt, block = EnclosingStatement(calls[1])
	assert.Nil(t, stmt)
	assert.Nil(t, block)
}

func TestPatternBinds(t *testing.T) {
	t.Parallel()
	f := parseTS(t, `const { a, b: c, d = 1, e: { f }, ...rest } = obj;
`)
	pattern := FindAll(f.Root, "object_pattern")[0]
	for _, name := range []string{"a", "c", "d", "f", "rest"} {
		assert.True(t, PatternBinds(f, pattern, name), name)
	}
	for _, name := range []string{"b", "e", "obj"} {
		assert.False(t, PatternBinds(f, pattern, name), name)
	}
}
