package jsast

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrOverlappingEdits is returned when two edits partially overlap. Edits
// may nest (an outer replacement absorbs or re-renders the inner ones) but
// may not cross.
var ErrOverlappingEdits = errors.New("jsast: overlapping edits")

// Renderer renders ranges of the original source with every edit that lies
// inside the range applied. It is handed to lazily computed edits so that a
// replacement can splice in sub-expressions that were themselves rewritten.
type Renderer interface {
	Text(start, end int) string
	Node(n *sitter.Node) string
}

// RenderFunc computes replacement text when the buffer is printed.
type RenderFunc func(r Renderer) string

type edit struct {
	start, end int
	text       string
	fn         RenderFunc
	seq        int
}

func (e *edit) zeroWidth() bool { return e.start == e.end }

// contains reports whether inner lies inside outer. Insertions at the
// boundaries of outer belong to the surrounding text, not to outer.
func (e *edit) contains(inner *edit) bool {
	if e.zeroWidth() {
		return false
	}
	if inner.start < e.start || inner.end > e.end {
		return false
	}
	if inner.zeroWidth() && (inner.start == e.start || inner.start == e.end) {
		return false
	}
	return true
}

// Buffer is a queue of edits against an immutable source text.
type Buffer struct {
	src   []byte
	edits []*edit
}

// NewBuffer returns an empty edit queue over src.
func NewBuffer(src []byte) *Buffer {
	return &Buffer{src: src}
}

func (b *Buffer) add(start, end int, text string, fn RenderFunc) {
	if start < 0 || end > len(b.src) || start > end {
		panic(fmt.Sprintf("jsast: invalid edit range [%d,%d) for %d bytes", start, end, len(b.src)))
	}
	b.edits = append(b.edits, &edit{start: start, end: end, text: text, fn: fn, seq: len(b.edits)})
}

// Replace replaces [start, end) with text.
func (b *Buffer) Replace(start, end int, text string) { b.add(start, end, text, nil) }

// ReplaceFunc replaces [start, end) with text computed at print time.
func (b *Buffer) ReplaceFunc(start, end int, fn RenderFunc) { b.add(start, end, "", fn) }

// ReplaceNode replaces the text of n.
func (b *Buffer) ReplaceNode(n *sitter.Node, text string) { b.Replace(Start(n), End(n), text) }

// ReplaceNodeFunc replaces the text of n with text computed at print time.
func (b *Buffer) ReplaceNodeFunc(n *sitter.Node, fn RenderFunc) { b.ReplaceFunc(Start(n), End(n), fn) }

// Insert inserts text at pos. Insertions at the same position keep their order.
func (b *Buffer) Insert(pos int, text string) { b.add(pos, pos, text, nil) }

// InsertFunc inserts text computed at print time at pos.
func (b *Buffer) InsertFunc(pos int, fn RenderFunc) { b.add(pos, pos, "", fn) }

// Delete removes [start, end).
func (b *Buffer) Delete(start, end int) { b.add(start, end, "", nil) }

// Len returns the number of queued edits.
func (b *Buffer) Len() int { return len(b.edits) }

// Bytes applies all edits and returns the new text.
func (b *Buffer) Bytes() ([]byte, error) {
	r := &renderer{b: b, active: map[*edit]bool{}}
	out := r.render(0, len(b.src), true)
	if r.err != nil {
		return nil, r.err
	}
	return []byte(out), nil
}

// String is Bytes as a string.
func (b *Buffer) String() (string, error) {
	out, err := b.Bytes()
	return string(out), err
}

type renderer struct {
	b      *Buffer
	active map[*edit]bool
	err    error
}

func (r *renderer) Node(n *sitter.Node) string { return r.Text(Start(n), End(n)) }

func (r *renderer) Text(start, end int) string { return r.render(start, end, false) }

// render prints [start, end) applying the outermost edits that lie strictly
// inside the range, or every edit when whole is set. Edits currently being
// rendered are excluded so that a lazy edit may ask for its own range.
func (r *renderer) render(start, end int, whole bool) string {
	window := &edit{start: start, end: end}
	var in []*edit
	for _, e := range r.b.edits {
		if r.active[e] {
			continue
		}
		if whole || window.contains(e) {
			in = append(in, e)
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		a, c := in[i], in[j]
		if a.start != c.start {
			return a.start < c.start
		}
		if a.zeroWidth() != c.zeroWidth() {
			return a.zeroWidth()
		}
		if a.end != c.end {
			return a.end > c.end
		}
		return a.seq < c.seq
	})

	var roots []*edit
	var stack []*edit
	for _, e := range in {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.contains(e) || top.end > e.start {
				break
			}
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if !top.contains(e) {
				if r.err == nil {
					r.err = fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrOverlappingEdits, top.start, top.end, e.start, e.end)
				}
				continue
			}
		} else {
			roots = append(roots, e)
		}
		stack = append(stack, e)
	}

	var sb strings.Builder
	pos := start
	for _, e := range roots {
		sb.Write(r.b.src[pos:e.start])
		if e.fn != nil {
			r.active[e] = true
			sb.WriteString(e.fn(r))
			delete(r.active, e)
		} else {
			sb.WriteString(e.text)
		}
		pos = e.end
	}
	sb.Write(r.b.src[pos:end])
	return sb.String()
}
