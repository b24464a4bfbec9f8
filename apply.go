package codemod

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jward/codemod/internal/store"
)

// errOutsideRoot rejects commands aimed at files outside the run root.
var errOutsideRoot = errors.New("path outside run root")

// dropNoops removes rewrites of the input file that leave it unchanged.
func dropNoops(item workItem, cmds []Command) []Command {
	var out []Command
	for _, c := range cmds {
		if u, ok := c.(UpsertFile); ok && u.Path == item.path && bytes.Equal(u.Data, item.src) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hashAfter is the content hash the input file has once cmds are applied.
func hashAfter(item workItem, cmds []Command) string {
	h := item.hash
	for _, c := range cmds {
		switch c := c.(type) {
		case UpsertFile:
			if c.Path == item.path {
				h = store.HashContent(c.Data)
			}
		case DeleteFile:
			if c.Path == item.path {
				h = ""
			}
		}
	}
	return h
}

// apply executes cmds, or only renders them on a dry run. The returned diff
// covers every UpsertFile and DeleteFile when diffs are enabled.
func (r *runner) apply(item workItem, cmds []Command) (string, error) {
	var diff strings.Builder
	for _, c := range cmds {
		if err := r.checkInRoot(c); err != nil {
			return diff.String(), err
		}
		if r.e.diff {
			d, err := r.diffFor(item, c)
			if err != nil {
				return diff.String(), err
			}
			diff.WriteString(d)
		}
		if r.e.dryRun {
			continue
		}
		if err := r.execute(c); err != nil {
			return diff.String(), err
		}
	}
	return diff.String(), nil
}

func commandPath(c Command) string {
	switch c := c.(type) {
	case UpsertFile:
		return c.Path
	case UpsertData:
		return c.Path
	case DeleteFile:
		return c.Path
	}
	return ""
}

func (r *runner) checkInRoot(c Command) error {
	p := commandPath(c)
	rel, err := filepath.Rel(r.root, p)
	if err != nil || !filepath.IsAbs(p) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s %s: %w", c.Kind(), p, errOutsideRoot)
	}
	return nil
}

func (r *runner) execute(c Command) error {
	switch c := c.(type) {
	case UpsertFile:
		return writeFile(c.Path, c.Data)
	case UpsertData:
		if r.e.dataDir == "" {
			return nil
		}
		data, err := json.MarshalIndent(c.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("upsert_data %s: %w", c.Path, err)
		}
		return writeFile(r.dataPath(c.Path), append(data, '\n'))
	case DeleteFile:
		if err := os.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete_file: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown command %T", c)
}

// dataPath maps a source file to its side output, <dataDir>/<rel>.json.
func (r *runner) dataPath(path string) string {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.Join(r.e.dataDir, rel+".json")
}

// writeFile writes data, keeping the mode of an existing file.
func writeFile(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("upsert_file: %w", err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("upsert_file: %w", err)
	}
	return nil
}

// diffFor renders a unified diff of one command against the current file.
func (r *runner) diffFor(item workItem, c Command) (string, error) {
	var path string
	var after []byte
	switch c := c.(type) {
	case UpsertFile:
		path, after = c.Path, c.Data
	case DeleteFile:
		path = c.Path
	default:
		return "", nil
	}

	var before []byte
	if path == item.path {
		before = item.src
	} else if data, err := os.ReadFile(path); err == nil {
		before = data
	}

	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + rel,
		ToFile:   "b/" + rel,
		Context:  3,
	})
}
