// Package scaffoldtree prints a generated project as a tree.
package scaffoldtree

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/ddddddO/gtree"
	"github.com/go-git/go-billy/v5"
)

// DefaultSkip lists directory names left out of the tree.
var DefaultSkip = []string{".git", "__pycache__", "node_modules"}

type Options struct {
	// MaxDepth limits recursion below dir; zero means unlimited.
	MaxDepth int
	Skip     []string
}

// Render writes the tree of dir in fsys to w. Directories carry a trailing
// slash and sort before files.
func Render(w io.Writer, fsys billy.Filesystem, dir string, opts Options) error {
	skip := map[string]bool{}
	for _, s := range opts.Skip {
		skip[s] = true
	}
	label := path.Base(dir)
	if dir == "" || dir == "." || dir == "/" {
		label = "."
	}
	root := gtree.NewRoot(label + "/")
	if err := walk(fsys, dir, root, 1, opts.MaxDepth, skip); err != nil {
		return err
	}
	return gtree.OutputFromRoot(w, root)
}

func walk(fsys billy.Filesystem, dir string, node *gtree.Node, depth, max int, skip map[string]bool) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
	for _, e := range entries {
		if skip[e.Name()] {
			continue
		}
		if !e.IsDir() {
			node.Add(e.Name())
			continue
		}
		child := node.Add(e.Name() + "/")
		if max > 0 && depth >= max {
			continue
		}
		if err := walk(fsys, path.Join(dir, e.Name()), child, depth+1, max, skip); err != nil {
			return err
		}
	}
	return nil
}
