// Package patch edits generated Python configuration files line by line:
// it locates bracketed literals by marker, inserts entries exactly once and
// writes the result back in one piece.
package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

var (
	ErrMarkerNotFound = errors.New("marker not found")
	ErrParse          = errors.New("document does not parse")
)

// Document is a text file held as lines without their terminators.
type Document struct {
	Lines           []string
	trailingNewline bool
}

func Parse(data []byte) *Document {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	if s == "" {
		return &Document{trailingNewline: true}
	}
	trailing := strings.HasSuffix(s, "\n")
	return &Document{
		Lines:           strings.Split(strings.TrimSuffix(s, "\n"), "\n"),
		trailingNewline: trailing,
	}
}

// FromLines builds a document that ends with a newline.
func FromLines(lines ...string) *Document {
	out := make([]string, len(lines))
	copy(out, lines)
	return &Document{Lines: out, trailingNewline: true}
}

func (d *Document) Bytes() []byte {
	s := strings.Join(d.Lines, "\n")
	if d.trailingNewline && len(d.Lines) > 0 {
		s += "\n"
	}
	return []byte(s)
}

func (d *Document) String() string { return string(d.Bytes()) }

func (d *Document) Len() int { return len(d.Lines) }

// Contains reports whether any line contains substr.
func (d *Document) Contains(substr string) bool {
	for _, l := range d.Lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func (d *Document) insert(at int, lines ...string) {
	if len(lines) == 0 {
		return
	}
	d.Lines = append(d.Lines[:at], append(append([]string{}, lines...), d.Lines[at:]...)...)
}

func Load(fsys billy.Filesystem, name string) (*Document, error) {
	data, err := util.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(data), nil
}

// Save replaces name with the document contents through a temporary file in
// the same directory, so readers never observe a half-written file.
func Save(fsys billy.Filesystem, name string, d *Document) (err error) {
	mode := fs.FileMode(0o644)
	if st, statErr := fsys.Stat(name); statErr == nil {
		mode = st.Mode().Perm()
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", name, statErr)
	}
	dir := filepath.Dir(name)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := util.TempFile(fsys, dir, "."+filepath.Base(name)+".")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(d.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = fsys.Rename(tmpName, name); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	if ch, ok := fsys.(billy.Change); ok {
		if err := ch.Chmod(name, mode); err != nil {
			return fmt.Errorf("chmod %s: %w", name, err)
		}
	}
	return nil
}
