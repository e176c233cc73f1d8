// Package locks records the files a run left in a project, with their
// digests, so consecutive runs can be compared.
package locks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

const Version = "djstarter.filelock/v1"

// DefaultExcludes are never hashed.
var DefaultExcludes = []string{".git", "__pycache__", "media"}

type FileHash struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

type Lock struct {
	Version string `json:"version"`
	// Digest covers every path and hash, in order.
	Digest string     `json:"digest"`
	Files  []FileHash `json:"files"`
}

type Changes struct {
	Added    []string `json:"added,omitempty"`
	Modified []string `json:"modified,omitempty"`
	Removed  []string `json:"removed,omitempty"`
}

func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

func (c Changes) String() string {
	return fmt.Sprintf("%d added, %d modified, %d removed", len(c.Added), len(c.Modified), len(c.Removed))
}

// Generate hashes every regular file below root. Paths are relative to root
// and slash separated. A bare exclude such as "__pycache__" drops that name
// at any depth; one containing a slash matches a path or any of its parents.
func Generate(fsys billy.Filesystem, root string, excludes []string) (Lock, error) {
	excludeSet := make(map[string]struct{}, len(excludes))
	for _, e := range excludes {
		if e == "" || e == "." {
			continue
		}
		excludeSet[path.Clean(filepath.ToSlash(e))] = struct{}{}
	}
	files, err := fileManifest(fsys, root, "", excludeSet)
	if err != nil {
		return Lock{}, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	h := sha256.New()
	for _, f := range files {
		_, _ = io.WriteString(h, f.Path)
		_, _ = io.WriteString(h, f.SHA256)
	}
	return Lock{Version: Version, Digest: "sha256:" + hex.EncodeToString(h.Sum(nil)), Files: files}, nil
}

func fileManifest(fsys billy.Filesystem, root, rel string, excludeSet map[string]struct{}) ([]FileHash, error) {
	entries, err := fsys.ReadDir(path.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path.Join(root, rel), err)
	}
	var out []FileHash
	for _, e := range entries {
		child := path.Join(rel, e.Name())
		if shouldExclude(child, excludeSet) {
			continue
		}
		if e.IsDir() {
			sub, err := fileManifest(fsys, root, child, excludeSet)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if !e.Mode().IsRegular() {
			continue
		}
		sum, err := hashFile(fsys, path.Join(root, child))
		if err != nil {
			return nil, err
		}
		out = append(out, FileHash{Path: child, SHA256: sum})
	}
	return out, nil
}

func hashFile(fsys billy.Filesystem, name string) (string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// shouldExclude matches a bare name against every path segment and a
// slash-separated exclude against the path prefix.
func shouldExclude(rel string, excludeSet map[string]struct{}) bool {
	segments := strings.Split(rel, "/")
	for ex := range excludeSet {
		if !strings.Contains(ex, "/") {
			if slices.Contains(segments, ex) {
				return true
			}
			continue
		}
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// Diff lists the paths that differ between two locks, each sorted.
func Diff(before, after Lock) Changes {
	old := make(map[string]string, len(before.Files))
	for _, f := range before.Files {
		old[f.Path] = f.SHA256
	}
	var c Changes
	for _, f := range after.Files {
		prev, ok := old[f.Path]
		switch {
		case !ok:
			c.Added = append(c.Added, f.Path)
		case prev != f.SHA256:
			c.Modified = append(c.Modified, f.Path)
		}
		delete(old, f.Path)
	}
	for p := range old {
		c.Removed = append(c.Removed, p)
	}
	sort.Strings(c.Removed)
	return c
}

func Write(file string, l Lock) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, append(b, '\n'), 0o644)
}

func Load(file string) (Lock, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return Lock{}, err
	}
	var l Lock
	if err := json.Unmarshal(b, &l); err != nil {
		return Lock{}, fmt.Errorf("parse %s: %w", filepath.Base(file), err)
	}
	if l.Version != Version {
		return Lock{}, fmt.Errorf("%s: unsupported version %q", filepath.Base(file), l.Version)
	}
	return l, nil
}
