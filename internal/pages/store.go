package pages

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store keeps raw page markup on disk, one file per page. The presence of a
// file is the only record that a page was fetched.
type Store struct {
	dir string
}

// NewStore creates dir if needed and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating page directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk location for name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether name has already been saved.
func (s *Store) Exists(name string) (bool, error) {
	_, err := os.Stat(s.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", name, err)
}

// Save writes html under name. The write goes through a temp file so an
// interrupted run never leaves a truncated page that would later be skipped.
func (s *Store) Save(name, html string) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	return nil
}

// Load reads the markup saved under name.
func (s *Store) Load(name string) (string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

// List returns the names of all saved .html pages in lexical order. Since
// box-score names start with the game date this is also chronological.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".html") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
