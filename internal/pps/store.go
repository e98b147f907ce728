package pps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"sysbridge/internal/common/fsutil"
)

// ErrNoObject is returned when the object file does not exist.
var ErrNoObject = errors.New("pps object not found")

// Store reads object files below Root. Root "/" maps object paths onto the
// real filesystem; tests point it at a temp dir.
type Store struct {
	Root string
}

// NewStore returns a Store rooted at root ("~" is expanded).
func NewStore(root string) (*Store, error) {
	r, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	if r == "" {
		r = "/"
	}
	return &Store{Root: r}, nil
}

// Read opens the object read-only and decodes its full content. Options on
// raw are ignored; a file read always yields the whole object.
func (s *Store) Read(raw string) (Data, error) {
	p, err := ParsePath(raw)
	if err != nil {
		return nil, err
	}
	file, err := fsutil.Resolve(s.Root, p.Object)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(file, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p.Object, ErrNoObject)
		}
		return nil, fmt.Errorf("open %s: %w", p.Object, err)
	}
	defer f.Close()
	data, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Object, err)
	}
	return data, nil
}

// Attrs reads the object and returns the attributes of the object named
// after the last path element. A file with no matching header yields an
// empty set.
func (s *Store) Attrs(raw string) (Attrs, error) {
	data, err := s.Read(raw)
	if err != nil {
		return nil, err
	}
	p, _ := ParsePath(raw)
	if a, ok := data[p.Name()]; ok {
		return a, nil
	}
	return Attrs{}, nil
}

// Write replaces the object file with attrs. Used by fixtures and the
// simulate command.
func (s *Store) Write(raw string, attrs Attrs) error {
	p, err := ParsePath(raw)
	if err != nil {
		return err
	}
	file, err := fsutil.Resolve(s.Root, p.Object)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureParent(file); err != nil {
		return err
	}
	tmp := file + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.Object, err)
	}
	if err := Encode(f, p.Name(), attrs); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", p.Object, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, file)
}

func sortedKeys(a Attrs) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
