// Package store persists module lists, downloaded definitions and reports
// under an output directory, and loads definition directories back as a
// search corpus.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/modsearch/internal/doctree"
	"github.com/dgallion1/modsearch/internal/parser"
	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/spf13/afero"
)

// Store reads and writes below root on an afero filesystem.
type Store struct {
	fs           afero.Fs
	root         string
	listFilename string
}

// New creates a Store. A nil fs uses the OS filesystem.
func New(fsys afero.Fs, root, listFilename string) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if root == "" {
		root = "searchResults"
	}
	if listFilename == "" {
		listFilename = "list_of_modules.txt"
	}
	return &Store{fs: fsys, root: root, listFilename: listFilename}
}

// Root returns the output directory.
func (s *Store) Root() string { return s.root }

// Fs returns the underlying filesystem.
func (s *Store) Fs() afero.Fs { return s.fs }

// ModuleListPath is where WriteModuleList writes.
func (s *Store) ModuleListPath() string {
	return filepath.Join(s.root, s.listFilename)
}

// DefinitionDir is the directory holding the definitions of one application.
func (s *Store) DefinitionDir(applicationID string) string {
	return filepath.Join(s.root, "moduleDefinitions_"+applicationID)
}

// WriteModuleList writes each module as a name line, an id line and a blank
// line.
func (s *Store) WriteModuleList(modules []platform.Module) error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	for _, m := range modules {
		fmt.Fprintf(&buf, "%s\n%s\n\n", m.Name, m.ID)
	}
	if err := afero.WriteFile(s.fs, s.ModuleListPath(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write module list: %w", err)
	}
	return nil
}

// ReadModuleList parses a file written by WriteModuleList.
func (s *Store) ReadModuleList() ([]platform.Module, error) {
	f, err := s.fs.Open(s.ModuleListPath())
	if err != nil {
		return nil, fmt.Errorf("open module list: %w", err)
	}
	defer f.Close()

	var (
		modules []platform.Module
		lines   []string
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			if len(lines) > 0 {
				modules = append(modules, moduleFromLines(lines))
				lines = nil
			}
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read module list: %w", err)
	}
	if len(lines) > 0 {
		modules = append(modules, moduleFromLines(lines))
	}
	return modules, nil
}

func moduleFromLines(lines []string) platform.Module {
	m := platform.Module{Name: lines[0]}
	if len(lines) > 1 {
		m.ID = lines[1]
	}
	return m
}

// DefinitionFilename is the file name a definition is stored under.
func DefinitionFilename(def *platform.Definition) string {
	return sanitize(def.Name) + "_" + sanitize(def.ID) + ".json"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
}

// WriteDefinition writes the components of def into dir, indented four
// spaces, and returns the file path.
func (s *Store) WriteDefinition(dir string, def *platform.Definition) (string, error) {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create definition dir: %w", err)
	}

	components := def.Components
	if len(bytes.TrimSpace(components)) == 0 {
		components = json.RawMessage("[]")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, components, "", "    "); err != nil {
		return "", fmt.Errorf("format definition %s: %w", def.ID, err)
	}
	buf.WriteByte('\n')

	path := filepath.Join(dir, DefinitionFilename(def))
	if err := afero.WriteFile(s.fs, path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write definition %s: %w", def.ID, err)
	}
	return path, nil
}

// FileInfo describes a stored definition.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ListDefinitions returns the loadable definition files in dir, sorted by
// name. A missing directory yields an empty list.
func (s *Store) ListDefinitions(dir string) ([]FileInfo, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: e.Size(), Modified: e.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// LoadCorpus parses every non-empty definition in dir, in file name order.
// Each document's ID is its file name.
func (s *Store) LoadCorpus(dir string) ([]doctree.Document, error) {
	files, err := s.ListDefinitions(dir)
	if err != nil {
		return nil, err
	}
	docs := make([]doctree.Document, 0, len(files))
	for _, fi := range files {
		if fi.Size == 0 {
			continue
		}
		doc, err := s.loadDocument(filepath.Join(dir, fi.Name), fi.Name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *Store) loadDocument(path, name string) (*doctree.Document, error) {
	p, err := parser.ForFile(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return p.Parse(f, name)
}

// WriteReport stores rendered output under the output directory and returns
// its path.
func (s *Store) WriteReport(name string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.root, filepath.Base(name))
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// DeleteDefinition removes one definition file from dir. Names containing
// path separators are rejected.
func (s *Store) DeleteDefinition(dir, name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." {
		return fmt.Errorf("invalid definition name %q", name)
	}
	if !parser.IsSupportedExtension(name) {
		return fmt.Errorf("unsupported definition file %q", name)
	}
	path := filepath.Join(dir, name)
	if _, err := s.fs.Stat(path); err != nil {
		return fmt.Errorf("delete definition %s: %w", name, err)
	}
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("delete definition %s: %w", name, err)
	}
	return nil
}
