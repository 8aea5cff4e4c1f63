// Package model loads shape scripts from a models directory. A model is
// a .star file; its name is the file name without the extension.
package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the file extension of model scripts.
const Ext = ".star"

// Model is one script file.
type Model struct {
	// Name is derived from the file name (e.g. "gear" from "gear.star")
	Name string
	// Path is the path the source was read from
	Path string
	// Source is the script text
	Source string
}

// Loader scans a directory for model scripts.
type Loader struct {
	dir string
}

// NewLoader creates a loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the models directory.
func (l *Loader) Dir() string { return l.dir }

// Load reads every model in the directory, sorted by name. A missing
// directory yields no models and no error.
func (l *Loader) Load() ([]*Model, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access models directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("failed to scan models directory: %w", err)
	}
	sort.Strings(files)

	models := make([]*Model, 0, len(files))
	for _, file := range files {
		m, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// Get loads the model called name from the directory.
func (l *Loader) Get(name string) (*Model, error) {
	if err := validateName(name); err != nil {
		return nil, &LoadError{File: name + Ext, Message: err.Error()}
	}
	return loadFile(filepath.Join(l.dir, name+Ext))
}

// Resolve finds a model by reference: an existing file path is loaded
// directly, anything else is treated as a model name inside dir.
func Resolve(dir, ref string) (*Model, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return loadFile(ref)
	}
	return NewLoader(dir).Get(strings.TrimSuffix(ref, Ext))
}

func loadFile(path string) (*Model, error) {
	name := strings.TrimSuffix(filepath.Base(path), Ext)
	if err := validateName(name); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	content, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-selected model file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{File: path, Message: "model not found", Err: err}
		}
		return nil, &LoadError{File: path, Message: "failed to read file", Err: err}
	}

	return &Model{Name: name, Path: path, Source: string(content)}, nil
}

// validateName accepts letters, digits, '_' and '-', starting with a
// letter or '_'.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	for i, r := range name {
		switch {
		case isLetter(r) || r == '_':
		case i > 0 && (isDigit(r) || r == '-'):
		case i == 0:
			return fmt.Errorf("model name must start with letter or underscore: %s", name)
		default:
			return fmt.Errorf("model name contains invalid character: %s", name)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError represents an error loading a model file.
type LoadError struct {
	File    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("models/%s: %s: %v", filepath.Base(e.File), e.Message, e.Err)
	}
	return fmt.Sprintf("models/%s: %s", filepath.Base(e.File), e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }
