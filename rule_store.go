package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileRuleStore keeps the rule document on local disk. Paths ending in .yaml
// or .yml are read and written as YAML, everything else as JSON.
type FileRuleStore struct {
	Path string
}

func NewFileRuleStore(path string) *FileRuleStore {
	return &FileRuleStore{Path: filepath.Clean(path)}
}

func (s *FileRuleStore) isYAML() bool {
	switch trimmedLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (s *FileRuleStore) LoadInto(dst *RuleSnapshot) (bool, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read rule config: %w", err)
	}
	if s.isYAML() {
		err = yaml.Unmarshal(data, dst)
	} else {
		err = json.Unmarshal(data, dst)
	}
	if err != nil {
		return false, fmt.Errorf("decode rule config %s: %w", s.Path, err)
	}
	return true, nil
}

func (s *FileRuleStore) Save(snapshot RuleSnapshot) error {
	var (
		data []byte
		err  error
	)
	if s.isYAML() {
		data, err = yaml.Marshal(snapshot)
	} else {
		data, err = json.MarshalIndent(snapshot, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode rule config: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create rule config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".gamelite-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp rule config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write rule config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close rule config: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace rule config: %w", err)
	}
	return nil
}
