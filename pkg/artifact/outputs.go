package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
)

// WriteLines writes one string per line.
func WriteLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePoolText writes the pool's real queries one per line.
func WritePoolText(path string, p *pool.Pool) error {
	return WriteLines(path, p.Queries())
}

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(kind, path string, v any) error {
	f, err := open(kind, path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return &ParseError{Kind: kind, Path: path, Cause: err}
	}
	return nil
}

// WriteSideIndex writes the real-query side index as JSON.
func WriteSideIndex(path string, idx pattern.SideIndex) error {
	return WriteJSON(path, idx)
}

// LoadSideIndex reads a side index written by WriteSideIndex.
func LoadSideIndex(path string) (pattern.SideIndex, error) {
	idx := make(pattern.SideIndex)
	if err := ReadJSON("side index", path, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}
