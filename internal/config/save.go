package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Save writes cfg to the config file at Path(path). Keys already in the file
// that cfg does not render, such as alma.api_key, are kept; secrets held in
// cfg are never written.
func Save(cfg *Config, path string) error {
	rendered, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	var overlay map[string]any
	if err := yaml.Unmarshal(rendered, &overlay); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return update(path, func(doc map[string]any) {
		merge(doc, overlay)
	})
}

// SaveLastUsed records the selection of a successful run under report.* so
// the next Load starts from it. An empty circDesk removes report.circ_desk,
// which brings back the library's default desk.
func SaveLastUsed(path, library, circDesk string, columns []string) error {
	return update(path, func(doc map[string]any) {
		report := section(doc, "report")
		report["library"] = library
		if strings.TrimSpace(circDesk) == "" {
			delete(report, "circ_desk")
		} else {
			report["circ_desk"] = circDesk
		}
		cols := make([]any, len(columns))
		for i, c := range columns {
			cols[i] = c
		}
		report["columns"] = cols
	})
}

// SetLibraryDesk sets the default circulation desk of library, adding the
// library entry when it is missing.
func SetLibraryDesk(path, library, desk string) error {
	if strings.TrimSpace(library) == "" {
		return errors.New("library code is required")
	}
	return update(path, func(doc map[string]any) {
		libs, _ := doc["libraries"].([]any)
		for _, l := range libs {
			if entry, ok := l.(map[string]any); ok && entry["code"] == library {
				entry["default_circ_desk"] = desk
				return
			}
		}
		doc["libraries"] = append(libs, map[string]any{
			"code":              library,
			"default_circ_desk": desk,
		})
	})
}

// update reads the file at Path(path) (missing means empty), applies fn and
// writes it back.
func update(path string, fn func(doc map[string]any)) error {
	path = Path(path)

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	fn(doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// section returns doc[name] as a map, creating it when absent.
func section(doc map[string]any, name string) map[string]any {
	if m, ok := doc[name].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	doc[name] = m
	return m
}

// merge copies src into dst, descending into maps present on both sides.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				merge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}
