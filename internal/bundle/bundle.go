// Package bundle exports and imports a prompt's versions as a single
// JSON or YAML document, for sharing versions between data directories.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/store"
)

// Format selects the bundle encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatAuto picks the format from the file extension, defaulting
	// to JSON.
	FormatAuto Format = ""
)

// Bundle is the exported document.
type Bundle struct {
	PromptName string    `json:"prompt_name" yaml:"prompt_name"`
	ExportDate time.Time `json:"export_date" yaml:"export_date"`
	Versions   []Version `json:"versions" yaml:"versions"`
}

// Version is one exported prompt version, optionally with the summary of
// its recorded metrics.
type Version struct {
	Version        string           `json:"version" yaml:"version"`
	SystemPrompt   string           `json:"system_prompt" yaml:"system_prompt"`
	UserPrompt     string           `json:"user_prompt" yaml:"user_prompt"`
	Metadata       map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at" yaml:"created_at"`
	MetricsSummary *metrics.Summary `json:"metrics_summary,omitempty" yaml:"metrics_summary,omitempty"`
}

// resolve maps FormatAuto to a concrete format using the file extension.
func resolve(format Format, path string) (Format, error) {
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return FormatYAML, nil
		default:
			return FormatJSON, nil
		}
	}
	if format != FormatJSON && format != FormatYAML {
		return "", fmt.Errorf("unsupported bundle format: %s", format)
	}
	return format, nil
}

// Export collects every version of a prompt (newest first, as the store
// lists them) and writes the bundle to path. With summaries enabled each
// version carries the summary of its stored records.
func Export(ctx context.Context, s *store.Store, prompt, path string, format Format, summaries bool) (Bundle, error) {
	entries, err := s.ListVersions(ctx, prompt)
	if err != nil {
		return Bundle{}, err
	}
	if len(entries) == 0 {
		return Bundle{}, fmt.Errorf("%w: prompt %s", store.ErrNotFound, prompt)
	}

	b := Bundle{
		PromptName: prompt,
		ExportDate: time.Now().UTC(),
		Versions:   make([]Version, 0, len(entries)),
	}
	for _, entry := range entries {
		v := Version{
			Version:      entry.Version,
			SystemPrompt: entry.SystemPrompt,
			UserPrompt:   entry.UserPrompt,
			Metadata:     entry.Metadata,
			CreatedAt:    entry.CreatedAt,
		}
		if summaries {
			records, err := s.Records(ctx, prompt, entry.Version)
			if err != nil {
				return Bundle{}, err
			}
			if len(records) > 0 {
				summary := metrics.Summarize(records)
				v.MetricsSummary = &summary
			}
		}
		b.Versions = append(b.Versions, v)
	}

	if err := Write(b, path, format); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// Write encodes the bundle to path in the given (or inferred) format.
func Write(b Bundle, path string, format Format) error {
	format, err := resolve(format, path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(b)
	default:
		data, err = json.MarshalIndent(b, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// Read parses a bundle file in the given (or inferred) format.
func Read(path string, format Format) (Bundle, error) {
	format, err := resolve(format, path)
	if err != nil {
		return Bundle{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle: %w", err)
	}

	var b Bundle
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &b)
	default:
		err = json.Unmarshal(data, &b)
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	if b.PromptName == "" {
		return Bundle{}, fmt.Errorf("bundle has no prompt_name")
	}
	return b, nil
}

// Import saves a bundle's versions into the store and reports how many
// were imported. Existing versions are skipped unless overwrite is set.
func Import(ctx context.Context, s *store.Store, path string, format Format, overwrite bool) (string, int, error) {
	b, err := Read(path, format)
	if err != nil {
		return "", 0, err
	}

	imported := 0
	for _, v := range b.Versions {
		entry := store.VersionEntry{
			Name:         b.PromptName,
			Version:      v.Version,
			SystemPrompt: v.SystemPrompt,
			UserPrompt:   v.UserPrompt,
			Metadata:     v.Metadata,
			CreatedAt:    v.CreatedAt,
		}
		err := s.SaveVersion(ctx, entry, overwrite)
		if errors.Is(err, store.ErrVersionExists) {
			continue
		}
		if err != nil {
			return b.PromptName, imported, err
		}
		imported++
	}
	return b.PromptName, imported, nil
}
