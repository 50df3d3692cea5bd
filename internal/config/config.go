// SPDX-License-Identifier: Apache-2.0

// Package config loads store definitions from TOML, YAML or JSON files.
//
// The format follows the file extension (.yaml/.yml, .json, anything else is
// TOML). Unknown fields are rejected in every format. Several files merge by
// store name, later files replacing earlier definitions.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	storeerr "github.com/akihiro/storectl/internal/errors"
	"github.com/akihiro/storectl/internal/store"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// File is the top-level shape of a configuration file.
type File struct {
	Stores map[string]store.Record `toml:"stores" yaml:"stores" json:"stores"`
}

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from path's extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

// DefaultDir returns the XDG config directory for storectl.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "storectl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storectl"
	}
	return filepath.Join(home, ".config", "storectl")
}

// DefaultPath is config.toml inside DefaultDir.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Load reads and merges paths in order. Every path must exist.
func Load(paths ...string) (*File, error) {
	merged := &File{Stores: map[string]store.Record{}}
	for _, p := range paths {
		f, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		merged.merge(f)
	}
	return merged, nil
}

// LoadDefault reads DefaultPath, treating a missing file as empty.
func LoadDefault() (*File, error) {
	p := DefaultPath()
	f, err := ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no configuration file", "path", p)
		return &File{Stores: map[string]store.Record{}}, nil
	}
	return f, err
}

// ReadFile reads one configuration file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.CodeConfigLoadFailure, "read configuration",
			storeerr.Field("path", path))
	}
	f, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, storeerr.With(err, storeerr.Field("path", path))
	}
	slog.Debug("configuration loaded", "path", path, "stores", len(f.Stores))
	return f, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&f); errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err = dec.Decode(&f); errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&f)
	}
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.CodeConfigParseInvalidFormat,
			"parse "+string(format)+" configuration", storeerr.Field("format", string(format)))
	}
	if f.Stores == nil {
		f.Stores = map[string]store.Record{}
	}
	return &f, nil
}

func (f *File) merge(other *File) {
	maps.Copy(f.Stores, other.Stores)
}

// Registry resolves every configured store.
func (f *File) Registry() (*store.Registry, error) {
	return store.NewRegistry(f.Stores)
}

// Marshal encodes f in the given format.
func Marshal(f *File, format Format) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatYAML:
		out, err = yaml.Marshal(f)
	case FormatJSON:
		out, err = json.MarshalIndent(f, "", "  ")
	default:
		out, err = toml.Marshal(f)
	}
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.CodeConfigParseInvalidFormat,
			"encode "+string(format)+" configuration")
	}
	return out, nil
}
