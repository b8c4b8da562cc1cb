package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ri/internal/ir"
)

// ManifestFile is the name of the owner manifest inside an owner directory.
const ManifestFile = "plugin.yaml"

// Manifest is the on-disk description of an owner.
//
//	name: Shop
//	version: 2.1.0
//	description: Storefront
//	ri: true
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
	RI          bool   `yaml:"ri"`
}

// ManifestError reports an unreadable or invalid manifest.
type ManifestError struct {
	Path    string
	Message string
	Err     error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// ParseManifest decodes a manifest. Unknown fields are rejected so typos in
// the capability flag don't silently disable an owner.
func ParseManifest(path string, data []byte) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, &ManifestError{Path: path, Message: "invalid manifest", Err: err}
	}
	if m.Name == "" {
		return Manifest{}, &ManifestError{Path: path, Message: "name is required"}
	}
	return m, nil
}

// ManifestRegistry lists owners from manifests under a plugins directory.
type ManifestRegistry struct {
	// Dir holds one subdirectory per owner.
	Dir string

	// Active lists active owner keys. Empty (with NetworkActive also empty)
	// means every owner with a manifest is active.
	Active []string

	// NetworkActive lists owners active for every tenant. Only consulted
	// when Multisite is true.
	NetworkActive []string

	Multisite bool
}

// ListActiveOwnersWithCapability returns active owners declaring the ri
// capability, in lexical key order. A missing Dir yields no owners.
func (r *ManifestRegistry) ListActiveOwnersWithCapability() ([]ir.Owner, error) {
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugins dir: %w", err)
	}

	active := r.activeSet()
	var owners []ir.Owner
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		key := e.Name()
		if active != nil && !active[key] {
			continue
		}

		path := filepath.Join(r.Dir, key, ManifestFile)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &ManifestError{Path: path, Message: "read manifest", Err: err}
		}
		m, err := ParseManifest(path, data)
		if err != nil {
			return nil, err
		}
		if !m.RI {
			continue
		}
		owners = append(owners, ir.Owner{
			Key:         key,
			Name:        m.Name,
			Version:     m.Version,
			Description: m.Description,
			RI:          m.RI,
		})
	}

	sort.Slice(owners, func(i, j int) bool { return owners[i].Key < owners[j].Key })
	return owners, nil
}

// activeSet returns nil when every owner counts as active.
func (r *ManifestRegistry) activeSet() map[string]bool {
	keys := append([]string(nil), r.Active...)
	if r.Multisite {
		keys = append(keys, r.NetworkActive...)
	}
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
