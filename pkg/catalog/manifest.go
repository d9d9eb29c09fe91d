package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const manifestLogPrefix = "catalog:manifest"

// Version is the version of the compiled-in catalog.
const Version = "1.0.0"

// SupportedManifestVersions is the range of manifest catalogVersion values this build accepts.
const SupportedManifestVersions = ">= 1.0.0, < 2.0.0"

// Manifest is a deployment-time YAML file that rewords or withholds compiled-in capabilities.
//
//	catalogVersion: 1.1.0
//	capabilities:
//	  get_claims:
//	    description: List every claim filed for a member
//	  get_members_by_delta_riskscore:
//	    disabled: true
type Manifest struct {
	CatalogVersion string                        `yaml:"catalogVersion"`
	Capabilities   map[string]ManifestCapability `yaml:"capabilities"`
}

// ManifestCapability overrides one capability.
type ManifestCapability struct {
	Description string `yaml:"description"`
	Disabled    bool   `yaml:"disabled"`
}

// LoadManifest reads and version-checks a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s: %w", manifestLogPrefix, path, err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest and checks its catalogVersion against SupportedManifestVersions.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s - parse manifest: %w", manifestLogPrefix, err)
	}
	if strings.TrimSpace(m.CatalogVersion) == "" {
		return nil, fmt.Errorf("%s - catalogVersion is required", manifestLogPrefix)
	}
	v, err := masterminds.NewVersion(m.CatalogVersion)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid catalogVersion %q: %w", manifestLogPrefix, m.CatalogVersion, err)
	}
	constraint, err := masterminds.NewConstraint(SupportedManifestVersions)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid supported range: %w", manifestLogPrefix, err)
	}
	if !constraint.Check(v) {
		return nil, fmt.Errorf("%s - catalogVersion %s not in supported range %q", manifestLogPrefix, v, SupportedManifestVersions)
	}
	for name := range m.Capabilities {
		if _, ok := Parse(name); !ok {
			return nil, fmt.Errorf("%s - unknown capability %q", manifestLogPrefix, name)
		}
	}
	return &m, nil
}

// Apply returns entries with the manifest's descriptions and disabled capabilities applied.
// Order is preserved.
func (m *Manifest) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		override, ok := m.Capabilities[string(e.Capability)]
		if ok && override.Disabled {
			slog.Info(fmt.Sprintf("%s - %s disabled by manifest", manifestLogPrefix, e.Capability))
			continue
		}
		if ok && strings.TrimSpace(override.Description) != "" {
			e.Description = strings.TrimSpace(override.Description)
		}
		out = append(out, e)
	}
	return out
}

// Load builds the catalog from DefaultEntries, applying the manifest at path when non-empty.
func Load(manifestPath string) (*Catalog, error) {
	entries := DefaultEntries()
	if manifestPath != "" {
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		entries = m.Apply(entries)
		slog.Info(fmt.Sprintf("%s - applied manifest %s (catalogVersion %s)", manifestLogPrefix, manifestPath, m.CatalogVersion))
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s - catalog is empty", manifestLogPrefix)
	}
	return New(entries)
}
