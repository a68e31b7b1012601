package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iskaald/icecold/pkg/logging"
)

// CatalogFile is the on-disk form of an external log group catalog.
//
//	defaults:
//	  release: {info: false, warning: true, error: true}
//	groups:
//	  - name: Audio
//	    prefix: /src/audio
type CatalogFile struct {
	Defaults *logging.Tiers `yaml:"defaults,omitempty"`
	Groups   []GroupConfig  `yaml:"groups"`
}

// ReadCatalogFile parses a catalog file. Unknown keys are rejected.
func ReadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var cf CatalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, &logging.CatalogMalformedError{Reason: fmt.Sprintf("%s: %v", path, err)}
	}
	return &cf, nil
}

// WriteCatalogFile saves cf as YAML.
func WriteCatalogFile(cf *CatalogFile, path string) error {
	data, err := yaml.Marshal(cf)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func inlineGroups(groups []GroupConfig) []logging.Group {
	out := make([]logging.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.toGroup())
	}
	return out
}

func (g GroupConfig) toGroup() logging.Group {
	lg := logging.NewGroup(g.Name, g.Prefix)
	if g.Tiers != nil {
		lg.Tiers = *g.Tiers
	}
	return lg
}

// CatalogSource builds the routing table from the log_routing section. It
// implements logging.CatalogSource.
type CatalogSource struct {
	cfg LogRoutingConfig
}

// NewCatalogSource returns a catalog source for cfg.
func NewCatalogSource(cfg LogRoutingConfig) *CatalogSource {
	return &CatalogSource{cfg: cfg}
}

// LoadCatalog merges inline groups with those from the catalog file. Defaults
// in the catalog file take precedence over log_routing.defaults.
//
// The returned tiers are always usable, even alongside an error, so callers
// can degrade to default-only routing.
func (s *CatalogSource) LoadCatalog() (*logging.Catalog, logging.Tiers, error) {
	defaults := s.cfg.DefaultTiers()
	groups := inlineGroups(s.cfg.Groups)

	if s.cfg.CatalogFile != "" {
		cf, err := ReadCatalogFile(s.cfg.CatalogFile)
		if err != nil {
			return nil, defaults, err
		}
		if cf.Defaults != nil {
			defaults = *cf.Defaults
		}
		groups = append(groups, inlineGroups(cf.Groups)...)
	}

	catalog, err := logging.NewCatalog(groups...)
	if err != nil {
		return nil, defaults, err
	}
	return catalog, defaults, nil
}

var _ logging.CatalogSource = (*CatalogSource)(nil)
