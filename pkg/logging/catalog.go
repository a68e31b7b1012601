package logging

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// DefaultGroupName labels messages routed through the default tiers.
const DefaultGroupName = "Default"

// Group binds a path prefix to a set of policy tiers.
type Group struct {
	Name   string `json:"name" yaml:"name"`
	Prefix string `json:"prefix" yaml:"prefix"`
	Tiers  Tiers  `json:"tiers" yaml:"tiers"`
}

// NewGroup creates a group with the default tiers.
func NewGroup(name, prefix string) Group {
	return Group{Name: name, Prefix: prefix, Tiers: DefaultTiers()}
}

// CatalogMalformedError reports an invalid group catalog. Routing degrades
// to the default tiers when it occurs.
type CatalogMalformedError struct {
	Group  string
	Prefix string
	Reason string
}

func (e *CatalogMalformedError) Error() string {
	switch {
	case e.Group != "" && e.Prefix != "":
		return fmt.Sprintf("malformed log catalog: group %q (prefix %q): %s", e.Group, e.Prefix, e.Reason)
	case e.Group != "":
		return fmt.Sprintf("malformed log catalog: group %q: %s", e.Group, e.Reason)
	default:
		return fmt.Sprintf("malformed log catalog: %s", e.Reason)
	}
}

// NormalizePath converts separators to '/', lower-cases, collapses
// duplicate separators and drops any trailing separator. An empty or "."
// path normalizes to "".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if p == "." {
		return ""
	}
	return strings.ToLower(p)
}

// hasPathPrefix reports whether prefix covers p on a segment boundary.
// Both arguments must already be normalized.
func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return strings.HasPrefix(p, "/")
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}

// Catalog is an immutable, ordered set of groups. Groups are kept sorted
// by descending prefix length so the first match is the most specific.
type Catalog struct {
	groups []Group
}

// NewCatalog validates and sorts groups. Prefixes are normalized and must
// be unique.
func NewCatalog(groups ...Group) (*Catalog, error) {
	seen := make(map[string]string, len(groups))
	sorted := make([]Group, 0, len(groups))

	for _, g := range groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, &CatalogMalformedError{Prefix: g.Prefix, Reason: "group name is empty"}
		}
		prefix := NormalizePath(g.Prefix)
		if prefix == "" {
			return nil, &CatalogMalformedError{Group: name, Reason: "prefix is empty"}
		}
		if other, dup := seen[prefix]; dup {
			return nil, &CatalogMalformedError{
				Group:  name,
				Prefix: prefix,
				Reason: fmt.Sprintf("prefix already bound to group %q", other),
			}
		}
		seen[prefix] = name
		sorted = append(sorted, Group{Name: name, Prefix: prefix, Tiers: g.Tiers})
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].Prefix) != len(sorted[j].Prefix) {
			return len(sorted[i].Prefix) > len(sorted[j].Prefix)
		}
		return sorted[i].Prefix < sorted[j].Prefix
	})

	return &Catalog{groups: sorted}, nil
}

// Match returns the most specific group covering callerPath.
func (c *Catalog) Match(callerPath string) (Group, bool) {
	if c == nil {
		return Group{}, false
	}
	p := NormalizePath(callerPath)
	if p == "" {
		return Group{}, false
	}
	for _, g := range c.groups {
		if hasPathPrefix(p, g.Prefix) {
			return g, true
		}
	}
	return Group{}, false
}

// Groups returns a copy of the groups in match order.
func (c *Catalog) Groups() []Group {
	if c == nil {
		return nil
	}
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Len returns the number of groups.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.groups)
}
