package persona

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKeyNotFound is returned when looking up an unknown persona name
var ErrKeyNotFound = errors.New("persona not found")

// Catalog is a read-only table of persona profiles.
// It keeps declaration order for listing and is safe for concurrent use.
type Catalog struct {
	profiles []Profile
	index    map[string]int
	defaults []string
}

// NewCatalog validates the profiles and builds a catalog
func NewCatalog(profiles []Profile, defaults []string) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("persona catalog cannot be empty")
	}

	c := &Catalog{
		profiles: make([]Profile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}

	for _, p := range profiles {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("persona name cannot be empty")
		}
		if _, exists := c.index[p.Name]; exists {
			return nil, fmt.Errorf("duplicate persona name: %s", p.Name)
		}
		c.index[p.Name] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}

	for _, name := range defaults {
		if _, ok := c.index[name]; !ok {
			return nil, fmt.Errorf("default selection %q: %w", name, ErrKeyNotFound)
		}
	}
	c.defaults = append([]string(nil), defaults...)

	return c, nil
}

// Lookup returns the profile with the given name
func (c *Catalog) Lookup(name string) (Profile, error) {
	i, ok := c.index[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return c.profiles[i], nil
}

// Exists reports whether a persona with the given name exists
func (c *Catalog) Exists(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Names returns persona names in declaration order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.profiles))
	for i, p := range c.profiles {
		names[i] = p.Name
	}
	return names
}

// Profiles returns a copy of all profiles in declaration order
func (c *Catalog) Profiles() []Profile {
	return append([]Profile(nil), c.profiles...)
}

// DefaultSelection returns the personas preselected in a new session
func (c *Catalog) DefaultSelection() []string {
	return append([]string(nil), c.defaults...)
}

// Resolve looks up names in the given order, dropping repeats
func (c *Catalog) Resolve(names []string) ([]Profile, error) {
	seen := make(map[string]bool, len(names))
	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		p, err := c.Lookup(name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
