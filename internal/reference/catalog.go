package reference

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDocBaseURL      = "https://hl7-definition.caristix.com/v2"
	DefaultStandardVersion = "HL7v2.5.1"
)

//go:embed segments.toml
var segmentsTOML string

// Entry describes one segment code in the reference table.
type Entry struct {
	Code        string `toml:"code" json:"code"`
	Name        string `toml:"name" json:"name"`
	Description string `toml:"description" json:"description"`
	Usage       string `toml:"usage" json:"usage"`
}

// Catalog is an immutable list of entries keyed by code.
type Catalog struct {
	entries []Entry
	byCode  map[string]int
}

type catalogFile struct {
	Segments []Entry `toml:"segment"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, decoded on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(segmentsTOML)
	})
	return defaultCatalog, defaultErr
}

// Parse decodes a TOML catalog document. Codes must be unique and non-empty.
func Parse(doc string) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.Decode(doc, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Segments)
}

// New builds a catalog from entries, keeping their order.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, len(entries)),
		byCode:  make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)
	for i, e := range c.entries {
		if e.Code == "" {
			return nil, fmt.Errorf("catalog entry %d has no code", i)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("duplicate catalog code %q", e.Code)
		}
		c.byCode[e.Code] = i
	}
	return c, nil
}

// All returns a copy of every entry in catalog order.
func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry for code.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Filter returns the entries whose code, name or description contains term,
// ignoring case. A blank term returns every entry.
func (c *Catalog) Filter(term string) []Entry {
	if strings.TrimSpace(term) == "" {
		return c.All()
	}
	needle := strings.ToLower(term)
	var out []Entry
	for _, e := range c.entries {
		if e.Matches(needle) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether the lower-cased needle occurs in the entry's code,
// name or description. Usage notes are not searched.
func (e Entry) Matches(needle string) bool {
	return strings.Contains(strings.ToLower(e.Code), needle) ||
		strings.Contains(strings.ToLower(e.Name), needle) ||
		strings.Contains(strings.ToLower(e.Description), needle)
}

// DocURL builds the documentation link for a segment code:
// <base>/<version>/Segments/<code>. Empty base or version use the defaults.
func DocURL(base, version, code string) string {
	if base == "" {
		base = DefaultDocBaseURL
	}
	if version == "" {
		version = DefaultStandardVersion
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(version) + "/Segments/" + url.PathEscape(code)
}
