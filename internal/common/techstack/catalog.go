package techstack

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/domain"
)

// DefaultCategory is used for technologies the catalog does not know.
const DefaultCategory = "기타"

//go:embed catalog.yaml
var defaultCatalog []byte

// Entry is one catalogued technology.
type Entry struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Aliases  []string `yaml:"aliases,omitempty"`
}

// Catalog maps normalized tech names (and normalized aliases) to entries.
type Catalog struct {
	entries []Entry
	byKey   map[string]int
}

// Parse builds a catalog from YAML. Two entries claiming the same normalized
// name is an error.
func Parse(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse tech catalog: %w", err)
	}

	c := &Catalog{entries: entries, byKey: make(map[string]int, len(entries)*2)}
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Category) == "" {
			return nil, fmt.Errorf("tech catalog entry %d: name and category are required", i)
		}
		for _, name := range append([]string{e.Name}, e.Aliases...) {
			key := normalizer.NormalizeTechName(name)
			if key == "" {
				return nil, fmt.Errorf("tech catalog entry %q: %q has no normalized form", e.Name, name)
			}
			if j, ok := c.byKey[key]; ok && j != i {
				return nil, fmt.Errorf("tech catalog: %q of %q collides with %q", name, e.Name, entries[j].Name)
			}
			c.byKey[key] = i
		}
	}
	return c, nil
}

var loadDefault = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the embedded catalog.
func Default() *Catalog {
	return loadDefault()
}

// Len returns the number of catalogued technologies.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry for a raw name or alias.
func (c *Catalog) Lookup(raw string) (Entry, bool) {
	i, ok := c.byKey[normalizer.NormalizeTechName(raw)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Resolve maps a scraped name to a tech stack record. Known names and aliases
// resolve to the catalog's display name and the normalized form of that name,
// so "Golang" and "Go" share a row. Unknown names keep their own spelling
// under DefaultCategory. Names without a normalized form yield a zero record.
func (c *Catalog) Resolve(raw string) domain.TechStack {
	key := normalizer.NormalizeTechName(raw)
	if key == "" {
		return domain.TechStack{}
	}
	if i, ok := c.byKey[key]; ok {
		e := c.entries[i]
		return domain.TechStack{
			Name:           e.Name,
			Category:       e.Category,
			NormalizedName: normalizer.NormalizeTechName(e.Name),
		}
	}
	return domain.TechStack{
		Name:           clip(strings.TrimSpace(raw), 50),
		Category:       DefaultCategory,
		NormalizedName: clip(key, 100),
	}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
