package slots

import (
	"strings"

	"quote-orchestrator/internal/textnorm"
)

// DefaultJobTypes is the fixed job-type catalog offered to operators.
var DefaultJobTypes = []string{
	"Instalación",
	"Mantenimiento preventivo",
	"Mantenimiento correctivo",
	"Reparación",
	"Service",
	"Relevamiento técnico",
	"Desinstalación",
	"Urgencia",
}

// Catalog resolves free text onto one canonical option.
type Catalog struct {
	options []string
	index   map[string]string
}

// NewCatalog builds a catalog over the given canonical names.
func NewCatalog(options ...string) *Catalog {
	c := &Catalog{
		options: make([]string, 0, len(options)),
		index:   make(map[string]string, len(options)),
	}
	for _, opt := range options {
		key := textnorm.Normalize(opt)
		if key == "" {
			continue
		}
		if _, dup := c.index[key]; dup {
			continue
		}
		c.options = append(c.options, opt)
		c.index[key] = opt
	}
	return c
}

// Options returns the canonical names in catalog order.
func (c *Catalog) Options() []string {
	out := make([]string, len(c.options))
	copy(out, c.options)
	return out
}

// Resolve matches text against the catalog by exact normalized comparison.
func (c *Catalog) Resolve(text string) (string, bool) {
	opt, ok := c.index[textnorm.Normalize(text)]
	return opt, ok
}

// Canonical accepts candidate only when it equals an option case-insensitively.
func (c *Catalog) Canonical(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	for _, opt := range c.options {
		if strings.EqualFold(opt, candidate) {
			return opt, true
		}
	}
	return "", false
}
