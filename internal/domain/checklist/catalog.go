// Package checklist holds the canonical Form C compliance catalog: the
// required Rule 201 disclosures and the itemized deficiencies reviewers look
// for, each tagged with a rule citation and a severity.
//
// A Catalog is immutable once loaded and safe for concurrent use.
package checklist

import (
	_ "embed"
	"errors"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultIntermediary fills IntermediaryPlaceholder when no other funding
// portal is configured.
const DefaultIntermediary = "DealMaker Securities LLC"

// IntermediaryPlaceholder in catalog text is replaced with the funding portal
// the review is done for.
const IntermediaryPlaceholder = "{{intermediary}}"

// ErrInvalidCatalog is returned when catalog data is malformed.
var ErrInvalidCatalog = errors.New("invalid checklist catalog")

//go:embed checklist.yaml
var defaultCatalogYAML []byte

// Item is one checkable requirement.
type Item struct {
	Category string   `json:"category"`
	Issue    string   `json:"issue"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
}

// Category groups items under a unique snake_case key.
type Category struct {
	Key   string `json:"key"`
	title string
	items []Item
}

// Title is the key rendered for humans, e.g. "Ownership Structure".
func (c Category) Title() string { return c.title }

// Items returns a copy of the category's items in authoring order.
func (c Category) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Disclosure is a group of Rule 201 disclosures an issuer must provide.
type Disclosure struct {
	Title        string   `json:"title"`
	Rules        string   `json:"rules"`
	Requirements []string `json:"requirements"`
}

type Catalog struct {
	version         string
	disclosures     []Disclosure
	categories      []Category
	inconsistencies []string
	rendered        string
	disclosureText  string
}

type rawCatalog struct {
	Version     string `yaml:"version"`
	Disclosures []struct {
		Title        string   `yaml:"title"`
		Rules        string   `yaml:"rules"`
		Requirements []string `yaml:"requirements"`
	} `yaml:"disclosures"`
	Inconsistencies []string `yaml:"inconsistencies"`
	Categories      []struct {
		Key   string `yaml:"key"`
		Items []struct {
			Issue    string `yaml:"issue"`
			Rule     string `yaml:"rule"`
			Severity string `yaml:"severity"`
			Check    string `yaml:"check"`
		} `yaml:"items"`
	} `yaml:"categories"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog embedded in the binary. It is parsed once.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(defaultCatalogYAML)
		if err != nil {
			panic(eris.Wrap(err, "checklist: embedded catalog"))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load parses and validates a YAML catalog. Malformed entries are rejected
// here rather than at use time.
func Load(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(ErrInvalidCatalog, "parse yaml: %v", err)
	}
	if strings.TrimSpace(raw.Version) == "" {
		return nil, eris.Wrap(ErrInvalidCatalog, "version is required")
	}
	if len(raw.Categories) == 0 {
		return nil, eris.Wrap(ErrInvalidCatalog, "at least one category is required")
	}

	caser := cases.Title(language.English)
	c := &Catalog{version: raw.Version}

	seen := make(map[string]bool, len(raw.Categories))
	for i, rc := range raw.Categories {
		key := strings.TrimSpace(rc.Key)
		if key == "" {
			return nil, eris.Wrapf(ErrInvalidCatalog, "category #%d: key is required", i+1)
		}
		if seen[key] {
			return nil, eris.Wrapf(ErrInvalidCatalog, "category %q: duplicate key", key)
		}
		seen[key] = true
		if len(rc.Items) == 0 {
			return nil, eris.Wrapf(ErrInvalidCatalog, "category %q: no items", key)
		}

		cat := Category{
			Key:   key,
			title: caser.String(strings.ReplaceAll(key, "_", " ")),
			items: make([]Item, 0, len(rc.Items)),
		}
		for j, ri := range rc.Items {
			item := Item{
				Category: key,
				Issue:    strings.TrimSpace(ri.Issue),
				Rule:     strings.TrimSpace(ri.Rule),
				Check:    strings.TrimSpace(ri.Check),
			}
			switch {
			case item.Issue == "":
				return nil, eris.Wrapf(ErrInvalidCatalog, "%s item #%d: issue is required", key, j+1)
			case item.Check == "":
				return nil, eris.Wrapf(ErrInvalidCatalog, "%s item #%d: check is required", key, j+1)
			case item.Rule == "":
				return nil, eris.Wrapf(ErrInvalidCatalog, "%s item #%d: rule is required", key, j+1)
			case strings.TrimSpace(ri.Severity) == "":
				return nil, eris.Wrapf(ErrInvalidCatalog, "%s item #%d: severity is required", key, j+1)
			}
			sev, err := ParseSeverity(ri.Severity)
			if err != nil {
				return nil, eris.Wrapf(err, "%s item #%d", key, j+1)
			}
			item.Severity = sev
			cat.items = append(cat.items, item)
		}
		c.categories = append(c.categories, cat)
	}

	for i, rd := range raw.Disclosures {
		if strings.TrimSpace(rd.Title) == "" || strings.TrimSpace(rd.Rules) == "" {
			return nil, eris.Wrapf(ErrInvalidCatalog, "disclosure #%d: title and rules are required", i+1)
		}
		reqs := make([]string, len(rd.Requirements))
		copy(reqs, rd.Requirements)
		c.disclosures = append(c.disclosures, Disclosure{
			Title:        strings.TrimSpace(rd.Title),
			Rules:        strings.TrimSpace(rd.Rules),
			Requirements: reqs,
		})
	}
	c.inconsistencies = append(c.inconsistencies, raw.Inconsistencies...)

	c.rendered = renderItems(c.categories)
	c.disclosureText = renderDisclosures(c.disclosures, c.inconsistencies)
	return c, nil
}

func (c *Catalog) Version() string { return c.version }

// Categories returns category keys in catalog order.
func (c *Catalog) Categories() []string {
	keys := make([]string, len(c.categories))
	for i, cat := range c.categories {
		keys[i] = cat.Key
	}
	return keys
}

// Category looks up a category by key.
func (c *Catalog) Category(key string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Items returns every item, category order then item order.
func (c *Catalog) Items() []Item {
	return c.filter(func(Item) bool { return true })
}

// ItemsBySeverity returns all items with exactly the given severity.
func (c *Catalog) ItemsBySeverity(sev Severity) []Item {
	return c.filter(func(it Item) bool { return it.Severity == sev })
}

// ItemsAtOrAbove returns items at least as severe as min.
func (c *Catalog) ItemsAtOrAbove(min Severity) []Item {
	return c.filter(func(it Item) bool { return it.Severity.AtLeast(min) })
}

// ItemsByRule returns items whose citation contains fragment. The match is a
// plain case-sensitive substring test.
func (c *Catalog) ItemsByRule(fragment string) []Item {
	return c.filter(func(it Item) bool { return strings.Contains(it.Rule, fragment) })
}

// Disclosures returns a copy of the required disclosure groups naming
// intermediary as the funding portal.
func (c *Catalog) Disclosures(intermediary string) []Disclosure {
	out := make([]Disclosure, len(c.disclosures))
	for i, d := range c.disclosures {
		reqs := make([]string, len(d.Requirements))
		for j, r := range d.Requirements {
			reqs[j] = withIntermediary(r, intermediary)
		}
		d.Requirements = reqs
		out[i] = d
	}
	return out
}

// Inconsistencies lists the cross-section conflicts reviewers must flag.
func (c *Catalog) Inconsistencies() []string {
	return append([]string(nil), c.inconsistencies...)
}

// Query narrows Select. Nil severities and an empty rule match everything.
type Query struct {
	Severity    *Severity
	MinSeverity *Severity
	Rule        string
}

// ParseQuery builds a Query from user supplied filter values.
func ParseQuery(severity, minSeverity, rule string) (Query, error) {
	q := Query{Rule: rule}
	if severity != "" {
		sev, err := ParseSeverity(severity)
		if err != nil {
			return Query{}, err
		}
		q.Severity = &sev
	}
	if minSeverity != "" {
		floor, err := ParseSeverity(minSeverity)
		if err != nil {
			return Query{}, eris.Wrapf(err, "min severity")
		}
		q.MinSeverity = &floor
	}
	return q, nil
}

// Select returns the items matching every set field of q, in catalog order.
func (c *Catalog) Select(q Query) []Item {
	return c.filter(func(it Item) bool {
		if q.Severity != nil && it.Severity != *q.Severity {
			return false
		}
		if q.MinSeverity != nil && !it.Severity.AtLeast(*q.MinSeverity) {
			return false
		}
		return strings.Contains(it.Rule, q.Rule)
	})
}

func (c *Catalog) filter(keep func(Item) bool) []Item {
	out := []Item{}
	for _, cat := range c.categories {
		for _, it := range cat.items {
			if keep(it) {
				out = append(out, it)
			}
		}
	}
	return out
}
