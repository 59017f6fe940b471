package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dyike/MacroAgent/consts"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog lists the table sections a run fetches and renders.
type Catalog struct {
	Sections []Section `yaml:"sections" validate:"min=1,dive"`
}

// Section is one rendered table: a single source, a shared period range and
// the series that become its value columns. A Required section with no
// aligned rows aborts the run; an OmitEmpty section is left out of the
// rendered text instead.
type Section struct {
	Title       string       `yaml:"title" validate:"required"`
	Source      string       `yaml:"source" validate:"oneof=ecos fred worldbank"`
	PeriodLabel string       `yaml:"period_label"`
	Required    bool         `yaml:"required"`
	OmitEmpty   bool         `yaml:"omit_empty"`
	Cycle       string       `yaml:"cycle"`
	Start       string       `yaml:"start" validate:"required"`
	End         string       `yaml:"end" validate:"required"`
	Series      []SeriesSpec `yaml:"series" validate:"min=1,dive"`
}

// SeriesSpec identifies one series. ECOS uses Table and Item, FRED uses ID,
// World Bank uses Country and ID (the indicator code).
type SeriesSpec struct {
	Label   string `yaml:"label" validate:"required"`
	Table   string `yaml:"table"`
	Item    string `yaml:"item"`
	ID      string `yaml:"id"`
	Country string `yaml:"country"`
}

// Columns returns the header row: the period label followed by the series
// labels.
func (s Section) Columns() []string {
	cols := make([]string, 0, len(s.Series)+1)
	cols = append(cols, s.PeriodLabel)
	for _, spec := range s.Series {
		cols = append(cols, spec.Label)
	}
	return cols
}

// SeriesCount returns the number of series across all sections.
func (c *Catalog) SeriesCount() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Series)
	}
	return n
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) normalize() {
	for i := range c.Sections {
		s := &c.Sections[i]
		if s.PeriodLabel == "" {
			s.PeriodLabel = "Date"
		}
		if s.Source == consts.SourceECOS && s.Cycle == "" {
			s.Cycle = "M"
		}
	}
}

func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	for _, s := range c.Sections {
		for _, spec := range s.Series {
			var ok bool
			switch s.Source {
			case consts.SourceECOS:
				ok = spec.Table != "" && spec.Item != ""
			case consts.SourceFRED:
				ok = spec.ID != ""
			case consts.SourceWorldBank:
				ok = spec.ID != "" && spec.Country != ""
			}
			if !ok {
				return fmt.Errorf("invalid catalog: series %q in %q lacks identifiers for %s", spec.Label, s.Title, s.Source)
			}
		}
	}
	return nil
}
