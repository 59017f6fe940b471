package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Len(t, c.Sections, 3)

	ecos := c.Sections[0]
	assert.Equal(t, "ecos", ecos.Source)
	assert.True(t, ecos.Required)
	assert.Equal(t, "M", ecos.Cycle)
	assert.Equal(t, []string{
		"Date", "BaseRate(%)", "CoreCPI(2020=100)", "USD/KRW(Avg)",
		"Export(Mil$)", "Import(Mil$)", "MortgageLoan(Bil KRW)",
	}, ecos.Columns())
	assert.Equal(t, "0000001/0000100", ecos.Series[2].Item)
	assert.Equal(t, "0101000", ecos.Series[0].Item)

	fred := c.Sections[1]
	assert.Equal(t, "fred", fred.Source)
	assert.False(t, fred.Required)
	assert.True(t, fred.OmitEmpty)
	assert.Equal(t, "FEDFUNDS", fred.Series[0].ID)

	wb := c.Sections[2]
	assert.Equal(t, "Year", wb.PeriodLabel)
	assert.Equal(t, "2023", wb.Start)
	assert.Len(t, wb.Series, 4)

	assert.Equal(t, 12, c.SeriesCount())
}

func TestParseCatalogDefaultsAndValidation(t *testing.T) {
	c, err := ParseCatalog([]byte(`
sections:
  - title: only ecos
    source: ecos
    start: "202401"
    end: "202406"
    series:
      - label: BaseRate(%)
        table: 722Y001
        item: "0101000"
`))
	require.NoError(t, err)
	assert.Equal(t, "Date", c.Sections[0].PeriodLabel)
	assert.Equal(t, "M", c.Sections[0].Cycle)

	_, err = ParseCatalog([]byte(`
sections:
  - title: broken
    source: fred
    start: "2024-01-01"
    end: "2024-06-01"
    series:
      - label: no id
`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`sections: []`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`
sections:
  - title: unknown
    source: imf
    start: "2024"
    end: "2025"
    series:
      - label: x
        id: y
`))
	assert.Error(t, err)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sections:
  - title: US
    source: fred
    start: "2024-01-01"
    end: "2024-12-31"
    series:
      - label: FedFundsRate(%)
        id: FEDFUNDS
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "US", c.Sections[0].Title)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Sections, 3)
}
