package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadListingsJSONList(t *testing.T) {
	path := writeFile(t, "listings.json", `[
		{"title": "Toyota Yaris", "make": "Toyota", "model": "Yaris", "year": 2012, "price": 3995, "url": "u1"},
		{"title": "Ford Fiesta", "make": "Ford", "model": "Fiesta", "year": 2015, "price": 5495, "url": "u2"}
	]`)

	listings, err := LoadListings(path)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Yaris", listings[0].Model)
	assert.Equal(t, 5495.0, listings[1].Price)
	assert.Equal(t, 1, listings[1].Seq)
}

func TestLoadListingsYAMLWrapper(t *testing.T) {
	path := writeFile(t, "listings.yaml", `
listings:
  - title: Honda Jazz
    make: Honda
    model: Jazz
    year: 2014
    mileage: 48000
    url: u3
    features: [Bluetooth, Cruise Control]
`)

	listings, err := LoadListings(path)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 48000, listings[0].Mileage)
	assert.Equal(t, []string{"Bluetooth", "Cruise Control"}, listings[0].Features)
}

func TestLoadReferencesBothForms(t *testing.T) {
	yamlPath := writeFile(t, "refs.yml", `
- source: consumer_reports
  make: Toyota
  model: Yaris
  year: 2012
  reliability:
    - {component: engine, score: 4.8}
  issues:
    - title: Water pump failure
      component: engine
      severity: moderate
      onset_mileage: 60000
`)
	records, err := LoadReferences(yamlPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "consumer_reports", records[0].Source)
	require.Len(t, records[0].Issues, 1)
	assert.Equal(t, 60000, records[0].Issues[0].OnsetMileage)

	jsonPath := writeFile(t, "refs.json", `{"references": [{"source": "a", "make": "Ford", "model": "Ka", "year": 2010}]}`)
	records, err = LoadReferences(jsonPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ka", records[0].Model)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "listings.txt", "nope")
	_, err := LoadListings(path)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "listings.json", "  \n")
	listings, err := LoadListings(path)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestLoadMalformed(t *testing.T) {
	path := writeFile(t, "listings.json", `{"listings": [`)
	_, err := LoadListings(path)
	assert.Error(t, err)
}
