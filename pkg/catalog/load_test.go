package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
catalogs:
  - name: shop
    title: Co-op Supplies
    search_fields: [name, vendor]
    category_match: exact
    purchasable: true
    items:
      - id: coop-1
        name: Bale Twine
        vendor: Valley Co-op
        category: Tools
        price: 18.5
        price_label: "$18.50"
        available: true
  - name: seedbank
    title: Seed Bank
    search_fields: [name]
    category_match: exact
    location_match: contains
    items:
      - id: sb-1
        name: Dryland Wheat
        category: Grains
        location: Kansas
        price: 0
        price_label: free
        available: true
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{Land, Marketplace, "seedbank", Shop}, r.Names())

	shop, err := r.Get(Shop)
	require.NoError(t, err)
	assert.Equal(t, "Co-op Supplies", shop.Title)
	require.Len(t, shop.Items, 1)
	assert.Equal(t, 18.5, shop.Items[0].Price)
	assert.Equal(t, []string{"coop-1"}, ids(shop.Filter(Criteria{SearchTerm: "valley"})))

	sb, err := r.Get("seedbank")
	require.NoError(t, err)
	assert.Equal(t, []string{"sb-1"}, ids(sb.Filter(Criteria{Location: "Kan"})))

	mkt, _ := r.Get(Marketplace)
	assert.Len(t, mkt.Items, 6, "catalogs absent from the file keep their builtin items")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("catalogs:\n  - name: x\n    colour: red\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = Load(strings.NewReader("catalogs:\n  - name: x\n    items:\n      - id: a\n      - id: a\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyDocumentKeepsBuiltins(t *testing.T) {
	r, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Len(t, r.Names(), 3)
}
