package resolver

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

func testCatalog(t *testing.T, yml string) *source.Catalog {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yml)))
	catalog, err := source.FromViper(v)
	require.NoError(t, err)
	return catalog
}

const registryYAML = `
sources:
  plain.dom:
    country: de
    kind: dom
    search_uri: {base_uri: {standard: "https://plain.dom/jobs"}}
    selectors: {list_item: "li.job"}
  irregular.api:
    country: de
    kind: api
    needs_override: true
    search_uri: {base_uri: {standard: "https://irregular.api/search"}}
    field_paths: {items: {path: "jobs"}}
`

func TestRegistryMissingOverrideIsHardError(t *testing.T) {
	t.Parallel()

	catalog := testCatalog(t, registryYAML)
	_, err := NewRegistry(catalog, nil, zap.NewNop())
	require.ErrorIs(t, err, harvest.ErrOverrideMissing)
	require.Contains(t, err.Error(), "irregular.api")
}

func TestRegistryDispatchesOverride(t *testing.T) {
	t.Parallel()

	catalog := testCatalog(t, registryYAML)
	overrides := map[string]OverrideFunc{
		"irregular.api": func(cfg *source.Config, item any) (string, error) {
			slug := item.(map[string]any)["slug"].(string)
			return "https://irregular.api/o/x-" + slug + "-x", nil
		},
	}
	reg, err := NewRegistry(catalog, overrides, zap.NewNop())
	require.NoError(t, err)

	detail, ok := reg.Detail("irregular.api")
	require.True(t, ok)
	got, err := detail.DetailURL(map[string]any{"slug": "42"})
	require.NoError(t, err)
	require.Equal(t, "https://irregular.api/o/x-42-x", got)

	// DOM sources never get a detail resolver.
	_, ok = reg.Detail("plain.dom")
	require.False(t, ok)

	search, ok := reg.Search("plain.dom")
	require.True(t, ok)
	require.Equal(t, "plain.dom", search.Source())
}
