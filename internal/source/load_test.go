package source

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/harvest"
)

func catalogFromYAML(t *testing.T, yml string) (*Catalog, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yml)))
	return FromViper(v)
}

func TestLoadValidDOMSource(t *testing.T) {
	t.Parallel()

	catalog, err := catalogFromYAML(t, `
sources:
  pracuj.pl:
    country: pl
    kind: dom
    engine: browser
    crawl_delay: 3s
    search_uri:
      base_uri:
        standard: "https://www.pracuj.pl/praca"
        sorted_latest_first: "https://www.pracuj.pl/praca?od=najnowszych"
      keywords:
        param: kw
        separator: ","
      pagination:
        placement: query
        param: pn
    selectors:
      list_item: "div.offer"
      title:
        selector: "h2.offer-title"
        mandatory: true
      detail_link:
        selector: "a.offer-link"
        attr: href
`)
	require.NoError(t, err)

	cfg, ok := catalog.Get("pracuj.pl")
	require.True(t, ok)
	require.Equal(t, "pl", cfg.Country)
	require.Equal(t, KindDOM, cfg.Kind)
	require.Equal(t, harvest.EngineBrowser, cfg.Engine)
	require.Equal(t, "pn", cfg.SearchURI.Pagination.Param)
	require.NotNil(t, cfg.Selectors)
	require.Nil(t, cfg.FieldPaths)
	require.True(t, cfg.Selectors.Title.Mandatory)
}

func TestLoadMissingStandardBaseURI(t *testing.T) {
	t.Parallel()

	_, err := catalogFromYAML(t, `
sources:
  de.indeed:
    country: de
    kind: dom
    search_uri:
      base_uri:
        sorted_latest_first: "https://de.indeed.com/jobs?sort=date"
    selectors:
      list_item: "td.resultContent"
`)
	require.Error(t, err)
	var cfgErr *harvest.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "de.indeed", cfgErr.Source)
	require.Equal(t, "search_uri.base_uri.standard", cfgErr.Key)
}

func TestLoadRejectsMixedSelectorAndFieldPaths(t *testing.T) {
	t.Parallel()

	_, err := catalogFromYAML(t, `
sources:
  mixed.example:
    country: de
    kind: dom
    search_uri:
      base_uri:
        standard: "https://jobs.example/search"
    selectors:
      list_item: "li.job"
    field_paths:
      items:
        path: "data.jobs"
`)
	var cfgErr *harvest.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "field_paths", cfgErr.Key)
}

func TestLoadAPISourceRequiresItemsPath(t *testing.T) {
	t.Parallel()

	_, err := catalogFromYAML(t, `
sources:
  api.example:
    country: fr
    kind: api
    search_uri:
      base_uri:
        standard: "https://api.example/v1/search"
    field_paths:
      title:
        path: "title"
`)
	var cfgErr *harvest.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "field_paths.items", cfgErr.Key)
}

func TestLoadDefaultsPagination(t *testing.T) {
	t.Parallel()

	catalog, err := catalogFromYAML(t, `
sources:
  plain.example:
    country: de
    kind: api
    search_uri:
      base_uri:
        standard: "https://api.example/search"
    field_paths:
      items:
        path: "results"
`)
	require.NoError(t, err)
	cfg, _ := catalog.Get("plain.example")
	require.Equal(t, PlacementQuery, cfg.SearchURI.Pagination.Placement)
	require.Equal(t, "page", cfg.SearchURI.Pagination.Param)
	require.Equal(t, harvest.EngineHTTP, cfg.Engine)
}

func TestCatalogByCountry(t *testing.T) {
	t.Parallel()

	catalog, err := catalogFromYAML(t, `
sources:
  a.example:
    country: de
    kind: api
    search_uri: {base_uri: {standard: "https://a.example"}}
    field_paths: {items: {path: "jobs"}}
  b.example:
    country: pl
    kind: api
    search_uri: {base_uri: {standard: "https://b.example"}}
    field_paths: {items: {path: "jobs"}}
  c.example:
    country: de
    kind: api
    search_uri: {base_uri: {standard: "https://c.example"}}
    field_paths: {items: {path: "jobs"}}
`)
	require.NoError(t, err)
	de := catalog.ByCountry("de")
	require.Len(t, de, 2)
	require.Equal(t, "a.example", de[0].Name)
	require.Equal(t, "c.example", de[1].Name)
	require.Equal(t, []string{"a.example", "b.example", "c.example"}, catalog.Names())
}
