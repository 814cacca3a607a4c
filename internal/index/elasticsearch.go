// Package index pushes admitted offers into Elasticsearch for downstream
// search. Indexing is best effort; the pipeline never blocks on it.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jobradar/harvester/internal/harvest"
)

// offerDocument is the indexed shape of one offer.
type offerDocument struct {
	ID               string   `json:"id"`
	Source           string   `json:"source"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	DetailURL        string   `json:"detail_url"`
	Locations        []string `json:"locations,omitempty"`
	CompanyName      string   `json:"company_name,omitempty"`
	CompanyLocations []string `json:"company_locations,omitempty"`
	Salary           string   `json:"salary,omitempty"`
	Language         string   `json:"language,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	FetchedAt        string   `json:"fetched_at"`
}

// OfferIndexer implements harvest.Indexer over Elasticsearch.
type OfferIndexer struct {
	client    *elasticsearch.Client
	indexName string
}

// NewOfferIndexer connects to the cluster and verifies it responds.
func NewOfferIndexer(addresses []string, indexName string) (*OfferIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &OfferIndexer{client: client, indexName: indexName}, nil
}

// IndexOffer implements harvest.Indexer.
func (i *OfferIndexer) IndexOffer(ctx context.Context, ref harvest.OfferRef, result harvest.SearchResult) error {
	doc := offerDocument{
		ID:               ref.ID,
		Source:           result.Source,
		Title:            result.Title,
		Description:      result.Description,
		DetailURL:        result.DetailURL,
		Locations:        result.Locations,
		CompanyName:      result.CompanyName,
		CompanyLocations: result.CompanyLocations,
		Salary:           result.Salary,
		Language:         result.Language,
		Keywords:         result.Keywords,
		FetchedAt:        result.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: ref.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the offers index if it does not exist yet. Keyword
// fields stay unanalyzed so dedup and faceting queries match exactly.
func (i *OfferIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"folding_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"id": {"type": "keyword"},
				"source": {"type": "keyword"},
				"title": {
					"type": "text",
					"analyzer": "folding_analyzer",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"description": {"type": "text", "analyzer": "folding_analyzer"},
				"detail_url": {"type": "keyword"},
				"locations": {"type": "keyword"},
				"company_name": {"type": "text", "analyzer": "folding_analyzer"},
				"company_locations": {"type": "keyword"},
				"salary": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
				"language": {"type": "keyword"},
				"keywords": {"type": "keyword"},
				"fetched_at": {"type": "date"}
			}
		}
	}`

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}
	return nil
}
