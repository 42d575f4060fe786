package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"modestblooming-backend/models"
)

// ElasticSearcher keeps a products index in Elasticsearch.
type ElasticSearcher struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticSearcher(es *elasticsearch.Client, index string) *ElasticSearcher {
	return &ElasticSearcher{es: es, index: index}
}

type searchDoc struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Colors      []string `json:"colors"`
	Price       float64  `json:"price"`
	InStock     bool     `json:"inStock"`
}

func (s *ElasticSearcher) Index(ctx context.Context, p models.Product) error {
	const op = "ElasticSearcher.Index"

	doc := searchDoc{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Tags:        p.Tags,
		Price:       p.Price,
		InStock:     p.InStock,
	}
	for _, c := range p.Colors {
		doc.Colors = append(doc.Colors, c.Name)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: p.ID.Hex(),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%s: %s", op, res.String())
	}
	return nil
}

func (s *ElasticSearcher) Remove(ctx context.Context, id string) error {
	const op = "ElasticSearcher.Remove"

	req := esapi.DeleteRequest{Index: s.index, DocumentID: id}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("%s: %s", op, res.String())
	}
	return nil
}

// Search returns matching product ids in relevance order.
func (s *ElasticSearcher) Search(ctx context.Context, q string, limit int) ([]string, error) {
	const op = "ElasticSearcher.Search"

	var buf bytes.Buffer
	query := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^3", "tags^2", "category", "colors", "description"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%s: %s", op, res.String())
	}

	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) ([]string, error) {
	var body struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]string, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		if id := strings.TrimSpace(h.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
