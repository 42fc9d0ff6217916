package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Index mirrors products into an Elasticsearch index. The database stays the
// source of truth; the index only returns matching ids.
type Index struct {
	ES   *elasticsearch.Client
	Name string
}

type document struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
}

func (ix *Index) IndexProduct(ctx context.Context, p *models.Product) error {
	var buf bytes.Buffer
	doc := document{ID: p.ID, Name: p.Name, Description: p.Description, Category: p.Category, Price: p.Price}
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("search: encode: %w", err)
	}

	res, err := ix.ES.Index(ix.Name, &buf,
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index: %s", res.Status())
	}
	return nil
}

func (ix *Index) RemoveProduct(ctx context.Context, id uint) error {
	res, err := ix.ES.Delete(ix.Name, strconv.FormatUint(uint64(id), 10), ix.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("search: delete: %s", res.Status())
	}
	return nil
}

func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode: %w", err)
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Name),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode: %w", err)
	}

	ids := make([]uint, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		ids[i] = hit.Source.ID
	}
	return r.Hits.Total.Value, ids, nil
}
