package catalogapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Shoes","slug":"shoes","description":"","subcategories":[{"id":3,"name":"Sneakers"}]}]`))
	})
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/products/":
			assert.Equal(t, "2", r.URL.Query().Get("category"))
			assert.Equal(t, "", r.URL.Query().Get("subcategory"))
			_, _ = w.Write([]byte(`[{"id":7,"name":"Runner","display_price":"90.00","price":"120.00","stock":4}]`))
		case "/api/products/7/":
			_, _ = w.Write([]byte(`{"id":7,"name":"Runner","display_price":"90.00","price":"120.00","stock":4}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"product not found"}`))
		}
	})
	mux.HandleFunc("/api/knowledge/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "returns", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"results":[{"document_id":1,"source":"policy.md","content":"30 day returns","score":0.91}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCategoriesAreCached(t *testing.T) {
	var hits int32
	srv := newCatalogServer(t, &hits)
	c := New(Options{BaseURL: srv.URL + "/api/", CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		cats, err := c.Categories(context.Background())
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "Sneakers", cats[0].SubCategories[0].Name)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	c.Invalidate()
	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestProductsAndDetail(t *testing.T) {
	var hits int32
	srv := newCatalogServer(t, &hits)
	c := New(Options{BaseURL: srv.URL + "/api"})

	category := 2
	products, err := c.Products(context.Background(), &category, nil)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "90.00", products[0].DisplayPrice.StringFixed(2))

	p, err := c.Product(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)

	_, err = c.Product(context.Background(), 9999)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestSearchKnowledge(t *testing.T) {
	var hits int32
	srv := newCatalogServer(t, &hits)
	c := New(Options{BaseURL: srv.URL + "/api"})

	results, err := c.SearchKnowledge(context.Background(), "returns", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "policy.md", results[0].Source)
}
