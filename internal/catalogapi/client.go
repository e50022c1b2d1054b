// Package catalogapi 是商城目录 HTTP 接口的只读客户端，供助手工具调用
package catalogapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopassist/internal/catalog"
	"shopassist/internal/metrics"
	"shopassist/pkg/httputil"
)

// ErrNotFound 目录接口返回 404
var ErrNotFound = errors.New("not found")

// KnowledgeHit 知识库检索结果
type KnowledgeHit struct {
	DocumentID uint    `json:"document_id"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Options 客户端配置
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client 目录接口客户端；列表类接口走短时缓存，商品详情不缓存
type Client struct {
	baseURL string
	http    *httputil.Client
	cached  *httputil.CachedClient
}

// New 创建客户端
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// 重试由调用方统一控制
	base := httputil.NewClient(httputil.WithTimeout(timeout), httputil.WithRetries(0))
	cached := httputil.NewCachedClient(base,
		httputil.WithCacheTTL(opts.CacheTTL),
		httputil.WithCacheHooks(
			func() { metrics.CacheHitsTotal.WithLabelValues("catalog").Inc() },
			func() { metrics.CacheMissesTotal.WithLabelValues("catalog").Inc() },
		),
	)

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    base,
		cached:  cached,
	}
}

// Categories GET /categories/
func (c *Client) Categories(ctx context.Context) ([]catalog.CategoryView, error) {
	var out []catalog.CategoryView
	if err := c.cached.GetJSON(ctx, c.baseURL+"/categories/", &out); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// Products GET /products/?category=&subcategory=
func (c *Client) Products(ctx context.Context, category, subcategory *int) ([]catalog.ProductView, error) {
	q := url.Values{}
	if category != nil {
		q.Set("category", strconv.Itoa(*category))
	}
	if subcategory != nil {
		q.Set("subcategory", strconv.Itoa(*subcategory))
	}
	endpoint := c.baseURL + "/products/"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var out []catalog.ProductView
	if err := c.cached.GetJSON(ctx, endpoint, &out); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// Product GET /products/{id}/
func (c *Client) Product(ctx context.Context, id int) (*catalog.ProductView, error) {
	var out catalog.ProductView
	if err := c.http.GetJSON(ctx, fmt.Sprintf("%s/products/%d/", c.baseURL, id), &out); err != nil {
		return nil, wrap(err)
	}
	return &out, nil
}

// ActiveOffers GET /offers/
func (c *Client) ActiveOffers(ctx context.Context) ([]catalog.OfferView, error) {
	var out []catalog.OfferView
	if err := c.cached.GetJSON(ctx, c.baseURL+"/offers/", &out); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

// SearchKnowledge GET /knowledge/search?q=&top_k=
func (c *Client) SearchKnowledge(ctx context.Context, query string, topK int) ([]KnowledgeHit, error) {
	q := url.Values{}
	q.Set("q", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}

	var out struct {
		Results []KnowledgeHit `json:"results"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/knowledge/search?"+q.Encode(), &out); err != nil {
		return nil, wrap(err)
	}
	return out.Results, nil
}

// Invalidate 清空列表缓存
func (c *Client) Invalidate() {
	c.cached.Invalidate()
}

func wrap(err error) error {
	if httputil.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
