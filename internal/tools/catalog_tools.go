package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopassist/internal/catalog"
	"shopassist/internal/catalogapi"
)

// ErrProductNotFound 商品详情接口返回 404
var ErrProductNotFound = errors.New("product not found")

// CatalogAPI 工具依赖的目录接口
type CatalogAPI interface {
	Categories(ctx context.Context) ([]catalog.CategoryView, error)
	Products(ctx context.Context, category, subcategory *int) ([]catalog.ProductView, error)
	Product(ctx context.Context, id int) (*catalog.ProductView, error)
	ActiveOffers(ctx context.Context) ([]catalog.OfferView, error)
}

// KnowledgeAPI 店铺知识库检索接口
type KnowledgeAPI interface {
	SearchKnowledge(ctx context.Context, query string, topK int) ([]catalogapi.KnowledgeHit, error)
}

const getCategoriesDescription = `Use this tool when the user wants to see available product categories.

Call this when the user says things like "What categories do you have?", "Show me product types", "What sections are in the store?" or "Do you have men's or women's categories?".

Returns a list of active categories. Each category contains id, name, slug, description and subcategories (the subcategories inside this category).

Always call this tool instead of guessing category names. Do not invent categories.`

const getProductsDescription = `Use this tool when the user wants to see products.

Call this when the user says "Show me products", "What shoes do you have?", "Show products in category 2", "Show items in subcategory 5" or "What do you have in sneakers?".

Optional parameters: category (the ID of a category to filter products) and subcategory (the ID of a subcategory to filter products).

Returns a list of available products. Each product contains id, name, description, display_price (final price including an active discount if any), price (original price), stock, sizes, images and active_offer (if any).

If the user specifies a category or subcategory, use the correct ID. If no filter is provided, all available products are returned. Never invent product data.`

const getProductDetailDescription = `Use this tool when the user asks about a specific product.

Call this when the user says "Tell me about product 5", "Show details for item 12", "What sizes does product 3 have?", "Does product 7 have a discount?" or "What colors are available for this product?".

Parameter: product_id, the unique ID of the product.

Returns detailed information about one product: id, name, description, display_price (final price after discount if active), price (original price), stock, sizes (with color and quantity information), images and active_offer (if there is a valid campaign).

Only call this tool when a specific product ID is known. If the product is not found, a structured error is returned. Do not guess product details.`

const getActiveOffersDescription = `Use this tool when the user asks about discounts, promotions, or special deals.

Call this when the user says "What offers are active?", "Do you have any discounts?", "Show me promotions" or "What items are on sale?".

Returns a list of currently active offers. Each offer contains id, new_price, old_price, percentage_off, campaign (title, description, start_date, end_date), product (basic product information) and is_active.

Only offers that are currently valid are returned. Never assume a product is discounted without calling this tool.`

const searchStoreInfoDescription = `Use this tool when the user asks about store policies or general store information rather than specific products.

Call this when the user says "What is your return policy?", "How long does shipping take?", "Do you ship abroad?" or "How do your sizes run?".

Parameter: query, a short search phrase describing what the user wants to know.

Returns the most relevant passages from the store's documents, each with source, content and score.

Answer only from the returned passages. If nothing relevant is returned, say that the information is not available.`

// ProductsArgs get_products 参数；<=0 视为未提供
type ProductsArgs struct {
	Category    *int `json:"category,omitempty"`
	Subcategory *int `json:"subcategory,omitempty"`
}

// ProductDetailArgs get_product_detail 参数
type ProductDetailArgs struct {
	ProductID int `json:"product_id"`
}

// StoreInfoArgs search_store_info 参数
type StoreInfoArgs struct {
	Query string `json:"query"`
}

type noArgs struct{}

// CatalogTools 四个目录工具
func CatalogTools(api CatalogAPI) []Tool {
	return []Tool{
		New(GetCategories, getCategoriesDescription, Schema{},
			func(ctx context.Context, _ noArgs) (any, error) {
				return api.Categories(ctx)
			}),
		New(GetProducts, getProductsDescription,
			Schema{Properties: map[string]Property{
				"category":    {Type: "integer", Description: "The ID of a category to filter products."},
				"subcategory": {Type: "integer", Description: "The ID of a subcategory to filter products."},
			}},
			func(ctx context.Context, args ProductsArgs) (any, error) {
				return api.Products(ctx, positive(args.Category), positive(args.Subcategory))
			}),
		New(GetProductDetail, getProductDetailDescription,
			Schema{
				Properties: map[string]Property{
					"product_id": {Type: "integer", Description: "The unique ID of the product."},
				},
				Required: []string{"product_id"},
			},
			func(ctx context.Context, args ProductDetailArgs) (any, error) {
				if args.ProductID <= 0 {
					return nil, fmt.Errorf("%w: product_id must be a positive integer", ErrInvalidArguments)
				}
				p, err := api.Product(ctx, args.ProductID)
				if errors.Is(err, catalogapi.ErrNotFound) {
					return nil, ErrProductNotFound
				}
				return p, err
			}),
		New(GetActiveOffers, getActiveOffersDescription, Schema{},
			func(ctx context.Context, _ noArgs) (any, error) {
				return api.ActiveOffers(ctx)
			}),
	}
}

// StoreInfoTool 知识库检索工具，仅在知识库启用时注册
func StoreInfoTool(api KnowledgeAPI, topK int) Tool {
	return New(SearchStoreInfo, searchStoreInfoDescription,
		Schema{
			Properties: map[string]Property{
				"query": {Type: "string", Description: "What the user wants to know, e.g. \"return policy\"."},
			},
			Required: []string{"query"},
		},
		func(ctx context.Context, args StoreInfoArgs) (any, error) {
			query := strings.TrimSpace(args.Query)
			if query == "" {
				return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidArguments)
			}
			hits, err := api.SearchKnowledge(ctx, query, topK)
			if err != nil {
				return nil, err
			}
			return map[string]any{"results": hits}, nil
		})
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
