package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// 对外 JSON 结构，字段名与工具描述中的返回说明一致

// SubCategoryRef 分类下的子分类摘要
type SubCategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CategoryView 分类
type CategoryView struct {
	ID            uint             `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	Description   string           `json:"description"`
	Image         string           `json:"image,omitempty"`
	SubCategories []SubCategoryRef `json:"subcategories"`
}

// CampaignView 活动
type CampaignView struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// ProductRef 优惠中引用的商品摘要
type ProductRef struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Slug  string          `json:"slug"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

// OfferView 优惠
type OfferView struct {
	ID            uint            `json:"id"`
	NewPrice      decimal.Decimal `json:"new_price"`
	OldPrice      decimal.Decimal `json:"old_price"`
	PercentageOff decimal.Decimal `json:"percentage_off"`
	Campaign      *CampaignView   `json:"campaign,omitempty"`
	Product       *ProductRef     `json:"product,omitempty"`
	IsActive      bool            `json:"is_active"`
}

// ProductView 商品详情
type ProductView struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	DisplayPrice  decimal.Decimal `json:"display_price"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	Available     bool            `json:"available"`
	Image         string          `json:"image,omitempty"`
	SizeRange     string          `json:"size,omitempty"`
	SubCategoryID *uint           `json:"subcategory_id"`
	CategoryID    *uint           `json:"category_id"`
	LikesCount    int             `json:"likes_count"`
	ViewsCount    int             `json:"views_count"`
	Sizes         []ProductSize   `json:"sizes"`
	Colors        []ProductColor  `json:"colors"`
	Images        []ProductImage  `json:"images"`
	ActiveOffer   *OfferView      `json:"active_offer"`
}

// SubCategoryView 子分类详情（含商品）
type SubCategoryView struct {
	ID         uint          `json:"id"`
	Name       string        `json:"name"`
	CategoryID uint          `json:"category_id"`
	Products   []ProductView `json:"products"`
}

func NewCategoryView(c *Category) CategoryView {
	subs := make([]SubCategoryRef, 0, len(c.SubCategories))
	for _, s := range c.SubCategories {
		subs = append(subs, SubCategoryRef{ID: s.ID, Name: s.Name})
	}
	return CategoryView{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		Description:   c.Description,
		Image:         c.Image,
		SubCategories: subs,
	}
}

func NewCampaignView(c *Campaign) *CampaignView {
	if c == nil {
		return nil
	}
	return &CampaignView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
	}
}

func NewOfferView(o *Offer) OfferView {
	v := OfferView{
		ID:            o.ID,
		NewPrice:      o.NewPrice,
		OldPrice:      o.OldPrice,
		PercentageOff: o.PercentageOff,
		Campaign:      NewCampaignView(o.Campaign),
		IsActive:      o.IsActive,
	}
	if o.Product != nil {
		v.Product = &ProductRef{
			ID:    o.Product.ID,
			Name:  o.Product.Name,
			Slug:  o.Product.Slug,
			Price: o.Product.Price,
			Image: o.Product.Image,
		}
	}
	return v
}

// NewProductView 计算展示价、有效库存与当前优惠
func NewProductView(p *Product, now time.Time) ProductView {
	v := ProductView{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		DisplayPrice:  DisplayPrice(p, now),
		Price:         p.Price,
		Stock:         EffectiveStock(p),
		Available:     p.Available,
		Image:         p.Image,
		SizeRange:     p.SizeRange,
		SubCategoryID: p.SubCategoryID,
		LikesCount:    p.LikesCount,
		ViewsCount:    p.ViewsCount,
		Sizes:         p.Sizes,
		Colors:        p.Colors,
		Images:        p.Images,
	}
	if v.Sizes == nil {
		v.Sizes = []ProductSize{}
	}
	if v.Colors == nil {
		v.Colors = []ProductColor{}
	}
	if v.Images == nil {
		v.Images = []ProductImage{}
	}
	if p.SubCategory != nil {
		id := p.SubCategory.CategoryID
		v.CategoryID = &id
	}
	if o := ActiveOffer(p, now); o != nil {
		ov := NewOfferView(o)
		v.ActiveOffer = &ov
	}
	return v
}
