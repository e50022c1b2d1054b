package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopassist/internal/common"
	"shopassist/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service 商品目录服务：分类、商品、活动与优惠
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService 创建 Service 实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// ============================================================================
// 分类
// ============================================================================

// CategoryInput 创建/更新分类请求
type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Image       string `json:"image"`
	IsActive    *bool  `json:"is_active"`
}

// ListCategories 查询启用的分类（含子分类）
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).
		Scopes(common.ActiveOnly()).
		Preload("SubCategories", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("查询分类失败: %w", err)
	}

	views := make([]CategoryView, 0, len(categories))
	for i := range categories {
		views = append(views, NewCategoryView(&categories[i]))
	}
	return views, nil
}

// GetCategoryBySlug 按 slug 查询分类
func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryView, error) {
	var category Category
	err := s.db.WithContext(ctx).
		Preload("SubCategories", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("slug = ?", slug).
		First(&category).Error
	if err != nil {
		return nil, translate(err, "category")
	}
	view := NewCategoryView(&category)
	return &view, nil
}

// CreateCategory 创建分类，slug 缺省时由名称生成
func (s *Service) CreateCategory(ctx context.Context, in *CategoryInput) (*CategoryView, error) {
	category := Category{IsActive: true}
	if err := applyCategoryInput(&category, in); err != nil {
		return nil, err
	}
	if err := ensureUnique(s.db.WithContext(ctx), &Category{}, 0, "slug", category.Slug, "category"); err != nil {
		return nil, err
	}
	if err := ensureUnique(s.db.WithContext(ctx), &Category{}, 0, "name", category.Name, "category"); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, translate(err, "category")
	}
	logger.Info("分类已创建", zap.Uint("category_id", category.ID), zap.String("slug", category.Slug))

	view := NewCategoryView(&category)
	return &view, nil
}

// UpdateCategory 整体更新分类
func (s *Service) UpdateCategory(ctx context.Context, id uint, in *CategoryInput) (*CategoryView, error) {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err, "category")
	}
	if err := applyCategoryInput(&category, in); err != nil {
		return nil, err
	}
	if err := ensureUnique(s.db.WithContext(ctx), &Category{}, id, "slug", category.Slug, "category"); err != nil {
		return nil, err
	}
	if err := ensureUnique(s.db.WithContext(ctx), &Category{}, id, "name", category.Name, "category"); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, translate(err, "category")
	}
	return s.GetCategoryBySlug(ctx, category.Slug)
}

// DeleteCategory 删除分类及其子分类
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subIDs []uint
		if err := tx.Model(&SubCategory{}).Where("category_id = ?", id).Pluck("id", &subIDs).Error; err != nil {
			return fmt.Errorf("查询子分类失败: %w", err)
		}
		if len(subIDs) > 0 {
			// 商品保留，仅解除子分类关联
			if err := tx.Model(&Product{}).Where("sub_category_id IN ?", subIDs).
				Update("sub_category_id", nil).Error; err != nil {
				return fmt.Errorf("解除商品子分类失败: %w", err)
			}
			if err := tx.Where("category_id = ?", id).Delete(&SubCategory{}).Error; err != nil {
				return fmt.Errorf("删除子分类失败: %w", err)
			}
		}

		result := tx.Delete(&Category{}, id)
		if result.Error != nil {
			return fmt.Errorf("删除分类失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("category")
		}
		return nil
	})
}

func applyCategoryInput(c *Category, in *CategoryInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalidf("name is required")
	}
	c.Name = name
	c.Slug = strings.TrimSpace(in.Slug)
	if c.Slug == "" {
		c.Slug = Slugify(name)
	}
	if c.Slug == "" {
		return invalidf("slug cannot be derived from name")
	}
	c.Description = in.Description
	c.Image = in.Image
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

// ============================================================================
// 子分类
// ============================================================================

// SubCategoryInput 创建子分类请求
type SubCategoryInput struct {
	Name       string `json:"name" binding:"required"`
	CategoryID uint   `json:"category_id" binding:"required"`
}

// ListSubCategories 查询子分类，categoryID 为 0 时返回全部
func (s *Service) ListSubCategories(ctx context.Context, categoryID uint) ([]SubCategory, error) {
	query := s.db.WithContext(ctx).Model(&SubCategory{})
	if categoryID > 0 {
		query = query.Where("category_id = ?", categoryID)
	}

	subs := []SubCategory{}
	if err := query.Order("id").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("查询子分类失败: %w", err)
	}
	return subs, nil
}

// GetSubCategory 查询子分类及其商品
func (s *Service) GetSubCategory(ctx context.Context, id uint) (*SubCategoryView, error) {
	var sub SubCategory
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, translate(err, "subcategory")
	}

	products, err := s.ListProducts(ctx, ProductFilter{SubCategoryID: &sub.ID})
	if err != nil {
		return nil, err
	}
	return &SubCategoryView{
		ID:         sub.ID,
		Name:       sub.Name,
		CategoryID: sub.CategoryID,
		Products:   products,
	}, nil
}

// CreateSubCategory 创建子分类
func (s *Service) CreateSubCategory(ctx context.Context, in *SubCategoryInput) (*SubCategory, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	if err := s.db.WithContext(ctx).First(&Category{}, in.CategoryID).Error; err != nil {
		return nil, translate(err, "category")
	}

	sub := SubCategory{Name: name, CategoryID: in.CategoryID}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, translate(err, "subcategory")
	}
	return &sub, nil
}

// ============================================================================
// 商品
// ============================================================================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	CategoryID    *uint
	SubCategoryID *uint
	Keyword       string
}

// ProductInput 创建/更新商品请求
type ProductInput struct {
	Name          string          `json:"name" binding:"required"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	SubCategoryID *uint           `json:"subcategory_id"`
	Stock         int             `json:"stock"`
	Available     *bool           `json:"available"`
	IsActive      *bool           `json:"is_active"`
	Image         string          `json:"image"`
	SizeRange     string          `json:"size"`
	Sizes         []ProductSize   `json:"sizes"`
	Colors        []ProductColor  `json:"colors"`
	Images        []string        `json:"images"`
}

// productPreloads 计算展示价与库存所需的关联
func productPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("SubCategory").
		Preload("Sizes", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Colors", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Offers").
		Preload("Offers.Campaign")
}

// LoadProduct 在给定连接（可为事务）上加载商品及关联
func LoadProduct(db *gorm.DB, id uint) (*Product, error) {
	var product Product
	if err := db.Scopes(productPreloads).First(&product, id).Error; err != nil {
		return nil, translate(err, "product")
	}
	return &product, nil
}

// ListProducts 查询上架商品，可按分类、子分类与关键字过滤
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]ProductView, error) {
	query := s.db.WithContext(ctx).
		Model(&Product{}).
		Scopes(common.ActiveOnly(), productPreloads).
		Where("available = ?", true)

	if filter.SubCategoryID != nil {
		query = query.Where("sub_category_id = ?", *filter.SubCategoryID)
	}
	if filter.CategoryID != nil {
		query = query.Where("sub_category_id IN (?)",
			s.db.Model(&SubCategory{}).Select("id").Where("category_id = ?", *filter.CategoryID))
	}
	if filter.Keyword != "" {
		query = query.Scopes(common.KeywordSearch(filter.Keyword, "name", "description"))
	}

	var products []Product
	if err := query.Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}

	now := s.now()
	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, NewProductView(&products[i], now))
	}
	return views, nil
}

// GetProduct 查询商品详情并累加浏览数
func (s *Service) GetProduct(ctx context.Context, id uint) (*ProductView, error) {
	db := s.db.WithContext(ctx)

	result := db.Model(&Product{}).Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1))
	if result.Error != nil {
		return nil, fmt.Errorf("更新浏览数失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("product")
	}

	product, err := LoadProduct(db, id)
	if err != nil {
		return nil, err
	}
	view := NewProductView(product, s.now())
	return &view, nil
}

// CreateProduct 创建商品及尺码、颜色、图片
func (s *Service) CreateProduct(ctx context.Context, in *ProductInput) (*ProductView, error) {
	product := Product{Available: true, IsActive: true}
	if err := applyProductInput(s.db.WithContext(ctx), &product, in); err != nil {
		return nil, err
	}
	if err := ensureUnique(s.db.WithContext(ctx), &Product{}, 0, "slug", product.Slug, "product"); err != nil {
		return nil, err
	}

	product.Sizes = in.Sizes
	product.Colors = in.Colors
	product.Images = toImages(in.Images)
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, translate(err, "product")
	}
	logger.Info("商品已创建", zap.Uint("product_id", product.ID), zap.String("slug", product.Slug))

	return s.productView(ctx, product.ID)
}

// UpdateProduct 整体更新商品；sizes/colors/images 非 nil 时整体替换
func (s *Service) UpdateProduct(ctx context.Context, id uint, in *ProductInput) (*ProductView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.First(&product, id).Error; err != nil {
			return translate(err, "product")
		}
		if err := applyProductInput(tx, &product, in); err != nil {
			return err
		}
		if err := ensureUnique(tx, &Product{}, id, "slug", product.Slug, "product"); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&product).Error; err != nil {
			return translate(err, "product")
		}

		if in.Sizes != nil {
			if err := replaceChildren(tx, &ProductSize{}, id, withProductID(in.Sizes, id)); err != nil {
				return err
			}
		}
		if in.Colors != nil {
			if err := replaceChildren(tx, &ProductColor{}, id, withProductID(in.Colors, id)); err != nil {
				return err
			}
		}
		if in.Images != nil {
			if err := replaceChildren(tx, &ProductImage{}, id, withProductID(toImages(in.Images), id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.productView(ctx, id)
}

// DeleteProduct 删除商品
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&ProductSize{}, &ProductColor{}, &ProductImage{}, &Offer{}} {
			if err := tx.Where("product_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("删除商品关联失败: %w", err)
			}
		}
		result := tx.Delete(&Product{}, id)
		if result.Error != nil {
			return fmt.Errorf("删除商品失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("product")
		}
		return nil
	})
}

func (s *Service) productView(ctx context.Context, id uint) (*ProductView, error) {
	product, err := LoadProduct(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	view := NewProductView(product, s.now())
	return &view, nil
}

func applyProductInput(db *gorm.DB, p *Product, in *ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalidf("name is required")
	}
	if !in.Price.IsPositive() {
		return invalidf("price must be greater than 0")
	}
	if in.Stock < 0 {
		return invalidf("stock cannot be negative")
	}
	for _, size := range in.Sizes {
		if strings.TrimSpace(size.Size) == "" || size.Quantity < 0 {
			return invalidf("each size needs a name and a non-negative quantity")
		}
	}
	if in.SubCategoryID != nil {
		if err := db.First(&SubCategory{}, *in.SubCategoryID).Error; err != nil {
			return translate(err, "subcategory")
		}
	}

	p.Name = name
	p.Slug = strings.TrimSpace(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(name)
	}
	if p.Slug == "" {
		return invalidf("slug cannot be derived from name")
	}
	p.Description = in.Description
	p.Price = Round2(in.Price)
	p.SubCategoryID = in.SubCategoryID
	p.Stock = in.Stock
	p.Image = in.Image
	p.SizeRange = in.SizeRange
	if in.Available != nil {
		p.Available = *in.Available
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return nil
}

func toImages(urls []string) []ProductImage {
	if urls == nil {
		return nil
	}
	images := make([]ProductImage, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, ProductImage{URL: u})
		}
	}
	return images
}

type productChild interface {
	ProductSize | ProductColor | ProductImage
}

func withProductID[T productChild](items []T, productID uint) []T {
	out := make([]T, len(items))
	for i, item := range items {
		switch v := any(&item).(type) {
		case *ProductSize:
			v.ID, v.ProductID = 0, productID
		case *ProductColor:
			v.ID, v.ProductID = 0, productID
		case *ProductImage:
			v.ID, v.ProductID = 0, productID
		}
		out[i] = item
	}
	return out
}

func replaceChildren[T productChild](tx *gorm.DB, model *T, productID uint, items []T) error {
	if err := tx.Where("product_id = ?", productID).Delete(model).Error; err != nil {
		return fmt.Errorf("清理商品关联失败: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := tx.Create(&items).Error; err != nil {
		return fmt.Errorf("写入商品关联失败: %w", err)
	}
	return nil
}

// ============================================================================
// 活动与优惠
// ============================================================================

// CampaignInput 创建活动请求
type CampaignInput struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
}

// OfferInput 创建优惠请求，percentage_off 与 new_price 二选一
type OfferInput struct {
	CampaignID    uint             `json:"campaign_id" binding:"required"`
	ProductID     uint             `json:"product_id" binding:"required"`
	PercentageOff *decimal.Decimal `json:"percentage_off"`
	NewPrice      *decimal.Decimal `json:"new_price"`
}

// ListCampaigns 查询全部活动
func (s *Service) ListCampaigns(ctx context.Context) ([]CampaignView, error) {
	var campaigns []Campaign
	if err := s.db.WithContext(ctx).Order("start_date DESC, id").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}

	views := make([]CampaignView, 0, len(campaigns))
	for i := range campaigns {
		views = append(views, *NewCampaignView(&campaigns[i]))
	}
	return views, nil
}

// CreateCampaign 创建活动
func (s *Service) CreateCampaign(ctx context.Context, in *CampaignInput) (*CampaignView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, invalidf("end_date must be after start_date")
	}
	if err := ensureUnique(s.db.WithContext(ctx), &Campaign{}, 0, "title", title, "campaign"); err != nil {
		return nil, err
	}

	campaign := Campaign{
		Title:       title,
		Description: in.Description,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&campaign).Error; err != nil {
		return nil, translate(err, "campaign")
	}
	return NewCampaignView(&campaign), nil
}

// ListActiveOffers 查询当前有效的优惠
func (s *Service) ListActiveOffers(ctx context.Context) ([]OfferView, error) {
	now := s.now().UTC()

	// 有效期在内存中判断，与 OfferValid 保持一致
	var offers []Offer
	if err := s.db.WithContext(ctx).
		Preload("Campaign").
		Preload("Product").
		Where("is_active = ?", true).
		Order("id").
		Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("查询优惠失败: %w", err)
	}

	views := make([]OfferView, 0, len(offers))
	for i := range offers {
		if OfferValid(&offers[i], now) {
			views = append(views, NewOfferView(&offers[i]))
		}
	}
	return views, nil
}

// CreateOffer 按折扣百分比或新价创建优惠，原价取商品当前价格
func (s *Service) CreateOffer(ctx context.Context, in *OfferInput) (*OfferView, error) {
	if (in.PercentageOff == nil) == (in.NewPrice == nil) {
		return nil, invalidf("provide exactly one of percentage_off or new_price")
	}

	var offer Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign Campaign
		if err := tx.First(&campaign, in.CampaignID).Error; err != nil {
			return translate(err, "campaign")
		}
		var product Product
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			return translate(err, "product")
		}

		var existing int64
		if err := tx.Model(&Offer{}).
			Where("campaign_id = ? AND product_id = ?", campaign.ID, product.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("查询优惠失败: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: product already has an offer in this campaign", ErrConflict)
		}

		built, err := buildOffer(&campaign, &product, in.PercentageOff, in.NewPrice)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(built).Error; err != nil {
			return translate(err, "offer")
		}
		offer = *built
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("优惠已创建",
		zap.Uint("offer_id", offer.ID),
		zap.Uint("campaign_id", offer.CampaignID),
		zap.Uint("product_id", offer.ProductID),
		zap.String("new_price", offer.NewPrice.StringFixed(2)),
	)
	view := NewOfferView(&offer)
	return &view, nil
}

// DeactivateOffer 停用优惠
func (s *Service) DeactivateOffer(ctx context.Context, id uint) (*OfferView, error) {
	result := s.db.WithContext(ctx).Model(&Offer{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return nil, fmt.Errorf("停用优惠失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("offer")
	}

	var offer Offer
	if err := s.db.WithContext(ctx).Preload("Campaign").Preload("Product").First(&offer, id).Error; err != nil {
		return nil, translate(err, "offer")
	}
	view := NewOfferView(&offer)
	return &view, nil
}

// ApplyCampaignRule 对所有上架商品求值规则，为命中且尚无该活动优惠的商品创建优惠
func (s *Service) ApplyCampaignRule(ctx context.Context, campaignID uint, rule string, pct decimal.Decimal) ([]OfferView, error) {
	compiled, err := CompileRule(rule)
	if err != nil {
		return nil, err
	}
	if !pct.IsPositive() || pct.GreaterThanOrEqual(hundred) {
		return nil, invalidf("percentage_off must be between 0 and 100")
	}

	created := []Offer{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign Campaign
		if err := tx.First(&campaign, campaignID).Error; err != nil {
			return translate(err, "campaign")
		}

		var covered []uint
		if err := tx.Model(&Offer{}).Where("campaign_id = ?", campaignID).
			Pluck("product_id", &covered).Error; err != nil {
			return fmt.Errorf("查询活动优惠失败: %w", err)
		}
		skip := make(map[uint]struct{}, len(covered))
		for _, id := range covered {
			skip[id] = struct{}{}
		}

		var products []Product
		if err := tx.Scopes(common.ActiveOnly()).
			Preload("SubCategory").
			Preload("Sizes").
			Order("id").
			Find(&products).Error; err != nil {
			return fmt.Errorf("查询商品失败: %w", err)
		}

		for i := range products {
			p := &products[i]
			if _, ok := skip[p.ID]; ok {
				continue
			}
			matched, err := compiled.Match(p)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}

			offer, err := buildOffer(&campaign, p, &pct, nil)
			if err != nil {
				return err
			}
			if err := tx.Omit(clause.Associations).Create(offer).Error; err != nil {
				return translate(err, "offer")
			}
			offer.Product = p
			created = append(created, *offer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("活动规则已应用",
		zap.Uint("campaign_id", campaignID),
		zap.String("rule", rule),
		zap.Int("created", len(created)),
	)

	views := make([]OfferView, 0, len(created))
	for i := range created {
		views = append(views, NewOfferView(&created[i]))
	}
	return views, nil
}

func buildOffer(campaign *Campaign, product *Product, pct, newPrice *decimal.Decimal) (*Offer, error) {
	offer := &Offer{
		CampaignID: campaign.ID,
		ProductID:  product.ID,
		OldPrice:   Round2(product.Price),
		IsActive:   true,
		Campaign:   campaign,
	}

	var err error
	if pct != nil {
		offer.PercentageOff = Round2(*pct)
		offer.NewPrice, err = PriceFromPercentage(offer.OldPrice, offer.PercentageOff)
	} else {
		offer.NewPrice = Round2(*newPrice)
		offer.PercentageOff, err = PercentageFromPrice(offer.OldPrice, offer.NewPrice)
	}
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// ============================================================================
// 工具函数
// ============================================================================

// ensureUnique 检查唯一字段是否已被其它记录占用
func ensureUnique(db *gorm.DB, model interface{}, selfID uint, column, value, resource string) error {
	var count int64
	query := db.Model(model).Where(column+" = ?", value)
	if selfID > 0 {
		query = query.Where("id <> ?", selfID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("检查唯一性失败: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s with this %s", ErrConflict, resource, column)
	}
	return nil
}

// translate 将 gorm 错误映射为包内错误
func translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrConflict, resource)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConflict):
		return err
	default:
		return fmt.Errorf("%s 操作失败: %w", resource, err)
	}
}
