// Package seed 从 YAML 夹具导入演示数据，重复执行不会产生重复记录
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"shopassist/internal/catalog"
	"shopassist/internal/logger"
	"shopassist/internal/user"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures 夹具文件结构
type Fixtures struct {
	Staff      []StaffFixture    `yaml:"staff"`
	Categories []CategoryFixture `yaml:"categories"`
	Campaigns  []CampaignFixture `yaml:"campaigns"`
}

// StaffFixture 员工账户
type StaffFixture struct {
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Password string `yaml:"password"`
}

// CategoryFixture 分类及其子分类
type CategoryFixture struct {
	Name          string               `yaml:"name"`
	Slug          string               `yaml:"slug"`
	Description   string               `yaml:"description"`
	SubCategories []SubCategoryFixture `yaml:"subcategories"`
}

// SubCategoryFixture 子分类及其商品
type SubCategoryFixture struct {
	Name     string           `yaml:"name"`
	Products []ProductFixture `yaml:"products"`
}

// ProductFixture 商品；价格用字符串避免浮点误差
type ProductFixture struct {
	Name        string                `yaml:"name"`
	Slug        string                `yaml:"slug"`
	Description string                `yaml:"description"`
	Price       string                `yaml:"price"`
	Stock       int                   `yaml:"stock"`
	Sizes       []catalog.ProductSize `yaml:"sizes"`
	Images      []string              `yaml:"images"`
}

// CampaignFixture 活动；日期相对执行时间，夹具长期有效
type CampaignFixture struct {
	Title           string         `yaml:"title"`
	Description     string         `yaml:"description"`
	StartOffsetDays int            `yaml:"start_offset_days"`
	DurationDays    int            `yaml:"duration_days"`
	Offers          []OfferFixture `yaml:"offers"`
}

// OfferFixture 活动中的商品优惠
type OfferFixture struct {
	Product       string `yaml:"product"` // 商品 slug
	PercentageOff string `yaml:"percentage_off"`
}

// Summary 导入结果
type Summary struct {
	Staff         int
	Categories    int
	SubCategories int
	Products      int
	Campaigns     int
	Offers        int
	Skipped       int
}

// Load 读取夹具文件
func Load(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取夹具文件失败: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析夹具文件失败: %w", err)
	}
	return &f, nil
}

// Seeder 将夹具写入数据库
type Seeder struct {
	db      *gorm.DB
	catalog *catalog.Service
	users   *user.Service
	now     func() time.Time
}

// NewSeeder 创建导入器
func NewSeeder(db *gorm.DB, catalogSvc *catalog.Service, users *user.Service) *Seeder {
	return &Seeder{db: db, catalog: catalogSvc, users: users, now: time.Now}
}

// Apply 按 slug/标题幂等导入
func (s *Seeder) Apply(ctx context.Context, f *Fixtures) (*Summary, error) {
	sum := &Summary{}

	for _, st := range f.Staff {
		if _, err := s.users.EnsureStaff(ctx, st.Email, st.FullName, st.Password); err != nil {
			return sum, fmt.Errorf("员工 %s: %w", st.Email, err)
		}
		sum.Staff++
	}

	for _, cf := range f.Categories {
		if err := s.applyCategory(ctx, cf, sum); err != nil {
			return sum, err
		}
	}

	for _, cf := range f.Campaigns {
		if err := s.applyCampaign(ctx, cf, sum); err != nil {
			return sum, err
		}
	}

	logger.Info("演示数据导入完成",
		zap.Int("categories", sum.Categories),
		zap.Int("subcategories", sum.SubCategories),
		zap.Int("products", sum.Products),
		zap.Int("campaigns", sum.Campaigns),
		zap.Int("offers", sum.Offers),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func (s *Seeder) applyCategory(ctx context.Context, cf CategoryFixture, sum *Summary) error {
	slug := cf.Slug
	if slug == "" {
		slug = catalog.Slugify(cf.Name)
	}

	var categoryID uint
	existing, err := s.catalog.GetCategoryBySlug(ctx, slug)
	switch {
	case err == nil:
		categoryID = existing.ID
		sum.Skipped++
	case errors.Is(err, catalog.ErrNotFound):
		created, err := s.catalog.CreateCategory(ctx, &catalog.CategoryInput{
			Name:        cf.Name,
			Slug:        slug,
			Description: cf.Description,
		})
		if err != nil {
			return fmt.Errorf("分类 %s: %w", cf.Name, err)
		}
		categoryID = created.ID
		sum.Categories++
	default:
		return fmt.Errorf("分类 %s: %w", cf.Name, err)
	}

	subs, err := s.catalog.ListSubCategories(ctx, categoryID)
	if err != nil {
		return err
	}
	for _, sf := range cf.SubCategories {
		subID := findSubCategory(subs, sf.Name)
		if subID == 0 {
			created, err := s.catalog.CreateSubCategory(ctx, &catalog.SubCategoryInput{Name: sf.Name, CategoryID: categoryID})
			if err != nil {
				return fmt.Errorf("子分类 %s: %w", sf.Name, err)
			}
			subID = created.ID
			sum.SubCategories++
		} else {
			sum.Skipped++
		}

		for _, pf := range sf.Products {
			if err := s.applyProduct(ctx, pf, subID, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

func findSubCategory(subs []catalog.SubCategory, name string) uint {
	for _, sub := range subs {
		if sub.Name == name {
			return sub.ID
		}
	}
	return 0
}

func (s *Seeder) applyProduct(ctx context.Context, pf ProductFixture, subID uint, sum *Summary) error {
	slug := pf.Slug
	if slug == "" {
		slug = catalog.Slugify(pf.Name)
	}
	found, err := s.productIDBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if found != 0 {
		sum.Skipped++
		return nil
	}

	price, err := decimal.NewFromString(pf.Price)
	if err != nil {
		return fmt.Errorf("商品 %s 价格无效: %w", pf.Name, err)
	}
	_, err = s.catalog.CreateProduct(ctx, &catalog.ProductInput{
		Name:          pf.Name,
		Slug:          slug,
		Description:   pf.Description,
		Price:         price,
		SubCategoryID: &subID,
		Stock:         pf.Stock,
		Sizes:         pf.Sizes,
		Images:        pf.Images,
	})
	if err != nil {
		return fmt.Errorf("商品 %s: %w", pf.Name, err)
	}
	sum.Products++
	return nil
}

func (s *Seeder) productIDBySlug(ctx context.Context, slug string) (uint, error) {
	var p catalog.Product
	err := s.db.WithContext(ctx).Select("id").Where("slug = ?", slug).First(&p).Error
	switch {
	case err == nil:
		return p.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, nil
	default:
		return 0, fmt.Errorf("查询商品失败: %w", err)
	}
}

func (s *Seeder) applyCampaign(ctx context.Context, cf CampaignFixture, sum *Summary) error {
	var campaign catalog.Campaign
	err := s.db.WithContext(ctx).Where("title = ?", cf.Title).First(&campaign).Error
	switch {
	case err == nil:
		sum.Skipped++
	case errors.Is(err, gorm.ErrRecordNotFound):
		duration := cf.DurationDays
		if duration <= 0 {
			duration = 30
		}
		start := s.now().AddDate(0, 0, cf.StartOffsetDays)
		created, err := s.catalog.CreateCampaign(ctx, &catalog.CampaignInput{
			Title:       cf.Title,
			Description: cf.Description,
			StartDate:   start,
			EndDate:     start.AddDate(0, 0, duration),
		})
		if err != nil {
			return fmt.Errorf("活动 %s: %w", cf.Title, err)
		}
		campaign.ID = created.ID
		sum.Campaigns++
	default:
		return fmt.Errorf("查询活动失败: %w", err)
	}

	for _, of := range cf.Offers {
		productID, err := s.productIDBySlug(ctx, of.Product)
		if err != nil {
			return err
		}
		if productID == 0 {
			return fmt.Errorf("优惠引用了不存在的商品: %s", of.Product)
		}
		pct, err := decimal.NewFromString(of.PercentageOff)
		if err != nil {
			return fmt.Errorf("优惠折扣无效 (%s): %w", of.Product, err)
		}

		_, err = s.catalog.CreateOffer(ctx, &catalog.OfferInput{
			CampaignID:    campaign.ID,
			ProductID:     productID,
			PercentageOff: &pct,
		})
		switch {
		case err == nil:
			sum.Offers++
		case errors.Is(err, catalog.ErrConflict):
			sum.Skipped++
		default:
			return fmt.Errorf("优惠 %s: %w", of.Product, err)
		}
	}
	return nil
}
