package catalog

import (
	"time"

	"shopassist/internal/common"

	"github.com/shopspring/decimal"
)

// Category 商品分类
type Category struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Name          string        `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Slug          string        `json:"slug" gorm:"size:120;uniqueIndex;not null"`
	Description   string        `json:"description" gorm:"type:text"`
	Image         string        `json:"image,omitempty" gorm:"size:500"`
	IsActive      bool          `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time     `json:"created_at"`
	SubCategories []SubCategory `json:"subcategories,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (Category) TableName() string { return "categories" }

// SubCategory 子分类
type SubCategory struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"size:100;not null"`
	CategoryID uint   `json:"category_id" gorm:"index;not null"`
}

func (SubCategory) TableName() string { return "subcategories" }

// Product 商品
type Product struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"size:200;not null"`
	Slug          string          `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	SubCategoryID *uint           `json:"subcategory_id,omitempty" gorm:"index"`
	Stock         int             `json:"stock" gorm:"not null;default:0"`
	Available     bool            `json:"available" gorm:"not null;default:true"`
	Image         string          `json:"image,omitempty" gorm:"size:500"`
	SizeRange     string          `json:"size,omitempty" gorm:"column:size_range;size:50"`
	LikesCount    int             `json:"likes_count" gorm:"not null;default:0"`
	ViewsCount    int             `json:"views_count" gorm:"not null;default:0"`
	IsActive      bool            `json:"is_active" gorm:"not null;default:true"`
	common.TimestampModel

	SubCategory *SubCategory   `json:"-" gorm:"foreignKey:SubCategoryID"`
	Sizes       []ProductSize  `json:"sizes,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Colors      []ProductColor `json:"colors,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images      []ProductImage `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Offers      []Offer        `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (Product) TableName() string { return "products" }

// ProductSize 尺码库存（按尺码与颜色）
type ProductSize struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProductID uint   `json:"-" gorm:"index;not null"`
	Size      string `json:"size" gorm:"size:20;not null"`
	Color     string `json:"color,omitempty" gorm:"size:50"`
	Quantity  int    `json:"quantity" gorm:"not null;default:0"`
}

func (ProductSize) TableName() string { return "product_sizes" }

// ProductColor 商品颜色
type ProductColor struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProductID uint   `json:"-" gorm:"index;not null"`
	Name      string `json:"name" gorm:"size:50;not null"`
	HexCode   string `json:"hex_code" gorm:"size:7"`
}

func (ProductColor) TableName() string { return "product_colors" }

// ProductImage 商品图集
type ProductImage struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ProductID uint   `json:"-" gorm:"index;not null"`
	URL       string `json:"image" gorm:"size:500;not null"`
}

func (ProductImage) TableName() string { return "product_images" }

// Campaign 促销活动
type Campaign struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:200;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Campaign) TableName() string { return "campaigns" }

// Running 活动是否处于有效期内
func (c *Campaign) Running(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// Offer 活动内的单品优惠
type Offer struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	CampaignID    uint            `json:"campaign_id" gorm:"index;not null"`
	ProductID     uint            `json:"product_id" gorm:"index;not null"`
	OldPrice      decimal.Decimal `json:"old_price" gorm:"type:decimal(10,2);not null"`
	NewPrice      decimal.Decimal `json:"new_price" gorm:"type:decimal(10,2);not null"`
	PercentageOff decimal.Decimal `json:"percentage_off" gorm:"type:decimal(5,2);not null"`
	IsActive      bool            `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time       `json:"created_at"`

	Campaign *Campaign `json:"-" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"`
	Product  *Product  `json:"-" gorm:"foreignKey:ProductID"`
}

func (Offer) TableName() string { return "offers" }

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&Category{}, &SubCategory{}, &Product{}, &ProductSize{},
		&ProductColor{}, &ProductImage{}, &Campaign{}, &Offer{},
	}
}
