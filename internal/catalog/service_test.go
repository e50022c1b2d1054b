package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

type catalogFixture struct {
	svc      *Service
	category *CategoryView
	sub      *SubCategory
	shoes    *ProductView
	shirt    *ProductView
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	ctx := context.Background()
	svc := NewService(setupCatalogTestDB(t))
	svc.now = func() time.Time { return fixedNow }

	category, err := svc.CreateCategory(ctx, &CategoryInput{Name: "Men's Clothing", Description: "For him"})
	require.NoError(t, err)
	sub, err := svc.CreateSubCategory(ctx, &SubCategoryInput{Name: "Shoes", CategoryID: category.ID})
	require.NoError(t, err)

	shoes, err := svc.CreateProduct(ctx, &ProductInput{
		Name:          "Trail Runner",
		Price:         decimal.RequireFromString("120.00"),
		SubCategoryID: &sub.ID,
		Stock:         99,
		Sizes: []ProductSize{
			{Size: "42", Color: "black", Quantity: 3},
			{Size: "43", Color: "black", Quantity: 4},
		},
		Colors: []ProductColor{{Name: "black", HexCode: "#000000"}},
		Images: []string{"https://cdn.example.com/trail-1.jpg"},
	})
	require.NoError(t, err)

	shirt, err := svc.CreateProduct(ctx, &ProductInput{
		Name:  "Linen Shirt",
		Price: decimal.RequireFromString("40.00"),
		Stock: 10,
	})
	require.NoError(t, err)

	return &catalogFixture{svc: svc, category: category, sub: sub, shoes: shoes, shirt: shirt}
}

func (f *catalogFixture) campaign(t *testing.T, title string, start, end time.Time) *CampaignView {
	t.Helper()
	c, err := f.svc.CreateCampaign(context.Background(), &CampaignInput{Title: title, StartDate: start, EndDate: end})
	require.NoError(t, err)
	return c
}

func TestCreateCategoryGeneratesSlug(t *testing.T) {
	f := newCatalogFixture(t)
	assert.Equal(t, "men-s-clothing", f.category.Slug)

	got, err := f.svc.GetCategoryBySlug(context.Background(), "men-s-clothing")
	require.NoError(t, err)
	require.Len(t, got.SubCategories, 1)
	assert.Equal(t, "Shoes", got.SubCategories[0].Name)

	_, err = f.svc.CreateCategory(context.Background(), &CategoryInput{Name: "Men's Clothing"})
	assert.True(t, errors.Is(err, ErrConflict), "duplicate name should conflict, got %v", err)

	_, err = f.svc.GetCategoryBySlug(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProductStockAndFilters(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	// 有尺码时库存为尺码数量之和
	assert.Equal(t, 7, f.shoes.Stock)
	assert.Equal(t, 10, f.shirt.Stock)
	require.NotNil(t, f.shoes.CategoryID)
	assert.Equal(t, f.category.ID, *f.shoes.CategoryID)

	all, err := f.svc.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCategory, err := f.svc.ListProducts(ctx, ProductFilter{CategoryID: &f.category.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Trail Runner", byCategory[0].Name)

	missing := uint(999)
	none, err := f.svc.ListProducts(ctx, ProductFilter{SubCategoryID: &missing})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetProductIncrementsViews(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetProduct(ctx, f.shirt.ID)
	require.NoError(t, err)
	second, err := f.svc.GetProduct(ctx, f.shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ViewsCount+1, second.ViewsCount)

	_, err = f.svc.GetProduct(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "product not found", err.Error())
}

func TestUpdateProductReplacesSizes(t *testing.T) {
	f := newCatalogFixture(t)

	updated, err := f.svc.UpdateProduct(context.Background(), f.shoes.ID, &ProductInput{
		Name:          "Trail Runner",
		Price:         decimal.RequireFromString("110"),
		SubCategoryID: &f.sub.ID,
		Sizes:         []ProductSize{{Size: "44", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stock)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("110")))
	// 未传 colors/images 时保留原值
	assert.Len(t, updated.Colors, 1)
	assert.Len(t, updated.Images, 1)

	_, err = f.svc.UpdateProduct(context.Background(), f.shoes.ID, &ProductInput{Name: "x", Price: decimal.Zero})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestOfferDisplayPrice(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	running := f.campaign(t, "Summer Sale", fixedNow.Add(-24*time.Hour), fixedNow.Add(24*time.Hour))
	expired := f.campaign(t, "Spring Sale", fixedNow.Add(-72*time.Hour), fixedNow.Add(-48*time.Hour))

	pct := decimal.NewFromInt(25)
	offer, err := f.svc.CreateOffer(ctx, &OfferInput{CampaignID: running.ID, ProductID: f.shoes.ID, PercentageOff: &pct})
	require.NoError(t, err)
	assert.Equal(t, "90.00", offer.NewPrice.StringFixed(2))
	assert.Equal(t, "120.00", offer.OldPrice.StringFixed(2))

	cheaper := decimal.RequireFromString("60")
	_, err = f.svc.CreateOffer(ctx, &OfferInput{CampaignID: expired.ID, ProductID: f.shoes.ID, NewPrice: &cheaper})
	require.NoError(t, err)

	// 过期活动的更低价不生效
	view, err := f.svc.GetProduct(ctx, f.shoes.ID)
	require.NoError(t, err)
	assert.Equal(t, "90.00", view.DisplayPrice.StringFixed(2))
	require.NotNil(t, view.ActiveOffer)
	assert.Equal(t, offer.ID, view.ActiveOffer.ID)

	active, err := f.svc.ListActiveOffers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].Product)
	assert.Equal(t, "Trail Runner", active[0].Product.Name)
	require.NotNil(t, active[0].Campaign)
	assert.Equal(t, "Summer Sale", active[0].Campaign.Title)

	_, err = f.svc.DeactivateOffer(ctx, offer.ID)
	require.NoError(t, err)
	view, err = f.svc.GetProduct(ctx, f.shoes.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", view.DisplayPrice.StringFixed(2))
	assert.Nil(t, view.ActiveOffer)
}

func TestCreateOfferValidation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "Flash", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))

	pct := decimal.NewFromInt(10)
	price := decimal.NewFromInt(30)
	_, err := f.svc.CreateOffer(ctx, &OfferInput{CampaignID: c.ID, ProductID: f.shirt.ID, PercentageOff: &pct, NewPrice: &price})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	tooHigh := decimal.NewFromInt(50)
	_, err = f.svc.CreateOffer(ctx, &OfferInput{CampaignID: c.ID, ProductID: f.shirt.ID, NewPrice: &tooHigh})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	// 舍入后等于原价的新价同样无效
	almost := f.shirt.Price.Sub(decimal.RequireFromString("0.001"))
	_, err = f.svc.CreateOffer(ctx, &OfferInput{CampaignID: c.ID, ProductID: f.shirt.ID, NewPrice: &almost})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	offer, err := f.svc.CreateOffer(ctx, &OfferInput{CampaignID: c.ID, ProductID: f.shirt.ID, NewPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "25.00", offer.PercentageOff.StringFixed(2))

	_, err = f.svc.CreateOffer(ctx, &OfferInput{CampaignID: c.ID, ProductID: f.shirt.ID, PercentageOff: &pct})
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = f.svc.CreateOffer(ctx, &OfferInput{CampaignID: 404, ProductID: f.shirt.ID, PercentageOff: &pct})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateCampaignRejectsInvertedDates(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.svc.CreateCampaign(context.Background(), &CampaignInput{
		Title:     "Backwards",
		StartDate: fixedNow,
		EndDate:   fixedNow.Add(-time.Hour),
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestApplyCampaignRule(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c := f.campaign(t, "Big Ticket", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))

	created, err := f.svc.ApplyCampaignRule(ctx, c.ID, "price >= 100", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, f.shoes.ID, created[0].Product.ID)
	assert.Equal(t, "108.00", created[0].NewPrice.StringFixed(2))

	// 已有优惠的商品跳过
	again, err := f.svc.ApplyCampaignRule(ctx, c.ID, "price > 0", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, f.shirt.ID, again[0].Product.ID)

	byCategory, err := f.svc.ApplyCampaignRule(ctx, c.ID, fmt.Sprintf("category_id == %d", f.category.ID), decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Empty(t, byCategory)

	_, err = f.svc.ApplyCampaignRule(ctx, c.ID, "brand == 'x'", decimal.NewFromInt(10))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	// 非布尔结果整体回滚
	fresh := f.campaign(t, "Fresh", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	_, err = f.svc.ApplyCampaignRule(ctx, fresh.ID, "price + 1", decimal.NewFromInt(10))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.svc.ApplyCampaignRule(ctx, fresh.ID, "price > 0", decimal.NewFromInt(100))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDeleteCategoryKeepsProducts(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteCategory(ctx, f.category.ID))
	assert.True(t, errors.Is(f.svc.DeleteCategory(ctx, f.category.ID), ErrNotFound))

	view, err := f.svc.GetProduct(ctx, f.shoes.ID)
	require.NoError(t, err)
	assert.Nil(t, view.SubCategoryID)
	assert.Nil(t, view.CategoryID)
}

func TestDeleteProduct(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteProduct(ctx, f.shoes.ID))
	_, err := f.svc.GetProduct(ctx, f.shoes.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(f.svc.DeleteProduct(ctx, f.shoes.ID), ErrNotFound))
}
