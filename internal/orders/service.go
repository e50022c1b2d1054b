package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopassist/internal/catalog"
	"shopassist/internal/common"
	"shopassist/internal/logger"
	"shopassist/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrItemNotFound = errors.New("order item not found")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotPending 订单已不在 pending 状态
	ErrNotPending = errors.New("order can only be modified while pending")
	// ErrInvalidTransition 不允许的状态流转
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Actor 发起操作的用户
type Actor struct {
	UserID uint
	Staff  bool
}

// ItemInput 订单明细请求；Price 仅员工可指定，缺省取商品展示价
type ItemInput struct {
	ProductID uint             `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required"`
	Size      string           `json:"size"`
	Color     string           `json:"color"`
	Price     *decimal.Decimal `json:"price"`
}

// CreateRequest 创建订单请求
type CreateRequest struct {
	Items []ItemInput `json:"items" binding:"required"`
}

// ListRequest 订单列表请求
type ListRequest struct {
	common.PaginationRequest
	Status Status `form:"status"`
}

// Service 订单服务
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService 创建订单服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Create 创建订单；商品需上架且库存充足，总价在同一事务内计算
func (s *Service) Create(ctx context.Context, actor Actor, req *CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", ErrInvalidInput)
	}

	var order Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]OrderItem, 0, len(req.Items))
		products := map[uint]*catalog.Product{}
		for _, in := range req.Items {
			item, product, err := s.buildItem(tx, actor, in, products)
			if err != nil {
				return err
			}
			products[product.ID] = product
			items = append(items, *item)
		}
		if err := checkStock(items, products); err != nil {
			return err
		}

		order = Order{
			UserID:     actor.UserID,
			Status:     StatusPending,
			TotalPrice: SumItems(items),
			Items:      items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("创建订单失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues("created").Inc()
	logger.Info("订单已创建",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", actor.UserID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)
	return &order, nil
}

// List 员工可见全部订单，普通用户只能看到自己的
func (s *Service) List(ctx context.Context, actor Actor, req *ListRequest) ([]Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&Order{})
	if !actor.Staff {
		query = query.Where("user_id = ?", actor.UserID)
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计订单数量失败: %w", err)
	}

	orders := []Order{}
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Scopes(common.Paginate(req.PaginationRequest)).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("查询订单列表失败: %w", err)
	}
	return orders, total, nil
}

// Get 查询订单；他人订单对非员工表现为不存在
func (s *Service) Get(ctx context.Context, actor Actor, id uint) (*Order, error) {
	return s.load(s.db.WithContext(ctx), actor, id)
}

// Delete 删除订单：员工不限状态，所有者仅限 pending
func (s *Service) Delete(ctx context.Context, actor Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.load(tx, actor, id)
		if err != nil {
			return err
		}
		if !actor.Staff && order.Status != StatusPending {
			return ErrNotPending
		}
		if err := tx.Where("order_id = ?", id).Delete(&OrderItem{}).Error; err != nil {
			return fmt.Errorf("删除订单明细失败: %w", err)
		}
		if err := tx.Delete(&Order{}, id).Error; err != nil {
			return fmt.Errorf("删除订单失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.OrdersTotal.WithLabelValues("deleted").Inc()
	return nil
}

// UpdateStatus 员工变更订单状态
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uint, next Status) (*Order, error) {
	if !actor.Staff {
		return nil, ErrForbidden
	}
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}

	var order *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(tx, actor, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
		}
		// 条件更新，防止并发流转
		result := tx.Model(&Order{}).Where("id = ? AND status = ?", id, current.Status).Update("status", next)
		if result.Error != nil {
			return fmt.Errorf("更新订单状态失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
		}
		current.Status = next
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(string(next)).Inc()
	logger.Info("订单状态已变更", zap.Uint("order_id", id), zap.String("status", string(next)))
	return order, nil
}

// AddItem 向 pending 订单追加明细并重算总价
func (s *Service) AddItem(ctx context.Context, actor Actor, id uint, in ItemInput) (*Order, error) {
	var order *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.loadPending(tx, actor, id)
		if err != nil {
			return err
		}

		products := map[uint]*catalog.Product{}
		item, product, err := s.buildItem(tx, actor, in, products)
		if err != nil {
			return err
		}
		products[product.ID] = product
		for _, existing := range current.Items {
			if _, ok := products[existing.ProductID]; ok {
				continue
			}
			p, err := catalog.LoadProduct(tx, existing.ProductID)
			if err != nil {
				return err
			}
			products[p.ID] = p
		}
		if err := checkStock(append(current.Items, *item), products); err != nil {
			return err
		}

		item.OrderID = id
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("添加订单明细失败: %w", err)
		}
		order, err = s.recompute(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RemoveItem 从 pending 订单移除明细并重算总价，订单至少保留一条明细
func (s *Service) RemoveItem(ctx context.Context, actor Actor, id, itemID uint) (*Order, error) {
	var order *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.loadPending(tx, actor, id)
		if err != nil {
			return err
		}

		found := false
		for _, it := range current.Items {
			if it.ID == itemID {
				found = true
				break
			}
		}
		if !found {
			return ErrItemNotFound
		}
		if len(current.Items) == 1 {
			return fmt.Errorf("%w: an order needs at least one item", ErrInvalidInput)
		}

		if err := tx.Where("id = ? AND order_id = ?", itemID, id).Delete(&OrderItem{}).Error; err != nil {
			return fmt.Errorf("删除订单明细失败: %w", err)
		}
		order, err = s.recompute(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) load(db *gorm.DB, actor Actor, id uint) (*Order, error) {
	var order Order
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if !actor.Staff && order.UserID != actor.UserID {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (s *Service) loadPending(tx *gorm.DB, actor Actor, id uint) (*Order, error) {
	order, err := s.load(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending {
		return nil, ErrNotPending
	}
	return order, nil
}

// recompute 按明细重算总价
func (s *Service) recompute(tx *gorm.DB, id uint) (*Order, error) {
	var items []OrderItem
	if err := tx.Where("order_id = ?", id).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("查询订单明细失败: %w", err)
	}
	total := SumItems(items)
	if err := tx.Model(&Order{}).Where("id = ?", id).Update("total_price", total).Error; err != nil {
		return nil, fmt.Errorf("更新订单总价失败: %w", err)
	}

	var order Order
	if err := tx.First(&order, id).Error; err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	order.Items = items
	order.TotalPrice = total
	return &order, nil
}

func (s *Service) buildItem(tx *gorm.DB, actor Actor, in ItemInput, cache map[uint]*catalog.Product) (*OrderItem, *catalog.Product, error) {
	if in.Quantity < 1 {
		return nil, nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	product, ok := cache[in.ProductID]
	if !ok {
		p, err := catalog.LoadProduct(tx, in.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: product %d does not exist", ErrInvalidInput, in.ProductID)
			}
			return nil, nil, err
		}
		product = p
	}
	if !product.IsActive || !product.Available {
		return nil, nil, fmt.Errorf("%w: product %q is not available", ErrInvalidInput, product.Name)
	}

	price := catalog.DisplayPrice(product, s.now())
	if in.Price != nil {
		if !actor.Staff {
			return nil, nil, ErrForbidden
		}
		if in.Price.IsNegative() {
			return nil, nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
		}
		price = *in.Price
	}
	price = catalog.Round2(price)

	return &OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    in.Quantity,
		Size:        strings.TrimSpace(in.Size),
		Color:       strings.TrimSpace(in.Color),
		Price:       price,
		Total:       LineTotal(in.Quantity, price),
	}, product, nil
}

type stockKey struct {
	productID uint
	size      string
	color     string
}

// checkStock 按商品（及尺码、颜色）汇总数量并校验库存
func checkStock(items []OrderItem, products map[uint]*catalog.Product) error {
	requested := map[stockKey]int{}
	for _, it := range items {
		key := stockKey{productID: it.ProductID}
		if p := products[it.ProductID]; p != nil && len(p.Sizes) > 0 && it.Size != "" {
			key.size, key.color = it.Size, it.Color
		}
		requested[key] += it.Quantity
	}

	for key, qty := range requested {
		p := products[key.productID]
		if p == nil {
			return fmt.Errorf("%w: product %d does not exist", ErrInvalidInput, key.productID)
		}
		available := catalog.EffectiveStock(p)
		if key.size != "" {
			available = sizeStock(p, key.size, key.color)
			if available == 0 {
				return fmt.Errorf("%w: size %s is not available for %q", ErrInvalidInput, key.size, p.Name)
			}
		}
		if qty > available {
			return fmt.Errorf("%w: only %d left in stock for %q", ErrInvalidInput, available, p.Name)
		}
	}
	return nil
}

func sizeStock(p *catalog.Product, size, color string) int {
	total := 0
	for _, s := range p.Sizes {
		if !strings.EqualFold(s.Size, size) {
			continue
		}
		if color != "" && !strings.EqualFold(s.Color, color) {
			continue
		}
		total += s.Quantity
	}
	return total
}
