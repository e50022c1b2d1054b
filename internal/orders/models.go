package orders

import (
	"shopassist/internal/common"

	"github.com/shopspring/decimal"
)

// Status 订单状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// 允许的状态流转
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCanceled},
	StatusProcessing: {StatusCompleted, StatusCanceled},
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo 是否允许流转到目标状态
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order 订单
type Order struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	UserID     uint            `json:"user_id" gorm:"index;not null"`
	Status     Status          `json:"status" gorm:"size:20;index;not null;default:pending"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null;default:0"`
	common.TimestampModel

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单明细；Total = Quantity × Price
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"index;not null"`
	ProductID   uint            `json:"product_id" gorm:"index;not null"`
	ProductName string          `json:"product_name" gorm:"size:200"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Size        string          `json:"size,omitempty" gorm:"size:20"`
	Color       string          `json:"color,omitempty" gorm:"size:50"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{&Order{}, &OrderItem{}}
}

// SumItems 明细合计
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}
	return total
}

// LineTotal 单行金额，保留两位小数
func LineTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
