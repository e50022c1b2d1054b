package tools

import "fmt"

// Name 工具名称，封闭枚举
type Name string

const (
	GetCategories    Name = "get_categories"
	GetProducts      Name = "get_products"
	GetProductDetail Name = "get_product_detail"
	GetActiveOffers  Name = "get_active_offers"
	SearchStoreInfo  Name = "search_store_info"
)

var allNames = []Name{
	GetCategories,
	GetProducts,
	GetProductDetail,
	GetActiveOffers,
	SearchStoreInfo,
}

// Names 枚举全部工具名称（固定顺序）
func Names() []Name {
	out := make([]Name, len(allNames))
	copy(out, allNames)
	return out
}

// Valid 是否为枚举成员
func (n Name) Valid() bool {
	for _, known := range allNames {
		if n == known {
			return true
		}
	}
	return false
}

// ParseName 校验模型给出的工具名
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
	return n, nil
}

func (n Name) String() string { return string(n) }
