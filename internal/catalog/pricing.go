package catalog

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Slugify 名称转 slug：小写，非字母数字折叠为 "-"
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// OfferValid 优惠当前是否有效：启用且活动在有效期内
func OfferValid(o *Offer, now time.Time) bool {
	if o == nil || !o.IsActive || o.Campaign == nil {
		return false
	}
	return o.Campaign.Running(now)
}

// ActiveOffer 返回新价最低的有效优惠，没有则为 nil
func ActiveOffer(p *Product, now time.Time) *Offer {
	var best *Offer
	for i := range p.Offers {
		o := &p.Offers[i]
		if !OfferValid(o, now) {
			continue
		}
		if best == nil || o.NewPrice.LessThan(best.NewPrice) {
			best = o
		}
	}
	return best
}

// DisplayPrice 展示价：有效优惠的最低新价，否则原价
func DisplayPrice(p *Product, now time.Time) decimal.Decimal {
	if o := ActiveOffer(p, now); o != nil {
		return o.NewPrice
	}
	return p.Price
}

// EffectiveStock 有尺码库存时为各尺码数量之和，否则为 Stock 字段
func EffectiveStock(p *Product) int {
	if len(p.Sizes) == 0 {
		return p.Stock
	}
	total := 0
	for _, s := range p.Sizes {
		total += s.Quantity
	}
	return total
}

// Round2 保留两位小数（四舍五入）
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PriceFromPercentage 按折扣百分比计算新价，0 < pct < 100
// pct 先保留两位小数再校验，与入库值一致
func PriceFromPercentage(oldPrice, pct decimal.Decimal) (decimal.Decimal, error) {
	pct = Round2(pct)
	if !pct.IsPositive() || pct.GreaterThanOrEqual(hundred) {
		return decimal.Zero, invalidf("percentage_off must be between 0 and 100")
	}
	return Round2(oldPrice.Mul(hundred.Sub(pct)).Div(hundred)), nil
}

// PercentageFromPrice 按新价反算折扣百分比，0 < newPrice < oldPrice
// newPrice 先保留两位小数再校验，与入库值一致
func PercentageFromPrice(oldPrice, newPrice decimal.Decimal) (decimal.Decimal, error) {
	newPrice = Round2(newPrice)
	if !newPrice.IsPositive() || newPrice.GreaterThanOrEqual(oldPrice) {
		return decimal.Zero, invalidf("new_price must be positive and lower than the current price")
	}
	return Round2(oldPrice.Sub(newPrice).Div(oldPrice).Mul(hundred)), nil
}
