package common

import "gorm.io/gorm"

// ActiveOnly 仅查询 is_active 为真的记录
// 使用方法：db.Scopes(common.ActiveOnly()).Find(&products)
func ActiveOnly() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ?", true)
	}
}

// Paginate 应用分页条件
// 使用方法：db.Scopes(common.Paginate(req)).Find(&orders)
func Paginate(req PaginationRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.GetOffset()).Limit(req.GetPageSize())
	}
}

// KeywordSearch 在多个字段上做 LIKE 模糊搜索
func KeywordSearch(keyword string, fields ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if keyword == "" || len(fields) == 0 {
			return db
		}
		pattern := "%" + keyword + "%"
		cond := db.Session(&gorm.Session{NewDB: true})
		for i, f := range fields {
			if i == 0 {
				cond = cond.Where(f+" LIKE ?", pattern)
			} else {
				cond = cond.Or(f+" LIKE ?", pattern)
			}
		}
		return db.Where(cond)
	}
}
