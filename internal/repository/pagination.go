package repository

import "gorm.io/gorm"

// maxPageSize 单页上限，防止后台列表一次拉取过多行
const maxPageSize = 200

// findPage 统计总数后按页读取；pageSize ≤ 0 时不分页，scopes 只作用于读取（如 Preload）
func findPage[T any](query *gorm.DB, page, pageSize int, order string, dest *[]T, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	if pageSize > 0 {
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
	if order != "" {
		query = query.Order(order)
	}
	if len(scopes) > 0 {
		query = query.Scopes(scopes...)
	}
	if err := query.Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}
