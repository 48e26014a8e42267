package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeOperator postgres 的 LIKE 区分大小写，改用 ILIKE
func likeOperator(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "LIKE"
	}
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// likeCondition 构建多列 OR 的模糊匹配条件，返回条件与参数个数
func likeCondition(operator string, columns ...string) (string, int) {
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s %s ? ESCAPE '\'`, column, operator))
	}
	if len(parts) == 0 {
		return "", 0
	}
	return "(" + strings.Join(parts, " OR ") + ")", len(parts)
}

// applyLikeSearch 追加模糊搜索条件，search 中的通配符按字面匹配
func applyLikeSearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return query
	}
	condition, count := likeCondition(likeOperator(query), columns...)
	if count == 0 {
		return query
	}
	pattern := "%" + likeEscaper.Replace(search) + "%"
	args := make([]interface{}, count)
	for i := range args {
		args[i] = pattern
	}
	return query.Where(condition, args...)
}
