package repository

import (
	"strings"

	"gorm.io/gorm"
)

// ListParams carries the page/limit/search query string values of list endpoints
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

// Offset is the number of rows skipped before the requested page
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// paginate applies LIMIT/OFFSET
func paginate(p ListParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit <= 0 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// searchColumns matches a case-insensitive literal substring against any of the columns
func searchColumns(search string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term := strings.TrimSpace(search)
		if term == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		clauses := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, c := range columns {
			clauses[i] = "LOWER(" + c + `) LIKE ? ESCAPE '\'`
			args[i] = pattern
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// findPage counts the filtered rows and loads the requested page into dest
func findPage(query *gorm.DB, p ListParams, order string, dest interface{}) (int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	if err := query.Session(&gorm.Session{}).Order(order).Scopes(paginate(p)).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}
