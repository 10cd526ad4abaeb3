package repository

import "gorm.io/gorm"

// paginate applies an offset/limit window. A non-positive limit returns every row.
func paginate(offset, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Offset(offset).Limit(limit)
	}
}
