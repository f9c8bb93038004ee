package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isPostgres 方言相关SQL（jsonb 合并）按驱动名选择
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
