package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 导出状态。
const (
	ExportStatusNone      = ""
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string  `gorm:"size:128"`
	Email        string  `gorm:"uniqueIndex;size:255"`
	PasswordHash string  `gorm:"size:255"`
	Resume       *Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 每个用户一份，Content 为规范化后的 Document JSON（不含 versions）。
type Resume struct {
	gorm.Model
	UserID       uint           `gorm:"uniqueIndex"`
	Content      datatypes.JSON `gorm:"type:jsonb"`
	PdfObjectKey string         `gorm:"size:512"`
	ExportStatus string         `gorm:"size:32"`
}

// AutoMigrate 建表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Resume{})
}
