package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrResumeExists 用户已经有一份简历。
var ErrResumeExists = errors.New("resume already exists")

// Resumes 封装简历表的读写，API 与 worker 共用。
type Resumes struct {
	db *gorm.DB
}

// NewResumes 构造仓储。
func NewResumes(db *gorm.DB) *Resumes {
	return &Resumes{db: db}
}

// FindByUser 返回用户的简历，不存在时返回 gorm.ErrRecordNotFound。
func (r *Resumes) FindByUser(ctx context.Context, userID uint) (*Resume, error) {
	var resume Resume
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&resume).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// Create 插入新简历，已存在时返回 ErrResumeExists。
func (r *Resumes) Create(ctx context.Context, userID uint, content []byte) (*Resume, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Resume{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count resumes: %w", err)
	}
	if count > 0 {
		return nil, ErrResumeExists
	}

	resume := Resume{UserID: userID, Content: datatypes.JSON(content)}
	if err := r.db.WithContext(ctx).Create(&resume).Error; err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return &resume, nil
}

// UpdateContent 覆盖简历内容，不存在时返回 gorm.ErrRecordNotFound。
func (r *Resumes) UpdateContent(ctx context.Context, userID uint, content []byte) (*Resume, error) {
	resume, err := r.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(resume).Update("content", datatypes.JSON(content)).Error; err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}
	return resume, nil
}

// FindByID 按主键查询，worker 使用。
func (r *Resumes) FindByID(ctx context.Context, id uint) (*Resume, error) {
	var resume Resume
	if err := r.db.WithContext(ctx).First(&resume, id).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// SetExport 记录导出状态与对象 key，objectKey 为空时保留原值。
func (r *Resumes) SetExport(ctx context.Context, id uint, status, objectKey string) error {
	updates := map[string]any{"export_status": status}
	if objectKey != "" {
		updates["pdf_object_key"] = objectKey
	}
	if err := r.db.WithContext(ctx).Model(&Resume{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	return nil
}
