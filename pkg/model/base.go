package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel 基础模型，替代 gorm.Model，使用 UUIDv7 作为主键
// UUIDv7 按生成时间单调递增，可以直接作为排序的 tie-break 字段
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate 钩子：生成 UUID
func (b *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = NewID()
	}
	return
}

// NewID 生成一个新的 UUIDv7 字符串
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// 系统随机源不可用时退化为 v4
		return uuid.New().String()
	}
	return id.String()
}

// Now 返回截断到微秒的 UTC 时间，与 Postgres timestamptz 精度一致
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
