package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor 游标无法解析
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor 游标分页位置：上一页最后一条记录的 (排序方式, 排序键, ID)
type Cursor struct {
	Sort string `json:"s"`
	Key  string `json:"k"`
	ID   string `json:"id"`
}

// EncodeCursor 将游标编码为不透明字符串
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor 解析不透明游标字符串
func DecodeCursor(s string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.Sort == "" || c.Key == "" || c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// ClampPageSize 规范化分页大小
func ClampPageSize(size, def, max int) int {
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return size
}
