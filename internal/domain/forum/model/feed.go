package model

import (
	"strconv"
	"time"
)

// SortMode feed 排序方式
type SortMode string

const (
	SortHot SortMode = "hot" // hot_score
	SortNew SortMode = "new" // created_at
	SortTop SortMode = "top" // upvote_count - downvote_count
)

// Valid 是否为已知排序方式
func (s SortMode) Valid() bool {
	return s == SortHot || s == SortNew || s == SortTop
}

// FeedFilter feed 过滤条件，全部为精确匹配并以 AND 组合
type FeedFilter struct {
	CategoryID      string
	InterestGroupID *string
	PostType        *PostType
}

// Matches 帖子是否满足过滤条件
func (f FeedFilter) Matches(p *Post) bool {
	if p.CategoryID != f.CategoryID {
		return false
	}
	if f.InterestGroupID != nil && (p.InterestGroupID == nil || *p.InterestGroupID != *f.InterestGroupID) {
		return false
	}
	if f.PostType != nil && p.PostType != *f.PostType {
		return false
	}
	return true
}

// FeedPosition 上一页最后一条的 (排序键, ID)
type FeedPosition struct {
	Key float64
	ID  string
}

// FeedQuery 存储层的 feed 查询，Limit 已包含预读的一条
type FeedQuery struct {
	Filter FeedFilter
	Sort   SortMode
	After  *FeedPosition
	Limit  int
}

// SortKey 帖子在给定排序方式下的排序键
// new 使用微秒时间戳，float64 可以精确表示
func SortKey(p *Post, sort SortMode) float64 {
	switch sort {
	case SortNew:
		return float64(p.CreatedAt.UnixMicro())
	case SortTop:
		return float64(p.NetVotes())
	default:
		return p.HotScore
	}
}

// KeyTime 将 new 排序键还原为时间
func KeyTime(key float64) time.Time {
	return time.UnixMicro(int64(key)).UTC()
}

// FormatKey 排序键编码进游标
func FormatKey(key float64) string {
	return strconv.FormatFloat(key, 'g', -1, 64)
}

// ParseKey 从游标解析排序键
func ParseKey(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Precedes 在 (key DESC, id DESC) 顺序下 a 是否排在 b 之前
func Precedes(aKey float64, aID string, bKey float64, bID string) bool {
	if aKey != bKey {
		return aKey > bKey
	}
	return aID > bID
}

// PinnedPrecedes 置顶帖按 (created_at DESC, id DESC) 排列
func PinnedPrecedes(a, b *Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
