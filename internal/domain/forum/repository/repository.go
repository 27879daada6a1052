package repository

import (
	"context"
	"errors"

	"hobby_forum/internal/domain/forum/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrConflict 并发写冲突：唯一约束、CAS 未命中、序列化失败、死锁、外键竞争
	// 调用方应整体重试事务
	ErrConflict = errors.New("concurrent write conflict")
)

// ForumRepository 论坛数据访问
// 所有写操作都必须在 WithTx 中通过 Tx 完成
type ForumRepository interface {
	// WithTx 在一个事务中执行 fn；fn 返回错误或 ctx 在提交前结束时整体回滚
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetPost(ctx context.Context, id string) (*model.Post, error)
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	// ListComments 帖子下全部评论，按 (created_at, id) 升序
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
	// ListPinned 满足过滤条件的置顶帖，按 (created_at DESC, id DESC)
	ListPinned(ctx context.Context, filter model.FeedFilter) ([]model.Post, error)
	// ListFeed 非置顶帖，按 (sort key DESC, id DESC)，从 After 之后严格开始，最多 Limit 条
	ListFeed(ctx context.Context, q model.FeedQuery) ([]model.Post, error)
}

// Tx 事务内的原子原语
// 计数器只通过 Add* 增量修改
type Tx interface {
	GetPost(id string) (*model.Post, error)
	// LockPost 读取并锁定帖子行，直到事务结束
	LockPost(id string) (*model.Post, error)
	GetComment(id string) (*model.Comment, error)
	// GetCommentInPost 查找属于 postID 的评论，不属于该帖子时返回 ErrNotFound
	GetCommentInPost(postID, commentID string) (*model.Comment, error)

	InsertPost(post *model.Post) error
	// DeletePost 删除帖子及其评论、投票，返回删除的帖子行数
	DeletePost(id string) (int64, error)
	SetPostFlags(id string, pinned, locked *bool) (*model.Post, error)
	SetHotScore(postID string, score float64) error
	// AddCommentCount 对 comment_count 做增量，返回更新后的帖子
	AddCommentCount(postID string, delta int64) (*model.Post, error)

	FindVote(userID string, target model.Target) (*model.Vote, error)
	// InsertVote 已存在同一 (用户, 目标) 的投票时返回 ErrConflict
	InsertVote(vote *model.Vote) error
	// UpdateVoteValue 仅当当前值为 oldValue 时更新，否则 ErrConflict
	UpdateVoteValue(id string, oldValue, newValue int8) error
	// DeleteVote 仅当当前值为 oldValue 时删除，否则 ErrConflict
	DeleteVote(id string, oldValue int8) error
	// AddVoteCounts 对目标的赞/踩计数做增量，返回更新后的计数
	AddVoteCounts(target model.Target, upDelta, downDelta int64) (model.Counts, error)

	InsertComment(comment *model.Comment) error
	// DeleteCommentTree 删除评论及全部后代，返回实际删除的行数
	DeleteCommentTree(id string) (int64, error)
}
