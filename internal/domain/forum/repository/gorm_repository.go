package repository

import (
	"context"
	"errors"
	"fmt"

	"hobby_forum/internal/domain/forum/model"
	baseModel "hobby_forum/pkg/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 需要整体重试的 SQLSTATE
var conflictCodes = map[string]bool{
	"23505": true, // unique_violation
	"23503": true, // foreign_key_violation，父评论被并发删除
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository 基于 PostgreSQL 的实现
// db 需要开启 TranslateError，表结构见 migrations/
func NewGormRepository(db *gorm.DB) ForumRepository {
	return &gormRepository{db: db}
}

// translate 将驱动错误归类为 ErrNotFound / ErrConflict
func translate(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if conflictCodes[pgErr.Code] {
			return fmt.Errorf("%w: sqlstate %s", ErrConflict, pgErr.Code)
		}
		// invalid_text_representation：非法 uuid 视为不存在
		if pgErr.Code == "22P02" {
			return ErrNotFound
		}
	}
	return err
}

func (r *gormRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
	return translate(err)
}

func (r *gormRepository) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *gormRepository) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *gormRepository) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}
	return comments, nil
}

func applyFilter(db *gorm.DB, f model.FeedFilter) *gorm.DB {
	db = db.Where("category_id = ?", f.CategoryID)
	if f.InterestGroupID != nil {
		db = db.Where("interest_group_id = ?", *f.InterestGroupID)
	}
	if f.PostType != nil {
		db = db.Where("post_type = ?", *f.PostType)
	}
	return db
}

func (r *gormRepository) ListPinned(ctx context.Context, filter model.FeedFilter) ([]model.Post, error) {
	var posts []model.Post
	err := applyFilter(r.db.WithContext(ctx).Model(&model.Post{}), filter).
		Where("is_pinned = ?", true).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// sortColumn 排序键对应的 SQL 表达式
func sortColumn(sort model.SortMode) string {
	switch sort {
	case model.SortNew:
		return "created_at"
	case model.SortTop:
		return "(upvote_count - downvote_count)"
	default:
		return "hot_score"
	}
}

// keyArg 游标中的排序键转换为与列类型一致的参数
func keyArg(sort model.SortMode, key float64) any {
	switch sort {
	case model.SortNew:
		return model.KeyTime(key)
	case model.SortTop:
		return int64(key)
	default:
		return key
	}
}

func (r *gormRepository) ListFeed(ctx context.Context, q model.FeedQuery) ([]model.Post, error) {
	col := sortColumn(q.Sort)
	db := applyFilter(r.db.WithContext(ctx).Model(&model.Post{}), q.Filter).
		Where("is_pinned = ?", false)

	// keyset：(key, id) < (after.key, after.id)
	if q.After != nil {
		k := keyArg(q.Sort, q.After.Key)
		db = db.Where(col+" < ? OR ("+col+" = ? AND id < ?)", k, k, q.After.ID)
	}

	var posts []model.Post
	err := db.Order(col + " DESC, id DESC").Limit(q.Limit).Find(&posts).Error
	if err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

// gormTx 事务内原语，所有计数修改都是单条 UPDATE 增量
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) GetPost(id string) (*model.Post, error) {
	var post model.Post
	if err := t.db.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (t *gormTx) LockPost(id string) (*model.Post, error) {
	var post model.Post
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (t *gormTx) GetComment(id string) (*model.Comment, error) {
	var comment model.Comment
	if err := t.db.Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (t *gormTx) GetCommentInPost(postID, commentID string) (*model.Comment, error) {
	var comment model.Comment
	err := t.db.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (t *gormTx) InsertPost(post *model.Post) error {
	return translate(t.db.Create(post).Error)
}

func (t *gormTx) DeletePost(id string) (int64, error) {
	// 评论与投票由外键 ON DELETE CASCADE 一并删除
	result := t.db.Where("id = ?", id).Delete(&model.Post{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (t *gormTx) SetPostFlags(id string, pinned, locked *bool) (*model.Post, error) {
	updates := map[string]any{"updated_at": baseModel.Now()}
	if pinned != nil {
		updates["is_pinned"] = *pinned
	}
	if locked != nil {
		updates["is_locked"] = *locked
	}

	result := t.db.Model(&model.Post{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return t.GetPost(id)
}

func (t *gormTx) SetHotScore(postID string, score float64) error {
	result := t.db.Model(&model.Post{}).Where("id = ?", postID).UpdateColumn("hot_score", score)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) AddCommentCount(postID string, delta int64) (*model.Post, error) {
	var post model.Post
	result := t.db.Raw(
		"UPDATE posts SET comment_count = comment_count + ?, updated_at = ? WHERE id = ? RETURNING *",
		delta, baseModel.Now(), postID,
	).Scan(&post)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &post, nil
}

func voteColumn(target model.Target) string {
	if target.Type == model.TargetComment {
		return "comment_id"
	}
	return "post_id"
}

func (t *gormTx) FindVote(userID string, target model.Target) (*model.Vote, error) {
	var vote model.Vote
	err := t.db.Where("user_id = ? AND "+voteColumn(target)+" = ?", userID, target.ID).
		First(&vote).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vote, nil
}

func (t *gormTx) InsertVote(vote *model.Vote) error {
	return translate(t.db.Create(vote).Error)
}

func (t *gormTx) UpdateVoteValue(id string, oldValue, newValue int8) error {
	result := t.db.Model(&model.Vote{}).
		Where("id = ? AND value = ?", id, oldValue).
		Updates(map[string]any{"value": newValue, "updated_at": baseModel.Now()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (t *gormTx) DeleteVote(id string, oldValue int8) error {
	result := t.db.Where("id = ? AND value = ?", id, oldValue).Delete(&model.Vote{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (t *gormTx) AddVoteCounts(target model.Target, upDelta, downDelta int64) (model.Counts, error) {
	table := "posts"
	if target.Type == model.TargetComment {
		table = "comments"
	}

	var counts model.Counts
	result := t.db.Raw(
		"UPDATE "+table+" SET upvote_count = upvote_count + ?, downvote_count = downvote_count + ? WHERE id = ? RETURNING upvote_count, downvote_count",
		upDelta, downDelta, target.ID,
	).Scan(&counts)
	if result.Error != nil {
		return model.Counts{}, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return model.Counts{}, ErrNotFound
	}
	return counts, nil
}

func (t *gormTx) InsertComment(comment *model.Comment) error {
	return translate(t.db.Create(comment).Error)
}

// deleteTreeSQL 一条语句删除评论子树，RowsAffected 即实际删除数
// 并发删除重叠子树时，已被删除的行不会重复计数
const deleteTreeSQL = `WITH RECURSIVE tree AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN tree ON c.parent_id = tree.id
)
DELETE FROM comments WHERE id IN (SELECT id FROM tree)`

func (t *gormTx) DeleteCommentTree(id string) (int64, error) {
	result := t.db.Exec(deleteTreeSQL, id)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return result.RowsAffected, nil
}
