package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 以下用例在 PostgreSQL 实现上检查服务层发出的语句顺序

const (
	lockPostSQL    = `SELECT \* FROM "posts" WHERE id = \$1 ORDER BY .* FOR UPDATE`
	hotScoreSQL    = `UPDATE "posts" SET "hot_score"=\$1 WHERE id = \$2`
	insertVoteSQL  = `INSERT INTO "votes"`
	commentInPost  = `SELECT \* FROM "comments" WHERE id = \$1 AND post_id = \$2`
	postCountsSQL  = "UPDATE posts SET upvote_count = upvote_count + $1, downvote_count = downvote_count + $2 WHERE id = $3"
	commentCntsSQL = "UPDATE comments SET upvote_count = upvote_count + $1, downvote_count = downvote_count + $2 WHERE id = $3"
)

func newGormFixture(t *testing.T) (*fixture, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return newFixtureWithRepo(t, repository.NewGormRepository(db)), mock
}

var postCreated = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func postRow(id string, up, down int64, locked bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at", "upvote_count", "downvote_count", "is_locked"}).
		AddRow(id, postCreated, up, down, locked)
}

func commentRow(id, postID string, depth int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "post_id", "author_id", "depth", "upvote_count", "downvote_count"}).
		AddRow(id, postID, "author-2", depth, 0, 0)
}

func TestGormVote_PostLockedBeforeCheck(t *testing.T) {
	f, mock := newGormFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPostSQL).WillReturnRows(postRow("p1", 3, 1, false))
	mock.ExpectQuery(`SELECT \* FROM "votes" WHERE user_id = \$1 AND post_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(insertVoteSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(postCountsSQL)).
		WithArgs(int64(1), int64(0), "p1").
		WillReturnRows(sqlmock.NewRows([]string{"upvote_count", "downvote_count"}).AddRow(4, 1))
	mock.ExpectExec(hotScoreSQL).
		WithArgs(sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counts, err := f.votes.CastVote(context.Background(), "alice", model.TargetPost, "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{UpvoteCount: 4, DownvoteCount: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormVote_LockedRowRejects(t *testing.T) {
	f, mock := newGormFixture(t)

	// 锁帖状态取自 FOR UPDATE 读到的行
	mock.ExpectBegin()
	mock.ExpectQuery(lockPostSQL).WillReturnRows(postRow("p1", 0, 0, true))
	mock.ExpectRollback()

	_, err := f.votes.CastVote(context.Background(), "alice", model.TargetPost, "p1", 1)
	assert.ErrorIs(t, err, ErrLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormVote_CommentTargetRescoresPost(t *testing.T) {
	f, mock := newGormFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "comments" WHERE id = \$1`).
		WillReturnRows(commentRow("c1", "p1", 0))
	mock.ExpectQuery(lockPostSQL).WillReturnRows(postRow("p1", 2, 0, false))
	mock.ExpectQuery(commentInPost).
		WithArgs("c1", "p1", sqlmock.AnyArg()).
		WillReturnRows(commentRow("c1", "p1", 0))
	mock.ExpectQuery(`SELECT \* FROM "votes" WHERE user_id = \$1 AND comment_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(insertVoteSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(commentCntsSQL)).
		WithArgs(int64(1), int64(0), "c1").
		WillReturnRows(sqlmock.NewRows([]string{"upvote_count", "downvote_count"}).AddRow(1, 0))
	// 帖子只锁一次，热度直接写回
	mock.ExpectExec(hotScoreSQL).
		WithArgs(sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counts, err := f.votes.CastVote(context.Background(), "alice", model.TargetComment, "c1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.Counts{UpvoteCount: 1, DownvoteCount: 0}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormComment_ParentDeletedConcurrentlyIsRetried(t *testing.T) {
	f, mock := newGormFixture(t)

	// 第一次：父评论可见，但写入时已被并发删除，外键冲突
	mock.ExpectBegin()
	mock.ExpectQuery(lockPostSQL).WillReturnRows(postRow("p1", 0, 0, false))
	mock.ExpectQuery(commentInPost).WillReturnRows(commentRow("c1", "p1", 0))
	mock.ExpectExec(`INSERT INTO "comments"`).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	// 重试：父评论已不存在
	mock.ExpectBegin()
	mock.ExpectQuery(lockPostSQL).WillReturnRows(postRow("p1", 0, 0, false))
	mock.ExpectQuery(commentInPost).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	parent := "c1"
	_, err := f.comments.AddComment(context.Background(), "p1", "author-3", "reply", &parent)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormComment_ParentOnOtherPost(t *testing.T) {
	f, mock := newGormFixture(t)

	// 父评论只在被锁定的帖子内查找
	mock.ExpectBegin()
	mock.ExpectQuery(lockPostSQL).WillReturnRows(postRow("p1", 0, 0, false))
	mock.ExpectQuery(commentInPost).
		WithArgs("c-other", "p1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	parent := "c-other"
	_, err := f.comments.AddComment(context.Background(), "p1", "author-3", "reply", &parent)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormComment_DeleteDecrementsByRemovedRows(t *testing.T) {
	f, mock := newGormFixture(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "comments" WHERE id = \$1`).
		WillReturnRows(commentRow("c1", "p1", 0))
	mock.ExpectExec(`WITH RECURSIVE tree AS .* DELETE FROM comments`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE posts SET comment_count = comment_count + $1")).
		WithArgs(int64(-3), sqlmock.AnyArg(), "p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "comment_count"}).AddRow("p1", 1))
	mock.ExpectCommit()

	removed, err := f.comments.DeleteComment(context.Background(), "c1", moderator)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
