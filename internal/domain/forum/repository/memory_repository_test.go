package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hobby_forum/internal/domain/forum/model"
	baseModel "hobby_forum/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAbort = errors.New("abort")

func newPost(category string, created time.Time) *model.Post {
	p := &model.Post{
		AuthorID:   "author-1",
		CategoryID: category,
		PostType:   model.PostTypeDiscussion,
		Title:      "Pokemon binder tour",
	}
	p.ID = baseModel.NewID()
	p.CreatedAt = created
	p.UpdatedAt = created
	return p
}

// newTestStore 创建内存仓库与一个帖子
func newTestStore(t *testing.T) (ForumRepository, *model.Post) {
	repo := NewMemoryRepository()
	post := newPost("cards", baseModel.Now())
	err := repo.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertPost(post)
	})
	require.NoError(t, err)
	return repo, post
}

func insertComment(t *testing.T, repo ForumRepository, postID string, parentID *string) *model.Comment {
	c := &model.Comment{
		ID:        baseModel.NewID(),
		PostID:    postID,
		AuthorID:  "author-2",
		ParentID:  parentID,
		Body:      "nice pulls",
		CreatedAt: baseModel.Now(),
	}
	err := repo.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertComment(c)
	})
	require.NoError(t, err)
	return c
}

func TestMemory_CreateAndGetPost(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)

	_, err = repo.GetPost(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_RollbackRestoresState(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()
	target := model.Target{Type: model.TargetPost, ID: post.ID}

	err := repo.WithTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertVote(model.NewVote("u1", target, 1, baseModel.Now())))
		_, err := tx.AddVoteCounts(target, 1, 0)
		require.NoError(t, err)
		require.NoError(t, tx.SetHotScore(post.ID, 42))
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UpvoteCount)
	assert.Equal(t, 0.0, got.HotScore)

	err = repo.WithTx(ctx, func(tx Tx) error {
		_, err := tx.FindVote("u1", target)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CancelledContextRollsBack(t *testing.T) {
	repo, post := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := repo.WithTx(ctx, func(tx Tx) error {
		_, err := tx.AddCommentCount(post.ID, 1)
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, err := repo.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CommentCount)
}

func TestMemory_VoteConflicts(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()
	target := model.Target{Type: model.TargetPost, ID: post.ID}
	vote := model.NewVote("u1", target, 1, baseModel.Now())

	require.NoError(t, repo.WithTx(ctx, func(tx Tx) error { return tx.InsertVote(vote) }))

	t.Run("duplicate insert", func(t *testing.T) {
		err := repo.WithTx(ctx, func(tx Tx) error {
			return tx.InsertVote(model.NewVote("u1", target, -1, baseModel.Now()))
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("stale update", func(t *testing.T) {
		err := repo.WithTx(ctx, func(tx Tx) error { return tx.UpdateVoteValue(vote.ID, -1, 1) })
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("stale delete", func(t *testing.T) {
		err := repo.WithTx(ctx, func(tx Tx) error { return tx.DeleteVote(vote.ID, -1) })
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("matching update", func(t *testing.T) {
		err := repo.WithTx(ctx, func(tx Tx) error {
			if _, err := tx.FindVote("u1", target); err != nil {
				return err
			}
			return tx.UpdateVoteValue(vote.ID, 1, -1)
		})
		require.NoError(t, err)
	})
}

func TestMemory_DeleteCommentTree(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()

	c1 := insertComment(t, repo, post.ID, nil)
	c2 := insertComment(t, repo, post.ID, &c1.ID)
	c3 := insertComment(t, repo, post.ID, &c2.ID)
	other := insertComment(t, repo, post.ID, nil)

	target := model.Target{Type: model.TargetComment, ID: c2.ID}
	require.NoError(t, repo.WithTx(ctx, func(tx Tx) error {
		return tx.InsertVote(model.NewVote("u1", target, 1, baseModel.Now()))
	}))

	var removed int64
	err := repo.WithTx(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.DeleteCommentTree(c1.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	for _, id := range []string{c1.ID, c2.ID, c3.ID} {
		_, err := repo.GetComment(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = repo.GetComment(ctx, other.ID)
	assert.NoError(t, err)

	// 第二次删除同一子树
	err = repo.WithTx(ctx, func(tx Tx) error {
		_, err := tx.DeleteCommentTree(c1.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_InsertReplyToMissingParent(t *testing.T) {
	repo, post := newTestStore(t)
	missing := baseModel.NewID()

	err := repo.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertComment(&model.Comment{PostID: post.ID, AuthorID: "a", ParentID: &missing, Body: "x"})
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_DeletePostRemovesFamily(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()
	c := insertComment(t, repo, post.ID, nil)

	var n int64
	require.NoError(t, repo.WithTx(ctx, func(tx Tx) error {
		var err error
		n, err = tx.DeletePost(post.ID)
		return err
	}))
	assert.Equal(t, int64(1), n)

	_, err := repo.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetComment(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListFeedKeyset(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	var posts []*model.Post
	for i := 0; i < 5; i++ {
		p := newPost("cards", base.Add(time.Duration(i)*time.Minute))
		posts = append(posts, p)
	}
	pinned := newPost("cards", base)
	pinned.IsPinned = true
	foreign := newPost("stamps", base.Add(time.Hour))

	require.NoError(t, repo.WithTx(ctx, func(tx Tx) error {
		for _, p := range append(posts, pinned, foreign) {
			if err := tx.InsertPost(p); err != nil {
				return err
			}
		}
		return nil
	}))

	filter := model.FeedFilter{CategoryID: "cards"}
	page, err := repo.ListFeed(ctx, model.FeedQuery{Filter: filter, Sort: model.SortNew, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, posts[4].ID, page[0].ID)
	assert.Equal(t, posts[2].ID, page[2].ID)

	last := page[2]
	page, err = repo.ListFeed(ctx, model.FeedQuery{
		Filter: filter,
		Sort:   model.SortNew,
		After:  &model.FeedPosition{Key: model.SortKey(&last, model.SortNew), ID: last.ID},
		Limit:  3,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, posts[1].ID, page[0].ID)
	assert.Equal(t, posts[0].ID, page[1].ID)

	pins, err := repo.ListPinned(ctx, filter)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, pinned.ID, pins[0].ID)
}

func TestMemory_ConcurrentDeltas(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()
	target := model.Target{Type: model.TargetPost, ID: post.ID}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.WithTx(ctx, func(tx Tx) error {
				if err := tx.InsertVote(model.NewVote(fmt.Sprintf("u%d", i), target, 1, baseModel.Now())); err != nil {
					return err
				}
				_, err := tx.AddVoteCounts(target, 1, 0)
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.UpvoteCount)
}

func TestMemory_GetCommentInPost(t *testing.T) {
	repo, post := newTestStore(t)
	other := newPost("figures", baseModel.Now())
	require.NoError(t, repo.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertPost(other)
	}))
	c := insertComment(t, repo, post.ID, nil)

	err := repo.WithTx(context.Background(), func(tx Tx) error {
		got, err := tx.GetCommentInPost(post.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)

		_, err = tx.GetCommentInPost(other.ID, c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestMemory_SecondFamilyDoesNotBlock(t *testing.T) {
	repo, a := newTestStore(t)
	b := newPost("figures", baseModel.Now())
	require.NoError(t, repo.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertPost(b)
	}))
	ca := insertComment(t, repo, a.ID, nil)

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = repo.WithTx(context.Background(), func(tx Tx) error {
			_, err := tx.LockPost(a.ID)
			close(held)
			<-done
			return err
		})
	}()
	<-held
	defer close(done)

	result := make(chan error, 1)
	go func() {
		result <- repo.WithTx(context.Background(), func(tx Tx) error {
			if _, err := tx.LockPost(b.ID); err != nil {
				return err
			}
			_, err := tx.GetComment(ca.ID)
			return err
		})
	}()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrConflict)
	case <-time.After(2 * time.Second):
		t.Fatal("transaction blocked on a second post")
	}
}

func TestMemory_FeedReadsDoNotWaitForWriters(t *testing.T) {
	repo, post := newTestStore(t)
	ctx := context.Background()
	target := model.Target{Type: model.TargetPost, ID: post.ID}

	held := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		finished <- repo.WithTx(ctx, func(tx Tx) error {
			if _, err := tx.AddVoteCounts(target, 1, 0); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	read := make(chan []model.Post, 1)
	go func() {
		posts, _ := repo.ListFeed(ctx, model.FeedQuery{Filter: model.FeedFilter{CategoryID: "cards"}, Sort: model.SortNew, Limit: 10})
		read <- posts
	}()

	select {
	case posts := <-read:
		// 未提交的增量不可见
		require.Len(t, posts, 1)
		assert.Equal(t, int64(0), posts[0].UpvoteCount)
	case <-time.After(2 * time.Second):
		t.Fatal("feed read blocked behind a write transaction")
	}

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UpvoteCount)

	close(done)
	require.NoError(t, <-finished)

	got, err = repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UpvoteCount)
}
