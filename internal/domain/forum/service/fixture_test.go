package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/ranking"
	"hobby_forum/internal/domain/forum/repository"
	"hobby_forum/pkg/cache"

	"github.com/stretchr/testify/require"
)

var moderator = model.Actor{UserID: "mod-1", Role: model.RoleModerator}

// testClock 每次调用前进一秒，保证 created_at 互不相同
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	repo     repository.ForumRepository
	engine   ranking.Engine
	opts     Options
	posts    PostService
	votes    VoteService
	comments CommentService
	feed     FeedService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRepo(t, repository.NewMemoryRepository())
}

func newFixtureWithRepo(t *testing.T, repo repository.ForumRepository) *fixture {
	t.Helper()
	opts := DefaultOptions()
	opts.Now = newTestClock().Now
	opts.FeedDefaultPageSize = 3
	opts.FeedMaxPageSize = 10

	pageCache, err := cache.NewLocalCache(64)
	require.NoError(t, err)

	engine := ranking.NewEngine(ranking.DefaultDecaySeconds)
	return &fixture{
		repo:     repo,
		engine:   engine,
		opts:     opts,
		posts:    NewPostService(repo, engine, opts),
		votes:    NewVoteService(repo, engine, opts),
		comments: NewCommentService(repo, opts),
		feed:     NewFeedService(repo, pageCache, opts),
	}
}

func (f *fixture) createPost(t *testing.T, category string, edit ...func(*CreatePostInput)) *model.Post {
	t.Helper()
	in := CreatePostInput{
		AuthorID:   "author-1",
		CategoryID: category,
		PostType:   model.PostTypeDiscussion,
		Title:      "Vintage stamp haul",
		Body:       "look at these",
		ImageRefs:  []string{"img/1.jpg"},
	}
	for _, fn := range edit {
		fn(&in)
	}
	post, err := f.posts.CreatePost(context.Background(), in)
	require.NoError(t, err)
	return post
}

func (f *fixture) comment(t *testing.T, postID string, parentID *string) *model.Comment {
	t.Helper()
	c, err := f.comments.AddComment(context.Background(), postID, "author-2", "great find", parentID)
	require.NoError(t, err)
	return c
}

func (f *fixture) post(t *testing.T, id string) *model.Post {
	t.Helper()
	p, err := f.posts.GetPost(context.Background(), id)
	require.NoError(t, err)
	return p
}
