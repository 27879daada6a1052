package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/ranking"
	"hobby_forum/internal/domain/forum/repository"
	"hobby_forum/internal/domain/forum/service"
	"hobby_forum/pkg/response"
	"hobby_forum/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
}

func newHandler(votes service.VoteService) *ForumHandler {
	repo := repository.NewMemoryRepository()
	engine := ranking.NewEngine(ranking.DefaultDecaySeconds)
	opts := service.DefaultOptions()
	if votes == nil {
		votes = service.NewVoteService(repo, engine, opts)
	}
	return NewForumHandler(
		service.NewPostService(repo, engine, opts),
		votes,
		service.NewCommentService(repo, opts),
		service.NewFeedService(repo, nil, opts),
		nil,
	)
}

func newTestServer(t *testing.T, votes service.VoteService) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), newHandler(votes), testSecret)
	return &testServer{router: r}
}

func token(t *testing.T, userID string, role int) string {
	t.Helper()
	tok, _, err := utils.GenerateToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) createPost(t *testing.T, tok string) model.Post {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/forum/posts", tok, gin.H{
		"categoryId": "cards",
		"postType":   "showcase",
		"title":      "My first holo",
		"imageRefs":  []string{"a.jpg"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post model.Post
	require.NoError(t, json.Unmarshal(env.Data, &post))
	return post
}

func TestCastVoteFlow(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", model.RoleUser)
	bob := token(t, "bob", model.RoleUser)
	post := s.createPost(t, alice)

	steps := []struct {
		tok   string
		value int
		want  model.Counts
	}{
		{alice, 1, model.Counts{UpvoteCount: 1}},
		{bob, -1, model.Counts{UpvoteCount: 1, DownvoteCount: 1}},
		{alice, -1, model.Counts{DownvoteCount: 2}},
	}
	for _, step := range steps {
		w, env := s.do(t, http.MethodPost, "/api/v1/forum/votes", step.tok, gin.H{
			"targetType": "post", "targetId": post.ID, "value": step.value,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, response.CodeSuccess, env.Code)

		var counts model.Counts
		require.NoError(t, json.Unmarshal(env.Data, &counts))
		assert.Equal(t, step.want, counts)
	}
}

func TestVoteRequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/forum/votes", "", gin.H{"targetType": "post", "targetId": "x", "value": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrAuthFailed, env.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/forum/votes", "not-a-token", gin.H{"targetType": "post", "targetId": "x", "value": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenInvalid, env.Code)
}

func TestVoteValidation(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", model.RoleUser)

	w, _ := s.do(t, http.MethodPost, "/api/v1/forum/votes", alice, gin.H{"targetType": "post", "targetId": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/forum/votes", alice, gin.H{"targetType": "post", "targetId": "x", "value": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrNotFound, env.Code)
}

func TestModeratorRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", model.RoleUser)
	mod := token(t, "mod", model.RoleModerator)
	post := s.createPost(t, alice)
	lockPath := "/api/v1/forum/posts/" + post.ID + "/lock"

	w, env := s.do(t, http.MethodPut, lockPath, alice, gin.H{"locked": true})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrNoPermission, env.Code)

	w, _ = s.do(t, http.MethodPut, lockPath, mod, gin.H{"locked": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodPost, "/api/v1/forum/posts/"+post.ID+"/comments", alice, gin.H{"body": "hello"})
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, response.ErrPostLocked, env.Code)
}

func TestCommentsFlow(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", model.RoleUser)
	bob := token(t, "bob", model.RoleUser)
	post := s.createPost(t, alice)
	commentsPath := "/api/v1/forum/posts/" + post.ID + "/comments"

	parent := ""
	var first string
	for depth := 0; depth < 3; depth++ {
		body := gin.H{"body": "reply"}
		if parent != "" {
			body["parentId"] = parent
		}
		w, env := s.do(t, http.MethodPost, commentsPath, alice, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var c model.Comment
		require.NoError(t, json.Unmarshal(env.Data, &c))
		assert.Equal(t, depth, c.Depth)
		if first == "" {
			first = c.ID
		}
		parent = c.ID
	}

	w, env := s.do(t, http.MethodPost, commentsPath, alice, gin.H{"body": "too deep", "parentId": parent})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, response.ErrDepthExceeded, env.Code)

	w, env = s.do(t, http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tree []model.CommentNode
	require.NoError(t, json.Unmarshal(env.Data, &tree))
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)

	w, env = s.do(t, http.MethodDelete, "/api/v1/forum/comments/"+first, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrForbidden, env.Code)

	w, env = s.do(t, http.MethodDelete, "/api/v1/forum/comments/"+first, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result DeleteResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, int64(3), result.Removed)

	w, env = s.do(t, http.MethodGet, "/api/v1/forum/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Post
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(0), got.CommentCount)
}

func TestGetFeed(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", model.RoleUser)
	for i := 0; i < 3; i++ {
		s.createPost(t, alice)
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/forum/feed?categoryId=cards&sort=new&pageSize=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page service.FeedPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Posts, 2)
	require.NotNil(t, page.NextCursor)
	assert.False(t, page.Stale)

	w, env = s.do(t, http.MethodGet, "/api/v1/forum/feed?categoryId=cards&sort=new&pageSize=2&cursor="+*page.NextCursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = service.FeedPage{}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Posts, 1)
	assert.Nil(t, page.NextCursor)

	w, _ = s.do(t, http.MethodGet, "/api/v1/forum/feed?sort=new", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/forum/feed?categoryId=cards&sort=sideways", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeletePost(t *testing.T) {
	s := newTestServer(t, nil)
	alice := token(t, "alice", model.RoleUser)
	mod := token(t, "mod", model.RoleModerator)
	post := s.createPost(t, alice)

	w, _ := s.do(t, http.MethodDelete, "/api/v1/forum/posts/"+post.ID, mod, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/forum/posts/"+post.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubVotes struct {
	err error
}

func (s stubVotes) CastVote(context.Context, string, model.TargetType, string, int) (model.Counts, error) {
	return model.Counts{}, s.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     int
		leakText string
	}{
		{"transient", service.ErrTransient, http.StatusServiceUnavailable, response.ErrTemporary, ""},
		{"internal", errors.New("pq: password authentication failed for user forum"), http.StatusInternalServerError, response.ErrServerInternal, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, stubVotes{err: tt.err})
			w, env := s.do(t, http.MethodPost, "/api/v1/forum/votes", token(t, "alice", model.RoleUser), gin.H{
				"targetType": "post", "targetId": "p", "value": 1,
			})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
			if tt.leakText != "" {
				assert.NotContains(t, w.Body.String(), tt.leakText)
			}
		})
	}
}
