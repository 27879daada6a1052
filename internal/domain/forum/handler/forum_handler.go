package handler

import (
	"context"
	"errors"
	"net/http"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/service"
	"hobby_forum/internal/pkg/middleware"
	"hobby_forum/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ForumHandler struct {
	posts    service.PostService
	votes    service.VoteService
	comments service.CommentService
	feed     service.FeedService
	log      *zap.Logger
}

func NewForumHandler(posts service.PostService, votes service.VoteService, comments service.CommentService, feed service.FeedService, log *zap.Logger) *ForumHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ForumHandler{posts: posts, votes: votes, comments: comments, feed: feed, log: log}
}

// VoteInput 投票输入，value 为 0 表示撤销
type VoteInput struct {
	TargetType string `json:"targetType" binding:"required,oneof=post comment"`
	TargetID   string `json:"targetId" binding:"required"`
	Value      *int   `json:"value" binding:"required"`
}

// CommentInput 评论输入
type CommentInput struct {
	Body     string  `json:"body" binding:"required"`
	ParentID *string `json:"parentId"`
}

// PostInput 发帖输入
type PostInput struct {
	CategoryID      string   `json:"categoryId" binding:"required"`
	InterestGroupID *string  `json:"interestGroupId"`
	PostType        string   `json:"postType" binding:"required"`
	Title           string   `json:"title" binding:"required"`
	Body            string   `json:"body"`
	ImageRefs       []string `json:"imageRefs"`
}

// LockInput 锁帖输入
type LockInput struct {
	Locked *bool `json:"locked" binding:"required"`
}

// PinInput 置顶输入
type PinInput struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

// FeedParams feed 查询参数
type FeedParams struct {
	CategoryID      string `form:"categoryId" binding:"required"`
	InterestGroupID string `form:"interestGroupId"`
	PostType        string `form:"postType"`
	Sort            string `form:"sort"`
	Cursor          string `form:"cursor"`
	PageSize        int    `form:"pageSize"`
}

// DeleteResult 删除的评论数
type DeleteResult struct {
	Removed int64 `json:"removed"`
}

// fail 将服务层错误映射为 HTTP 状态码与业务码，内部错误只记录日志
func (h *ForumHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.ErrNotFound, "Not found")
	case errors.Is(err, service.ErrLocked):
		response.Error(c, http.StatusLocked, response.ErrPostLocked, "Post is locked")
	case errors.Is(err, service.ErrDepthExceeded):
		response.Error(c, http.StatusUnprocessableEntity, response.ErrDepthExceeded, "Comment nesting too deep")
	case errors.Is(err, service.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.ErrForbidden, "Forbidden")
	case errors.Is(err, service.ErrTransient):
		response.Error(c, http.StatusServiceUnavailable, response.ErrTemporary, "Temporary failure, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, response.ErrTemporary, "Request timed out")
	default:
		_ = c.Error(err)
		h.log.Error("forum request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", c.GetString(middleware.CtxTraceID)),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Internal server error")
	}
}

func (h *ForumHandler) bad(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
}

// CastVote 投票
// @Summary 对帖子或评论投票
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body VoteInput true "投票，value 取 1/-1/0"
// @Success 200 {object} response.Response{data=model.Counts}
// @Failure 404 {object} response.Response
// @Failure 423 {object} response.Response
// @Router /forum/votes [post]
func (h *ForumHandler) CastVote(c *gin.Context) {
	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bad(c, err)
		return
	}

	actor := middleware.CurrentActor(c)
	counts, err := h.votes.CastVote(c.Request.Context(), actor.UserID, model.TargetType(input.TargetType), input.TargetID, *input.Value)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, counts)
}

// AddComment 发表评论
// @Summary 发表评论或回复
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param input body CommentInput true "评论内容"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 422 {object} response.Response
// @Router /forum/posts/{id}/comments [post]
func (h *ForumHandler) AddComment(c *gin.Context) {
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bad(c, err)
		return
	}

	actor := middleware.CurrentActor(c)
	comment, err := h.comments.AddComment(c.Request.Context(), c.Param("id"), actor.UserID, input.Body, input.ParentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, comment)
}

// DeleteComment 删除评论
// @Summary 删除评论及其全部回复（作者或版主）
// @Tags Forum
// @Produce json
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response{data=DeleteResult}
// @Router /forum/comments/{id} [delete]
func (h *ForumHandler) DeleteComment(c *gin.Context) {
	removed, err := h.comments.DeleteComment(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, DeleteResult{Removed: removed})
}

// ListComments 评论树
// @Summary 获取帖子的评论树
// @Tags Forum
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=[]model.CommentNode}
// @Router /forum/posts/{id}/comments [get]
func (h *ForumHandler) ListComments(c *gin.Context) {
	tree, err := h.comments.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, tree)
}

// GetFeed 获取 feed
// @Summary 按分类获取排序后的帖子流
// @Tags Forum
// @Produce json
// @Param categoryId query string true "分类"
// @Param interestGroupId query string false "兴趣小组"
// @Param postType query string false "帖子类型"
// @Param sort query string false "hot | new | top" default(hot)
// @Param cursor query string false "上一页返回的游标"
// @Param pageSize query int false "分页大小"
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Router /forum/feed [get]
func (h *ForumHandler) GetFeed(c *gin.Context) {
	var params FeedParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.bad(c, err)
		return
	}

	req := service.FeedRequest{
		Filter:   model.FeedFilter{CategoryID: params.CategoryID},
		Sort:     model.SortMode(params.Sort),
		Cursor:   params.Cursor,
		PageSize: params.PageSize,
	}
	if params.InterestGroupID != "" {
		req.Filter.InterestGroupID = &params.InterestGroupID
	}
	if params.PostType != "" {
		pt := model.PostType(params.PostType)
		req.Filter.PostType = &pt
	}

	page, err := h.feed.BuildFeed(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}

// CreatePost 发帖
// @Summary 发帖
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body PostInput true "帖子"
// @Success 201 {object} response.Response{data=model.Post}
// @Router /forum/posts [post]
func (h *ForumHandler) CreatePost(c *gin.Context) {
	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bad(c, err)
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), service.CreatePostInput{
		AuthorID:        middleware.CurrentActor(c).UserID,
		CategoryID:      input.CategoryID,
		InterestGroupID: input.InterestGroupID,
		PostType:        model.PostType(input.PostType),
		Title:           input.Title,
		Body:            input.Body,
		ImageRefs:       input.ImageRefs,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, post)
}

// GetPost 帖子详情
// @Summary 帖子详情
// @Tags Forum
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Router /forum/posts/{id} [get]
func (h *ForumHandler) GetPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, post)
}

// DeletePost 删帖
// @Summary 删除帖子（作者或版主），评论与投票一并删除
// @Tags Forum
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /forum/posts/{id} [delete]
func (h *ForumHandler) DeletePost(c *gin.Context) {
	if err := h.posts.DeletePost(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c)); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// SetLocked 锁帖 (版主)
// @Summary 锁定或解锁帖子
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param input body LockInput true "是否锁定"
// @Success 200 {object} response.Response{data=model.Post}
// @Router /forum/posts/{id}/lock [put]
func (h *ForumHandler) SetLocked(c *gin.Context) {
	var input LockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bad(c, err)
		return
	}
	post, err := h.posts.SetLocked(c.Request.Context(), c.Param("id"), *input.Locked, middleware.CurrentActor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, post)
}

// SetPinned 置顶 (版主)
// @Summary 置顶或取消置顶
// @Tags Forum
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param input body PinInput true "是否置顶"
// @Success 200 {object} response.Response{data=model.Post}
// @Router /forum/posts/{id}/pin [put]
func (h *ForumHandler) SetPinned(c *gin.Context) {
	var input PinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.bad(c, err)
		return
	}
	post, err := h.posts.SetPinned(c.Request.Context(), c.Param("id"), *input.Pinned, middleware.CurrentActor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, post)
}
