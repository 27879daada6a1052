package service

import (
	"context"
	"strings"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/repository"
	baseModel "hobby_forum/pkg/model"

	"go.uber.org/zap"
)

// CommentService 评论树
type CommentService interface {
	AddComment(ctx context.Context, postID, authorID, body string, parentID *string) (*model.Comment, error)
	// DeleteComment 删除评论及全部回复，返回删除的评论数
	DeleteComment(ctx context.Context, commentID string, requester model.Actor) (int64, error)
	ListComments(ctx context.Context, postID string) ([]*model.CommentNode, error)
}

type commentService struct {
	repo repository.ForumRepository
	tx   *txRunner
	opts Options
}

func NewCommentService(repo repository.ForumRepository, opts Options) CommentService {
	opts = opts.withDefaults()
	return &commentService{
		repo: repo,
		tx:   newTxRunner(repo, opts.MaxWriteAttempts, opts.Logger, opts.Metrics),
		opts: opts,
	}
}

func (s *commentService) AddComment(ctx context.Context, postID, authorID, body string, parentID *string) (*model.Comment, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, invalid("author id is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, invalid("comment body is required")
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}

	var comment *model.Comment
	err := s.tx.run(ctx, "add_comment", func(tx repository.Tx) error {
		// 先锁帖子再检查锁帖状态
		post, err := tx.LockPost(postID)
		if err != nil {
			return notFound(err, "post")
		}
		if post.IsLocked {
			return ErrLocked
		}

		// 父评论只在本帖内查找，其他帖子的评论视为不存在
		depth := 0
		if parentID != nil {
			parent, err := tx.GetCommentInPost(postID, *parentID)
			if err != nil {
				return notFound(err, "parent comment")
			}
			depth = parent.Depth + 1
		}
		if depth > s.opts.MaxCommentDepth {
			return ErrDepthExceeded
		}

		c := &model.Comment{
			ID:        baseModel.NewID(),
			PostID:    postID,
			AuthorID:  authorID,
			ParentID:  parentID,
			Body:      body,
			Depth:     depth,
			CreatedAt: s.opts.Now(),
		}
		if err := tx.InsertComment(c); err != nil {
			return err
		}
		if _, err := tx.AddCommentCount(postID, 1); err != nil {
			return notFound(err, "post")
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.opts.Metrics.RecordComments("added", 1)
	return comment, nil
}

func (s *commentService) DeleteComment(ctx context.Context, commentID string, requester model.Actor) (int64, error) {
	var removed int64
	err := s.tx.run(ctx, "delete_comment", func(tx repository.Tx) error {
		c, err := tx.GetComment(commentID)
		if err != nil {
			return notFound(err, "comment")
		}
		if c.AuthorID != requester.UserID && !requester.IsModerator() {
			return ErrForbidden
		}

		// 计数减量等于本条语句实际删除的行数
		n, err := tx.DeleteCommentTree(commentID)
		if err != nil {
			return notFound(err, "comment")
		}
		if _, err := tx.AddCommentCount(c.PostID, -n); err != nil {
			return notFound(err, "post")
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.opts.Metrics.RecordComments("removed", removed)
	s.opts.Logger.Info("comment deleted",
		zap.String("comment_id", commentID),
		zap.String("requester", requester.UserID),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

func (s *commentService) ListComments(ctx context.Context, postID string) ([]*model.CommentNode, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, notFound(err, "post")
	}
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return BuildTree(comments), nil
}

// BuildTree 将按 (created_at, id) 排好序的评论组装成树
// 子节点保持输入顺序；找不到父节点的评论作为顶级节点
func BuildTree(comments []model.Comment) []*model.CommentNode {
	nodes := make(map[string]*model.CommentNode, len(comments))
	ordered := make([]*model.CommentNode, 0, len(comments))
	for _, c := range comments {
		n := &model.CommentNode{Comment: c, Replies: []*model.CommentNode{}}
		nodes[c.ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*model.CommentNode, 0)
	for _, n := range ordered {
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
