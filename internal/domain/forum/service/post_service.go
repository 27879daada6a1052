package service

import (
	"context"
	"encoding/json"
	"strings"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/ranking"
	"hobby_forum/internal/domain/forum/repository"
	baseModel "hobby_forum/pkg/model"

	"go.uber.org/zap"
)

// CreatePostInput 发帖参数，内容校验由上游完成
type CreatePostInput struct {
	AuthorID        string
	CategoryID      string
	InterestGroupID *string
	PostType        model.PostType
	Title           string
	Body            string
	ImageRefs       []string
}

// PostService 帖子生命周期
type PostService interface {
	CreatePost(ctx context.Context, in CreatePostInput) (*model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	// DeletePost 作者或版主可删除，评论与投票级联删除
	DeletePost(ctx context.Context, id string, requester model.Actor) error
	SetLocked(ctx context.Context, id string, locked bool, requester model.Actor) (*model.Post, error)
	SetPinned(ctx context.Context, id string, pinned bool, requester model.Actor) (*model.Post, error)
}

type postService struct {
	repo   repository.ForumRepository
	tx     *txRunner
	engine ranking.Engine
	opts   Options
}

func NewPostService(repo repository.ForumRepository, engine ranking.Engine, opts Options) PostService {
	opts = opts.withDefaults()
	return &postService{
		repo:   repo,
		tx:     newTxRunner(repo, opts.MaxWriteAttempts, opts.Logger, opts.Metrics),
		engine: engine,
		opts:   opts,
	}
}

func (s *postService) CreatePost(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	if strings.TrimSpace(in.AuthorID) == "" {
		return nil, invalid("author id is required")
	}
	if in.CategoryID == "" {
		return nil, invalid("category id is required")
	}
	if !in.PostType.Valid() {
		return nil, invalid("unknown post type %q", in.PostType)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("title is required")
	}
	if in.InterestGroupID != nil && *in.InterestGroupID == "" {
		in.InterestGroupID = nil
	}

	refs := in.ImageRefs
	if refs == nil {
		refs = []string{}
	}
	imageJSON, err := json.Marshal(refs)
	if err != nil {
		return nil, invalid("image refs: %v", err)
	}

	var post *model.Post
	err = s.tx.run(ctx, "create_post", func(tx repository.Tx) error {
		now := s.opts.Now()
		p := &model.Post{
			AuthorID:        in.AuthorID,
			CategoryID:      in.CategoryID,
			InterestGroupID: in.InterestGroupID,
			PostType:        in.PostType,
			Title:           in.Title,
			Body:            in.Body,
			ImageRefs:       imageJSON,
			HotScore:        s.engine.HotScore(0, 0, now, now),
		}
		p.ID = baseModel.NewID()
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := tx.InsertPost(p); err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

func (s *postService) DeletePost(ctx context.Context, id string, requester model.Actor) error {
	err := s.tx.run(ctx, "delete_post", func(tx repository.Tx) error {
		post, err := tx.GetPost(id)
		if err != nil {
			return notFound(err, "post")
		}
		if post.AuthorID != requester.UserID && !requester.IsModerator() {
			return ErrForbidden
		}
		n, err := tx.DeletePost(id)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(repository.ErrNotFound, "post")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.opts.Logger.Info("post deleted", zap.String("post_id", id), zap.String("requester", requester.UserID))
	return nil
}

func (s *postService) SetLocked(ctx context.Context, id string, locked bool, requester model.Actor) (*model.Post, error) {
	return s.setFlags(ctx, id, nil, &locked, requester)
}

func (s *postService) SetPinned(ctx context.Context, id string, pinned bool, requester model.Actor) (*model.Post, error) {
	return s.setFlags(ctx, id, &pinned, nil, requester)
}

func (s *postService) setFlags(ctx context.Context, id string, pinned, locked *bool, requester model.Actor) (*model.Post, error) {
	if !requester.IsModerator() {
		return nil, ErrForbidden
	}

	var post *model.Post
	err := s.tx.run(ctx, "set_post_flags", func(tx repository.Tx) error {
		p, err := tx.SetPostFlags(id, pinned, locked)
		if err != nil {
			return notFound(err, "post")
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}
