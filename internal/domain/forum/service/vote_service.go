package service

import (
	"context"
	"errors"
	"strings"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/ranking"
	"hobby_forum/internal/domain/forum/repository"

	"go.uber.org/zap"
)

// 投票结果，用于指标与日志
const (
	outcomeInserted  = "inserted"
	outcomeSwitched  = "switched"
	outcomeRetracted = "retracted"
	outcomeNoop      = "noop"
)

// VoteService 投票账本
type VoteService interface {
	// CastVote value 取 1、-1 或 0（撤销），返回目标更新后的赞/踩计数
	CastVote(ctx context.Context, userID string, targetType model.TargetType, targetID string, value int) (model.Counts, error)
}

type voteService struct {
	tx     *txRunner
	engine ranking.Engine
	opts   Options
}

func NewVoteService(repo repository.ForumRepository, engine ranking.Engine, opts Options) VoteService {
	opts = opts.withDefaults()
	return &voteService{
		tx:     newTxRunner(repo, opts.MaxWriteAttempts, opts.Logger, opts.Metrics),
		engine: engine,
		opts:   opts,
	}
}

// voteDeltas 从 prior 变为 value 时赞/踩计数的增量
func voteDeltas(prior int8, value int8) (up, down int64) {
	switch prior {
	case 1:
		up--
	case -1:
		down--
	}
	switch value {
	case 1:
		up++
	case -1:
		down++
	}
	return up, down
}

func (s *voteService) CastVote(ctx context.Context, userID string, targetType model.TargetType, targetID string, value int) (model.Counts, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Counts{}, invalid("user id is required")
	}
	if !targetType.Valid() {
		return model.Counts{}, invalid("unknown target type %q", targetType)
	}
	if targetID == "" {
		return model.Counts{}, invalid("target id is required")
	}
	if value < -1 || value > 1 {
		return model.Counts{}, invalid("vote value must be 1, -1 or 0")
	}

	target := model.Target{Type: targetType, ID: targetID}
	var (
		counts  model.Counts
		outcome string
	)

	err := s.tx.run(ctx, "vote", func(tx repository.Tx) error {
		var err error
		counts, outcome, err = s.apply(tx, userID, target, int8(value))
		return err
	})
	if err != nil {
		return model.Counts{}, err
	}

	s.opts.Metrics.RecordVote(string(targetType), outcome)
	s.opts.Logger.Debug("vote cast",
		zap.String("user_id", userID),
		zap.String("target_type", string(targetType)),
		zap.String("target_id", targetID),
		zap.Int("value", value),
		zap.String("outcome", outcome),
	)
	return counts, nil
}

// apply 在一个事务内完成投票状态迁移、计数增量与热度重算
func (s *voteService) apply(tx repository.Tx, userID string, target model.Target, value int8) (model.Counts, string, error) {
	// 1. 锁定所属帖子后再检查锁帖状态，与 SetPostFlags 串行
	var (
		post    *model.Post
		current model.Counts
	)
	switch target.Type {
	case model.TargetComment:
		c, err := tx.GetComment(target.ID)
		if err != nil {
			return model.Counts{}, "", notFound(err, "comment")
		}
		post, err = tx.LockPost(c.PostID)
		if err != nil {
			return model.Counts{}, "", notFound(err, "post")
		}
		// 评论计数只在持有帖子锁时修改，加锁后重读
		c, err = tx.GetCommentInPost(post.ID, target.ID)
		if err != nil {
			return model.Counts{}, "", notFound(err, "comment")
		}
		current = model.Counts{UpvoteCount: c.UpvoteCount, DownvoteCount: c.DownvoteCount}
	default:
		p, err := tx.LockPost(target.ID)
		if err != nil {
			return model.Counts{}, "", notFound(err, "post")
		}
		post = p
		current = model.Counts{UpvoteCount: p.UpvoteCount, DownvoteCount: p.DownvoteCount}
	}
	if post.IsLocked {
		return model.Counts{}, "", ErrLocked
	}

	// 2. 状态迁移
	prior, err := tx.FindVote(userID, target)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Counts{}, "", err
	}

	var (
		priorValue int8
		outcome    string
	)
	switch {
	case prior == nil && value == 0:
		return current, outcomeNoop, nil
	case prior == nil:
		if err := tx.InsertVote(model.NewVote(userID, target, value, s.opts.Now())); err != nil {
			return model.Counts{}, "", err
		}
		outcome = outcomeInserted
	case prior.Value == value:
		return current, outcomeNoop, nil
	case value == 0:
		priorValue = prior.Value
		if err := tx.DeleteVote(prior.ID, prior.Value); err != nil {
			return model.Counts{}, "", err
		}
		outcome = outcomeRetracted
	default:
		priorValue = prior.Value
		if err := tx.UpdateVoteValue(prior.ID, prior.Value, value); err != nil {
			return model.Counts{}, "", err
		}
		outcome = outcomeSwitched
	}

	// 3. 计数增量
	up, down := voteDeltas(priorValue, value)
	counts, err := tx.AddVoteCounts(target, up, down)
	if err != nil {
		return model.Counts{}, "", notFound(err, string(target.Type))
	}

	// 4. 重算所属帖子的热度，评论投票不改变帖子计数
	postCounts := counts
	if target.Type == model.TargetComment {
		postCounts = model.Counts{UpvoteCount: post.UpvoteCount, DownvoteCount: post.DownvoteCount}
	}
	score := s.engine.HotScore(postCounts.UpvoteCount, postCounts.DownvoteCount, post.CreatedAt, s.opts.Now())
	if err := tx.SetHotScore(post.ID, score); err != nil {
		return model.Counts{}, "", notFound(err, "post")
	}

	return counts, outcome, nil
}
