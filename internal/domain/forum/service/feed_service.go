package service

import (
	"context"
	"errors"
	"iter"
	"net"
	"strconv"
	"strings"
	"time"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/internal/domain/forum/repository"
	"hobby_forum/pkg/cache"
	"hobby_forum/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FeedRequest 一次 feed 分页请求
type FeedRequest struct {
	Filter   model.FeedFilter
	Sort     model.SortMode
	Cursor   string // 为空表示第一页
	PageSize int
}

// FeedPage 一页 feed
// 第一页的 Posts 以置顶帖开头，Pinned 为置顶帖数量，置顶帖不计入分页大小
type FeedPage struct {
	Posts      []model.Post `json:"posts"`
	Pinned     int          `json:"pinned"`
	NextCursor *string      `json:"nextCursor"`
	Stale      bool         `json:"stale"`
}

// FeedService feed 分页
type FeedService interface {
	BuildFeed(ctx context.Context, req FeedRequest) (*FeedPage, error)
	// Iterate 按需逐页读取，依次产出全部帖子；出错时产出一次错误后结束
	Iterate(ctx context.Context, req FeedRequest) iter.Seq2[model.Post, error]
}

type feedService struct {
	repo  repository.ForumRepository
	cache cache.CacheService
	opts  Options
}

// NewFeedService cache 为 nil 时不做降级
func NewFeedService(repo repository.ForumRepository, pageCache cache.CacheService, opts Options) FeedService {
	return &feedService{
		repo:  repo,
		cache: pageCache,
		opts:  opts.withDefaults(),
	}
}

// cacheKey 由完整查询条件构成
func cacheKey(req FeedRequest, pageSize int) string {
	var ig, pt string
	if req.Filter.InterestGroupID != nil {
		ig = *req.Filter.InterestGroupID
	}
	if req.Filter.PostType != nil {
		pt = string(*req.Filter.PostType)
	}
	return strings.Join([]string{
		"feed",
		req.Filter.CategoryID,
		ig,
		pt,
		string(req.Sort),
		strconv.Itoa(pageSize),
		req.Cursor,
	}, ":")
}

// isTimeout 只有超时类错误才降级为缓存页
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (s *feedService) parse(req *FeedRequest) (*model.FeedPosition, error) {
	if req.Filter.CategoryID == "" {
		return nil, invalid("category id is required")
	}
	if req.Sort == "" {
		req.Sort = model.SortHot
	}
	if !req.Sort.Valid() {
		return nil, invalid("unknown sort %q", req.Sort)
	}
	if req.Filter.PostType != nil && !req.Filter.PostType.Valid() {
		return nil, invalid("unknown post type %q", *req.Filter.PostType)
	}
	if req.Cursor == "" {
		return nil, nil
	}

	c, err := utils.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, invalid("malformed cursor")
	}
	if model.SortMode(c.Sort) != req.Sort {
		return nil, invalid("cursor was issued for sort %q", c.Sort)
	}
	key, err := model.ParseKey(c.Key)
	if err != nil {
		return nil, invalid("malformed cursor")
	}
	return &model.FeedPosition{Key: key, ID: c.ID}, nil
}

func (s *feedService) BuildFeed(ctx context.Context, req FeedRequest) (*FeedPage, error) {
	after, err := s.parse(&req)
	if err != nil {
		return nil, err
	}
	pageSize := utils.ClampPageSize(req.PageSize, s.opts.FeedDefaultPageSize, s.opts.FeedMaxPageSize)
	key := cacheKey(req, pageSize)
	start := time.Now()

	page, err := s.query(ctx, req, after, pageSize)
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			if stale, ok := s.lastGood(ctx, key); ok {
				s.opts.Metrics.RecordFeedPage(string(req.Sort), "stale", time.Since(start))
				s.opts.Logger.Warn("feed query timed out, serving last good page",
					zap.String("key", key),
					zap.Error(err),
				)
				return stale, nil
			}
		}
		s.opts.Metrics.RecordFeedPage(string(req.Sort), "error", time.Since(start))
		return nil, err
	}

	s.remember(ctx, key, page)
	s.opts.Metrics.RecordFeedPage(string(req.Sort), "ok", time.Since(start))
	return page, nil
}

// query 读取一页：第一页并发读取置顶帖与剩余部分
func (s *feedService) query(ctx context.Context, req FeedRequest, after *model.FeedPosition, pageSize int) (*FeedPage, error) {
	if s.opts.FeedQueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FeedQueryTimeout)
		defer cancel()
	}

	var pinned, rest []model.Post
	g, gctx := errgroup.WithContext(ctx)
	if after == nil {
		g.Go(func() error {
			var err error
			pinned, err = s.repo.ListPinned(gctx, req.Filter)
			return err
		})
	}
	g.Go(func() error {
		var err error
		// 多取一条用于判断是否还有下一页
		rest, err = s.repo.ListFeed(gctx, model.FeedQuery{
			Filter: req.Filter,
			Sort:   req.Sort,
			After:  after,
			Limit:  pageSize + 1,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &FeedPage{Pinned: len(pinned)}
	if len(rest) > pageSize {
		rest = rest[:pageSize]
		last := rest[len(rest)-1]
		next := utils.EncodeCursor(utils.Cursor{
			Sort: string(req.Sort),
			Key:  model.FormatKey(model.SortKey(&last, req.Sort)),
			ID:   last.ID,
		})
		page.NextCursor = &next
	}
	page.Posts = make([]model.Post, 0, len(pinned)+len(rest))
	page.Posts = append(page.Posts, pinned...)
	page.Posts = append(page.Posts, rest...)
	return page, nil
}

func (s *feedService) remember(ctx context.Context, key string, page *FeedPage) {
	if s.cache == nil {
		return
	}
	err := s.cache.Set(ctx, key, page, s.opts.CacheTTL)
	s.opts.Metrics.RecordCacheOperation("set", err == nil)
	if err != nil {
		s.opts.Logger.Warn("cache feed page failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *feedService) lastGood(ctx context.Context, key string) (*FeedPage, bool) {
	if s.cache == nil {
		return nil, false
	}
	var page FeedPage
	err := s.cache.Get(ctx, key, &page)
	s.opts.Metrics.RecordCacheOperation("get", err == nil)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.opts.Logger.Warn("read cached feed page failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	page.Stale = true
	return &page, true
}

func (s *feedService) Iterate(ctx context.Context, req FeedRequest) iter.Seq2[model.Post, error] {
	return func(yield func(model.Post, error) bool) {
		// hot/top 的排序键可能在两次翻页之间变化，这里按 ID 去重
		seen := make(map[string]struct{})
		for {
			page, err := s.BuildFeed(ctx, req)
			if err != nil {
				yield(model.Post{}, err)
				return
			}
			for _, p := range page.Posts {
				if _, dup := seen[p.ID]; dup {
					continue
				}
				seen[p.ID] = struct{}{}
				if !yield(p, nil) {
					return
				}
			}
			if page.NextCursor == nil {
				return
			}
			req.Cursor = *page.NextCursor
		}
	}
}
