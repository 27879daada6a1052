package forum

import (
	"hobby_forum/internal/domain/forum/handler"
	"hobby_forum/internal/domain/forum/ranking"
	"hobby_forum/internal/domain/forum/repository"
	"hobby_forum/internal/domain/forum/service"
	"hobby_forum/internal/pkg/registry"

	"go.uber.org/zap"
)

// ForumModule 论坛模块：投票、排序、评论树与 feed
type ForumModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&ForumModule{})
}

func (m *ForumModule) Name() string {
	return "forum"
}

func (m *ForumModule) Priority() int {
	return 10
}

func (m *ForumModule) Init(ctx *registry.ModuleContext) error {
	log := ctx.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := ctx.Config

	// 1. 依赖注入
	var repo repository.ForumRepository
	if ctx.DB != nil {
		repo = repository.NewGormRepository(ctx.DB)
	} else {
		log.Warn("forum is using in-memory storage, data will not survive restarts")
		repo = repository.NewMemoryRepository()
	}

	engine := ranking.NewEngine(cfg.Forum.HotDecaySeconds)
	opts := service.OptionsFromConfig(cfg, log.Named("forum"), ctx.Metrics)

	h := handler.NewForumHandler(
		service.NewPostService(repo, engine, opts),
		service.NewVoteService(repo, engine, opts),
		service.NewCommentService(repo, opts),
		service.NewFeedService(repo, ctx.Cache, opts),
		log,
	)

	// 2. 路由注册
	api := ctx.API
	if api == nil {
		api = &ctx.Router.RouterGroup
	}
	handler.RegisterRoutes(api, h, cfg.JWT.Secret)
	return nil
}
