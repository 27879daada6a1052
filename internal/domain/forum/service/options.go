package service

import (
	"time"

	"hobby_forum/internal/pkg/config"
	"hobby_forum/pkg/metrics"
	baseModel "hobby_forum/pkg/model"

	"go.uber.org/zap"
)

// Options 论坛服务参数
type Options struct {
	MaxCommentDepth     int // 允许的最大深度（含），0 表示只允许顶级评论
	MaxWriteAttempts    int
	FeedDefaultPageSize int
	FeedMaxPageSize     int
	FeedQueryTimeout    time.Duration // 0 表示不设超时
	CacheTTL            time.Duration

	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.MetricsCollector
}

// DefaultOptions 与 configs/config.yaml 的默认值一致
func DefaultOptions() Options {
	return Options{
		MaxCommentDepth:     2,
		MaxWriteAttempts:    DefaultMaxWriteAttempts,
		FeedDefaultPageSize: 20,
		FeedMaxPageSize:     100,
		FeedQueryTimeout:    2 * time.Second,
		CacheTTL:            10 * time.Minute,
	}
}

// OptionsFromConfig 从全局配置构造服务参数
func OptionsFromConfig(cfg config.Config, log *zap.Logger, m *metrics.MetricsCollector) Options {
	return Options{
		MaxCommentDepth:     cfg.Forum.MaxCommentDepth,
		MaxWriteAttempts:    cfg.Forum.MaxWriteAttempts,
		FeedDefaultPageSize: cfg.Forum.FeedDefaultPageSize,
		FeedMaxPageSize:     cfg.Forum.FeedMaxPageSize,
		FeedQueryTimeout:    cfg.Forum.FeedQueryTimeout,
		CacheTTL:            cfg.Cache.TTL,
		Logger:              log,
		Metrics:             m,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxCommentDepth < 0 {
		o.MaxCommentDepth = 0
	}
	if o.MaxWriteAttempts <= 0 {
		o.MaxWriteAttempts = d.MaxWriteAttempts
	}
	if o.FeedDefaultPageSize <= 0 {
		o.FeedDefaultPageSize = d.FeedDefaultPageSize
	}
	if o.FeedMaxPageSize < o.FeedDefaultPageSize {
		o.FeedMaxPageSize = max(d.FeedMaxPageSize, o.FeedDefaultPageSize)
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = d.CacheTTL
	}
	if o.Now == nil {
		o.Now = baseModel.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
