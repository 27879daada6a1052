package ranking

import (
	"math"
	"time"
)

// DefaultDecaySeconds 默认衰减常数：每 12.5 小时的新近度抵得上 10 倍的净票数
const DefaultDecaySeconds = 45000.0

// Engine 热度计算器，只持有衰减常数，没有其他状态
type Engine struct {
	DecaySeconds float64
}

// NewEngine 创建热度计算器，decay 非正时使用默认值
func NewEngine(decaySeconds float64) Engine {
	if decaySeconds <= 0 {
		decaySeconds = DefaultDecaySeconds
	}
	return Engine{DecaySeconds: decaySeconds}
}

// HotScore 计算帖子热度
//
//	score = sign(up-down) * log10(max(|up-down|, 1)) + createdAt/K
//
// 净票数越多、发布时间越新，分数越高；同样的输入永远得到同样的结果。
// 晚于 now 的 createdAt 按 now 计算，避免时钟漂移带来的排序优势。
func (e Engine) HotScore(upvotes, downvotes int64, createdAt, now time.Time) float64 {
	net := upvotes - downvotes

	// 1. 对数平滑
	magnitude := math.Abs(float64(net))
	if magnitude < 1 {
		magnitude = 1
	}
	order := math.Log10(magnitude)

	var sign float64
	switch {
	case net > 0:
		sign = 1
	case net < 0:
		sign = -1
	}

	// 2. 新近度
	if createdAt.After(now) {
		createdAt = now
	}
	seconds := float64(createdAt.Unix()) + float64(createdAt.Nanosecond())/1e9

	return sign*order + seconds/e.DecaySeconds
}

// HotScore 使用默认衰减常数计算热度
func HotScore(upvotes, downvotes int64, createdAt, now time.Time) float64 {
	return NewEngine(DefaultDecaySeconds).HotScore(upvotes, downvotes, createdAt, now)
}
