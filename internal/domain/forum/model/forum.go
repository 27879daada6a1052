package model

import (
	"encoding/json"
	"time"

	baseModel "hobby_forum/pkg/model"
)

// PostType 帖子类型
type PostType string

const (
	PostTypeDiscussion PostType = "discussion"
	PostTypeShowcase   PostType = "showcase"
	PostTypeTrade      PostType = "trade"
	PostTypeQuestion   PostType = "question"
	PostTypePoll       PostType = "poll"
	PostTypeEvent      PostType = "event"
)

// Valid 是否为已知的帖子类型
func (t PostType) Valid() bool {
	switch t {
	case PostTypeDiscussion, PostTypeShowcase, PostTypeTrade, PostTypeQuestion, PostTypePoll, PostTypeEvent:
		return true
	}
	return false
}

// TargetType 投票目标类型
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Valid 是否为已知的投票目标
func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

const (
	RoleUser      = baseModel.RoleUser
	RoleModerator = baseModel.RoleModerator
	RoleAdmin     = baseModel.RoleAdmin
)

// Actor 见 pkg/model，中间件与领域服务共用
type Actor = baseModel.Actor

// Post 帖子
// 计数字段只能通过原子增量修改，不允许读出后再写回
type Post struct {
	baseModel.BaseModel
	AuthorID        string          `gorm:"size:64;not null;index" json:"authorId"`
	CategoryID      string          `gorm:"size:64;not null" json:"categoryId"`
	InterestGroupID *string         `gorm:"size:64" json:"interestGroupId,omitempty"`
	PostType        PostType        `gorm:"size:16;not null" json:"postType"`
	Title           string          `gorm:"not null" json:"title"`
	Body            string          `gorm:"type:text" json:"body"`
	ImageRefs       json.RawMessage `gorm:"type:jsonb" json:"imageRefs"` // 图片引用数组
	UpvoteCount     int64           `gorm:"not null;default:0" json:"upvoteCount"`
	DownvoteCount   int64           `gorm:"not null;default:0" json:"downvoteCount"`
	CommentCount    int64           `gorm:"not null;default:0" json:"commentCount"`
	HotScore        float64         `gorm:"not null;default:0" json:"hotScore"`
	IsPinned        bool            `gorm:"not null;default:false" json:"isPinned"`
	IsLocked        bool            `gorm:"not null;default:false" json:"isLocked"`
}

// NetVotes 净票数
func (p *Post) NetVotes() int64 {
	return p.UpvoteCount - p.DownvoteCount
}

// Comment 评论
// Depth 写入时由父评论重新计算：顶级为 0，否则为 parent.Depth+1
type Comment struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	PostID        string    `gorm:"type:uuid;not null;index" json:"postId"`
	AuthorID      string    `gorm:"size:64;not null" json:"authorId"`
	ParentID      *string   `gorm:"type:uuid;index" json:"parentId,omitempty"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	UpvoteCount   int64     `gorm:"not null;default:0" json:"upvoteCount"`
	DownvoteCount int64     `gorm:"not null;default:0" json:"downvoteCount"`
	Depth         int       `gorm:"not null;default:0" json:"depth"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Vote 投票记录，每个 (用户, 目标) 至多一条
// PostID 与 CommentID 恰好一个非空，由 TargetType 决定
type Vote struct {
	baseModel.BaseModel
	UserID     string     `gorm:"size:64;not null" json:"userId"`
	TargetType TargetType `gorm:"size:16;not null" json:"targetType"`
	PostID     *string    `gorm:"type:uuid" json:"postId,omitempty"`
	CommentID  *string    `gorm:"type:uuid" json:"commentId,omitempty"`
	Value      int8       `gorm:"not null" json:"value"` // 1 or -1
}

// Target 投票目标
type Target struct {
	Type TargetType
	ID   string
}

// TargetOf 返回投票记录对应的目标
func (v *Vote) TargetOf() Target {
	if v.TargetType == TargetComment && v.CommentID != nil {
		return Target{Type: TargetComment, ID: *v.CommentID}
	}
	if v.PostID != nil {
		return Target{Type: TargetPost, ID: *v.PostID}
	}
	return Target{Type: v.TargetType}
}

// NewVote 构造指向目标的投票记录
func NewVote(userID string, target Target, value int8, now time.Time) *Vote {
	v := &Vote{
		UserID:     userID,
		TargetType: target.Type,
		Value:      value,
	}
	v.ID = baseModel.NewID()
	v.CreatedAt = now
	v.UpdatedAt = now
	id := target.ID
	if target.Type == TargetComment {
		v.CommentID = &id
	} else {
		v.PostID = &id
	}
	return v
}

// Counts 目标当前的赞/踩计数
type Counts struct {
	UpvoteCount   int64 `json:"upvoteCount"`
	DownvoteCount int64 `json:"downvoteCount"`
}

// CommentNode 评论树节点
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies"`
}
