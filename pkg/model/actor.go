package model

// 角色，来自外部身份服务签发的 token
const (
	RoleUser      = 0
	RoleModerator = 1
	RoleAdmin     = 2
)

// Actor 发起操作的已认证用户
type Actor struct {
	UserID string
	Role   int
}

// IsModerator 版主及以上
func (a Actor) IsModerator() bool {
	return a.Role >= RoleModerator
}
