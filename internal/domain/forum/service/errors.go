package service

import (
	"errors"
	"fmt"

	"hobby_forum/internal/domain/forum/repository"
)

var (
	ErrNotFound        = errors.New("target not found")
	ErrLocked          = errors.New("post is locked")
	ErrDepthExceeded   = errors.New("comment nesting too deep")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransient 写冲突重试耗尽，调用方可以稍后重试
	ErrTransient = errors.New("temporary failure, please retry")
)

// notFound 将仓库层的 ErrNotFound 转为服务层错误，其余原样返回
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
