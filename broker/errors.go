package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrPositionNotFound 按标签找不到对应持仓
	ErrPositionNotFound = errors.New("position not found")

	// ErrSessionFailure 网关会话初始化/登录失败
	ErrSessionFailure = errors.New("gateway session failure")
)

// RejectError 网关拒单，保留返回码供重试策略分类
type RejectError struct {
	Retcode int
	Comment string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("trade failed, retcode=%d (%s)", e.Retcode, e.Comment)
}

// AsReject 从错误链中取出拒单信息
func AsReject(err error) (*RejectError, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
