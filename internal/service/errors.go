package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid          = errors.New("参数错误")
	ErrInvalidViewer         = errors.New("浏览者信息无效")
	ErrInvalidPeriod         = errors.New("统计周期无效")
	ErrPromptNotFound        = errors.New("prompt 不存在")
	ErrCacheUnavailable      = errors.New("浏览量缓存不可用")
	ErrDurableWriteFailed    = errors.New("浏览记录写入失败")
	ErrReconcileFailed       = errors.New("浏览量对账失败")
	ErrSyncInProgress        = errors.New("浏览量对账正在进行")
	ErrStatisticsUnavailable = errors.New("统计数据暂不可用，请稍后重试")
	UnauthorizedError        = errors.New("权限不足")
	UnExpectedError          = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:          BadRequest,
	ErrInvalidViewer:         BadRequest,
	ErrInvalidPeriod:         BadRequest,
	ErrPromptNotFound:        NotFound,
	ErrCacheUnavailable:      ServiceUnavailable,
	ErrDurableWriteFailed:    InternalServerError,
	ErrReconcileFailed:       InternalServerError,
	ErrSyncInProgress:        Conflict,
	ErrStatisticsUnavailable: ServiceUnavailable,
	UnauthorizedError:        Unauthorized,
	UnExpectedError:          InternalServerError,
}

// CodeOf 沿包装链查找业务码，多个业务错误时取最外层
func CodeOf(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	if code, ok := ErrorMap[err]; ok {
		return code, true
	}
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return CodeOf(e.Unwrap())
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if code, ok := CodeOf(inner); ok {
				return code, true
			}
		}
	}
	return 0, false
}

// IsRetryable 调用方可以稍后重试的错误
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStatisticsUnavailable) ||
		errors.Is(err, ErrCacheUnavailable) ||
		errors.Is(err, ErrSyncInProgress)
}
