package service

import (
	"errors"
	"fmt"
)

// ErrorKind 领域错误分类
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindForbidden         ErrorKind = "forbidden"
	KindValidation        ErrorKind = "validation"
)

// DomainError 带分类的领域错误，handler按Kind映射响应码。
// 所有守卫失败都在任何字段变更之前检出，不存在部分写。
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NotFoundErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransitionErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStockErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func ForbiddenErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func ValidationErr(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf 取错误分类，非领域错误返回空串
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
