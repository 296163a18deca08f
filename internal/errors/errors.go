package errors

import (
	"fmt"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 错误构造函数：在 kratos errors 之上携带本服务的数字错误码。
// HTTP 状态约定：资源不存在 404；参数校验/业务规则/单号冲突 400；其余 500。

// NewNotFound 实体不存在
func NewNotFound(code int, format string, args ...interface{}) *kerrors.Error {
	return newError(404, code, format, args...)
}

// NewValidation 参数校验失败
func NewValidation(code int, format string, args ...interface{}) *kerrors.Error {
	return newError(400, code, format, args...)
}

// NewPolicy 业务规则拒绝（余额/次数不足、卡状态不允许等）
func NewPolicy(code int, format string, args ...interface{}) *kerrors.Error {
	return newError(400, code, format, args...)
}

// NewDuplicate 唯一键冲突（卡号/票据号），调用方可重试
func NewDuplicate(code int, format string, args ...interface{}) *kerrors.Error {
	return newError(400, code, format, args...)
}

// NewInternal 意外失败
func NewInternal(code int, format string, args ...interface{}) *kerrors.Error {
	return newError(500, code, format, args...)
}

// Wrap 包装底层错误为意外失败，保留 cause
func Wrap(err error, code int, format string, args ...interface{}) *kerrors.Error {
	e := newError(500, code, format, args...)
	return e.WithCause(err)
}

// Code 从错误中提取本服务错误码，非本服务错误返回 0
func Code(err error) int {
	se := kerrors.FromError(err)
	if se == nil || se.Metadata == nil {
		return 0
	}
	c, _ := strconv.Atoi(se.Metadata["code"])
	return c
}

// IsCode 判断错误是否携带指定错误码
func IsCode(err error, code int) bool {
	return Code(err) == code
}

func newError(status, code int, format string, args ...interface{}) *kerrors.Error {
	e := kerrors.New(status, "CLINIC_"+strconv.Itoa(code), fmt.Sprintf(format, args...))
	return e.WithMetadata(map[string]string{"code": strconv.Itoa(code)})
}
