package service

import "errors"

// 服务层哨兵错误，处理器据此映射 HTTP 状态码
var (
	ErrNotFound           = errors.New("记录不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrDuplicateRecord    = errors.New("记录已存在")
	ErrValidation         = errors.New("参数校验失败")
	ErrInvalidFile        = errors.New("文件不合法")
	ErrStorage            = errors.New("存储操作失败")
	ErrCaptchaRequired    = errors.New("需要验证码")
	ErrCaptchaInvalid     = errors.New("验证码错误")
	ErrPermissionDenied   = errors.New("权限不足")
)

// validationError 携带具体原因的校验错误
type validationError struct {
	msg string
}

func (e validationError) Error() string {
	return e.msg
}

func (e validationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError 构造校验错误
func NewValidationError(msg string) error {
	return validationError{msg: msg}
}

// invalidFileError 携带具体原因的文件校验错误
type invalidFileError struct {
	msg string
}

func (e invalidFileError) Error() string {
	return e.msg
}

func (e invalidFileError) Is(target error) bool {
	return target == ErrInvalidFile
}

// NewInvalidFileError 构造文件校验错误
func NewInvalidFileError(msg string) error {
	return invalidFileError{msg: msg}
}
