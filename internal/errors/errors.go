// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 项目/角色不存在
	ErrorTypeNotFound ErrorType = "not_found"
	// 创建时名称冲突
	ErrorTypeAlreadyExists ErrorType = "already_exists"
	// 必填标识为空（项目名等）
	ErrorTypeInvalidName ErrorType = "invalid_name"
	// 待保存状态缺少必要字段
	ErrorTypeInvalidState ErrorType = "invalid_state"
	// 操作级业务前置条件未满足
	ErrorTypePrecondition ErrorType = "precondition_failed"
	// 持久化文档无法解析
	ErrorTypeCorrupt ErrorType = "corrupt"
	// 协作者返回失败
	ErrorTypeGeneration ErrorType = "generation_failed"
	// 文件系统级失败
	ErrorTypeIO ErrorType = "io_error"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewAlreadyExistsError 创建名称冲突错误
func NewAlreadyExistsError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeAlreadyExists, message, originalError)
}

// NewInvalidNameError 创建无效名称错误
func NewInvalidNameError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidName, message, originalError)
}

// NewInvalidStateError 创建无效状态错误
func NewInvalidStateError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidState, message, originalError)
}

// NewPreconditionError 创建前置条件错误
func NewPreconditionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypePrecondition, message, originalError)
}

// NewCorruptError 创建文档损坏错误
func NewCorruptError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeCorrupt, message, originalError)
}

// NewGenerationError 创建生成失败错误
func NewGenerationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGeneration, message, originalError)
}

// NewIOError 创建文件系统错误
func NewIOError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeIO, message, originalError)
}

// typeOf 提取 AppError 类型，非 AppError 返回空
func typeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool { return typeOf(err) == ErrorTypeNotFound }

// IsAlreadyExistsError 检查是否为名称冲突错误
func IsAlreadyExistsError(err error) bool { return typeOf(err) == ErrorTypeAlreadyExists }

// IsInvalidNameError 检查是否为无效名称错误
func IsInvalidNameError(err error) bool { return typeOf(err) == ErrorTypeInvalidName }

// IsInvalidStateError 检查是否为无效状态错误
func IsInvalidStateError(err error) bool { return typeOf(err) == ErrorTypeInvalidState }

// IsPreconditionError 检查是否为前置条件错误
func IsPreconditionError(err error) bool { return typeOf(err) == ErrorTypePrecondition }

// IsCorruptError 检查是否为文档损坏错误
func IsCorruptError(err error) bool { return typeOf(err) == ErrorTypeCorrupt }

// IsGenerationError 检查是否为生成失败错误
func IsGenerationError(err error) bool { return typeOf(err) == ErrorTypeGeneration }

// IsIOError 检查是否为文件系统错误
func IsIOError(err error) bool { return typeOf(err) == ErrorTypeIO }

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrorTypeInvalidName:
		return "INVALID_NAME"
	case ErrorTypeInvalidState:
		return "INVALID_STATE"
	case ErrorTypePrecondition:
		return "PRECONDITION_FAILED"
	case ErrorTypeCorrupt:
		return "CORRUPT_STATE"
	case ErrorTypeGeneration:
		return "GENERATION_FAILED"
	case ErrorTypeIO:
		return "IO_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
