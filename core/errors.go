package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），基于 errors.As，可穿透 %w 包装
//
// 使用场景：
//   - 选择配置错误：CONFIGURATION（重复 tag 名、k <= 0、strength 非正、未知策略）
//   - 数据错误：DATA（embedding space / metadata key / label set 不存在，值类型不符）
//   - 形状错误：SHAPE（行数与候选池不一致、数组参差不齐），属于 Resolver 缺陷，不可重试
//   - 容量错误：CAPACITY（请求的 k 超过候选池大小）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED, ALREADY_EXISTS
type DomainError struct {
	Code    string         // 错误代码（如 "CONFIGURATION", "NOT_FOUND"）
	Message string         // 错误消息
	Module  string         // 模块名称（如 "resolver", "kernel", "store"）
	Params  map[string]any // 出错的参数与数值（如 requested / available）
	Cause   error          // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WithParam 附加一个参数，便于调用方读取具体数值。
func (e *DomainError) WithParam(key string, value any) *DomainError {
	if e.Params == nil {
		e.Params = make(map[string]any)
	}
	e.Params[key] = value
	return e
}

// WithCause 附加底层错误。
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// 错误代码常量
const (
	// 选择链路错误代码
	ErrorCodeConfiguration = "CONFIGURATION" // 配置错误
	ErrorCodeData          = "DATA"          // 数据错误
	ErrorCodeShape         = "SHAPE"         // 数值形状错误
	ErrorCodeCapacity      = "CAPACITY"      // 容量错误

	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeAlreadyExists = "ALREADY_EXISTS" // 资源已存在
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleSelection = "selection" // 编排模块
	ModuleResolver  = "resolver"  // 策略解析模块
	ModuleKernel    = "kernel"    // 选择内核
	ModuleStore     = "store"     // 存储模块
	ModuleProvider  = "provider"  // 数据提供方
	ModuleConfig    = "config"    // 配置模块
)

// NewConfigurationError 创建 CONFIGURATION 错误。
func NewConfigurationError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeConfiguration, fmt.Sprintf(format, args...))
}

// NewDataError 创建 DATA 错误。
func NewDataError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeData, fmt.Sprintf(format, args...))
}

// NewShapeError 创建 SHAPE 错误。
func NewShapeError(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeShape, fmt.Sprintf(format, args...))
}

// NewCapacityError 创建 CAPACITY 错误，消息与 Params 同时给出请求数与可用数。
func NewCapacityError(module string, requested, available int) *DomainError {
	return NewDomainError(module, ErrorCodeCapacity,
		fmt.Sprintf("k: requested %d samples but candidate pool only contains %d", requested, available)).
		WithParam("requested", requested).
		WithParam("available", available)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsConfigurationError 检查错误是否为 CONFIGURATION
func IsConfigurationError(err error) bool { return hasCode(err, ErrorCodeConfiguration) }

// IsDataError 检查错误是否为 DATA
func IsDataError(err error) bool { return hasCode(err, ErrorCodeData) }

// IsShapeError 检查错误是否为 SHAPE
func IsShapeError(err error) bool { return hasCode(err, ErrorCodeShape) }

// IsCapacityError 检查错误是否为 CAPACITY
func IsCapacityError(err error) bool { return hasCode(err, ErrorCodeCapacity) }

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsAlreadyExists 检查错误是否为 ALREADY_EXISTS
func IsAlreadyExists(err error) bool { return hasCode(err, ErrorCodeAlreadyExists) }
