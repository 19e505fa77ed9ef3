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
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Registry 错误：NOT_FOUND（注册表为空）、UNAVAILABLE
//   - Encoder 错误：INVALID_ARTIFACT、CORRUPT_ARTIFACT
//   - Gateway 错误：NOT_FOUND（无预计算排序）、UNAVAILABLE
//   - Engine 错误：INVALID_INPUT（k 非法、图片损坏）
//   - Event 错误：PUBLISH_FAILED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "gateway", "encoder", "event"）

	// Cause 底层错误（可选，保留传输层错误链）
	Cause error
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s/%s] %s", e.Module, e.Code, e.Message)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回底层错误，支持 errors.Is / errors.As 链式检查。
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// GetDomainError 获取错误链上最外层的 DomainError，如果没有则返回 nil。
// 使用 errors.As 而不是类型断言，调用方用 fmt.Errorf("%w") 追加上下文后
// IsXXX 判定依然成立。
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

// WrapDomainError 创建带底层错误的领域错误
func WrapDomainError(module, code, message string, cause error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在（正常控制流，调用方必须处理）
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 外部系统不可达或超时（瞬时故障，重试策略归调用方）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效（调用方错误，不应重试）
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 模型产物错误代码（对该版本致命，不得缓存半加载的模型）
	ErrorCodeInvalidArtifact = "INVALID_ARTIFACT" // 配置缺少必要字段
	ErrorCodeCorruptArtifact = "CORRUPT_ARTIFACT" // 权重形状/格式不匹配

	// 事件发布错误代码
	ErrorCodePublishFailed = "PUBLISH_FAILED" // Broker 未确认投递
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleGateway  = "gateway"  // 特征/向量网关模块
	ModuleRegistry = "registry" // 模型版本注册表模块
	ModuleArtifact = "artifact" // 模型产物存储模块
	ModuleEncoder  = "encoder"  // 编码器加载模块
	ModuleEngine   = "engine"   // 召回引擎模块
	ModuleEvent    = "event"    // 事件发布模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsInvalidArtifact 检查错误是否为 INVALID_ARTIFACT
func IsInvalidArtifact(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidArtifact
	}
	return false
}

// IsCorruptArtifact 检查错误是否为 CORRUPT_ARTIFACT
func IsCorruptArtifact(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeCorruptArtifact
	}
	return false
}

// IsPublishFailed 检查错误是否为 PUBLISH_FAILED
func IsPublishFailed(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodePublishFailed
	}
	return false
}
