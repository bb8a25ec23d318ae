package models

import (
	"fmt"
)

// FetchFailureKind 抓取失败类别
type FetchFailureKind string

const (
	FetchFailureNetwork FetchFailureKind = "network" // 网络/传输层失败
	FetchFailureHTTP    FetchFailureKind = "http"    // HTTP状态码失败 (>=400)
	FetchFailureRender  FetchFailureKind = "render"  // 浏览器渲染失败
)

// FetchError 抓取失败
// 对遍历引擎而言是二元结果: 本页无内容可用
type FetchError struct {
	// URL 请求目标
	URL string

	// Kind 失败类别
	Kind FetchFailureKind

	// StatusCode HTTP状态码 (仅Kind=http时有效)
	StatusCode int

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	if e.Kind == FetchFailureHTTP {
		return fmt.Sprintf("抓取失败 [%s]: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("抓取失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// CatalogError 分类目录错误
// 目录缺失或分类定义无效,遍历开始前即致命
type CatalogError struct {
	// FilePath 目录文件路径
	FilePath string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *CatalogError) Error() string {
	return fmt.Sprintf("分类目录错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// ValidationError 头部验证错误
// 表示头部验证失败的详细信息
type ValidationError struct {
	// Field 出错的字段 ("name" 或 "value")
	Field string

	// HeaderName 头部名称
	HeaderName string

	// Reason 错误原因
	Reason string

	// Suggestion 修复建议 (可选)
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置错误
// 配置文件解析失败或配置项非法
type ConfigError struct {
	// FilePath 配置文件路径 (构造期策略错误时为空)
	FilePath string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("配置错误: %v", e.Cause)
	}
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
