package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SourceKind 发现来源类型
type SourceKind string

const (
	SourceKindCategoryTimeline SourceKind = "category-timeline" // 分类时间线分页
	SourceKindLandingPage      SourceKind = "landing-page"      // 分类落地页
	SourceKindBulkFile         SourceKind = "bulk-file"         // 批量候选文件
)

// JobRecord 发现记录
// 一条待下游抓取解析的文章URL,附带来源信息
// 不变量: 同一次运行的全部输出中url全局唯一
type JobRecord struct {
	// ID 记录唯一ID (UUID)
	ID string `json:"id"`

	// URL 规范化后的绝对URL (无fragment)
	URL string `json:"url"`

	// OriginCategory 来源分类slug (批量来源为空)
	OriginCategory string `json:"origin_category,omitempty"`

	// SourceKind 来源类型
	SourceKind SourceKind `json:"source_kind"`

	// LastModified 来源提供的最后修改时间 (可选)
	LastModified *time.Time `json:"last_modified,omitempty"`

	// DiscoveryOrder 本次运行内单调递增的发现序号
	DiscoveryOrder int64 `json:"discovery_order"`
}

// NewJobRecord 创建发现记录
// URL必须已通过NormalizeURL规范化
func NewJobRecord(normalizedURL string, category string, kind SourceKind, order int64) JobRecord {
	return JobRecord{
		ID:             generateID(),
		URL:            normalizedURL,
		OriginCategory: category,
		SourceKind:     kind,
		DiscoveryOrder: order,
	}
}

// NormalizeURL 规范化候选URL
// 处理流程:
//  1. 相对URL基于base解析为绝对URL
//  2. 去除fragment
//  3. 统一scheme小写、host小写
//
// 参数:
//   - rawURL: 原始候选URL (可能为相对路径)
//   - base: 当前页面URL (用于解析相对路径,可为空)
//
// 返回: 规范化后的绝对URL
func NormalizeURL(rawURL string, base string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("URL为空")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("URL格式无效: %w", err)
	}

	// 相对URL需要基于页面URL解析
	if !parsed.IsAbs() {
		if base == "" {
			return "", fmt.Errorf("相对URL缺少基准页面: %s", trimmed)
		}
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("基准URL无效: %w", err)
		}
		parsed = baseURL.ResolveReference(parsed)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("不支持的协议: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL缺少主机名")
	}

	// 去除fragment,统一大小写
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	return parsed.String(), nil
}

// ValidateURL 验证URL为合法的绝对HTTP(S)地址
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}
