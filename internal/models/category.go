package models

import (
	"fmt"
	"strings"
)

// CategoryDefinition 分类定义
// 每次运行从外部目录文件加载一次,加载后只读
type CategoryDefinition struct {
	// Slug 分类标识 (如 "thoi-su-phap-luat")
	Slug string `json:"slug"`

	// DisplayName 展示名称
	DisplayName string `json:"name"`

	// CategoryID 站点侧的分类数字ID (时间线接口参数)
	CategoryID int64 `json:"category_id"`

	// LandingURL 分类落地页URL
	LandingURL string `json:"landing_url"`

	// TimelineTemplate 时间线URL模板
	// 占位符: {id} 分类ID, {page} 页码
	// 例: https://example.vn/timelinelist/{id}/{page}.htm
	TimelineTemplate string `json:"timeline_template"`

	// Render 是否需要浏览器渲染后才能提取 (JS渲染站点)
	Render bool `json:"render,omitempty"`
}

// Validate 验证分类定义完整性
func (c *CategoryDefinition) Validate() error {
	if c.Slug == "" {
		return fmt.Errorf("分类缺少slug")
	}
	if c.LandingURL != "" {
		if err := ValidateURL(c.LandingURL); err != nil {
			return fmt.Errorf("分类 %s 落地页URL无效: %w", c.Slug, err)
		}
	}
	if c.TimelineTemplate == "" {
		return fmt.Errorf("分类 %s 缺少时间线URL模板", c.Slug)
	}
	if !strings.Contains(c.TimelineTemplate, "{page}") {
		return fmt.Errorf("分类 %s 时间线模板缺少{page}占位符", c.Slug)
	}
	return nil
}

// TimelineURL 生成指定页码的时间线URL
func (c *CategoryDefinition) TimelineURL(page int) string {
	result := strings.ReplaceAll(c.TimelineTemplate, "{id}", fmt.Sprintf("%d", c.CategoryID))
	return strings.ReplaceAll(result, "{page}", fmt.Sprintf("%d", page))
}

// NormalizedLandingURL 返回规范化的落地页URL
// 落地页缺失时回退到第一页时间线URL
func (c *CategoryDefinition) NormalizedLandingURL() string {
	if c.LandingURL == "" {
		return c.TimelineURL(1)
	}
	normalized, err := NormalizeURL(c.LandingURL, "")
	if err != nil {
		return c.LandingURL
	}
	return normalized
}

// PageURL 返回第page页的请求目标
// 第一页使用落地页,之后使用时间线URL
func (c *CategoryDefinition) PageURL(page int) string {
	if page <= 1 {
		return c.NormalizedLandingURL()
	}
	return c.TimelineURL(page)
}
