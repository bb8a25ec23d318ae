package extract

import (
	"encoding/json"
	"fmt"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// zoneAPIResponse 分区接口的响应结构
// 接口按分区ID和页码返回该分区的文章列表
type zoneAPIResponse struct {
	Data struct {
		Contents []struct {
			URL string `json:"url"`
			// UpdateTime 接口返回的更新时间 (epoch秒)
			UpdateTime int64 `json:"update_time"`
		} `json:"contents"`
	} `json:"data"`
}

// ZoneAPIExtractor 从分区接口的JSON响应中提取文章候选URL
// 实现engine.PageExtractorPort
// 部分站点的分类时间线不是HTML页面而是JSON接口
type ZoneAPIExtractor struct{}

// NewZoneAPIExtractor 创建分区接口提取器
func NewZoneAPIExtractor() *ZoneAPIExtractor {
	return &ZoneAPIExtractor{}
}

// Extract 实现engine.PageExtractorPort
func (e *ZoneAPIExtractor) Extract(pageURL string, body []byte) ([]string, error) {
	var resp zoneAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("分区接口响应解析失败: %w", err)
	}

	var candidates []string
	seen := make(map[string]struct{})

	for _, content := range resp.Data.Contents {
		if content.URL == "" {
			continue
		}
		// 接口返回的多为相对路径,基于接口URL解析
		normalized, err := models.NormalizeURL(content.URL, pageURL)
		if err != nil {
			utils.Debugf("跳过无效链接 [%s]: %v", content.URL, err)
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		candidates = append(candidates, normalized)
	}

	return candidates, nil
}
