package main

import (
	"fmt"
	"os"
	"strings"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(site string, categories []string, allCategories bool, bulkFile string, waitTime int) error {
	// 验证站点slug格式 (存在性由配置表检查)
	if strings.TrimSpace(site) == "" {
		return fmt.Errorf("站点不能为空")
	}

	// --categories与--all-categories互斥
	if len(categories) > 0 && allCategories {
		return fmt.Errorf("--categories 与 --all-categories 不能同时使用")
	}

	for _, slug := range categories {
		if strings.TrimSpace(slug) == "" {
			return fmt.Errorf("分类slug不能为空")
		}
	}

	// 验证批量文件存在
	if bulkFile != "" {
		if _, err := os.Stat(bulkFile); err != nil {
			return fmt.Errorf("批量候选文件不可用 [%s]: %w", bulkFile, err)
		}
	}

	// 验证等待时间
	if waitTime < 0 || waitTime > 300 {
		return fmt.Errorf("等待时间必须在0-300秒之间,当前值: %d", waitTime)
	}

	return nil
}
