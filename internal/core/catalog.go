package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// catalogFile 分类目录文件结构
type catalogFile struct {
	Site       string                      `json:"site"`
	Categories []models.CategoryDefinition `json:"categories"`
}

// FileCatalog 基于JSON文件的分类目录
// 实现engine.CategoryCatalogPort: 每次运行加载一次,加载后只读
type FileCatalog struct {
	path string
}

// NewFileCatalog 创建文件目录
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

// CatalogPath 返回站点目录文件的默认路径
func CatalogPath(catalogDir string, site string) string {
	return filepath.Join(catalogDir, site+".json")
}

// Load 加载并验证全部分类定义,实现engine.CategoryCatalogPort
// 目录缺失或任一分类定义无效都是致命错误
func (c *FileCatalog) Load() ([]models.CategoryDefinition, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, &models.CatalogError{FilePath: c.path, Cause: err}
	}

	var catalog catalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, &models.CatalogError{FilePath: c.path,
			Cause: fmt.Errorf("JSON解析失败: %w", err)}
	}

	if len(catalog.Categories) == 0 {
		return nil, &models.CatalogError{FilePath: c.path,
			Cause: fmt.Errorf("目录不包含任何分类")}
	}

	seen := make(map[string]struct{}, len(catalog.Categories))
	for i := range catalog.Categories {
		cat := &catalog.Categories[i]
		if err := cat.Validate(); err != nil {
			return nil, &models.CatalogError{FilePath: c.path, Cause: err}
		}
		if _, dup := seen[cat.Slug]; dup {
			return nil, &models.CatalogError{FilePath: c.path,
				Cause: fmt.Errorf("分类slug重复: %s", cat.Slug)}
		}
		seen[cat.Slug] = struct{}{}
	}

	utils.Infof("分类目录加载完成 [%s]: %d个分类", c.path, len(catalog.Categories))
	return catalog.Categories, nil
}

// SelectCategories 按slug挑选分类,保持目录顺序
// 未知slug报错,避免静默跳过拼写错误
func SelectCategories(all []models.CategoryDefinition, slugs []string) ([]models.CategoryDefinition, error) {
	if len(slugs) == 0 {
		return all, nil
	}

	index := make(map[string]models.CategoryDefinition, len(all))
	for _, cat := range all {
		index[cat.Slug] = cat
	}

	selected := make([]models.CategoryDefinition, 0, len(slugs))
	for _, slug := range slugs {
		cat, ok := index[slug]
		if !ok {
			return nil, fmt.Errorf("未知的分类slug: %s", slug)
		}
		selected = append(selected, cat)
	}
	return selected, nil
}
