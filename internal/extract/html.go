package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// HTMLExtractor 从分类页HTML中提取文章候选URL
// 实现engine.PageExtractorPort
//
// 提取规则:
//   - containerClass非空时只在携带该class的容器内查找
//   - 按linkAttrs的优先级取第一个非空属性作为链接
//   - 相对链接基于页面URL解析,跨站链接丢弃
//   - 保留文档顺序,页内重复只保留首次出现
type HTMLExtractor struct {
	containerClass string
	linkAttrs      []string

	// sameHostOnly 是否丢弃跨站链接 (广告位/外链)
	sameHostOnly bool
}

// NewHTMLExtractor 创建HTML提取器
// linkAttrs为空时默认只取href
func NewHTMLExtractor(containerClass string, linkAttrs []string) *HTMLExtractor {
	if len(linkAttrs) == 0 {
		linkAttrs = []string{"href"}
	}
	return &HTMLExtractor{
		containerClass: containerClass,
		linkAttrs:      linkAttrs,
		sameHostOnly:   true,
	}
}

// Extract 实现engine.PageExtractorPort
func (e *HTMLExtractor) Extract(pageURL string, body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTML解析失败: %w", err)
	}

	var pageHost string
	if parsed, err := url.Parse(pageURL); err == nil {
		pageHost = strings.ToLower(parsed.Host)
	}

	var candidates []string
	seen := make(map[string]struct{})

	collect := func(n *html.Node) {
		raw := e.linkOf(n)
		if raw == "" {
			return
		}

		normalized, err := models.NormalizeURL(raw, pageURL)
		if err != nil {
			utils.Debugf("跳过无效链接 [%s]: %v", raw, err)
			return
		}

		if e.sameHostOnly && pageHost != "" {
			if parsed, err := url.Parse(normalized); err != nil || strings.ToLower(parsed.Host) != pageHost {
				return
			}
		}

		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		candidates = append(candidates, normalized)
	}

	if e.containerClass == "" {
		walk(doc, collect)
	} else {
		// 先定位容器,再在容器内收集链接
		walk(doc, func(n *html.Node) {
			if hasClass(n, e.containerClass) {
				walk(n, collect)
			}
		})
	}

	return candidates, nil
}

// linkOf 按属性优先级取节点上的链接
func (e *HTMLExtractor) linkOf(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, attrName := range e.linkAttrs {
		// href只在锚点元素上有链接语义,<link>等元素的href是资源引用
		if attrName == "href" && n.Data != "a" {
			continue
		}
		for _, attr := range n.Attr {
			if attr.Key == attrName && strings.TrimSpace(attr.Val) != "" {
				return strings.TrimSpace(attr.Val)
			}
		}
	}
	return ""
}

// walk 深度优先遍历DOM树
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

// hasClass 检查元素的class属性是否包含指定class
func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
