package models

import (
	"fmt"
	"sort"
)

// ExtractorKind 页面提取器类型
type ExtractorKind string

const (
	// ExtractorHTML HTML锚点提取 (时间线/落地页)
	ExtractorHTML ExtractorKind = "html"

	// ExtractorZoneAPI 分区API的JSON响应提取
	ExtractorZoneAPI ExtractorKind = "zone-api"
)

// SourceProfile 来源站点配置
// 每个支持的新闻站点一份: 默认终止策略、提取方式、精选分类子集
type SourceProfile struct {
	// Name 站点slug (如 "thanhnien")
	Name string

	// Policy 默认终止策略
	Policy TerminationPolicy

	// LockEmptyPages 为true时MaxEmptyPages为实现常量,不接受调用点覆盖
	LockEmptyPages bool

	// Extractor 提取器类型
	Extractor ExtractorKind

	// ContainerClass HTML提取时限定的容器class (空=全页)
	ContainerClass string

	// LinkAttrs HTML提取时按优先级尝试的链接属性
	LinkAttrs []string

	// IncludeLandingPage 第一页是否请求落地页 (false则直接从时间线第1页开始)
	IncludeLandingPage bool

	// CuratedSlugs 未指定--categories时默认遍历的精选分类
	CuratedSlugs []string
}

// 各站点默认策略
// 历史行为逐项保留: znews与nld的循环检测参数是实现常量,刻意不暴露配置
var sourceProfiles = map[string]SourceProfile{
	"thanhnien": {
		Name: "thanhnien",
		Policy: TerminationPolicy{
			MaxPages:        IntPtr(10),
			MaxEmptyPages:   IntPtr(2),
			HTTPFailureMode: FailureModeHalt,
			EmptyDefinition: EmptyPostDedupe,
		},
		Extractor:          ExtractorHTML,
		ContainerClass:     "box-category-item",
		LinkAttrs:          []string{"data-io-canonical-url", "href"},
		IncludeLandingPage: true,
		CuratedSlugs:       []string{"thoi-su-phap-luat", "kinh-te", "doi-song", "van-hoa"},
	},
	"znews": {
		Name: "znews",
		Policy: TerminationPolicy{
			MaxPages:      IntPtr(50),
			MaxEmptyPages: IntPtr(2),
			DuplicateDetection: DuplicateDetection{
				Enabled:         true,
				FingerprintSize: 3,
			},
			HTTPFailureMode: FailureModeHalt,
			EmptyDefinition: EmptyRawExtracted,
		},
		LockEmptyPages:     true,
		Extractor:          ExtractorHTML,
		LinkAttrs:          []string{"href", "data-utm-src", "data-utm-source"},
		IncludeLandingPage: true,
		CuratedSlugs:       []string{"phap-luat", "kinh-doanh", "cong-nghe"},
	},
	"kenh14": {
		Name: "kenh14",
		Policy: TerminationPolicy{
			MaxPages:        IntPtr(600),
			MaxEmptyPages:   IntPtr(3),
			HTTPFailureMode: FailureModeTolerateAsEmpty,
			EmptyDefinition: EmptyPostDedupe,
		},
		Extractor:          ExtractorHTML,
		LinkAttrs:          []string{"href"},
		IncludeLandingPage: true,
		CuratedSlugs:       []string{"star", "doi-song", "the-gioi"},
	},
	"plo": {
		Name: "plo",
		Policy: TerminationPolicy{
			MaxEmptyPages:   IntPtr(2),
			HTTPFailureMode: FailureModeHalt,
			EmptyDefinition: EmptyPostDedupe,
		},
		Extractor:          ExtractorZoneAPI,
		IncludeLandingPage: false,
		CuratedSlugs:       []string{"phap-luat", "thoi-su", "kinh-te"},
	},
	"nld": {
		Name: "nld",
		Policy: TerminationPolicy{
			MaxEmptyPages: IntPtr(1),
			DuplicateDetection: DuplicateDetection{
				Enabled:         true,
				FingerprintSize: 5,
			},
			HTTPFailureMode: FailureModeTolerateAsEmpty,
			EmptyDefinition: EmptyPostDedupe,
		},
		Extractor:          ExtractorHTML,
		ContainerClass:     "timeline",
		LinkAttrs:          []string{"data-link", "href"},
		IncludeLandingPage: true,
		CuratedSlugs:       []string{"chinh-tri", "thoi-su", "phap-luat"},
	},
}

// GetSourceProfile 返回指定站点的配置
func GetSourceProfile(name string) (SourceProfile, error) {
	profile, ok := sourceProfiles[name]
	if !ok {
		return SourceProfile{}, fmt.Errorf("未知站点: %q (可用: %v)", name, ListSourceProfiles())
	}
	return profile, nil
}

// ListSourceProfiles 返回全部站点slug (字典序)
func ListSourceProfiles() []string {
	names := make([]string, 0, len(sourceProfiles))
	for name := range sourceProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyOverrides 返回应用命令行覆盖后的策略
// LockEmptyPages站点忽略空页上限覆盖
func (sp SourceProfile) ApplyOverrides(maxPages, maxEmptyPages *int) TerminationPolicy {
	if sp.LockEmptyPages {
		maxEmptyPages = nil
	}
	return sp.Policy.WithOverrides(maxPages, maxEmptyPages)
}
