package models

import (
	"fmt"
)

// HTTPFailureMode 抓取失败处理模式
type HTTPFailureMode string

const (
	// FailureModeHalt 抓取失败立即终止该分类的遍历
	FailureModeHalt HTTPFailureMode = "halt"

	// FailureModeTolerateAsEmpty 抓取失败按空页计数,继续下一页
	FailureModeTolerateAsEmpty HTTPFailureMode = "tolerate-as-empty"
)

// EmptyDefinition 空页判定口径
type EmptyDefinition string

const (
	// EmptyPostDedupe 按去重后实际发出的记录数判定
	EmptyPostDedupe EmptyDefinition = "post-dedupe"

	// EmptyRawExtracted 按页面原始提取的候选数判定
	EmptyRawExtracted EmptyDefinition = "raw-extracted"
)

// TerminationReason 遍历终止原因
// 区分"归档耗尽"(预期)、"被阻断"(需人工介入)、"达到配置上限"(可调参)
type TerminationReason string

const (
	TerminationFetchFailure        TerminationReason = "fetch-failure"        // 抓取失败终止
	TerminationDuplicatePagination TerminationReason = "duplicate-pagination" // 分页循环检测终止
	TerminationEmptyPageLimit      TerminationReason = "empty-page-limit"     // 连续空页达到上限
	TerminationMaxPagesReached     TerminationReason = "max-pages-reached"    // 达到页数上限
	TerminationCatalogExhausted    TerminationReason = "catalog-exhausted"    // 目录耗尽 (批量来源)
	TerminationCancelled           TerminationReason = "cancelled"            // 协作取消 (页边界生效)
)

// DuplicateDetection 分页循环检测配置
// 对比相邻两页的前N条URL指纹,命中即判定站点分页已循环
type DuplicateDetection struct {
	Enabled bool `json:"enabled"`

	// FingerprintSize 指纹长度 (页面前N条URL)
	FingerprintSize int `json:"fingerprint_size"`
}

// TerminationPolicy 单分类遍历的终止策略
//
// 注意: MaxPages指针语义刻意保留了历史行为
//   - nil 表示不限页数
//   - 0 不是"不限"的哨兵值: 检查逻辑是"下一页超过上限则停止",
//     第1页已经超过0,因此MaxPages=0会在抓取第1页后立即停止。
//     依赖此语义的调用方存在,不得擅自"修复"。
type TerminationPolicy struct {
	// MaxPages 最大页数 (nil=不限)
	MaxPages *int `json:"max_pages,omitempty"`

	// MaxEmptyPages 允许的最大连续空页数 (nil=关闭该保护)
	MaxEmptyPages *int `json:"max_empty_pages,omitempty"`

	// HTTPFailureMode 抓取失败处理模式
	HTTPFailureMode HTTPFailureMode `json:"http_failure_mode"`

	// DuplicateDetection 分页循环检测
	DuplicateDetection DuplicateDetection `json:"duplicate_detection"`

	// EmptyDefinition 空页判定口径
	EmptyDefinition EmptyDefinition `json:"empty_definition"`
}

// Validate 验证策略配置
// 启用循环检测但指纹长度非正时,属于构造期致命配置错误
func (p *TerminationPolicy) Validate() error {
	if p.DuplicateDetection.Enabled && p.DuplicateDetection.FingerprintSize <= 0 {
		return &ConfigError{
			FilePath: "",
			Cause: fmt.Errorf("启用分页循环检测时指纹长度必须为正数: %d",
				p.DuplicateDetection.FingerprintSize),
		}
	}
	switch p.HTTPFailureMode {
	case FailureModeHalt, FailureModeTolerateAsEmpty:
	default:
		return &ConfigError{
			Cause: fmt.Errorf("无效的抓取失败处理模式: %q", p.HTTPFailureMode),
		}
	}
	switch p.EmptyDefinition {
	case EmptyPostDedupe, EmptyRawExtracted:
	default:
		return &ConfigError{
			Cause: fmt.Errorf("无效的空页判定口径: %q", p.EmptyDefinition),
		}
	}
	return nil
}

// WithOverrides 返回应用调用方覆盖后的策略副本
// maxPages/maxEmptyPages可按调用点覆盖; 循环检测参数不可覆盖。
// 覆盖值非正数表示解除该上限 (与策略表内的0语义不同,见MaxPages注释)
func (p TerminationPolicy) WithOverrides(maxPages, maxEmptyPages *int) TerminationPolicy {
	if maxPages != nil {
		if *maxPages <= 0 {
			p.MaxPages = nil
		} else {
			v := *maxPages
			p.MaxPages = &v
		}
	}
	if maxEmptyPages != nil {
		if *maxEmptyPages <= 0 {
			p.MaxEmptyPages = nil
		} else {
			v := *maxEmptyPages
			p.MaxEmptyPages = &v
		}
	}
	return p
}

// IntPtr 返回int指针 (策略表与测试用)
func IntPtr(v int) *int {
	return &v
}
