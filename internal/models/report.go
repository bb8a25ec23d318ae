package models

import (
	"encoding/json"
	"time"
)

// TraversalReport 单个来源遍历结束后的统计
// 每个分类遍历/批量来源结束时上报一份
type TraversalReport struct {
	// Source 来源名称 (分类slug或批量文件名)
	Source string `json:"source"`

	// Kind 来源类型
	Kind SourceKind `json:"kind"`

	// PagesVisited 实际抓取的页数
	PagesVisited int `json:"pages_visited"`

	// Emitted 发出的记录数
	Emitted int `json:"emitted"`

	// SkippedExisting 因持久化快照命中而跳过的数量 (续跑模式)
	SkippedExisting int `json:"skipped_existing"`

	// SkippedDuplicate 本次运行内重复而跳过的数量
	SkippedDuplicate int `json:"skipped_duplicate"`

	// SkippedInvalid 无法解析的候选数量 (批量来源的坏行等)
	SkippedInvalid int `json:"skipped_invalid"`

	// TerminationReason 终止原因
	TerminationReason TerminationReason `json:"termination_reason"`
}

// RunStats 整次运行的汇总统计
type RunStats struct {
	TotalSources   int     `json:"total_sources"`   // 来源总数
	TotalPages     int     `json:"total_pages"`     // 总抓取页数
	TotalEmitted   int     `json:"total_emitted"`   // 总发出记录数
	TotalSkipped   int     `json:"total_skipped"`   // 总跳过数 (已存在+重复+无效)
	FailedSources  int     `json:"failed_sources"`  // 以抓取失败终止的来源数
	Duration       float64 `json:"duration"`        // 总耗时(秒)
	ResumeSnapshot int     `json:"resume_snapshot"` // 续跑快照中加载的URL数
}

// Merge 将一份来源报告并入汇总统计
func (rs *RunStats) Merge(r TraversalReport) {
	rs.TotalSources++
	rs.TotalPages += r.PagesVisited
	rs.TotalEmitted += r.Emitted
	rs.TotalSkipped += r.SkippedExisting + r.SkippedDuplicate + r.SkippedInvalid
	if r.TerminationReason == TerminationFetchFailure {
		rs.FailedSources++
	}
}

// DiscoveryReport 运行报告
// 运行结束时写入reports目录,供排障与统计
type DiscoveryReport struct {
	RunID     string `json:"run_id"`
	Site      string `json:"site"`
	OutputDir string `json:"output_dir"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// 统计信息
	Stats   RunStats          `json:"stats"`
	Sources []TraversalReport `json:"sources"`

	// Records 本次发出的全部记录
	Records []JobRecord `json:"records"`
}

// ToJSON 序列化为JSON
func (r *DiscoveryReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *DiscoveryReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
