package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// bulkLine 批量候选文件的单行结构 (NDJSON)
type bulkLine struct {
	URL        string `json:"url"`
	LastMod    string `json:"lastmod,omitempty"`
	SitemapURL string `json:"sitemap_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// BulkJobSource 批量候选文件来源
// 逐行读取NDJSON文件,每行一个候选URL
// 也兼容纯文本URL列表 (每行一个URL, #开头为注释)
// 畸形行记录日志后跳过,不中止整个来源
type BulkJobSource struct {
	name     string
	filePath string
	dedup    *DedupIndex
	seq      *Sequence
}

// NewBulkJobSource 创建批量文件来源
func NewBulkJobSource(name string, filePath string, dedup *DedupIndex, seq *Sequence) *BulkJobSource {
	return &BulkJobSource{
		name:     name,
		filePath: filePath,
		dedup:    dedup,
		seq:      seq,
	}
}

// Name 实现JobSource接口
func (b *BulkJobSource) Name() string {
	return b.name
}

// Run 逐行读取并发出,实现JobSource接口
// 文件读完即终止,原因为目录耗尽
func (b *BulkJobSource) Run(ctx context.Context, emit EmitFunc) models.TraversalReport {
	report := models.TraversalReport{
		Source: b.name,
		Kind:   models.SourceKindBulkFile,
	}

	file, err := os.Open(b.filePath)
	if err != nil {
		utils.Errorf("批量候选文件打开失败 [%s]: %v", b.filePath, err)
		report.TerminationReason = models.TerminationFetchFailure
		return report
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNo := 0

	for {
		// 取消检查按行生效
		if ctx.Err() != nil {
			report.TerminationReason = models.TerminationCancelled
			return report
		}

		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			b.processLine(line, lineNo, emit, &report)
			if report.TerminationReason != "" {
				return report
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			utils.Errorf("批量候选文件读取失败 [%s] 第%d行: %v", b.filePath, lineNo, readErr)
			report.TerminationReason = models.TerminationFetchFailure
			return report
		}
	}

	report.TerminationReason = models.TerminationCatalogExhausted
	utils.Infof("批量来源 %s 读取完成: %d行, 发出%d, 跳过已存在%d, 跳过重复%d, 无效%d",
		b.name, lineNo, report.Emitted, report.SkippedExisting,
		report.SkippedDuplicate, report.SkippedInvalid)
	return report
}

// processLine 解析并发出单行候选
func (b *BulkJobSource) processLine(line []byte, lineNo int, emit EmitFunc, report *models.TraversalReport) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}

	// 注释行跳过 (纯文本URL列表格式)
	if trimmed[0] == '#' {
		return
	}

	var entry bulkLine
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			utils.Warnf("批量候选文件第%d行JSON格式错误,跳过: %v", lineNo, err)
			report.SkippedInvalid++
			return
		}
	} else {
		// 非JSON行按纯URL处理
		entry.URL = string(trimmed)
	}

	normalized, err := models.NormalizeURL(entry.URL, "")
	if err != nil {
		utils.Warnf("批量候选文件第%d行URL无效,跳过: %v", lineNo, err)
		report.SkippedInvalid++
		return
	}

	switch b.dedup.Claim(normalized) {
	case ClaimExisting:
		report.SkippedExisting++
		return
	case ClaimDuplicate:
		report.SkippedDuplicate++
		return
	}

	record := models.NewJobRecord(normalized, "", models.SourceKindBulkFile, b.seq.Next())
	if entry.LastMod != "" {
		if ts, err := parseLastMod(entry.LastMod); err == nil {
			record.LastModified = &ts
		} else {
			utils.Debugf("批量候选文件第%d行lastmod无法解析,忽略: %s", lineNo, entry.LastMod)
		}
	}

	if err := emit(record); err != nil {
		utils.Warnf("批量来源 %s 下游拒绝接收,停止发出: %v", b.name, err)
		report.TerminationReason = models.TerminationCancelled
		return
	}
	report.Emitted++
}

// parseLastMod 解析候选文件里的lastmod时间戳
// 站点地图常见RFC3339和纯日期两种格式
func parseLastMod(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}
