package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
)

// Reporter 报告生成器
// 运行结束后把记录、报告写入 output/{site}/ 目录
type Reporter struct {
	outputDir string
	site      string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string, site string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		site:      site,
	}
}

// SiteDir 返回站点输出目录
func (r *Reporter) SiteDir() string {
	return filepath.Join(r.outputDir, r.site)
}

// WriteRecords 把发现记录写成NDJSON (每行一条,下游逐行消费)
func (r *Reporter) WriteRecords(records []models.JobRecord) (string, error) {
	siteDir := r.SiteDir()
	if err := os.MkdirAll(siteDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(siteDir, "records.ndjson")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建记录文件失败: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return "", fmt.Errorf("写入记录失败: %w", err)
		}
	}

	Infof("📥 记录已写入: %s (%d条)", path, len(records))
	return path, nil
}

// WriteReport 生成运行报告
func (r *Reporter) WriteReport(report *models.DiscoveryReport) error {
	reportsDir := filepath.Join(r.SiteDir(), "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	data, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	path := filepath.Join(reportsDir, "discovery_report.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Infof("✅ 报告已生成: %s", path)
	return nil
}

// fetchFailureEntry 抓取失败日志的单行结构
type fetchFailureEntry struct {
	Time     time.Time `json:"time"`
	Category string    `json:"category"`
	URL      string    `json:"url"`
	Error    string    `json:"error"`
}

// FetchFailureLog 抓取失败明细日志 (NDJSON追加写)
// 失败终止的分类在这里留一行明细,供重跑时排查
type FetchFailureLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenFetchFailureLog 打开(或创建)失败明细日志
func (r *Reporter) OpenFetchFailureLog() (*FetchFailureLog, error) {
	siteDir := r.SiteDir()
	if err := os.MkdirAll(siteDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(siteDir, "fetch_failures.ndjson")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开失败明细日志失败: %w", err)
	}
	return &FetchFailureLog{file: file}, nil
}

// Append 追加一条失败明细
func (l *FetchFailureLog) Append(category string, pageURL string, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := fetchFailureEntry{
		Time:     time.Now(),
		Category: category,
		URL:      pageURL,
		Error:    cause.Error(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Warnf("序列化失败明细失败: %v", err)
		return
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		Warnf("写入失败明细失败: %v", err)
	}
}

// Close 关闭日志文件
func (l *FetchFailureLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
