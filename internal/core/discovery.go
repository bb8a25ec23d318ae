package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/engine"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/extract"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// RunOptions 单次发现运行的参数
type RunOptions struct {
	// Site 站点slug
	Site string

	// Categories 指定要遍历的分类slug (空=精选分类)
	Categories []string

	// AllCategories 遍历目录内全部分类 (忽略精选子集)
	AllCategories bool

	// BulkFile 批量候选文件路径 (空=不启用批量来源)
	BulkFile string

	// MaxPages/MaxEmptyPages 终止策略覆盖 (nil=站点默认)
	MaxPages      *int
	MaxEmptyPages *int

	// HeaderConfigFile 头部配置文件路径
	HeaderConfigFile string

	// CliHeaders 命令行头部 ("Name: Value")
	CliHeaders []string
}

// Discovery 发现运行协调器
// 组装目录、策略、抓取器、提取器与来源聚合器并驱动整次运行
type Discovery struct {
	config  *Config
	options RunOptions
	profile models.SourceProfile
}

// NewDiscovery 创建协调器
func NewDiscovery(config *Config, options RunOptions) (*Discovery, error) {
	if options.Site == "" {
		options.Site = config.Discovery.Site
	}
	profile, err := models.GetSourceProfile(options.Site)
	if err != nil {
		return nil, err
	}
	return &Discovery{
		config:  config,
		options: options,
		profile: profile,
	}, nil
}

// guardedSource 带资源护栏与进度上报的来源包装
// 启动前等待资源压力回落,结束后推进进度条
type guardedSource struct {
	src   engine.JobSource
	guard *engine.ResourceGuard
	bar   *progressbar.ProgressBar
}

func (g *guardedSource) Name() string { return g.src.Name() }

func (g *guardedSource) Run(ctx context.Context, emit engine.EmitFunc) models.TraversalReport {
	g.guard.WaitUntilReady(ctx)
	report := g.src.Run(ctx, emit)
	if g.bar != nil {
		if err := g.bar.Add(1); err != nil {
			utils.Debugf("进度条更新失败: %v", err)
		}
	}
	return report
}

// Run 执行整次发现运行
// 流程: 加载目录与快照, 按顺序遍历分类来源与批量来源,
// 写出记录NDJSON、运行报告并更新URL快照
func (d *Discovery) Run(ctx context.Context) (*models.DiscoveryReport, error) {
	startTime := time.Now()
	runID := models.GenerateRunID()

	utils.Infof("🔍 发现运行启动: 站点=%s, 运行ID=%s", d.profile.Name, runID)

	// 头部管理器
	headerProvider, err := NewHeaderManager(d.options.HeaderConfigFile, d.options.CliHeaders)
	if err != nil {
		return nil, err
	}

	// 分类目录
	catalogPath := CatalogPath(d.config.Discovery.CatalogDir, d.profile.Name)
	catalog := NewFileCatalog(catalogPath)
	allCategories, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	categories, err := d.selectCategories(allCategories)
	if err != nil {
		return nil, err
	}

	// 续跑快照
	reporter := utils.NewReporter(d.config.Output.BaseDir, d.profile.Name)
	persisted, err := d.loadSnapshot(reporter.SiteDir())
	if err != nil {
		return nil, err
	}

	dedup := engine.NewDedupIndex(persisted)
	seq := &engine.Sequence{}

	// 抓取器: 静态始终可用,渲染按需启动
	waitTime := time.Duration(d.config.Discovery.WaitTime) * time.Second
	staticFetcher := engine.NewStaticFetcher(waitTime, headerProvider)

	var renderFetcher *engine.RenderFetcher
	if needsRender(categories) {
		renderFetcher, err = engine.NewRenderFetcher(d.config.Discovery.Headless, waitTime, headerProvider)
		if err != nil {
			return nil, fmt.Errorf("启动渲染抓取器失败: %w", err)
		}
		defer renderFetcher.Close()
	}

	// 失败明细日志
	failureLog, err := reporter.OpenFetchFailureLog()
	if err != nil {
		return nil, err
	}
	defer failureLog.Close()

	// 资源护栏与进度条
	guard := engine.NewResourceGuard(d.guardConfig())
	sourceCount := len(categories)
	if d.options.BulkFile != "" {
		sourceCount++
	}
	bar := utils.NewProgressBar(sourceCount, "遍历来源")

	// 组装来源: 分类按目录顺序在前,批量来源最后
	policy := d.profile.ApplyOverrides(d.options.MaxPages, d.options.MaxEmptyPages)
	aggregator := engine.NewAggregator()

	for _, category := range categories {
		fetcher := engine.PageFetchPort(staticFetcher)
		if category.Render && renderFetcher != nil {
			fetcher = renderFetcher
		}

		eng, err := engine.NewCategoryTraversal(
			category,
			policy,
			fetcher,
			d.extractorFor(),
			dedup,
			seq,
			engine.WithLandingPage(d.profile.IncludeLandingPage && d.config.Discovery.IncludeLandingPage),
			engine.WithFetchFailureHook(failureLog.Append),
		)
		if err != nil {
			return nil, err
		}
		aggregator.Register(&guardedSource{src: eng, guard: guard, bar: bar})
	}

	if d.options.BulkFile != "" {
		bulkName := filepath.Base(d.options.BulkFile)
		bulk := engine.NewBulkJobSource(bulkName, d.options.BulkFile, dedup, seq)
		aggregator.Register(&guardedSource{src: bulk, guard: guard, bar: bar})
	}

	// 执行并收集记录
	var records []models.JobRecord
	sourceReports := aggregator.Run(ctx, func(r models.JobRecord) error {
		records = append(records, r)
		return nil
	})

	// 汇总统计
	stats := models.RunStats{ResumeSnapshot: len(persisted)}
	for _, r := range sourceReports {
		stats.Merge(r)
	}
	stats.Duration = time.Since(startTime).Seconds()

	report := &models.DiscoveryReport{
		RunID:     runID,
		Site:      d.profile.Name,
		OutputDir: reporter.SiteDir(),
		StartTime: startTime,
		EndTime:   time.Now(),
		Stats:     stats,
		Sources:   sourceReports,
		Records:   records,
	}

	// 落盘: 记录、快照、报告
	if _, err := reporter.WriteRecords(records); err != nil {
		return report, err
	}
	if err := d.saveSnapshot(reporter.SiteDir(), persisted, records); err != nil {
		return report, err
	}
	if err := reporter.WriteReport(report); err != nil {
		return report, err
	}

	utils.Infof("✅ 发现运行完成: %d个来源, 抓取%d页, 发出%d条, 跳过%d条, 耗时%.1f秒",
		stats.TotalSources, stats.TotalPages, stats.TotalEmitted, stats.TotalSkipped, stats.Duration)
	if stats.FailedSources > 0 {
		utils.Warnf("⚠️  %d个来源因抓取失败终止,明细见 fetch_failures.ndjson", stats.FailedSources)
	}

	return report, nil
}

// selectCategories 确定本次运行的分类集合
// 优先级: --categories指定 > --all-categories > 站点精选子集
func (d *Discovery) selectCategories(all []models.CategoryDefinition) ([]models.CategoryDefinition, error) {
	if len(d.options.Categories) > 0 {
		return SelectCategories(all, d.options.Categories)
	}
	if d.options.AllCategories || len(d.profile.CuratedSlugs) == 0 {
		return all, nil
	}

	selected, err := SelectCategories(all, d.profile.CuratedSlugs)
	if err != nil {
		// 精选分类与目录不一致属于目录维护问题
		return nil, &models.CatalogError{
			FilePath: CatalogPath(d.config.Discovery.CatalogDir, d.profile.Name),
			Cause:    fmt.Errorf("精选分类缺失: %w", err),
		}
	}
	return selected, nil
}

// extractorFor 按站点配置选择提取器
func (d *Discovery) extractorFor() engine.PageExtractorPort {
	if d.profile.Extractor == models.ExtractorZoneAPI {
		return extract.NewZoneAPIExtractor()
	}
	return extract.NewHTMLExtractor(d.profile.ContainerClass, d.profile.LinkAttrs)
}

// loadSnapshot 续跑模式加载URL快照
// 快照缺失不是错误 (首次运行)
func (d *Discovery) loadSnapshot(siteDir string) (map[string]struct{}, error) {
	if !d.config.Discovery.Resume {
		return nil, nil
	}

	path := filepath.Join(siteDir, models.SnapshotFilename(d.profile.Name))
	snapshot, err := models.LoadSnapshotFromFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			utils.Infof("未找到URL快照,从头开始: %s", path)
			return nil, nil
		}
		return nil, fmt.Errorf("加载URL快照失败: %w", err)
	}

	utils.Infof("续跑模式: 快照加载%d条已入库URL", snapshot.RecordCount)
	return snapshot.URLSet(), nil
}

// saveSnapshot 更新URL快照 (旧快照URL + 本次新发出的URL)
func (d *Discovery) saveSnapshot(siteDir string, persisted map[string]struct{}, records []models.JobRecord) error {
	urls := make([]string, 0, len(persisted)+len(records))
	for u := range persisted {
		urls = append(urls, u)
	}
	for _, r := range records {
		urls = append(urls, r.URL)
	}

	snapshot := &models.URLSnapshot{
		Site:      d.profile.Name,
		URLs:      urls,
		CreatedAt: time.Now(),
	}
	path := filepath.Join(siteDir, models.SnapshotFilename(d.profile.Name))
	if err := snapshot.SaveToFile(path); err != nil {
		return fmt.Errorf("保存URL快照失败: %w", err)
	}

	utils.Infof("URL快照已更新: %s (%d条)", path, len(urls))
	return nil
}

// guardConfig 把配置文件的护栏段转换为引擎配置
func (d *Discovery) guardConfig() engine.ResourceGuardConfig {
	cfg := engine.DefaultResourceGuardConfig()
	if d.config.Guard.MinAvailableMemory > 0 {
		cfg.MinAvailableMemory = uint64(d.config.Guard.MinAvailableMemory) * 1024 * 1024
	}
	if d.config.Guard.CPULoadThreshold > 0 {
		cfg.CPULoadThreshold = d.config.Guard.CPULoadThreshold
	}
	if d.config.Guard.CheckInterval > 0 {
		cfg.CheckInterval = time.Duration(d.config.Guard.CheckInterval) * time.Second
	}
	if d.config.Guard.MaxWait > 0 {
		cfg.MaxWait = time.Duration(d.config.Guard.MaxWait) * time.Second
	}
	return cfg
}

// needsRender 检查是否有分类需要浏览器渲染
func needsRender(categories []models.CategoryDefinition) bool {
	for _, c := range categories {
		if c.Render {
			return true
		}
	}
	return false
}
