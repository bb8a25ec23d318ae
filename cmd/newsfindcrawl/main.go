package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/core"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	headerConfig   string   // 头部配置文件
	validateConfig bool     // 验证配置文件

	// 发现参数
	site          string
	categories    []string
	allCategories bool
	bulkFile      string
	maxPages      int
	maxEmptyPages int
	waitTime      int
	headless      bool
	resume        bool
	outputDir     string
)

var rootCmd = &cobra.Command{
	Use:   "newsfindcrawl",
	Short: "新闻文章URL发现工具",
	Long: `NewsFIndcrawl - 多来源新闻文章URL发现工具 (Go版本)

按站点分类逐页遍历时间线,发现新文章URL并输出给下游抓取,支持:
  • 分类分页遍历与自动终止 (页数上限/连续空页/分页循环检测)
  • 批量候选文件回灌 (NDJSON)
  • 快照续跑与全局去重
  • JS渲染站点的浏览器渲染抓取
  • 自定义HTTP请求头

使用示例:
  # 遍历站点精选分类
  newsfindcrawl -s thanhnien

  # 指定分类并限制页数
  newsfindcrawl -s znews --categories phap-luat,kinh-doanh --max-pages 5

  # 回灌站点地图候选文件
  newsfindcrawl -s nld --bulk-file backfill.ndjson

  # 验证HTTP头部配置
  newsfindcrawl --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig.MergeCLIFlags(site, waitTime, headless, resume, outputDir)

		// 如果用户请求验证头部配置
		if validateConfig {
			headerManager, err := core.NewHeaderManager(headerConfig, headers)
			if err != nil {
				return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
			}
			utils.Info("🔍 验证HTTP头部配置...")
			if err := headerManager.LoadConfig(); err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if err := headerManager.Validate(); err != nil {
				return fmt.Errorf("配置验证失败: %w", err)
			}

			// 显示合并后的头部(脱敏)
			safeHeaders := headerManager.GetSafeHeaders()
			utils.Info("✅ 配置验证通过!")
			utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
			for name, value := range safeHeaders {
				utils.Infof("  %s: %s", name, value)
			}
			return nil
		}

		// 没有指定站点时显示帮助信息
		if appConfig.Discovery.Site == "" {
			return cmd.Help()
		}

		if err := ValidateFlags(appConfig.Discovery.Site, categories, allCategories, bulkFile, waitTime); err != nil {
			return err
		}

		// 信号处理: Ctrl+C后在页边界优雅停止,已发出的记录保留
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		options := core.RunOptions{
			Site:             appConfig.Discovery.Site,
			Categories:       categories,
			AllCategories:    allCategories,
			BulkFile:         bulkFile,
			MaxPages:         limitFlag(cmd, "max-pages", maxPages),
			MaxEmptyPages:    limitFlag(cmd, "max-empty-pages", maxEmptyPages),
			HeaderConfigFile: headerConfig,
			CliHeaders:       headers,
		}

		discovery, err := core.NewDiscovery(appConfig, options)
		if err != nil {
			return fmt.Errorf("创建发现协调器失败: %w", err)
		}

		report, err := discovery.Run(ctx)
		if err != nil {
			return fmt.Errorf("发现运行失败: %w", err)
		}

		printSummary(report)

		// 有来源被阻断时退出码非零,便于调度系统告警
		if report.Stats.FailedSources > 0 {
			return fmt.Errorf("%d个来源因抓取失败终止", report.Stats.FailedSources)
		}

		utils.Info("✨ 发现任务完成!")
		return nil
	},
}

// limitFlag 把显式传入的上限参数转换为策略覆盖
// 未显式传入时返回nil(使用站点默认); 显式传入非正数表示解除该上限
func limitFlag(cmd *cobra.Command, name string, value int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return models.IntPtr(value)
}

// printSummary 打印运行统计
func printSummary(report *models.DiscoveryReport) {
	fmt.Println("\n==================================================")
	fmt.Println("📊 发现统计")
	fmt.Println("==================================================")
	fmt.Printf("✅ 来源数: %d\n", report.Stats.TotalSources)
	fmt.Printf("✅ 抓取页数: %d\n", report.Stats.TotalPages)
	fmt.Printf("✅ 发出记录: %d\n", report.Stats.TotalEmitted)
	fmt.Printf("⏭️  跳过记录: %d\n", report.Stats.TotalSkipped)
	fmt.Printf("❌ 失败来源: %d\n", report.Stats.FailedSources)
	fmt.Printf("⏱️  总耗时: %.2f秒\n", report.Stats.Duration)
	fmt.Println("--------------------------------------------------")
	for _, src := range report.Sources {
		fmt.Printf("  %-24s 页数=%-4d 发出=%-5d 终止=%s\n",
			src.Source, src.PagesVisited, src.Emitted, src.TerminationReason)
	}
	fmt.Println("==================================================")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("NewsFIndcrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 多来源新闻URL发现工具")
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "列出支持的站点",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range models.ListSourceProfiles() {
			profile, _ := models.GetSourceProfile(name)
			fmt.Printf("%-12s 精选分类: %s\n", name, strings.Join(profile.CuratedSlugs, ", "))
		}
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headerConfig, "header-config", "", "HTTP头部配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证头部配置文件正确性")

	// 发现参数
	rootCmd.Flags().StringVarP(&site, "site", "s", "", "站点slug (thanhnien|znews|kenh14|plo|nld)")
	rootCmd.Flags().StringSliceVar(&categories, "categories", []string{}, "要遍历的分类slug,逗号分隔 (默认站点精选分类)")
	rootCmd.Flags().BoolVar(&allCategories, "all-categories", false, "遍历目录内全部分类")
	rootCmd.Flags().StringVarP(&bulkFile, "bulk-file", "f", "", "批量候选文件路径 (NDJSON)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "页数上限覆盖 (0或负数=不限)")
	rootCmd.Flags().IntVar(&maxEmptyPages, "max-empty-pages", 0, "连续空页上限覆盖 (0或负数=关闭)")
	rootCmd.Flags().IntVarP(&waitTime, "wait", "w", 0, "HTTP超时及渲染等待时间(秒)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "从URL快照续跑")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(sitesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
