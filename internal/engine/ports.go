package engine

import (
	"context"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
)

// PageFetchPort 页面抓取端口
// 传输层(重试/退避/代理轮换)对引擎不可见: 引擎把每次调用
// 视为一次不透明的同步尝试,结果二元(内容或失败)
type PageFetchPort interface {
	// Fetch 抓取目标URL并返回响应体
	// 失败时返回*models.FetchError
	Fetch(ctx context.Context, targetURL string) ([]byte, error)
}

// PageExtractorPort 页面提取端口
// 站点相关的解析逻辑,返回有序的候选URL列表(去重前)
type PageExtractorPort interface {
	// Extract 从响应体中提取候选URL
	// pageURL用于解析相对链接; 解析失败按零候选处理,由调用方计空页
	Extract(pageURL string, body []byte) ([]string, error)
}

// CategoryCatalogPort 分类目录端口
// 每次运行加载一次,加载后只读
type CategoryCatalogPort interface {
	// Load 加载全部分类定义
	Load() ([]models.CategoryDefinition, error)
}

// PersistedURLPort 已入库URL端口
// 仅续跑模式时查询
type PersistedURLPort interface {
	// LoadExisting 返回已入库的URL集合
	LoadExisting() (map[string]struct{}, error)
}

// EmitFunc 记录发出回调
// 返回error表示下游拒绝接收,来源应停止发出
type EmitFunc func(models.JobRecord) error

// JobSource 发现记录来源
// 每个来源产出一段有限、有序、不可重放的记录序列
type JobSource interface {
	// Name 来源名称 (统计归属用)
	Name() string

	// Run 执行发现,经emit逐条发出记录,返回本来源的统计报告
	// ctx取消在页边界生效,已发出的记录不受影响
	Run(ctx context.Context, emit EmitFunc) models.TraversalReport
}
