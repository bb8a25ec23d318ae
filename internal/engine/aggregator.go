package engine

import (
	"context"
	"sync"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// Aggregator 来源聚合器
// 按注册顺序逐个耗尽来源: 前一个来源完全结束后才启动下一个,
// 输出序列的来源间顺序因此可复现
type Aggregator struct {
	mu      sync.Mutex
	sources []JobSource
	reports []models.TraversalReport
}

// NewAggregator 创建来源聚合器
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Register 注册来源
// 注册顺序即执行顺序
func (a *Aggregator) Register(src JobSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = append(a.sources, src)
}

// Run 顺序执行全部来源,记录经emit逐条发出
// 返回按执行顺序排列的各来源报告
func (a *Aggregator) Run(ctx context.Context, emit EmitFunc) []models.TraversalReport {
	a.mu.Lock()
	sources := make([]JobSource, len(a.sources))
	copy(sources, a.sources)
	a.mu.Unlock()

	reports := make([]models.TraversalReport, 0, len(sources))
	for _, src := range sources {
		if ctx.Err() != nil {
			utils.Warnf("运行已取消,剩余来源不再执行 (当前: %s)", src.Name())
			break
		}
		utils.Infof("🔍 开始来源: %s", src.Name())
		reports = append(reports, src.Run(ctx, emit))
	}

	a.mu.Lock()
	a.reports = reports
	a.mu.Unlock()
	return reports
}

// Stream 惰性执行全部来源,返回记录通道
// 通道无缓冲: 下游不取则上游不抓,全部来源耗尽后通道关闭
func (a *Aggregator) Stream(ctx context.Context) <-chan models.JobRecord {
	out := make(chan models.JobRecord)

	go func() {
		defer close(out)
		a.Run(ctx, func(r models.JobRecord) error {
			select {
			case out <- r:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return out
}

// Reports 返回最近一次Run/Stream的各来源报告
// Stream模式下需等通道关闭后调用
func (a *Aggregator) Reports() []models.TraversalReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reports
}
