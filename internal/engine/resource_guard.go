package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// ResourceGuard 运行级资源护栏
// 在启动每个来源之前检查系统内存与CPU,
// 压力过高时阻塞等待而不是中止运行
type ResourceGuard struct {
	config ResourceGuardConfig
}

// ResourceGuardConfig 资源护栏配置
type ResourceGuardConfig struct {
	// MinAvailableMemory 允许继续的最小可用内存(字节)
	MinAvailableMemory uint64

	// CPULoadThreshold CPU负载阈值(%), >=200视为禁用CPU检查
	CPULoadThreshold int

	// CheckInterval 压力过高时的重试间隔
	CheckInterval time.Duration

	// MaxWait 最长等待时间,超过后放行并记录警告
	MaxWait time.Duration
}

// DefaultResourceGuardConfig 默认资源护栏配置
func DefaultResourceGuardConfig() ResourceGuardConfig {
	return ResourceGuardConfig{
		MinAvailableMemory: 300 * 1024 * 1024,
		CPULoadThreshold:   90,
		CheckInterval:      5 * time.Second,
		MaxWait:            2 * time.Minute,
	}
}

// NewResourceGuard 创建资源护栏
func NewResourceGuard(config ResourceGuardConfig) *ResourceGuard {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 5 * time.Second
	}
	if config.MaxWait <= 0 {
		config.MaxWait = 2 * time.Minute
	}
	return &ResourceGuard{config: config}
}

// check 单次资源检查
// 返回ok(是否允许继续)和reason(不允许时的原因)
func (g *ResourceGuard) check() (ok bool, reason string) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败,跳过内存检查: %v", err)
	} else if vmStat.Available < g.config.MinAvailableMemory {
		availableMB := vmStat.Available / (1024 * 1024)
		return false, fmt.Sprintf("可用内存不足(当前%dMB)", availableMB)
	}

	if g.config.CPULoadThreshold < 200 {
		// 100毫秒采样间隔,避免阻塞过久
		percentages, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil {
			utils.Warnf("获取CPU使用率失败,跳过CPU检查: %v", err)
		} else if len(percentages) > 0 && percentages[0] > float64(g.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", percentages[0])
		}
	}

	return true, ""
}

// WaitUntilReady 阻塞直到资源压力回落
// 超过最长等待时间后放行,ctx取消时立即返回
func (g *ResourceGuard) WaitUntilReady(ctx context.Context) {
	deadline := time.Now().Add(g.config.MaxWait)

	for {
		if ctx.Err() != nil {
			return
		}

		ok, reason := g.check()
		if ok {
			return
		}

		if time.Now().After(deadline) {
			utils.Warnf("资源压力持续超过%v仍未回落(%s),放行继续", g.config.MaxWait, reason)
			return
		}

		utils.Warnf("资源压力过高(%s),%v后重试", reason, g.config.CheckInterval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(g.config.CheckInterval):
		}
	}
}
