package engine

import (
	"context"
	"sync/atomic"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// Sequence 运行级发现序号发生器
// 所有来源共享一个实例,保证DiscoveryOrder跨来源单调递增
type Sequence struct {
	n atomic.Int64
}

// Next 返回下一个序号 (从1开始)
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// TraversalState 单分类遍历的可变状态
// 每分类每次运行创建一份,运行结束即丢弃
type TraversalState struct {
	// CurrentPage 当前页码 (单调递增,从1开始)
	CurrentPage int

	// ConsecutiveEmptyPages 连续空页计数
	ConsecutiveEmptyPages int

	// PreviousFingerprint 上一页的URL指纹 (页面前N条URL,nil=尚无)
	PreviousFingerprint []string

	// TerminationReason 终止原因 (只设置一次,设置后状态终结)
	TerminationReason models.TerminationReason
}

// terminate 设置终止原因
// 已终结的状态不再变化
func (s *TraversalState) terminate(reason models.TerminationReason) {
	if s.TerminationReason == "" {
		s.TerminationReason = reason
	}
}

// FetchFailureHook 抓取失败回调
// 协调器用它把失败明细写入fetch_failures.ndjson
type FetchFailureHook func(category string, pageURL string, err error)

// CategoryTraversalEngine 分类遍历引擎
// 驱动单个分类的逐页遍历: 状态机逐页决定继续分页、空页判定、
// 分页循环检测与终止时机,全部行为由注入的策略表驱动
type CategoryTraversalEngine struct {
	category models.CategoryDefinition
	policy   models.TerminationPolicy

	fetcher   PageFetchPort
	extractor PageExtractorPort
	dedup     *DedupIndex
	seq       *Sequence

	// includeLanding 第一页是否请求落地页
	includeLanding bool

	// onFetchFailure 抓取失败回调 (可选)
	onFetchFailure FetchFailureHook
}

// TraversalOption 引擎可选配置
type TraversalOption func(*CategoryTraversalEngine)

// WithLandingPage 控制第一页是否请求落地页
func WithLandingPage(include bool) TraversalOption {
	return func(e *CategoryTraversalEngine) {
		e.includeLanding = include
	}
}

// WithFetchFailureHook 注册抓取失败回调
func WithFetchFailureHook(hook FetchFailureHook) TraversalOption {
	return func(e *CategoryTraversalEngine) {
		e.onFetchFailure = hook
	}
}

// NewCategoryTraversal 创建分类遍历引擎
// 策略非法时在构造期返回错误 (致命,不进入遍历)
func NewCategoryTraversal(
	category models.CategoryDefinition,
	policy models.TerminationPolicy,
	fetcher PageFetchPort,
	extractor PageExtractorPort,
	dedup *DedupIndex,
	seq *Sequence,
	opts ...TraversalOption,
) (*CategoryTraversalEngine, error) {
	if err := category.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &CategoryTraversalEngine{
		category:       category,
		policy:         policy,
		fetcher:        fetcher,
		extractor:      extractor,
		dedup:          dedup,
		seq:            seq,
		includeLanding: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name 实现JobSource接口
func (e *CategoryTraversalEngine) Name() string {
	return e.category.Slug
}

// pageTarget 构造第page页的请求目标
// 第一页为落地页(如启用),之后为时间线URL
func (e *CategoryTraversalEngine) pageTarget(page int) string {
	if page == 1 && e.includeLanding {
		return e.category.NormalizedLandingURL()
	}
	return e.category.TimelineURL(page)
}

// pageKind 第page页发出记录的来源类型
func (e *CategoryTraversalEngine) pageKind(page int) models.SourceKind {
	if page == 1 && e.includeLanding {
		return models.SourceKindLandingPage
	}
	return models.SourceKindCategoryTimeline
}

// Run 执行分类遍历,实现JobSource接口
//
// 每页迭代严格按以下顺序执行:
//  1. 构造请求目标并抓取
//  2. 失败: Halt模式立即终止(本页不发出任何记录);
//     容忍模式按空页处理,跳过提取
//  3. 成功: 提取候选列表,先做分页循环检测——指纹命中时
//     在发出任何记录之前终止(重复页不携带新信号,不得重置空页计数)
//  4. 逐条认领去重后发出,按配置口径计算本页发出数
//  5. 发出之后检查空页上限 (本页的部分内容仍然有效)
//  6. 页码递增后检查页数上限
//
// 取消检查在页边界生效: 已发出的记录不会被丢弃
func (e *CategoryTraversalEngine) Run(ctx context.Context, emit EmitFunc) models.TraversalReport {
	state := &TraversalState{CurrentPage: 1}
	report := models.TraversalReport{
		Source: e.category.Slug,
		Kind:   models.SourceKindCategoryTimeline,
	}

	// MaxPages=0的历史语义: 第1页即超过上限,抓取第1页后立即停止。
	// 仅MaxPages缺失(nil)表示不限页数。
	for {
		// 页边界取消检查
		if ctx.Err() != nil {
			state.terminate(models.TerminationCancelled)
			break
		}

		target := e.pageTarget(state.CurrentPage)
		body, fetchErr := e.fetcher.Fetch(ctx, target)
		report.PagesVisited++

		var candidates []string
		rawCount := 0

		if fetchErr != nil {
			if e.policy.HTTPFailureMode == models.FailureModeHalt {
				utils.Errorf("分类 %s 第%d页抓取失败,终止遍历: %v", e.category.Slug, state.CurrentPage, fetchErr)
				if e.onFetchFailure != nil {
					e.onFetchFailure(e.category.Slug, target, fetchErr)
				}
				state.terminate(models.TerminationFetchFailure)
				break
			}
			// 容忍模式: 按空页处理,跳过提取
			utils.Warnf("分类 %s 第%d页抓取失败,按空页处理: %v", e.category.Slug, state.CurrentPage, fetchErr)
		} else {
			extracted, extractErr := e.extractor.Extract(target, body)
			if extractErr != nil {
				// 页面畸形按零候选处理,计入空页,不中止
				utils.Warnf("分类 %s 第%d页提取失败,按空页处理: %v", e.category.Slug, state.CurrentPage, extractErr)
			} else {
				candidates = extracted
			}
			rawCount = len(candidates)

			// 分页循环检测: 必须在发出之前。
			// 命中指纹说明站点分页已循环,本页不携带新信号,
			// 既不发出记录,也不得重置空页计数
			if e.policy.DuplicateDetection.Enabled {
				fp := fingerprintOf(candidates, e.policy.DuplicateDetection.FingerprintSize)
				if len(fp) > 0 && fingerprintEqual(fp, state.PreviousFingerprint) {
					utils.Infof("分类 %s 第%d页指纹与上一页相同,判定分页循环", e.category.Slug, state.CurrentPage)
					state.terminate(models.TerminationDuplicatePagination)
					break
				}
				state.PreviousFingerprint = fp
			}
		}

		// 认领并发出
		emittedThisPage := 0
		kind := e.pageKind(state.CurrentPage)
		stopped := false
		for _, candidate := range candidates {
			switch e.dedup.Claim(candidate) {
			case ClaimNew:
				record := models.NewJobRecord(candidate, e.category.Slug, kind, e.seq.Next())
				if err := emit(record); err != nil {
					utils.Warnf("分类 %s 下游拒绝接收,停止发出: %v", e.category.Slug, err)
					state.terminate(models.TerminationCancelled)
					stopped = true
					break
				}
				emittedThisPage++
				report.Emitted++
			case ClaimExisting:
				report.SkippedExisting++
			case ClaimDuplicate:
				report.SkippedDuplicate++
			}
		}
		if stopped {
			break
		}

		// 空页判定口径: 去重后发出数或原始候选数。
		// 整页都是已知URL时两种口径出现分歧
		emptyCount := emittedThisPage
		if e.policy.EmptyDefinition == models.EmptyRawExtracted {
			emptyCount = rawCount
		}

		if emptyCount == 0 {
			state.ConsecutiveEmptyPages++
		} else {
			state.ConsecutiveEmptyPages = 0
		}

		// 空页上限检查在发出之后: 本页已发出的部分内容仍然有效
		if e.policy.MaxEmptyPages != nil && state.ConsecutiveEmptyPages >= *e.policy.MaxEmptyPages {
			utils.Infof("分类 %s 连续%d空页达到上限,终止遍历", e.category.Slug, state.ConsecutiveEmptyPages)
			state.terminate(models.TerminationEmptyPageLimit)
			break
		}

		// 页数上限: "下一页超过上限则停止"
		state.CurrentPage++
		if e.policy.MaxPages != nil && state.CurrentPage > *e.policy.MaxPages {
			state.terminate(models.TerminationMaxPagesReached)
			break
		}
	}

	report.TerminationReason = state.TerminationReason
	utils.Infof("分类 %s 遍历结束: 访问%d页, 发出%d, 跳过已存在%d, 跳过重复%d, 原因=%s",
		e.category.Slug, report.PagesVisited, report.Emitted,
		report.SkippedExisting, report.SkippedDuplicate, report.TerminationReason)

	return report
}

// fingerprintOf 返回候选列表的指纹 (前size条URL)
func fingerprintOf(candidates []string, size int) []string {
	if len(candidates) <= size {
		return candidates
	}
	return candidates[:size]
}

// fingerprintEqual 按序比较两个指纹
func fingerprintEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
