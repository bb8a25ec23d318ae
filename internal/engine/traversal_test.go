package engine

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

func TestMain(m *testing.M) {
	// 测试期间关闭日志输出
	utils.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

// fakeSite 脚本化的站点桩
// 按请求目标URL返回固定的候选列表或失败
type fakeSite struct {
	pages       map[string][]string
	fetchErrs   map[string]error
	extractErrs map[string]error
	fetched     []string
}

func (f *fakeSite) Fetch(_ context.Context, targetURL string) ([]byte, error) {
	f.fetched = append(f.fetched, targetURL)
	if err, ok := f.fetchErrs[targetURL]; ok {
		return nil, err
	}
	return []byte(targetURL), nil
}

func (f *fakeSite) Extract(pageURL string, _ []byte) ([]string, error) {
	if err, ok := f.extractErrs[pageURL]; ok {
		return nil, err
	}
	return f.pages[pageURL], nil
}

func testCategory() models.CategoryDefinition {
	return models.CategoryDefinition{
		Slug:             "thoi-su",
		DisplayName:      "时政",
		LandingURL:       "https://news.example.vn/thoi-su.htm",
		TimelineTemplate: "https://news.example.vn/timeline/thoi-su-trang-{page}.htm",
	}
}

func landing() string {
	return "https://news.example.vn/thoi-su.htm"
}

func timeline(page int) string {
	c := testCategory()
	return c.TimelineURL(page)
}

func basePolicy() models.TerminationPolicy {
	return models.TerminationPolicy{
		HTTPFailureMode: models.FailureModeHalt,
		EmptyDefinition: models.EmptyPostDedupe,
	}
}

// runTraversal 构造引擎并执行,返回报告与发出的URL序列
func runTraversal(t *testing.T, site *fakeSite, policy models.TerminationPolicy, persisted map[string]struct{}, opts ...TraversalOption) (models.TraversalReport, []models.JobRecord) {
	t.Helper()

	dedup := NewDedupIndex(persisted)
	eng, err := NewCategoryTraversal(testCategory(), policy, site, site, dedup, &Sequence{}, opts...)
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}

	var emitted []models.JobRecord
	report := eng.Run(context.Background(), func(r models.JobRecord) error {
		emitted = append(emitted, r)
		return nil
	})
	return report, emitted
}

func urlsOf(records []models.JobRecord) []string {
	urls := make([]string, len(records))
	for i, r := range records {
		urls[i] = r.URL
	}
	return urls
}

func equalStrings(a, b []string) bool {
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

func TestTraversalMaxPages(t *testing.T) {
	t.Run("达到页数上限后停止且跨页去重", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing():   {"https://news.example.vn/a.htm", "https://news.example.vn/b.htm"},
			timeline(2): {"https://news.example.vn/b.htm", "https://news.example.vn/c.htm"},
			timeline(3): {"https://news.example.vn/d.htm"},
		}}
		policy := basePolicy()
		policy.MaxPages = models.IntPtr(3)

		report, emitted := runTraversal(t, site, policy, nil)

		want := []string{
			"https://news.example.vn/a.htm",
			"https://news.example.vn/b.htm",
			"https://news.example.vn/c.htm",
			"https://news.example.vn/d.htm",
		}
		if !equalStrings(urlsOf(emitted), want) {
			t.Errorf("发出序列 = %v, 期望 %v", urlsOf(emitted), want)
		}
		if report.TerminationReason != models.TerminationMaxPagesReached {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationMaxPagesReached)
		}
		if report.PagesVisited != 3 {
			t.Errorf("访问页数 = %d, 期望 3", report.PagesVisited)
		}
		if report.SkippedDuplicate != 1 {
			t.Errorf("跳过重复数 = %d, 期望 1", report.SkippedDuplicate)
		}
		// 发现序号单调递增
		for i, r := range emitted {
			if r.DiscoveryOrder != int64(i+1) {
				t.Errorf("第%d条记录序号 = %d, 期望 %d", i, r.DiscoveryOrder, i+1)
			}
		}
	})

	t.Run("上限为0时抓取第1页后立即停止", func(t *testing.T) {
		// 历史语义: 0不是不限页数的哨兵值,只有nil才是
		site := &fakeSite{pages: map[string][]string{
			landing(): {"https://news.example.vn/a.htm"},
		}}
		policy := basePolicy()
		policy.MaxPages = models.IntPtr(0)

		report, emitted := runTraversal(t, site, policy, nil)

		if report.PagesVisited != 1 {
			t.Errorf("访问页数 = %d, 期望 1", report.PagesVisited)
		}
		if len(emitted) != 1 {
			t.Errorf("发出数 = %d, 期望 1 (第1页内容仍然发出)", len(emitted))
		}
		if report.TerminationReason != models.TerminationMaxPagesReached {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationMaxPagesReached)
		}
	})
}

func TestTraversalDuplicatePagination(t *testing.T) {
	t.Run("相邻两页指纹相同时在发出前终止", func(t *testing.T) {
		u := func(n string) string { return "https://news.example.vn/" + n + ".htm" }
		site := &fakeSite{pages: map[string][]string{
			landing():   {u("u1"), u("u2"), u("u3"), u("u4")},
			timeline(2): {u("u1"), u("u2"), u("u3"), u("u5")},
		}}
		policy := basePolicy()
		policy.DuplicateDetection = models.DuplicateDetection{Enabled: true, FingerprintSize: 3}

		report, emitted := runTraversal(t, site, policy, nil)

		if len(emitted) != 4 {
			t.Fatalf("发出数 = %d, 期望 4 (仅第1页)", len(emitted))
		}
		for _, r := range emitted {
			if r.URL == u("u5") {
				t.Errorf("u5不应被发出: 指纹命中页整页丢弃")
			}
		}
		if report.TerminationReason != models.TerminationDuplicatePagination {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationDuplicatePagination)
		}
		if report.PagesVisited != 2 {
			t.Errorf("访问页数 = %d, 期望 2", report.PagesVisited)
		}
	})

	t.Run("前缀不同时不触发循环检测", func(t *testing.T) {
		u := func(n string) string { return "https://news.example.vn/" + n + ".htm" }
		site := &fakeSite{pages: map[string][]string{
			landing():   {u("u1"), u("u2"), u("u3")},
			timeline(2): {u("u2"), u("u3"), u("u4")},
		}}
		policy := basePolicy()
		policy.MaxPages = models.IntPtr(2)
		policy.DuplicateDetection = models.DuplicateDetection{Enabled: true, FingerprintSize: 3}

		report, emitted := runTraversal(t, site, policy, nil)

		if report.TerminationReason != models.TerminationMaxPagesReached {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationMaxPagesReached)
		}
		if len(emitted) != 4 {
			t.Errorf("发出数 = %d, 期望 4", len(emitted))
		}
	})

	t.Run("空指纹不触发循环检测", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			timeline(2): {"https://news.example.vn/a.htm"},
		}}
		policy := basePolicy()
		policy.MaxPages = models.IntPtr(2)
		policy.DuplicateDetection = models.DuplicateDetection{Enabled: true, FingerprintSize: 3}

		report, emitted := runTraversal(t, site, policy, nil)

		// 第1页为空,第2页有内容,两个空指纹不相互命中
		if report.TerminationReason != models.TerminationMaxPagesReached {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationMaxPagesReached)
		}
		if len(emitted) != 1 {
			t.Errorf("发出数 = %d, 期望 1", len(emitted))
		}
	})
}

func TestTraversalEmptyPages(t *testing.T) {
	t.Run("连续空页达到上限后停止", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing(): {"https://news.example.vn/a.htm"},
		}}
		policy := basePolicy()
		policy.MaxEmptyPages = models.IntPtr(2)

		report, emitted := runTraversal(t, site, policy, nil)

		if report.TerminationReason != models.TerminationEmptyPageLimit {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationEmptyPageLimit)
		}
		if report.PagesVisited != 3 {
			t.Errorf("访问页数 = %d, 期望 3 (第1页有内容+2个空页)", report.PagesVisited)
		}
		if len(emitted) != 1 {
			t.Errorf("发出数 = %d, 期望 1", len(emitted))
		}
	})

	t.Run("非空页重置连续空页计数", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing():   {"https://news.example.vn/a.htm"},
			timeline(3): {"https://news.example.vn/b.htm"},
		}}
		policy := basePolicy()
		policy.MaxEmptyPages = models.IntPtr(2)

		report, emitted := runTraversal(t, site, policy, nil)

		// 第2页空(计数1),第3页有内容(重置),第4/5页空后停止
		if report.PagesVisited != 5 {
			t.Errorf("访问页数 = %d, 期望 5", report.PagesVisited)
		}
		if len(emitted) != 2 {
			t.Errorf("发出数 = %d, 期望 2", len(emitted))
		}
		if report.TerminationReason != models.TerminationEmptyPageLimit {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationEmptyPageLimit)
		}
	})

	t.Run("提取失败按零候选计入空页", func(t *testing.T) {
		site := &fakeSite{
			pages:       map[string][]string{},
			extractErrs: map[string]error{landing(): errors.New("页面结构异常")},
		}
		policy := basePolicy()
		policy.MaxEmptyPages = models.IntPtr(1)

		report, emitted := runTraversal(t, site, policy, nil)

		if report.TerminationReason != models.TerminationEmptyPageLimit {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationEmptyPageLimit)
		}
		if len(emitted) != 0 {
			t.Errorf("发出数 = %d, 期望 0", len(emitted))
		}
	})
}

func TestTraversalEmptyDefinition(t *testing.T) {
	u := func(n string) string { return "https://news.example.vn/" + n + ".htm" }
	persisted := map[string]struct{}{
		u("a"): {},
		u("b"): {},
	}

	t.Run("去重后口径下整页已知URL判定为空页", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing(): {u("a"), u("b")},
		}}
		policy := basePolicy()
		policy.MaxEmptyPages = models.IntPtr(1)

		report, emitted := runTraversal(t, site, policy, persisted)

		if report.TerminationReason != models.TerminationEmptyPageLimit {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationEmptyPageLimit)
		}
		if report.PagesVisited != 1 {
			t.Errorf("访问页数 = %d, 期望 1", report.PagesVisited)
		}
		if report.SkippedExisting != 2 {
			t.Errorf("跳过已存在数 = %d, 期望 2", report.SkippedExisting)
		}
		if len(emitted) != 0 {
			t.Errorf("发出数 = %d, 期望 0", len(emitted))
		}
	})

	t.Run("原始候选口径下整页已知URL不算空页", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing(): {u("a"), u("b")},
		}}
		policy := basePolicy()
		policy.MaxEmptyPages = models.IntPtr(1)
		policy.EmptyDefinition = models.EmptyRawExtracted

		report, _ := runTraversal(t, site, policy, persisted)

		// 第1页原始候选2条不算空,第2页才是首个空页
		if report.PagesVisited != 2 {
			t.Errorf("访问页数 = %d, 期望 2", report.PagesVisited)
		}
		if report.TerminationReason != models.TerminationEmptyPageLimit {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationEmptyPageLimit)
		}
	})
}

func TestTraversalFetchFailure(t *testing.T) {
	fetchErr := &models.FetchError{
		URL:        timeline(2),
		Kind:       models.FetchFailureHTTP,
		StatusCode: 503,
	}

	t.Run("Halt模式抓取失败立即终止", func(t *testing.T) {
		site := &fakeSite{
			pages: map[string][]string{
				landing(): {"https://news.example.vn/a.htm"},
			},
			fetchErrs: map[string]error{timeline(2): fetchErr},
		}
		var hookCategory, hookURL string
		policy := basePolicy()

		report, emitted := runTraversal(t, site, policy, nil,
			WithFetchFailureHook(func(category, pageURL string, _ error) {
				hookCategory, hookURL = category, pageURL
			}))

		if report.TerminationReason != models.TerminationFetchFailure {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationFetchFailure)
		}
		if report.PagesVisited != 2 {
			t.Errorf("访问页数 = %d, 期望 2", report.PagesVisited)
		}
		if len(emitted) != 1 {
			t.Errorf("发出数 = %d, 期望 1 (失败页不发出任何记录)", len(emitted))
		}
		if hookCategory != "thoi-su" || hookURL != timeline(2) {
			t.Errorf("失败回调参数 = (%s, %s), 期望 (thoi-su, %s)", hookCategory, hookURL, timeline(2))
		}
	})

	t.Run("容忍模式抓取失败按空页计数", func(t *testing.T) {
		site := &fakeSite{
			pages: map[string][]string{
				landing(): {"https://news.example.vn/a.htm"},
			},
			fetchErrs: map[string]error{timeline(2): fetchErr},
		}
		policy := basePolicy()
		policy.HTTPFailureMode = models.FailureModeTolerateAsEmpty
		policy.MaxEmptyPages = models.IntPtr(1)

		report, emitted := runTraversal(t, site, policy, nil)

		if report.TerminationReason != models.TerminationEmptyPageLimit {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationEmptyPageLimit)
		}
		if report.PagesVisited != 2 {
			t.Errorf("访问页数 = %d, 期望 2", report.PagesVisited)
		}
		if len(emitted) != 1 {
			t.Errorf("发出数 = %d, 期望 1", len(emitted))
		}
	})
}

func TestTraversalCancellation(t *testing.T) {
	t.Run("已取消的上下文在页边界生效", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing(): {"https://news.example.vn/a.htm"},
		}}
		dedup := NewDedupIndex(nil)
		eng, err := NewCategoryTraversal(testCategory(), basePolicy(), site, site, dedup, &Sequence{})
		if err != nil {
			t.Fatalf("创建引擎失败: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report := eng.Run(ctx, func(models.JobRecord) error { return nil })

		if report.TerminationReason != models.TerminationCancelled {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationCancelled)
		}
		if report.PagesVisited != 0 {
			t.Errorf("访问页数 = %d, 期望 0", report.PagesVisited)
		}
	})

	t.Run("下游拒绝接收时停止发出", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing(): {"https://news.example.vn/a.htm", "https://news.example.vn/b.htm"},
		}}
		dedup := NewDedupIndex(nil)
		eng, err := NewCategoryTraversal(testCategory(), basePolicy(), site, site, dedup, &Sequence{})
		if err != nil {
			t.Fatalf("创建引擎失败: %v", err)
		}

		count := 0
		report := eng.Run(context.Background(), func(models.JobRecord) error {
			count++
			if count >= 1 {
				return errors.New("下游已关闭")
			}
			return nil
		})

		if report.TerminationReason != models.TerminationCancelled {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationCancelled)
		}
		if report.Emitted != 0 {
			t.Errorf("成功发出数 = %d, 期望 0", report.Emitted)
		}
	})
}

func TestTraversalPageTargets(t *testing.T) {
	t.Run("默认第1页请求落地页", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			landing():   {"https://news.example.vn/a.htm"},
			timeline(2): {"https://news.example.vn/b.htm"},
		}}
		policy := basePolicy()
		policy.MaxPages = models.IntPtr(2)

		_, emitted := runTraversal(t, site, policy, nil)

		if len(site.fetched) != 2 || site.fetched[0] != landing() || site.fetched[1] != timeline(2) {
			t.Errorf("请求序列 = %v, 期望 [%s %s]", site.fetched, landing(), timeline(2))
		}
		if len(emitted) != 2 {
			t.Fatalf("发出数 = %d, 期望 2", len(emitted))
		}
		if emitted[0].SourceKind != models.SourceKindLandingPage {
			t.Errorf("第1页来源类型 = %s, 期望 %s", emitted[0].SourceKind, models.SourceKindLandingPage)
		}
		if emitted[1].SourceKind != models.SourceKindCategoryTimeline {
			t.Errorf("第2页来源类型 = %s, 期望 %s", emitted[1].SourceKind, models.SourceKindCategoryTimeline)
		}
	})

	t.Run("关闭落地页时第1页请求时间线", func(t *testing.T) {
		site := &fakeSite{pages: map[string][]string{
			timeline(1): {"https://news.example.vn/a.htm"},
		}}
		policy := basePolicy()
		policy.MaxPages = models.IntPtr(1)

		_, emitted := runTraversal(t, site, policy, nil, WithLandingPage(false))

		if len(site.fetched) != 1 || site.fetched[0] != timeline(1) {
			t.Errorf("请求序列 = %v, 期望 [%s]", site.fetched, timeline(1))
		}
		if len(emitted) != 1 || emitted[0].SourceKind != models.SourceKindCategoryTimeline {
			t.Errorf("来源类型应为 %s", models.SourceKindCategoryTimeline)
		}
	})
}

func TestTraversalConstruction(t *testing.T) {
	tests := []struct {
		name     string
		category models.CategoryDefinition
		policy   models.TerminationPolicy
	}{
		{
			name:     "循环检测指纹长度非正",
			category: testCategory(),
			policy: models.TerminationPolicy{
				HTTPFailureMode:    models.FailureModeHalt,
				EmptyDefinition:    models.EmptyPostDedupe,
				DuplicateDetection: models.DuplicateDetection{Enabled: true, FingerprintSize: 0},
			},
		},
		{
			name: "时间线模板缺少页码占位符",
			category: models.CategoryDefinition{
				Slug:             "bad",
				TimelineTemplate: "https://news.example.vn/timeline.htm",
			},
			policy: basePolicy(),
		},
		{
			name:     "无效的抓取失败处理模式",
			category: testCategory(),
			policy: models.TerminationPolicy{
				HTTPFailureMode: "retry-forever",
				EmptyDefinition: models.EmptyPostDedupe,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := &fakeSite{}
			_, err := NewCategoryTraversal(tt.category, tt.policy, site, site, NewDedupIndex(nil), &Sequence{})
			if err == nil {
				t.Error("期望构造期返回错误")
			}
		})
	}
}
