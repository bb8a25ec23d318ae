// Package engine 提供新闻文章URL的发现与遍历终止控制
//
// # 概述
//
// engine包实现了分类分页遍历的核心状态机,决定"何时停止翻页":
// 页数上限、连续空页上限、分页循环检测、抓取失败处理,全部由
// 策略表(models.TerminationPolicy)驱动。同时提供批量候选文件来源、
// 来源聚合器、全局URL认领索引和两种页面抓取适配器。
//
// # 核心组件
//
// ## CategoryTraversalEngine
//
// 单分类遍历引擎,实现JobSource接口。每页迭代按固定顺序执行:
// 抓取、失败处理、提取、分页循环检测(发出前)、认领去重、发出、
// 空页计数(发出后)、上限检查。
//
//	eng, err := NewCategoryTraversal(category, policy, fetcher, extractor, dedup, seq)
//	report := eng.Run(ctx, emit)
//
// ## DedupIndex
//
// 全局URL认领索引,保证同一次运行的全部输出中URL唯一。
// 持久化快照命中返回ClaimExisting,本次运行内重复返回ClaimDuplicate。
// 并发安全,多个来源可共享同一实例。
//
// ## BulkJobSource
//
// 批量候选文件来源(NDJSON或纯文本URL列表,每行一条),畸形行跳过
// 不中止,文件耗尽后以catalog-exhausted终止。
//
// ## Aggregator
//
// 来源聚合器,按注册顺序逐个耗尽来源。Stream方法返回无缓冲通道,
// 下游不取则上游不抓。
//
// ## StaticFetcher / RenderFetcher
//
// 两种PageFetchPort实现: Colly静态抓取(含gzip/deflate/brotli解压)
// 与go-rod浏览器渲染抓取(JS渲染站点的分类标记render后使用)。
//
// ## ResourceGuard
//
// 运行级资源护栏,启动每个来源前检查系统内存与CPU,
// 压力过高时阻塞等待回落。
//
// # 并发安全
//
//   - DedupIndex: sync.Mutex
//   - Sequence: atomic.Int64
//   - Aggregator: sync.Mutex (来源本身按顺序执行)
//
// # 错误处理
//
//   - 抓取失败: *models.FetchError, 按策略Halt终止或按空页容忍
//   - 提取失败: 按零候选处理,计入空页,不中止遍历
//   - 策略非法: 构造期返回*models.ConfigError,不进入遍历
package engine
