package engine

import (
	"sync"
)

// DedupIndex 全局URL认领索引
// 职责: 保证同一次运行的全部输出中URL全局唯一
//
// 两层状态:
//   - persisted: 运行开始时加载的已入库快照 (只读,仅续跑模式非空)
//   - seen: 本次运行内已认领的URL (单调增长)
//
// 多个来源可并发调用Claim,互斥锁保护
type DedupIndex struct {
	mu        sync.Mutex
	persisted map[string]struct{}
	seen      map[string]struct{}
}

// ClaimResult 认领结果
type ClaimResult int

const (
	// ClaimNew 新URL,认领成功
	ClaimNew ClaimResult = iota

	// ClaimExisting 已存在于持久化快照 (续跑跳过)
	ClaimExisting

	// ClaimDuplicate 本次运行内已被认领
	ClaimDuplicate
)

// NewDedupIndex 创建认领索引
// persisted为nil时等价于空快照
func NewDedupIndex(persisted map[string]struct{}) *DedupIndex {
	if persisted == nil {
		persisted = make(map[string]struct{})
	}
	return &DedupIndex{
		persisted: persisted,
		seen:      make(map[string]struct{}),
	}
}

// Contains 检查URL是否已被认领或已入库
func (d *DedupIndex) Contains(url string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[url]; ok {
		return true
	}
	_, ok := d.persisted[url]
	return ok
}

// Claim 尝试认领URL
// 幂等: 同一URL的第二次认领返回ClaimDuplicate
// 快照命中也计入seen,保证后续调用统一返回重复
func (d *DedupIndex) Claim(url string) ClaimResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[url]; ok {
		return ClaimDuplicate
	}
	d.seen[url] = struct{}{}

	if _, ok := d.persisted[url]; ok {
		return ClaimExisting
	}
	return ClaimNew
}

// Size 返回本次运行已认领的URL数
func (d *DedupIndex) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// PersistedSize 返回持久化快照内的URL数
func (d *DedupIndex) PersistedSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.persisted)
}

// ClaimedURLs 返回本次运行认领的全部URL
// 用于运行结束时写入快照
func (d *DedupIndex) ClaimedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	urls := make([]string, 0, len(d.seen))
	for u := range d.seen {
		urls = append(urls, u)
	}
	return urls
}
