package engine

import (
	"fmt"
	"sync"
	"testing"
)

func TestDedupIndexClaim(t *testing.T) {
	persisted := map[string]struct{}{
		"https://news.example.vn/old.htm": {},
	}

	t.Run("新URL认领成功", func(t *testing.T) {
		idx := NewDedupIndex(persisted)
		if got := idx.Claim("https://news.example.vn/new.htm"); got != ClaimNew {
			t.Errorf("Claim = %v, 期望 ClaimNew", got)
		}
	})

	t.Run("快照命中返回已存在", func(t *testing.T) {
		idx := NewDedupIndex(persisted)
		if got := idx.Claim("https://news.example.vn/old.htm"); got != ClaimExisting {
			t.Errorf("Claim = %v, 期望 ClaimExisting", got)
		}
	})

	t.Run("重复认领返回重复", func(t *testing.T) {
		idx := NewDedupIndex(persisted)
		idx.Claim("https://news.example.vn/new.htm")
		if got := idx.Claim("https://news.example.vn/new.htm"); got != ClaimDuplicate {
			t.Errorf("Claim = %v, 期望 ClaimDuplicate", got)
		}
	})

	t.Run("快照命中后再次认领返回重复", func(t *testing.T) {
		idx := NewDedupIndex(persisted)
		idx.Claim("https://news.example.vn/old.htm")
		if got := idx.Claim("https://news.example.vn/old.htm"); got != ClaimDuplicate {
			t.Errorf("Claim = %v, 期望 ClaimDuplicate", got)
		}
	})

	t.Run("nil快照等价于空快照", func(t *testing.T) {
		idx := NewDedupIndex(nil)
		if got := idx.Claim("https://news.example.vn/a.htm"); got != ClaimNew {
			t.Errorf("Claim = %v, 期望 ClaimNew", got)
		}
		if idx.PersistedSize() != 0 {
			t.Errorf("PersistedSize = %d, 期望 0", idx.PersistedSize())
		}
	})
}

func TestDedupIndexContains(t *testing.T) {
	idx := NewDedupIndex(map[string]struct{}{
		"https://news.example.vn/old.htm": {},
	})
	idx.Claim("https://news.example.vn/new.htm")

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"快照内的URL", "https://news.example.vn/old.htm", true},
		{"本次认领的URL", "https://news.example.vn/new.htm", true},
		{"未见过的URL", "https://news.example.vn/other.htm", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.Contains(tt.url); got != tt.want {
				t.Errorf("Contains(%s) = %v, 期望 %v", tt.url, got, tt.want)
			}
		})
	}
}

// 多个来源并发认领同一批URL,每个URL只能被认领成功一次
func TestDedupIndexConcurrentClaim(t *testing.T) {
	idx := NewDedupIndex(nil)

	const urlCount = 100
	const workers = 8

	urls := make([]string, urlCount)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://news.example.vn/bai-viet-%d.htm", i)
	}

	var wg sync.WaitGroup
	newCounts := make([]int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for _, u := range urls {
				if idx.Claim(u) == ClaimNew {
					newCounts[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, c := range newCounts {
		total += c
	}
	if total != urlCount {
		t.Errorf("认领成功总数 = %d, 期望 %d", total, urlCount)
	}
	if idx.Size() != urlCount {
		t.Errorf("Size = %d, 期望 %d", idx.Size(), urlCount)
	}
}
