package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
)

func writeBulkFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candidates.ndjson")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}

func TestBulkJobSource(t *testing.T) {
	t.Run("逐行读取并在文件耗尽后终止", func(t *testing.T) {
		content := `{"url": "https://news.example.vn/a.htm", "lastmod": "2026-08-20T10:30:00+07:00"}
{"url": "https://news.example.vn/b.htm", "lastmod": "2026-08-19"}
{"url": "https://news.example.vn/c.htm"}
`
		path := writeBulkFile(t, content)
		src := NewBulkJobSource("sitemap-backfill", path, NewDedupIndex(nil), &Sequence{})

		var emitted []models.JobRecord
		report := src.Run(context.Background(), func(r models.JobRecord) error {
			emitted = append(emitted, r)
			return nil
		})

		if report.TerminationReason != models.TerminationCatalogExhausted {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationCatalogExhausted)
		}
		if len(emitted) != 3 {
			t.Fatalf("发出数 = %d, 期望 3", len(emitted))
		}
		if emitted[0].LastModified == nil {
			t.Error("第1条记录应携带lastmod时间戳")
		} else if !emitted[0].LastModified.Equal(time.Date(2026, 8, 20, 10, 30, 0, 0, time.FixedZone("", 7*3600))) {
			t.Errorf("第1条lastmod = %v", emitted[0].LastModified)
		}
		if emitted[1].LastModified == nil {
			t.Error("第2条记录应解析纯日期格式的lastmod")
		}
		if emitted[2].LastModified != nil {
			t.Error("第3条记录不应携带lastmod")
		}
		for _, r := range emitted {
			if r.SourceKind != models.SourceKindBulkFile {
				t.Errorf("来源类型 = %s, 期望 %s", r.SourceKind, models.SourceKindBulkFile)
			}
			if r.OriginCategory != "" {
				t.Errorf("批量来源记录不应有分类归属: %s", r.OriginCategory)
			}
		}
	})

	t.Run("畸形行跳过不中止", func(t *testing.T) {
		content := `{"url": "https://news.example.vn/a.htm"}
这不是JSON
{"url": "ftp://news.example.vn/b.htm"}

{"url": "https://news.example.vn/c.htm"}
`
		path := writeBulkFile(t, content)
		src := NewBulkJobSource("sitemap-backfill", path, NewDedupIndex(nil), &Sequence{})

		count := 0
		report := src.Run(context.Background(), func(models.JobRecord) error {
			count++
			return nil
		})

		if report.TerminationReason != models.TerminationCatalogExhausted {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationCatalogExhausted)
		}
		if count != 2 {
			t.Errorf("发出数 = %d, 期望 2", count)
		}
		if report.SkippedInvalid != 2 {
			t.Errorf("无效行数 = %d, 期望 2 (非JSON行+非HTTP协议行)", report.SkippedInvalid)
		}
	})

	t.Run("纯文本URL列表", func(t *testing.T) {
		content := `# 回灌候选列表
https://news.example.vn/a.htm
https://news.example.vn/b.htm
`
		path := writeBulkFile(t, content)
		src := NewBulkJobSource("sitemap-backfill", path, NewDedupIndex(nil), &Sequence{})

		var emitted []models.JobRecord
		report := src.Run(context.Background(), func(r models.JobRecord) error {
			emitted = append(emitted, r)
			return nil
		})

		if report.TerminationReason != models.TerminationCatalogExhausted {
			t.Errorf("终止原因 = %s", report.TerminationReason)
		}
		if len(emitted) != 2 {
			t.Errorf("发出数 = %d, 期望 2 (注释行不计)", len(emitted))
		}
		if report.SkippedInvalid != 0 {
			t.Errorf("无效行数 = %d, 期望 0", report.SkippedInvalid)
		}
	})

	t.Run("与其他来源共享认领索引", func(t *testing.T) {
		content := `{"url": "https://news.example.vn/seen.htm"}
{"url": "https://news.example.vn/old.htm"}
{"url": "https://news.example.vn/fresh.htm"}
`
		path := writeBulkFile(t, content)
		dedup := NewDedupIndex(map[string]struct{}{
			"https://news.example.vn/old.htm": {},
		})
		dedup.Claim("https://news.example.vn/seen.htm")

		src := NewBulkJobSource("sitemap-backfill", path, dedup, &Sequence{})

		var emitted []models.JobRecord
		report := src.Run(context.Background(), func(r models.JobRecord) error {
			emitted = append(emitted, r)
			return nil
		})

		if len(emitted) != 1 || emitted[0].URL != "https://news.example.vn/fresh.htm" {
			t.Errorf("发出 = %v, 期望仅fresh.htm", urlsOf(emitted))
		}
		if report.SkippedDuplicate != 1 {
			t.Errorf("跳过重复数 = %d, 期望 1", report.SkippedDuplicate)
		}
		if report.SkippedExisting != 1 {
			t.Errorf("跳过已存在数 = %d, 期望 1", report.SkippedExisting)
		}
	})

	t.Run("文件缺失时报告抓取失败", func(t *testing.T) {
		src := NewBulkJobSource("sitemap-backfill", "/nonexistent/candidates.ndjson", NewDedupIndex(nil), &Sequence{})
		report := src.Run(context.Background(), func(models.JobRecord) error { return nil })
		if report.TerminationReason != models.TerminationFetchFailure {
			t.Errorf("终止原因 = %s, 期望 %s", report.TerminationReason, models.TerminationFetchFailure)
		}
	})
}
