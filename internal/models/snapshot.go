package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// URLSnapshot 已入库URL快照
// 运行结束时保存,续跑模式(--resume)启动时加载,
// 避免重复发出已经处理过的URL
type URLSnapshot struct {
	// Site 站点slug
	Site string `json:"site"`

	// URLs 已认领的URL列表
	URLs []string `json:"urls"`

	// RecordCount 快照内URL数量
	RecordCount int `json:"record_count"`

	// CreatedAt 快照创建时间
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt 最后更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotFilename 生成快照文件名
func SnapshotFilename(site string) string {
	return fmt.Sprintf("snapshot_%s.json", site)
}

// ToJSON 序列化为JSON
func (s *URLSnapshot) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON 从JSON反序列化
func (s *URLSnapshot) FromJSON(data []byte) error {
	return json.Unmarshal(data, s)
}

// SaveToFile 保存到文件
func (s *URLSnapshot) SaveToFile(filepath string) error {
	s.RecordCount = len(s.URLs)
	s.UpdatedAt = time.Now()
	data, err := s.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadSnapshotFromFile 从文件加载快照
func LoadSnapshotFromFile(filepath string) (*URLSnapshot, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	var s URLSnapshot
	if err := s.FromJSON(data); err != nil {
		return nil, err
	}

	return &s, nil
}

// URLSet 返回快照URL的集合形式
func (s *URLSnapshot) URLSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.URLs))
	for _, u := range s.URLs {
		set[u] = struct{}{}
	}
	return set
}
