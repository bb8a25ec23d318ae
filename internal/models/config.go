package models

// DiscoveryConfig 发现运行配置
// 来自配置文件discovery段,命令行参数可覆盖
type DiscoveryConfig struct {
	// Site 站点配置名 (thanhnien/znews/kenh14/plo/nld)
	Site string `mapstructure:"site"`

	// CatalogDir 分类目录文件所在目录
	CatalogDir string `mapstructure:"catalog_dir"`

	// WaitTime HTTP超时及渲染等待时间(秒)
	WaitTime int `mapstructure:"wait_time"`

	// Headless 渲染抓取是否使用无头浏览器
	Headless bool `mapstructure:"headless"`

	// Resume 是否从URL快照续跑
	Resume bool `mapstructure:"resume"`

	// IncludeLandingPage 第一页是否请求分类落地页
	IncludeLandingPage bool `mapstructure:"include_landing_page"`

	// MaxPages 页数上限覆盖 (0=使用站点默认)
	MaxPages int `mapstructure:"max_pages"`

	// MaxEmptyPages 连续空页上限覆盖 (0=使用站点默认)
	MaxEmptyPages int `mapstructure:"max_empty_pages"`
}
