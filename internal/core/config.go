package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
)

// Config 应用程序配置
type Config struct {
	Discovery models.DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig          `mapstructure:"logging"`
	Output    OutputConfig           `mapstructure:"output"`
	Guard     GuardConfig            `mapstructure:"guard"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// GuardConfig 资源护栏配置
type GuardConfig struct {
	// MinAvailableMemory 允许继续的最小可用内存(MB)
	MinAvailableMemory int `mapstructure:"min_available_memory"`

	// CPULoadThreshold CPU负载阈值(%), >=200视为禁用
	CPULoadThreshold int `mapstructure:"cpu_load_threshold"`

	// CheckInterval 压力过高时的重试间隔(秒)
	CheckInterval int `mapstructure:"check_interval"`

	// MaxWait 最长等待时间(秒)
	MaxWait int `mapstructure:"max_wait"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsfindcrawl"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath,
				Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(),
			Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 发现配置默认值
	v.SetDefault("discovery.site", "")
	v.SetDefault("discovery.catalog_dir", "configs/catalogs")
	v.SetDefault("discovery.wait_time", 30)
	v.SetDefault("discovery.headless", true)
	v.SetDefault("discovery.resume", false)
	v.SetDefault("discovery.include_landing_page", true)
	v.SetDefault("discovery.max_pages", 0)
	v.SetDefault("discovery.max_empty_pages", 0)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")

	// 资源护栏默认值
	v.SetDefault("guard.min_available_memory", 300)
	v.SetDefault("guard.cpu_load_threshold", 90)
	v.SetDefault("guard.check_interval", 5)
	v.SetDefault("guard.max_wait", 120)
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(site string, waitTime int, headless bool, resume bool, outputDir string) {
	if site != "" {
		c.Discovery.Site = site
	}
	if waitTime > 0 {
		c.Discovery.WaitTime = waitTime
	}
	c.Discovery.Headless = headless
	c.Discovery.Resume = resume
	if outputDir != "" {
		c.Output.BaseDir = outputDir
	}
}
