// Package config provides configuration management for the reconciliation tool.
package config

import "time"

// Config is the root configuration structure for the reconciliation tool.
type Config struct {
	Datasources DatasourcesConfig `mapstructure:"datasources"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	FanOut      FanOutConfig      `mapstructure:"fanout"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Remediation RemediationConfig `mapstructure:"remediation"`
	Report      ReportConfig      `mapstructure:"report"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	HTTP        HTTPConfig        `mapstructure:"http"`
}

// DatasourcesConfig contains the sources of the control-plane inventory.
// Either Nova or InventoryFile must be configured.
type DatasourcesConfig struct {
	Nova          NovaConfig `mapstructure:"nova"`
	InventoryFile string     `mapstructure:"inventory_file"` // 离线库存快照（YAML），设置后不访问 Nova API
}

// NovaConfig contains configuration for the OpenStack Compute API.
type NovaConfig struct {
	Endpoint        string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PageSize        int           `mapstructure:"page_size" validate:"gte=0,lte=10000"`
	IncludeDisabled bool          `mapstructure:"include_disabled"` // 是否包含被禁用的 nova-compute 服务
}

// RemoteConfig describes the remote-execution channel used to reach hosts.
type RemoteConfig struct {
	Shell   string   `mapstructure:"shell" validate:"required"` // 远程 shell（如 ssh）
	Options []string `mapstructure:"options"`                   // 透传给远程 shell 的参数
}

// FanOutConfig controls the concurrent host query phase.
type FanOutConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1,lte=1000"` // 最大并发任务数
	BatchSize   int           `mapstructure:"batch_size" validate:"gte=1"`           // 每批启动的任务数
	BatchPause  time.Duration `mapstructure:"batch_pause"`                           // 每批之间的停顿
	HostTimeout time.Duration `mapstructure:"host_timeout"`                          // 单台主机超时
	Deadline    time.Duration `mapstructure:"deadline"`                              // 整体截止时间
}

// ReconcileConfig tunes classification.
type ReconcileConfig struct {
	IgnoreLabels        []string `mapstructure:"ignore_labels"`         // 忽略的域名通配符（非 Nova 管理的域）
	Hosts               []string `mapstructure:"hosts"`                 // 仅检查这些主机（为空表示全部）
	AllowEmptyInventory bool     `mapstructure:"allow_empty_inventory"` // 允许控制面实例列表为空
}

// RemediationConfig controls whether orphans are actually removed.
type RemediationConfig struct {
	Kill bool `mapstructure:"kill"` // false 为演练模式（默认）
}

// ReportConfig contains configurations for report generation.
type ReportConfig struct {
	OutputDir        string   `mapstructure:"output_dir"`
	Formats          []string `mapstructure:"formats" validate:"dive,oneof=excel html prom"`
	FilenameTemplate string   `mapstructure:"filename_template"`
	HTMLTemplate     string   `mapstructure:"html_template"`
	Timezone         string   `mapstructure:"timezone"`
}

// LoggingConfig contains configurations for logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// HTTPConfig contains HTTP client configurations including retry settings.
type HTTPConfig struct {
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}
