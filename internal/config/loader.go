// Package config provides configuration management for the reconciliation tool.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified YAML file and environment variables.
// Environment variables take precedence over file values.
// Environment variable format: VMRECON_<SECTION>_<KEY> (e.g., VMRECON_DATASOURCES_NOVA_TOKEN)
func Load(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, nil)
}

// LoadWithOverrides is Load with explicit key overrides applied on top of the
// file and environment, e.g. {"remediation.kill": true} from command line flags.
// Overrides are validated together with the rest of the configuration.
func LoadWithOverrides(configPath string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("VMRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Datasources defaults; empty values are registered so env overrides apply
	v.SetDefault("datasources.inventory_file", "")
	v.SetDefault("datasources.nova.endpoint", "")
	v.SetDefault("datasources.nova.token", "")
	v.SetDefault("datasources.nova.timeout", 30*time.Second)
	v.SetDefault("datasources.nova.page_size", 1000)
	v.SetDefault("datasources.nova.include_disabled", false)

	// Remote execution defaults
	v.SetDefault("remote.shell", "ssh")
	v.SetDefault("remote.options", []string{"-o", "BatchMode=yes", "-o", "ConnectTimeout=10"})

	// Fan-out defaults
	v.SetDefault("fanout.concurrency", 20)
	v.SetDefault("fanout.batch_size", 10)
	v.SetDefault("fanout.batch_pause", 1*time.Second)
	v.SetDefault("fanout.host_timeout", 30*time.Second)
	v.SetDefault("fanout.deadline", 5*time.Minute)

	// Reconcile defaults
	v.SetDefault("reconcile.ignore_labels", []string{})
	v.SetDefault("reconcile.hosts", []string{})
	v.SetDefault("reconcile.allow_empty_inventory", false)

	// Remediation defaults: dry-run unless explicitly enabled
	v.SetDefault("remediation.kill", false)

	// Report defaults
	v.SetDefault("report.output_dir", "./reports")
	v.SetDefault("report.formats", []string{"excel", "html"})
	v.SetDefault("report.filename_template", "orphan_report_{{.Date}}")
	v.SetDefault("report.timezone", "Asia/Shanghai")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// HTTP retry defaults
	v.SetDefault("http.retry.max_retries", 3)
	v.SetDefault("http.retry.base_delay", 1*time.Second)
}
