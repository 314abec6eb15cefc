// Package cmd provides CLI commands for the VM reconciliation tool.
package cmd

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information, injected at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Global flags
var (
	cfgFile   string // Config file path
	logLevel  string // Log level
	verbosity int    // -v count
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vmrecon",
	Short: "孤儿虚拟机巡检工具 - 比对控制面与计算节点上的虚拟机",
	Long: `孤儿虚拟机巡检工具从控制面（OpenStack Nova 或离线库存文件）获取实例清单，
通过 ssh 在每台计算节点上执行 virsh list --all，找出控制面不知道的虚拟机。

数据流: Nova API / 库存文件 → 并发 ssh 查询 → 解析 virsh 输出 → 比对 → 修复 → Excel/HTML 报告

主要功能:
  - 并发查询计算节点（限流、单机超时、整体截止时间）
  - 识别孤儿虚拟机与疑似迁移中的虚拟机
  - 默认演练模式打印修复命令，--kill 时真实执行 virsh destroy/undefine
  - 生成 Excel 和 HTML 格式的报告，标注未参与比对的主机`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别 (debug, info, warn, error)，覆盖配置文件")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "提高日志详细程度（-v 为 info，-vv 为 debug）")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// GetConfigFile returns the config file path from command line flag.
func GetConfigFile() string {
	return cfgFile
}

// GetVersionInfo returns formatted version information.
func GetVersionInfo() string {
	return Version + "\n" +
		"Build Time: " + BuildTime + "\n" +
		"Git Commit: " + GitCommit + "\n" +
		"Go Version: " + runtime.Version() + "\n" +
		"OS/Arch: " + runtime.GOOS + "/" + runtime.GOARCH
}
