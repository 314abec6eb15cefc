package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionShort bool // Print only the version number

// versionCmd prints build information of the vmrecon binary.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示 vmrecon 版本信息",
	Long: `显示 vmrecon 的版本号、构建时间、Git 提交哈希、Go 版本和运行平台。
报告中记录的“工具版本”与此处版本号一致，可用于核对是哪个版本清理了孤儿虚拟机。`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}
		fmt.Fprintf(out, "vmrecon %s\n", GetVersionInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "仅输出版本号")
}
