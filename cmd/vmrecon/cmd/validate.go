package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vm-reconcile/internal/config"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "验证配置文件",
	Long: `加载并验证配置文件，检查格式、必填字段、数值范围和业务逻辑约束。
如果配置了离线库存文件（datasources.inventory_file），同时校验该文件。`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate executes the validate command logic.
func runValidate(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()

	// Load internally calls Validate
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 配置验证失败: %v\n", err)
		os.Exit(1)
	}

	if cfg.Datasources.InventoryFile != "" {
		inv, err := config.LoadInventoryFile(cfg.Datasources.InventoryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ 库存文件验证失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ 库存文件验证通过: %s\n", inv.Path())
	}

	fmt.Printf("✅ 配置文件验证通过: %s\n", configPath)
}
