package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vm-reconcile/internal/client/nova"
	"vm-reconcile/internal/config"
	"vm-reconcile/internal/model"
	"vm-reconcile/internal/remote"
	"vm-reconcile/internal/report"
	"vm-reconcile/internal/service"
)

// Command flags
var (
	outputDir     string   // Output directory for reports
	formats       []string // Output formats (excel, html, prom)
	kill          bool     // Actually destroy/undefine orphans
	sshOptions    []string // Extra options passed to the remote shell
	inventoryFile string   // Offline inventory snapshot
	onlyHosts     []string // Restrict the run to these hosts
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行孤儿虚拟机巡检",
	Long: `执行完整的孤儿虚拟机巡检流程，包括：
1. 从 Nova API（或离线库存文件）获取计算节点和实例清单
2. 并发 ssh 到每台计算节点执行 virsh list --all
3. 比对两侧清单，识别孤儿虚拟机与疑似迁移中的虚拟机
4. 演练模式打印修复命令；--kill 模式执行 virsh destroy/undefine
5. 生成 Excel 和 HTML 格式的巡检报告

查询失败或超时的主机不参与比对，会在输出和报告中单独列出。

示例:
  # 演练模式（默认），只打印将要执行的命令
  vmrecon run -c config.yaml

  # 真实清理孤儿虚拟机
  vmrecon run -c config.yaml --kill

  # 使用离线库存文件，只检查两台主机
  vmrecon run -c config.yaml --inventory-file inventory.yaml --host node01 --host node02

  # 透传 ssh 参数
  vmrecon run -c config.yaml --ssh-option=-l --ssh-option=root

  # 指定输出格式和目录，输出 debug 日志
  vmrecon run -c config.yaml -f excel,html,prom -o ./reports -vv`,
	Run: runReconcile,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "输出格式 (excel,html,prom)，可用逗号分隔多个")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录")
	runCmd.Flags().BoolVar(&kill, "kill", false, "真实执行 virsh destroy/undefine（默认仅演练）")
	runCmd.Flags().StringArrayVar(&sshOptions, "ssh-option", nil, "透传给远程 shell 的参数，可重复指定")
	runCmd.Flags().StringVar(&inventoryFile, "inventory-file", "", "离线库存文件路径（设置后不访问 Nova API）")
	runCmd.Flags().StringSliceVar(&onlyHosts, "host", nil, "仅检查指定主机，可重复或用逗号分隔")
}

// runReconcile executes the complete reconciliation workflow.
func runReconcile(cmd *cobra.Command, args []string) {
	printBanner()

	// Step 1: Load configuration, command line flags take part in validation
	configPath := GetConfigFile()
	fmt.Printf("📋 加载配置文件: %s\n", configPath)
	cfg, err := config.LoadWithOverrides(configPath, flagOverrides(cmd))
	if err != nil {
		tmpLogger := setupLogger("error", "console", time.Local)
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "❌ 加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg.Remote.Options = append(cfg.Remote.Options, sshOptions...)

	// Step 2: Initialize logger
	timezone, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		timezone = time.Local
	}
	level := resolveLogLevel(cfg.Logging.Level, logLevel, cmd.Flags().Changed("log-level"), verbosity)
	logger := setupLogger(level, cfg.Logging.Format, timezone)
	logger.Debug().
		Str("config_path", configPath).
		Str("log_level", level).
		Str("log_format", cfg.Logging.Format).
		Msg("configuration loaded successfully")

	outputFormats := resolveFormats(cfg)
	outputPath := resolveOutputDir(cfg)

	// Step 3: Build the inventory source
	fmt.Println("🔗 连接数据源...")
	var source service.InventorySource
	if cfg.Datasources.InventoryFile != "" {
		inv, err := config.LoadInventoryFile(cfg.Datasources.InventoryFile)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Datasources.InventoryFile).Msg("failed to load inventory file")
			fmt.Fprintf(os.Stderr, "❌ 加载库存文件失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   - 离线库存文件: %s\n", inv.Path())
		source = inv
	} else {
		fmt.Printf("   - Nova API: %s\n", cfg.Datasources.Nova.Endpoint)
		source = nova.NewClient(&cfg.Datasources.Nova, &cfg.HTTP.Retry, logger)
	}
	fmt.Printf("   - 远程 shell: %s\n", cfg.Remote.Shell)
	fmt.Println()

	// Step 4: Create services
	runner := remote.NewSSHRunner(cfg.Remote.Shell, cfg.Remote.Options, logger)
	fanOut := service.NewFanOut(runner, &cfg.FanOut, logger)
	remediator := service.NewRemediator(runner, cfg.Remediation.Kill, os.Stdout, logger)
	inspector, err := service.NewInspector(cfg, source, fanOut, remediator, logger,
		service.WithVersion(Version))
	if err != nil {
		logger.Error().Err(err).Msg("failed to create inspector")
		fmt.Fprintf(os.Stderr, "❌ 创建巡检器失败: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("services initialized")

	if cfg.Remediation.Kill {
		fmt.Println("⚠️  已启用 --kill，孤儿虚拟机将被 destroy/undefine")
	} else {
		fmt.Println("🧪 演练模式：仅打印修复命令，不做任何修改")
	}

	// Step 5: Run, Ctrl-C cancels outstanding host queries
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("\n⏳ 开始巡检...")
	result, err := inspector.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reconciliation failed")
		fmt.Fprintf(os.Stderr, "❌ 巡检执行失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n📊 巡检完成！\n")
	printSummary(os.Stdout, result)
	fmt.Printf("\n⏱️  总耗时 %.1fs\n", result.Duration.Seconds())

	// Step 6: Generate reports
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		logger.Error().Err(err).Str("path", outputPath).Msg("failed to create output directory")
		fmt.Fprintf(os.Stderr, "❌ 创建输出目录失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n📄 生成报告:")
	logger.Info().
		Strs("formats", outputFormats).
		Str("output_dir", outputPath).
		Msg("starting report generation")

	registry := report.NewRegistry(inspector.GetTimezone(), cfg.Report.HTMLTemplate)
	filenameBase := report.Filename(cfg.Report.FilenameTemplate, result.StartedAt.In(inspector.GetTimezone()))

	for _, format := range outputFormats {
		writer, err := registry.Get(format)
		if err != nil {
			logger.Error().Str("format", format).Msg("unsupported format")
			fmt.Fprintf(os.Stderr, "   ❌ 不支持的格式: %s\n", format)
			continue
		}

		reportPath := filepath.Join(outputPath, filenameBase+reportExt(format))
		if err := writer.Write(result, reportPath); err != nil {
			logger.Error().Err(err).Str("format", format).Str("path", reportPath).Msg("failed to generate report")
			fmt.Fprintf(os.Stderr, "   ❌ %s 报告生成失败: %v\n", format, err)
			continue
		}

		logger.Info().Str("format", format).Str("path", reportPath).Msg("report generated successfully")
		fmt.Printf("   ✅ %s\n", reportPath)
	}
}

// flagOverrides maps explicitly set run flags onto configuration keys.
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := make(map[string]interface{})
	flags := cmd.Flags()

	if flags.Changed("inventory-file") {
		overrides["datasources.inventory_file"] = inventoryFile
	}
	if flags.Changed("kill") {
		overrides["remediation.kill"] = kill
	}
	if flags.Changed("host") {
		overrides["reconcile.hosts"] = onlyHosts
	}
	if flags.Changed("format") {
		overrides["report.formats"] = formats
	}
	if flags.Changed("output") {
		overrides["report.output_dir"] = outputDir
	}
	return overrides
}

// resolveLogLevel picks the effective log level.
// An explicit --log-level wins, then -v/-vv, then the config file.
func resolveLogLevel(configured, flagLevel string, flagChanged bool, verbose int) string {
	if flagChanged && flagLevel != "" {
		return flagLevel
	}
	switch {
	case verbose >= 2:
		return "debug"
	case verbose == 1:
		if configured == "debug" {
			return configured
		}
		return "info"
	}
	if configured == "" {
		return "info"
	}
	return configured
}

// setupLogger creates a zerolog logger with the specified level and format.
// Log timestamps are rendered in tz.
func setupLogger(level string, format string, tz *time.Location) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if tz == nil {
		tz = time.Local
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(tz)
	}

	// Logs go to stderr so that dry-run commands on stdout stay pipeable
	var output io.Writer
	if format == "json" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// printBanner prints the application banner.
func printBanner() {
	fmt.Printf("🔍 孤儿虚拟机巡检工具 %s\n", Version)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// printSummary prints the reconciliation result summary.
func printSummary(w io.Writer, result *model.ReconcileResult) {
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if s := result.Summary; s != nil {
		fmt.Fprintf(w, "   主机总数: %d\n", s.TotalHosts)
		fmt.Fprintf(w, "   查询成功: %d\n", s.OKHosts)
		fmt.Fprintf(w, "   查询失败: %d\n", s.FailedHosts)
		fmt.Fprintf(w, "   查询超时: %d\n", s.TimeoutHosts)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   虚拟机总数: %d\n", s.Domains)
		fmt.Fprintf(w, "   匹配: %d\n", s.Matched)
		fmt.Fprintf(w, "   孤儿: %d\n", s.Orphans)
		fmt.Fprintf(w, "   疑似迁移: %d\n", s.Migrations)
		if s.DecodeErrors > 0 {
			fmt.Fprintf(w, "   无法解析的域名: %d\n", s.DecodeErrors)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   修复模式: %s\n", result.Mode)
		fmt.Fprintf(w, "   修复动作: %d（失败 %d）\n", s.ActionsPlanned, s.ActionsFailed)
	}

	excluded := result.ExcludedHosts()
	if len(excluded) == 0 {
		return
	}
	fmt.Fprintf(w, "\n⚠️  以下 %d 台主机未参与比对:\n", len(excluded))
	for _, h := range excluded {
		msg := h.Error
		if msg == "" {
			msg = string(h.Status)
		}
		fmt.Fprintf(w, "   - %s [%s] %s\n", h.Host, h.Status, msg)
	}
}

// resolveFormats determines the output formats to use.
func resolveFormats(cfg *config.Config) []string {
	if len(cfg.Report.Formats) > 0 {
		return cfg.Report.Formats
	}
	return []string{"excel", "html"}
}

// resolveOutputDir determines the output directory to use.
func resolveOutputDir(cfg *config.Config) string {
	if cfg.Report.OutputDir != "" {
		return cfg.Report.OutputDir
	}
	return "./reports"
}

func reportExt(format string) string {
	if format == "excel" {
		return ".xlsx"
	}
	return "." + format
}
