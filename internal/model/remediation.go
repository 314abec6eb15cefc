// Package model provides data models for the reconciliation tool.
package model

import "strings"

// Action is a single virsh remediation step.
type Action string

const (
	ActionDestroy  Action = "destroy"  // 强制停止运行中的域
	ActionUndefine Action = "undefine" // 删除域定义
)

// ActionResult records one planned or executed remediation command.
type ActionResult struct {
	Host     string   `json:"host"`               // 目标主机
	Label    string   `json:"label"`              // 域名
	Action   Action   `json:"action"`             // 动作
	Command  []string `json:"command"`            // 完整命令行
	DryRun   bool     `json:"dry_run"`            // 是否为演练模式
	Success  bool     `json:"success"`            // 是否成功
	ExitCode int      `json:"exit_code"`          // 退出码
	Stderr   string   `json:"stderr,omitempty"`   // 标准错误输出
	Error    string   `json:"error,omitempty"`    // 错误信息
}

// CommandLine returns the command as a single shell-style string.
func (a *ActionResult) CommandLine() string {
	return strings.Join(a.Command, " ")
}

// RemediationMode reports whether commands were executed.
type RemediationMode string

const (
	ModeDryRun RemediationMode = "dry-run"
	ModeKill   RemediationMode = "kill"
)
