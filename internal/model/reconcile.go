// Package model provides data models for the reconciliation tool.
package model

import (
	"sort"
	"time"
)

// HostQueryResult is what the fan-out executor delivers for one host.
type HostQueryResult struct {
	Host     *ComputeHost  `json:"host"`      // 目标主机
	Success  bool          `json:"success"`   // 远程命令是否成功
	TimedOut bool          `json:"timed_out"` // 是否因超时被取消
	Stdout   string        `json:"-"`         // 标准输出
	Stderr   string        `json:"stderr"`    // 标准错误输出
	ExitCode int           `json:"exit_code"` // 退出码
	Err      error         `json:"-"`         // 执行错误
	Duration time.Duration `json:"duration"`  // 执行耗时
}

// Status maps the query outcome onto a HostStatus.
func (r *HostQueryResult) Status() HostStatus {
	switch {
	case r.Success:
		return HostStatusOK
	case r.TimedOut:
		return HostStatusTimeout
	default:
		return HostStatusFailed
	}
}

// Orphan is a hypervisor domain that the control plane does not know about.
type Orphan struct {
	Host      string      `json:"host"`       // 所在主机
	LocalID   string      `json:"local_id"`   // virsh 本地 ID
	Label     string      `json:"label"`      // 域名
	NumericID int64       `json:"numeric_id"` // 数字 ID
	State     DomainState `json:"state"`      // 域状态
}

// NewOrphan builds an Orphan from a parsed hypervisor record.
func NewOrphan(inst *HypervisorInstance) *Orphan {
	return &Orphan{
		Host:      inst.Host,
		LocalID:   inst.LocalID,
		Label:     inst.Label,
		NumericID: inst.NumericID,
		State:     inst.State,
	}
}

// Instance converts the orphan back into a hypervisor record.
func (o *Orphan) Instance() *HypervisorInstance {
	return &HypervisorInstance{
		Host:      o.Host,
		LocalID:   o.LocalID,
		Label:     o.Label,
		NumericID: o.NumericID,
		State:     o.State,
	}
}

// MigrationCandidate is a domain found on a host other than the one the
// control plane assigns it to. Live migration produces these transiently.
type MigrationCandidate struct {
	Label        string      `json:"label"`         // 域名
	InstanceID   string      `json:"instance_id"`   // 控制面实例 ID
	ExpectedHost string      `json:"expected_host"` // 控制面记录的主机
	ActualHost   string      `json:"actual_host"`   // 实际发现的主机
	State        DomainState `json:"state"`         // 域状态
}

// HostReport is the reconciliation outcome for a single host.
type HostReport struct {
	Host         string                `json:"host"`                    // 主机名
	Status       HostStatus            `json:"status"`                  // 查询状态
	Error        string                `json:"error,omitempty"`         // 查询错误
	Domains      int                   `json:"domains"`                 // 解析出的域数量
	Matched      int                   `json:"matched"`                 // 与控制面一致的数量
	Ignored      int                   `json:"ignored"`                 // 按规则忽略的数量
	Orphans      []*Orphan             `json:"orphans,omitempty"`       // 孤儿虚拟机
	Migrations   []*MigrationCandidate `json:"migrations,omitempty"`    // 疑似迁移中的虚拟机
	DecodeErrors []string              `json:"decode_errors,omitempty"` // 域名解析错误
}

// Excluded reports whether the host was left out of reconciliation.
func (h *HostReport) Excluded() bool {
	return h.Status != HostStatusOK
}

// ReconcileSummary provides aggregated statistics about a run.
type ReconcileSummary struct {
	TotalHosts     int `json:"total_hosts"`     // 主机总数
	OKHosts        int `json:"ok_hosts"`        // 查询成功主机数
	FailedHosts    int `json:"failed_hosts"`    // 查询失败主机数
	TimeoutHosts   int `json:"timeout_hosts"`   // 超时主机数
	Domains        int `json:"domains"`         // 域总数
	Matched        int `json:"matched"`         // 匹配数
	Orphans        int `json:"orphans"`         // 孤儿数
	Migrations     int `json:"migrations"`      // 疑似迁移数
	DecodeErrors   int `json:"decode_errors"`   // 域名解析错误数
	ActionsPlanned int `json:"actions_planned"` // 计划动作数
	ActionsFailed  int `json:"actions_failed"`  // 失败动作数
}

// ReconcileResult is the complete result of one reconciliation run.
type ReconcileResult struct {
	RunID     string          `json:"run_id"`     // 本次运行 ID
	StartedAt time.Time       `json:"started_at"` // 开始时间
	Duration  time.Duration   `json:"duration"`   // 耗时
	Mode      RemediationMode `json:"mode"`       // 修复模式

	Hosts      []*HostReport         `json:"hosts"`      // 每台主机的结果
	Orphans    []*Orphan             `json:"orphans"`    // 全部孤儿虚拟机
	Migrations []*MigrationCandidate `json:"migrations"` // 全部疑似迁移
	Actions    []*ActionResult       `json:"actions"`    // 修复动作

	Summary *ReconcileSummary `json:"summary"` // 摘要统计
	Version string            `json:"version,omitempty"` // 工具版本号
}

// NewReconcileResult creates an empty result for a run starting at startedAt.
func NewReconcileResult(startedAt time.Time, mode RemediationMode) *ReconcileResult {
	return &ReconcileResult{
		StartedAt:  startedAt,
		Mode:       mode,
		Hosts:      make([]*HostReport, 0),
		Orphans:    make([]*Orphan, 0),
		Migrations: make([]*MigrationCandidate, 0),
		Actions:    make([]*ActionResult, 0),
	}
}

// AddHost appends a host report and collects its orphans and migrations.
func (r *ReconcileResult) AddHost(host *HostReport) {
	if host == nil {
		return
	}
	r.Hosts = append(r.Hosts, host)
	r.Orphans = append(r.Orphans, host.Orphans...)
	r.Migrations = append(r.Migrations, host.Migrations...)
}

// Finalize sorts hosts and calculates the summary.
// This should be called after all hosts and actions are added.
func (r *ReconcileResult) Finalize(endTime time.Time) {
	r.Duration = endTime.Sub(r.StartedAt)
	sort.SliceStable(r.Hosts, func(i, j int) bool {
		return r.Hosts[i].Host < r.Hosts[j].Host
	})

	s := &ReconcileSummary{}
	for _, h := range r.Hosts {
		s.TotalHosts++
		switch h.Status {
		case HostStatusOK:
			s.OKHosts++
		case HostStatusFailed:
			s.FailedHosts++
		case HostStatusTimeout:
			s.TimeoutHosts++
		}
		s.Domains += h.Domains
		s.Matched += h.Matched
		s.DecodeErrors += len(h.DecodeErrors)
	}
	s.Orphans = len(r.Orphans)
	s.Migrations = len(r.Migrations)
	s.ActionsPlanned = len(r.Actions)
	for _, a := range r.Actions {
		if !a.Success {
			s.ActionsFailed++
		}
	}
	r.Summary = s
}

// ExcludedHosts returns the hosts whose query failed or timed out.
func (r *ReconcileResult) ExcludedHosts() []*HostReport {
	var excluded []*HostReport
	for _, h := range r.Hosts {
		if h.Excluded() {
			excluded = append(excluded, h)
		}
	}
	return excluded
}

// HasOrphans returns true if any orphan was found.
func (r *ReconcileResult) HasOrphans() bool {
	return len(r.Orphans) > 0
}
