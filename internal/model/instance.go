// Package model provides data models for the reconciliation tool.
package model

// DomainState is a libvirt domain state as printed by `virsh list --all`.
type DomainState string

const (
	DomainRunning   DomainState = "running"
	DomainIdle      DomainState = "idle"
	DomainPaused    DomainState = "paused"
	DomainShutOff   DomainState = "shut off"
	DomainCrashed   DomainState = "crashed"
	DomainDying     DomainState = "dying"
	DomainSuspended DomainState = "suspended"
)

// KnownDomainStates lists the closed set of states the listing grammar accepts.
var KnownDomainStates = []DomainState{
	DomainRunning,
	DomainIdle,
	DomainPaused,
	DomainShutOff,
	DomainCrashed,
	DomainDying,
	DomainSuspended,
}

// InactiveLocalID is the id virsh prints for domains that are defined but not running.
const InactiveLocalID = "-"

// ControlPlaneInstance is an instance as recorded by the control plane.
// It is the source of truth for what should exist and is never mutated.
type ControlPlaneInstance struct {
	ID       string `json:"id" yaml:"id"`                       // 实例 UUID
	Name     string `json:"name" yaml:"name"`                   // 用户可见名称
	Label    string `json:"label" yaml:"label"`                 // 虚拟化层域名（如 instance-0000001a）
	Host     string `json:"host" yaml:"host"`                   // 控制面分配的计算节点
	Status   string `json:"status" yaml:"status"`               // 生命周期状态
	TenantID string `json:"tenant_id,omitempty" yaml:"tenant_id"` // 项目 ID
}

// HypervisorInstance is one record parsed from a host's domain listing.
// It only lives for a single reconciliation pass.
type HypervisorInstance struct {
	Host      string      `json:"host"`       // 上报该记录的主机
	LocalID   string      `json:"local_id"`   // virsh 本地 ID（未运行时为 "-"）
	Label     string      `json:"label"`      // 域名
	NumericID int64       `json:"numeric_id"` // 从域名十六进制后缀解析出的 ID
	State     DomainState `json:"state"`      // 域状态
}

// IsRunning reports whether the domain has a live process to stop.
func (h *HypervisorInstance) IsRunning() bool {
	return h.State != DomainShutOff
}

// Target returns the identifier used to address the domain in virsh commands.
// Inactive domains have no local id, so the label is used instead.
func (h *HypervisorInstance) Target() string {
	if h.LocalID == "" || h.LocalID == InactiveLocalID {
		return h.Label
	}
	return h.LocalID
}
