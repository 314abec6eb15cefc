// Package model provides data models for the reconciliation tool.
package model

import (
	"sort"
	"strings"
)

// HostStatus represents the outcome of querying a single compute host.
type HostStatus string

const (
	HostStatusOK      HostStatus = "ok"      // 查询成功
	HostStatusFailed  HostStatus = "failed"  // 远程命令返回非零或无法执行
	HostStatusTimeout HostStatus = "timeout" // 超时被强制取消
)

// ComputeHost is a hypervisor node known to the control plane.
// It is immutable for the duration of a run.
type ComputeHost struct {
	Name      string `json:"name" yaml:"name"`                     // 主机名（可能为 FQDN）
	ShortName string `json:"short_name" yaml:"short_name"`         // 短主机名
	Service   string `json:"service,omitempty" yaml:"service"`     // 服务名（如 nova-compute）
	Zone      string `json:"zone,omitempty" yaml:"zone"`           // 可用区
	Disabled  bool   `json:"disabled,omitempty" yaml:"disabled"`   // 服务是否被禁用
}

// NewComputeHost creates a ComputeHost and derives its short name.
func NewComputeHost(name string) *ComputeHost {
	name = strings.TrimSpace(name)
	return &ComputeHost{
		Name:      name,
		ShortName: ShortHostname(name),
	}
}

// ShortHostname returns the first DNS label of a hostname.
// "node01.cloud.example.org" -> "node01"
func ShortHostname(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// NormalizeHostname lower-cases and trims a hostname for use as a map key.
func NormalizeHostname(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

// HostAliases returns the distinct normalized forms under which a host may be
// referenced: the full name and its short name.
func HostAliases(name string) []string {
	full := NormalizeHostname(name)
	if full == "" {
		return nil
	}
	short := ShortHostname(full)
	if short == full {
		return []string{full}
	}
	return []string{full, short}
}

// SortHosts sorts hosts by name in place and returns the slice.
func SortHosts(hosts []*ComputeHost) []*ComputeHost {
	sort.SliceStable(hosts, func(i, j int) bool {
		return hosts[i].Name < hosts[j].Name
	})
	return hosts
}
