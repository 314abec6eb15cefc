// Package nova provides a client for the OpenStack Compute (Nova) API.
package nova

import (
	"strings"

	"vm-reconcile/internal/model"
)

// ServersResponse represents the API response from the /servers/detail endpoint.
type ServersResponse struct {
	Servers []ServerData `json:"servers"`      // 实例列表
	Links   []Link       `json:"servers_links"` // 分页链接（存在 next 表示还有下一页）
}

// Link is a pagination link.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// ServerData contains the server fields the reconciler needs.
// The extended attributes require an admin token.
type ServerData struct {
	ID           string `json:"id"`                            // 实例 UUID
	Name         string `json:"name"`                          // 实例名称
	Status       string `json:"status"`                        // 生命周期状态（ACTIVE、SHUTOFF 等）
	TenantID     string `json:"tenant_id"`                     // 项目 ID
	InstanceName string `json:"OS-EXT-SRV-ATTR:instance_name"` // 虚拟化层域名
	Host         string `json:"OS-EXT-SRV-ATTR:host"`          // 计算节点
	VMState      string `json:"OS-EXT-STS:vm_state"`           // 虚拟机状态
	TaskState    string `json:"OS-EXT-STS:task_state"`         // 任务状态（如 migrating）
}

// IsDeleted reports whether the server is already gone from the control plane's point of view.
func (s *ServerData) IsDeleted() bool {
	return strings.EqualFold(s.Status, "DELETED") || strings.EqualFold(s.VMState, "deleted")
}

// ToInstance converts a server record into a ControlPlaneInstance.
func (s *ServerData) ToInstance() *model.ControlPlaneInstance {
	status := s.Status
	if status == "" {
		status = s.VMState
	}
	return &model.ControlPlaneInstance{
		ID:       s.ID,
		Name:     s.Name,
		Label:    s.InstanceName,
		Host:     s.Host,
		Status:   status,
		TenantID: s.TenantID,
	}
}

// ServicesResponse represents the API response from the /os-services endpoint.
type ServicesResponse struct {
	Services []ServiceData `json:"services"`
}

// ServiceData contains a compute service record.
type ServiceData struct {
	ID     interface{} `json:"id"`     // 服务 ID（旧版本为整数，新版本为 UUID）
	Binary string      `json:"binary"` // 服务二进制名（nova-compute）
	Host   string      `json:"host"`   // 主机名
	Zone   string      `json:"zone"`   // 可用区
	Status string      `json:"status"` // enabled / disabled
	State  string      `json:"state"`  // up / down
}

// IsEnabled reports whether the service is administratively enabled.
func (s *ServiceData) IsEnabled() bool {
	return strings.EqualFold(s.Status, "enabled")
}

// ToComputeHost converts a service record into a ComputeHost.
func (s *ServiceData) ToComputeHost() *model.ComputeHost {
	host := model.NewComputeHost(s.Host)
	host.Service = s.Binary
	host.Zone = s.Zone
	host.Disabled = !s.IsEnabled()
	return host
}

// ErrorResponse is the body Nova returns on failures, e.g. {"itemNotFound": {...}}.
type ErrorResponse map[string]struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Message returns the first error message in the body, if any.
func (e ErrorResponse) Message() string {
	for _, v := range e {
		if v.Message != "" {
			return v.Message
		}
	}
	return ""
}
