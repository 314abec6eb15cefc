package service

import (
	"vm-reconcile/internal/model"
)

// InventoryIndex is a host-normalized lookup of control-plane instances.
// Every instance is indexed under both the full and the short form of its
// host name. It is read-only after construction and safe for concurrent reads.
type InventoryIndex struct {
	byHost  map[string]map[string]*model.ControlPlaneInstance // 主机别名 -> 域名 -> 实例
	byLabel map[string][]*model.ControlPlaneInstance          // 域名 -> 实例
	size    int
}

// NewInventoryIndex builds the index from the control-plane instance list.
func NewInventoryIndex(instances []*model.ControlPlaneInstance) *InventoryIndex {
	idx := &InventoryIndex{
		byHost:  make(map[string]map[string]*model.ControlPlaneInstance),
		byLabel: make(map[string][]*model.ControlPlaneInstance),
	}

	for _, inst := range instances {
		if inst == nil || inst.Label == "" {
			continue
		}
		idx.size++
		idx.byLabel[inst.Label] = append(idx.byLabel[inst.Label], inst)

		for _, alias := range model.HostAliases(inst.Host) {
			labels, ok := idx.byHost[alias]
			if !ok {
				labels = make(map[string]*model.ControlPlaneInstance)
				idx.byHost[alias] = labels
			}
			labels[inst.Label] = inst
		}
	}

	return idx
}

// Has reports whether label is assigned to host, checking both name forms.
func (idx *InventoryIndex) Has(host, label string) bool {
	return idx.Get(host, label) != nil
}

// Get returns the instance with label assigned to host, or nil.
func (idx *InventoryIndex) Get(host, label string) *model.ControlPlaneInstance {
	for _, alias := range model.HostAliases(host) {
		if inst, ok := idx.byHost[alias][label]; ok {
			return inst
		}
	}
	return nil
}

// Lookup returns every instance carrying label, on any host.
func (idx *InventoryIndex) Lookup(label string) []*model.ControlPlaneInstance {
	return idx.byLabel[label]
}

// Len returns the number of indexed instances.
func (idx *InventoryIndex) Len() int {
	return idx.size
}
