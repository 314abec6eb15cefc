// Package config provides configuration management for the reconciliation tool.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"vm-reconcile/internal/model"
)

// InventorySnapshot is the on-disk format of an offline control-plane inventory.
type InventorySnapshot struct {
	Hosts     []*model.ComputeHost          `yaml:"hosts"`
	Instances []*model.ControlPlaneInstance `yaml:"instances"`
}

// FileInventory serves a control-plane inventory loaded from a YAML snapshot.
// It is read-only after loading.
type FileInventory struct {
	path     string
	snapshot InventorySnapshot
}

// LoadInventoryFile reads and validates an inventory snapshot.
func LoadInventoryFile(inventoryPath string) (*FileInventory, error) {
	if inventoryPath == "" {
		return nil, fmt.Errorf("inventory file path is required")
	}

	if _, err := os.Stat(inventoryPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("inventory file not found: %s", inventoryPath)
	}

	data, err := os.ReadFile(inventoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var snapshot InventorySnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}

	if len(snapshot.Hosts) == 0 {
		return nil, fmt.Errorf("no hosts defined in inventory file: %s", inventoryPath)
	}

	for i, h := range snapshot.Hosts {
		if h == nil || strings.TrimSpace(h.Name) == "" {
			return nil, fmt.Errorf("host at index %d has no name", i)
		}
		h.Name = strings.TrimSpace(h.Name)
		if h.ShortName == "" {
			h.ShortName = model.ShortHostname(h.Name)
		}
	}

	for i, inst := range snapshot.Instances {
		if inst == nil || inst.Label == "" {
			return nil, fmt.Errorf("instance at index %d has no label", i)
		}
		if inst.Host == "" {
			return nil, fmt.Errorf("instance %q has no host", inst.Label)
		}
	}

	return &FileInventory{path: inventoryPath, snapshot: snapshot}, nil
}

// Path returns the file the inventory was loaded from.
func (f *FileInventory) Path() string {
	return f.path
}

// ListComputeHosts returns the enabled hosts in the snapshot.
func (f *FileInventory) ListComputeHosts(ctx context.Context) ([]*model.ComputeHost, error) {
	hosts := make([]*model.ComputeHost, 0, len(f.snapshot.Hosts))
	for _, h := range f.snapshot.Hosts {
		if h.Disabled {
			continue
		}
		host := *h
		hosts = append(hosts, &host)
	}
	return model.SortHosts(hosts), nil
}

// ListInstances returns every instance in the snapshot.
func (f *FileInventory) ListInstances(ctx context.Context) ([]*model.ControlPlaneInstance, error) {
	instances := make([]*model.ControlPlaneInstance, 0, len(f.snapshot.Instances))
	for _, inst := range f.snapshot.Instances {
		copied := *inst
		instances = append(instances, &copied)
	}
	return instances, nil
}
