package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vm-reconcile/internal/model"
)

func TestInventoryIndex_HostNameForms(t *testing.T) {
	idx := NewInventoryIndex([]*model.ControlPlaneInstance{
		{ID: "a", Label: "instance-00000001", Host: "node01.cloud.example.org"},
		{ID: "b", Label: "instance-00000002", Host: "node02"},
		{ID: "c", Label: "instance-00000003", Host: "Node03.Cloud.Example.Org."},
	})

	tests := []struct {
		host  string
		label string
		want  bool
	}{
		{"node01.cloud.example.org", "instance-00000001", true},
		{"node01", "instance-00000001", true},
		{"node02.cloud.example.org", "instance-00000002", true},
		{"node02", "instance-00000002", true},
		{"node03.cloud.example.org", "instance-00000003", true},
		{"NODE03", "instance-00000003", true},
		{"node01", "instance-00000002", false},
		{"node04", "instance-00000001", false},
		{"", "instance-00000001", false},
	}

	for _, tt := range tests {
		t.Run(tt.host+"/"+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Has(tt.host, tt.label))
		})
	}

	assert.Equal(t, 3, idx.Len())
}

func TestInventoryIndex_Lookup(t *testing.T) {
	idx := NewInventoryIndex([]*model.ControlPlaneInstance{
		{ID: "a", Label: "instance-00000001", Host: "node01"},
		{ID: "b", Label: "instance-00000002", Host: "node02"},
		nil,
		{ID: "no-label", Host: "node02"},
	})

	found := idx.Lookup("instance-00000002")
	if assert.Len(t, found, 1) {
		assert.Equal(t, "b", found[0].ID)
	}
	assert.Empty(t, idx.Lookup("instance-000000ff"))
	assert.Equal(t, 2, idx.Len())

	inst := idx.Get("node01.example.org", "instance-00000001")
	if assert.NotNil(t, inst) {
		assert.Equal(t, "a", inst.ID)
	}
}

func TestInventoryIndex_Empty(t *testing.T) {
	idx := NewInventoryIndex(nil)

	assert.False(t, idx.Has("node01", "instance-00000001"))
	assert.Nil(t, idx.Lookup("instance-00000001"))
	assert.Equal(t, 0, idx.Len())
}
