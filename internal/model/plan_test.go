package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Validate(t *testing.T) {
	valid := func() *Plan {
		return &Plan{
			Kind:    KindPlan,
			Imports: []ImportRef{{ID: "zone", Kind: KindDnsZone, Key: "example.com"}},
			Layers: []Layer{
				{Index: 0, Nodes: []string{"network"}},
				{Index: 1, Nodes: []string{"lb"}},
			},
			Resources: []ResourceNode{
				NewResourceNode("network", KindNetwork, nil),
				NewResourceNode("lb", KindLoadBalancer, nil, "network", "zone"),
			},
		}
	}
	assert.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Plan)
		wantErr string
	}{
		{
			name:    "layer id without resource",
			mutate:  func(p *Plan) { p.Layers[0].Nodes = []string{"network", "zz"} },
			wantErr: "plan layer 0 references unknown resource zz",
		},
		{
			name:    "resource placed twice",
			mutate:  func(p *Plan) { p.Layers[1].Nodes = []string{"lb", "network"} },
			wantErr: "resource network is placed in layers 0 and 1",
		},
		{
			name:    "resource listed twice",
			mutate:  func(p *Plan) { p.Resources = append(p.Resources, NewResourceNode("lb", KindLoadBalancer, nil)) },
			wantErr: "resource lb is listed twice",
		},
		{
			name:    "resource without layer",
			mutate:  func(p *Plan) { p.Layers = p.Layers[:1] },
			wantErr: "resource lb is not placed in any layer",
		},
		{
			name: "dependency in the same layer",
			mutate: func(p *Plan) {
				p.Layers = []Layer{{Index: 0, Nodes: []string{"lb", "network"}}}
			},
			wantErr: "resource lb in layer 0 depends on network in layer 0",
		},
		{
			name:    "dependency outside the plan",
			mutate:  func(p *Plan) { p.Imports = nil },
			wantErr: "resource lb depends on zone, which is not in the plan",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			assert.EqualError(t, p.Validate(), tt.wantErr)
		})
	}
}
