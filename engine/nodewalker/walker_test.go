package nodewalker

import (
	"context"
	"testing"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/kernel"
)

type fakeFlowSettingsRepo struct {
	byNode map[kernel.NodeID]engine.FlowSettings
	err    error
}

func (f *fakeFlowSettingsRepo) FindByFlowNode(_ context.Context, _ kernel.FlowID, nodeID kernel.NodeID) (*engine.FlowSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	fs, ok := f.byNode[nodeID]
	if !ok {
		return nil, nil
	}
	return &fs, nil
}

func (f *fakeFlowSettingsRepo) Upsert(_ context.Context, _ engine.FlowSettings) error {
	return nil
}

func TestShouldChain(t *testing.T) {
	flow := &engine.Flow{
		Nodes: []engine.Node{
			{ID: "n1", Type: engine.NodeTypeMessage},
			{ID: "n2", Type: engine.NodeTypeMessage},
			{ID: "n3", Type: engine.NodeTypeQuestion},
		},
		Edges: []engine.Edge{
			{SourceNodeID: "n1", TargetNodeID: "n2"},
			{SourceNodeID: "n2", TargetNodeID: "n3"},
		},
	}

	w := &Walker{}

	tests := []struct {
		name string
		from kernel.NodeID
		want bool
	}{
		{"chains into another message node", "n1", true},
		{"stops before a question node", "n2", false},
		{"no outgoing edge", "n3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.shouldChain(flow, tt.from); got != tt.want {
				t.Errorf("shouldChain(%q) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestMergeSettings(t *testing.T) {
	flowID := kernel.FlowID("flow-1")
	nodeID := kernel.NodeID("node-1")

	tests := []struct {
		name     string
		settings engine.FlowSettingsRepository
		data     map[string]any
		want     map[string]any
	}{
		{
			name:     "nil repository leaves data untouched",
			settings: nil,
			data:     map[string]any{"subject": "hola"},
			want:     map[string]any{"subject": "hola"},
		},
		{
			name: "no row for node leaves data untouched",
			settings: &fakeFlowSettingsRepo{byNode: map[kernel.NodeID]engine.FlowSettings{}},
			data:     map[string]any{"subject": "hola"},
			want:     map[string]any{"subject": "hola"},
		},
		{
			name: "settings fill in missing keys",
			settings: &fakeFlowSettingsRepo{byNode: map[kernel.NodeID]engine.FlowSettings{
				nodeID: {FlowID: flowID, NodeID: nodeID, Settings: map[string]any{
					"email.source_email": "no-reply@brand.com",
				}},
			}},
			data: map[string]any{"subject": "hola"},
			want: map[string]any{"subject": "hola", "email.source_email": "no-reply@brand.com"},
		},
		{
			name: "node data wins over settings on key collision",
			settings: &fakeFlowSettingsRepo{byNode: map[kernel.NodeID]engine.FlowSettings{
				nodeID: {FlowID: flowID, NodeID: nodeID, Settings: map[string]any{
					"subject": "default subject",
				}},
			}},
			data: map[string]any{"subject": "hola"},
			want: map[string]any{"subject": "hola"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Walker{settings: tt.settings}
			got := w.mergeSettings(context.Background(), flowID, nodeID, tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("mergeSettings() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("mergeSettings()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
