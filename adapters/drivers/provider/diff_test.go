package providerdrv

import (
	"reflect"
	"testing"

	"github.com/kompox/aksgraph/domain/graph"
)

func TestDiffProperties(t *testing.T) {
	tests := []struct {
		name     string
		olds     graph.PropertyMap
		news     graph.PropertyMap
		replace  []string
		changes  []string
		replaces []string
	}{
		{
			name: "no changes",
			olds: graph.PropertyMap{"a": "x", "b": []any{float64(1)}},
			news: graph.PropertyMap{"a": "x", "b": []any{float64(1)}},
		},
		{
			name:    "update only",
			olds:    graph.PropertyMap{"a": "x", "tags": map[string]any{"k": "1"}},
			news:    graph.PropertyMap{"a": "x", "tags": map[string]any{"k": "2"}},
			replace: []string{"a"},
			changes: []string{"tags"},
		},
		{
			name:     "replace on dotted path",
			olds:     graph.PropertyMap{"metadata": map[string]any{"name": "ingress-nginx", "labels": map[string]any{}}},
			news:     graph.PropertyMap{"metadata": map[string]any{"name": "ingress", "labels": map[string]any{}}},
			replace:  []string{"metadata.name"},
			changes:  []string{"metadata"},
			replaces: []string{"metadata.name"},
		},
		{
			name:    "dotted path unchanged while sibling changes",
			olds:    graph.PropertyMap{"metadata": map[string]any{"name": "a", "labels": map[string]any{"x": "1"}}},
			news:    graph.PropertyMap{"metadata": map[string]any{"name": "a", "labels": map[string]any{"x": "2"}}},
			replace: []string{"metadata.name"},
			changes: []string{"metadata"},
		},
		{
			name:     "unknown value forces replace",
			olds:     graph.PropertyMap{"namespace": "ingress-nginx"},
			news:     graph.PropertyMap{"namespace": graph.Computed{}},
			replace:  []string{"namespace"},
			changes:  []string{"namespace"},
			replaces: []string{"namespace"},
		},
		{
			name:    "secret wrapper does not count as change",
			olds:    graph.PropertyMap{"key": graph.Secret{Element: "k"}},
			news:    graph.PropertyMap{"key": graph.Secret{Element: "k"}},
			replace: []string{"key"},
		},
		{
			name:     "removed key",
			olds:     graph.PropertyMap{"location": "japaneast"},
			news:     graph.PropertyMap{},
			replace:  []string{"location"},
			changes:  []string{"location"},
			replaces: []string{"location"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffProperties(tt.olds, tt.news, tt.replace...)
			if !reflect.DeepEqual(got.Changes, tt.changes) {
				t.Errorf("changes = %v, want %v", got.Changes, tt.changes)
			}
			if !reflect.DeepEqual(got.Replaces, tt.replaces) {
				t.Errorf("replaces = %v, want %v", got.Replaces, tt.replaces)
			}
			if got.HasChanges() != (len(tt.changes) > 0) {
				t.Errorf("HasChanges mismatch")
			}
		})
	}
}

func TestDecodeInputs(t *testing.T) {
	var args struct {
		Name   string            `json:"name"`
		Count  int32             `json:"count"`
		Labels map[string]string `json:"labels"`
		Key    string            `json:"key"`
		Later  string            `json:"later"`
	}
	err := DecodeInputs(graph.PropertyMap{
		"name":   "rg",
		"count":  float64(3),
		"labels": map[string]any{"a": "b"},
		"key":    graph.Secret{Element: "ssh-rsa AAA"},
		"later":  graph.Computed{},
	}, &args)
	if err != nil {
		t.Fatalf("DecodeInputs: %v", err)
	}
	if args.Name != "rg" || args.Count != 3 || args.Labels["a"] != "b" || args.Key != "ssh-rsa AAA" || args.Later != "" {
		t.Errorf("unexpected decode result: %+v", args)
	}
}
