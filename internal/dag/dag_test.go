// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func indexOf(order []string, name string) int { return slices.Index(order, name) }

func TestLinkOrder_EmptyGraph(t *testing.T) {
	t.Parallel()

	order, err := New().LinkOrder()
	if err != nil {
		t.Fatalf("LinkOrder() error: %v", err)
	}
	if order != nil {
		t.Errorf("LinkOrder() = %v, want nil", order)
	}
}

func TestLinkOrder_DependenciesFirst(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddDependency("app", "camera")
	g.AddDependency("app", "modules-core")
	g.AddDependency("camera", "modules-core")

	order, err := g.LinkOrder()
	if err != nil {
		t.Fatalf("LinkOrder() error: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("LinkOrder() = %v, want 3 nodes", order)
	}
	if indexOf(order, "modules-core") > indexOf(order, "camera") || indexOf(order, "camera") > indexOf(order, "app") {
		t.Errorf("LinkOrder() = %v, dependencies must come first", order)
	}
}

func TestLinkOrder_DisconnectedKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("b")
	g.AddNode("a")
	g.AddNode("c")

	order, err := g.LinkOrder()
	if err != nil {
		t.Fatalf("LinkOrder() error: %v", err)
	}
	if !slices.Equal(order, []string{"b", "a", "c"}) {
		t.Errorf("LinkOrder() = %v, want [b a c]", order)
	}
}

func TestLinkOrder_Cycle(t *testing.T) {
	t.Parallel()

	g := FromEdges([]Edge{
		{Dependent: "root", Dependency: "a"},
		{Dependent: "a", Dependency: "b"},
		{Dependent: "b", Dependency: "a"},
	})

	_, err := g.LinkOrder()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("LinkOrder() error = %v, want *CycleError", err)
	}
	if len(cycleErr.Cycles) != 1 || !slices.Equal(cycleErr.Cycles[0], []string{"a", "b"}) {
		t.Errorf("Cycles = %v, want [[a b]]", cycleErr.Cycles)
	}
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAddDependency_IgnoresRepeats(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("a", "b")

	order, err := g.LinkOrder()
	if err != nil {
		t.Fatalf("LinkOrder() error: %v", err)
	}
	if !slices.Equal(order, []string{"b", "a"}) {
		t.Errorf("LinkOrder() = %v, want [b a]", order)
	}
}

func TestCycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edges []Edge
		want  [][]string
	}{
		{
			name:  "acyclic",
			edges: []Edge{{"a", "b"}, {"b", "c"}, {"a", "c"}},
			want:  nil,
		},
		{
			name:  "self loop",
			edges: []Edge{{"a", "a"}, {"a", "b"}},
			want:  [][]string{{"a"}},
		},
		{
			name:  "two separate cycles",
			edges: []Edge{{"x", "y"}, {"y", "x"}, {"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "x"}},
			want:  [][]string{{"a", "b", "c"}, {"x", "y"}},
		},
		{
			name:  "long chain back to start",
			edges: []Edge{{"p1", "p2"}, {"p2", "p3"}, {"p3", "p4"}, {"p4", "p1"}},
			want:  [][]string{{"p1", "p2", "p3", "p4"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FromEdges(tt.edges).Cycles()
			if !slices.EqualFunc(got, tt.want, slices.Equal[[]string]) {
				t.Errorf("Cycles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodes_InsertionOrder(t *testing.T) {
	t.Parallel()

	g := FromEdges([]Edge{{"app", "z"}, {"app", "a"}})
	if got := g.Nodes(); !slices.Equal(got, []string{"app", "z", "a"}) {
		t.Errorf("Nodes() = %v", got)
	}
}
