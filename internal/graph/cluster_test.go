package graph

import (
	"math"
	"testing"
)

func testGraph() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "a.go", Ext: "go", Workspace: "/w1", Directory: "src"},
			{ID: "b.go", Ext: "go", Workspace: "/w1", Directory: "src"},
			{ID: "c.ts", Ext: "ts", Workspace: "/w2", Directory: "web"},
			{ID: "d.ts", Ext: "ts", Workspace: "/w2", Directory: "web"},
		},
		Links: []Link{
			{Source: "a.go", Target: "b.go", Similarity: 0.9},
			{Source: "c.ts", Target: "d.ts", Similarity: 0.8},
		},
	}
}

func TestAssign_ByFileType(t *testing.T) {
	g := testGraph()
	ids := Assign(&g, ClusterByFileType)
	if len(ids) != 2 {
		t.Fatalf("expected 2 file-type clusters, got %v", ids)
	}
	if g.Nodes[0].Cluster != "go" || g.Nodes[2].Cluster != "ts" {
		t.Fatalf("unexpected assignments: %+v", g.Nodes)
	}
}

func TestAssign_ByWorkspaceAndDirectory(t *testing.T) {
	g := testGraph()
	Assign(&g, ClusterByWorkspace)
	if g.Nodes[0].Cluster != "/w1" || g.Nodes[3].Cluster != "/w2" {
		t.Fatalf("workspace assignment failed: %+v", g.Nodes)
	}
	Assign(&g, ClusterByDirectory)
	if g.Nodes[0].Cluster != "src" || g.Nodes[2].Cluster != "web" {
		t.Fatalf("directory assignment failed: %+v", g.Nodes)
	}
}

func TestAssign_MissingAttributeIsUnknown(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "Makefile"}}}
	Assign(&g, ClusterByFileType)
	if g.Nodes[0].Cluster != "unknown" {
		t.Fatalf("extensionless file should land in unknown, got %q", g.Nodes[0].Cluster)
	}
}

func TestAssign_KMeansCoversAllNodes(t *testing.T) {
	g := testGraph()
	ids := Assign(&g, ClusterBySimilarity)
	if len(ids) == 0 {
		t.Fatal("expected at least one cluster id")
	}
	valid := map[string]bool{}
	for _, id := range ids {
		valid[id] = true
	}
	for _, n := range g.Nodes {
		if !valid[n.Cluster] {
			t.Fatalf("node %s assigned to unknown cluster %q", n.ID, n.Cluster)
		}
	}
}

func TestAssign_CommunityGroupsLinkedNodes(t *testing.T) {
	g := testGraph()
	Assign(&g, ClusterByCommunity)
	if g.Nodes[0].Cluster != g.Nodes[1].Cluster {
		t.Fatalf("linked pair a-b should share a community: %q vs %q", g.Nodes[0].Cluster, g.Nodes[1].Cluster)
	}
	if g.Nodes[2].Cluster != g.Nodes[3].Cluster {
		t.Fatalf("linked pair c-d should share a community: %q vs %q", g.Nodes[2].Cluster, g.Nodes[3].Cluster)
	}
	if g.Nodes[0].Cluster == g.Nodes[2].Cluster {
		t.Fatal("unlinked pairs should stay in separate communities")
	}
}

func TestAssign_CommunityNoEdges(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "a"}, {ID: "b"}}}
	ids := Assign(&g, ClusterByCommunity)
	if len(ids) != 2 {
		t.Fatalf("edgeless graph should yield singleton communities, got %v", ids)
	}
}

func TestAssign_EmptyGraph(t *testing.T) {
	g := Graph{}
	if ids := Assign(&g, ClusterByFileType); ids != nil {
		t.Fatalf("empty graph should return nil, got %v", ids)
	}
}

func TestClusterHull_TriangleExpanded(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}}
	hull := ClusterHull(points)
	if len(hull) != 3 {
		t.Fatalf("triangle hull should keep 3 vertices, got %d", len(hull))
	}
	for i, p := range hull {
		// Each vertex moves 20 units radially outward, so the nearest input
		// point must be exactly hullPadding closer to the centroid.
		nearest := math.Inf(1)
		for _, orig := range points {
			if d := math.Hypot(p.X-orig.X, p.Y-orig.Y); d < nearest {
				nearest = d
			}
		}
		if math.Abs(nearest-hullPadding) > 1e-9 {
			t.Fatalf("vertex %d expanded by %v, want %v", i, nearest, hullPadding)
		}
	}
}

func TestClusterHull_FewPoints(t *testing.T) {
	points := []Point{{X: 1, Y: 1}, {X: 5, Y: 5}}
	hull := ClusterHull(points)
	if len(hull) != 2 {
		t.Fatalf("two points should yield two vertices, got %d", len(hull))
	}
	if hull := ClusterHull(nil); hull != nil {
		t.Fatalf("nil input should return nil, got %v", hull)
	}
}
