package analysis

import (
	"math"
	"slices"

	"github.com/jopdorp/timberframe/pkg/fem"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// baseTolerance is how far above a post's lowest node a node may sit
	// and still be fixed, in mm.
	baseTolerance = 2.0
	gravity       = 9.81
)

// FixedNodes returns the global ids of every post's foot nodes, ascending.
func FixedNodes(c *fem.CombinedMesh, members []Member, meshes map[string]*fem.Mesh) []int {
	var out []int
	for _, mb := range members {
		if mb.Type != Post {
			continue
		}
		m, ok := meshes[mb.Name]
		if !ok {
			continue
		}
		b, err := m.Bounds()
		if err != nil {
			continue
		}
		for _, id := range m.NodesWhere(func(_ int, p r3.Vec) bool {
			return math.Abs(p.Z-b.Min.Z) < baseTolerance
		}) {
			if g, ok := c.GlobalNode(mb.Name, id); ok {
				out = append(out, g)
			}
		}
	}
	slices.Sort(out)
	return out
}

// LoadTarget picks the beam with the largest X extent. It returns false
// when there is no beam.
func LoadTarget(members []Member, meshes map[string]*fem.Mesh) (string, bool) {
	best, span := "", -1.0
	for _, mb := range members {
		if mb.Type != Beam {
			continue
		}
		m, ok := meshes[mb.Name]
		if !ok {
			continue
		}
		b, err := m.Bounds()
		if err != nil {
			continue
		}
		if s := b.Size().X; s > span {
			best, span = mb.Name, s
		}
	}
	return best, span >= 0
}

// LoadNodes returns the global ids of the beam's top nodes within
// 1.5 mesh sizes of mid-span.
func LoadNodes(c *fem.CombinedMesh, beam *fem.Mesh, meshSize float64) []int {
	b, err := beam.Bounds()
	if err != nil {
		return nil
	}
	mid := (b.Min.X + b.Max.X) / 2
	var out []int
	for _, id := range beam.NodesWhere(func(_ int, p r3.Vec) bool {
		return math.Abs(p.X-mid) < 1.5*meshSize && math.Abs(p.Z-b.Max.Z) < 0.5*meshSize
	}) {
		if g, ok := c.GlobalNode(beam.Name, id); ok {
			out = append(out, g)
		}
	}
	slices.Sort(out)
	return out
}

// SelfWeight lumps each element's weight, in N, equally onto its four
// nodes. density is in kg/m³ and coordinates in mm. The forces point down
// and are keyed by global node id.
func SelfWeight(c *fem.CombinedMesh, density float64) map[int]float64 {
	out := make(map[int]float64)
	for _, el := range c.Elements {
		v := fem.TetVolume(c.Nodes[el[0]], c.Nodes[el[1]], c.Nodes[el[2]], c.Nodes[el[3]])
		w := v * density * 1e-9 * gravity / 4
		for _, n := range el {
			out[n] -= w
		}
	}
	return out
}

// AddLoad spreads total evenly over nodes into loads.
func AddLoad(loads map[int]float64, nodes []int, total float64) {
	if len(nodes) == 0 {
		return
	}
	per := total / float64(len(nodes))
	for _, n := range nodes {
		loads[n] += per
	}
}
