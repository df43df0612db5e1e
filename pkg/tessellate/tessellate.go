// Package tessellate turns the parts of a built frame into triangle meshes
// using a geometry kernel. One mesh is produced per part.
package tessellate

import (
	"fmt"
	"log/slog"

	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
)

// Tessellate produces one world-space triangle mesh per part, in order.
// Every joint cut on a part is applied before meshing. The tessellator is
// read-only and never mutates the parts.
func Tessellate(parts []frame.Part, k kernel.Kernel, logger *slog.Logger) ([]*kernel.Mesh, error) {
	if logger == nil {
		logger = slog.Default()
	}
	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		m, err := Part(p, k)
		if err != nil {
			return nil, err
		}
		logger.Debug("tessellated part", "part", p.Name, "triangles", m.TriangleCount())
		meshes = append(meshes, m)
	}
	return meshes, nil
}

// Part meshes a single part.
func Part(p frame.Part, k kernel.Kernel) (*kernel.Mesh, error) {
	if p.Timber == nil {
		return nil, fmt.Errorf("tessellate: part %s has no timber", p.Name)
	}
	mesh, err := k.ToMesh(p.Timber.Solid(k))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for part %s: %w", p.Name, err)
	}
	// Frame part names are unique; timber names need not be.
	mesh.PartName = p.Name
	if mesh.PartName == "" {
		mesh.PartName = p.Timber.Name
	}
	return mesh, nil
}
