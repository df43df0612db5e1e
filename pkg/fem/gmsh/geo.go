// Package gmsh drives the gmsh command-line mesher: it writes a part's
// surface as STL with a .geo script, runs gmsh for a linear tetrahedral
// volume mesh, and reads the result back as a fem.Mesh.
package gmsh

import (
	"fmt"
	"io"
	"text/template"

	"gonum.org/v1/gonum/spatial/r3"
)

// RefinementBox requests a finer mesh size inside a region.
type RefinementBox struct {
	Box  r3.Box
	Size float64
}

// MinSizeFactor sets the smallest element size relative to the target.
const MinSizeFactor = 0.3

// SurfaceName and VolumeName are the physical groups every part gets.
const (
	SurfaceName = "BOUNDARY"
	VolumeName  = "SOLID"
)

type geoData struct {
	STL         string
	Size        float64
	MinSize     float64
	Boxes       []RefinementBox
	FieldIDs    string
	SurfaceName string
	VolumeName  string
}

var geoTemplate = template.Must(template.New("geo").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"g":   func(v float64) string { return fmt.Sprintf("%g", v) },
}).Parse(`// generated by timberframe
Merge "{{.STL}}";
ClassifySurfaces{40 * Pi / 180, 1, 1, Pi};
CreateGeometry;
Surface Loop(1) = Surface{:};
Volume(1) = {1};
Physical Surface("{{.SurfaceName}}") = Surface{:};
Physical Volume("{{.VolumeName}}") = {1};

Mesh.CharacteristicLengthMax = {{g .Size}};
Mesh.CharacteristicLengthMin = {{g .MinSize}};
Mesh.ElementOrder = 1;
{{- range $i, $b := .Boxes}}
{{- $f := inc $i}}

Field[{{$f}}] = Box;
Field[{{$f}}].VIn = {{g $b.Size}};
Field[{{$f}}].VOut = {{g $.Size}};
Field[{{$f}}].XMin = {{g $b.Box.Min.X}};
Field[{{$f}}].XMax = {{g $b.Box.Max.X}};
Field[{{$f}}].YMin = {{g $b.Box.Min.Y}};
Field[{{$f}}].YMax = {{g $b.Box.Max.Y}};
Field[{{$f}}].ZMin = {{g $b.Box.Min.Z}};
Field[{{$f}}].ZMax = {{g $b.Box.Max.Z}};
Field[{{$f}}].Thickness = {{g $.Size}};
{{- end}}
{{- if gt (len .Boxes) 1}}

Field[{{inc (len .Boxes)}}] = Min;
Field[{{inc (len .Boxes)}}].FieldsList = {{"{"}}{{.FieldIDs}}{{"}"}};
Background Field = {{inc (len .Boxes)}};
{{- else if eq (len .Boxes) 1}}

Background Field = 1;
{{- end}}
`))

// WriteGeo writes the .geo script meshing stl at the target size, with
// one Box field per refinement region. Several regions are combined with
// a Min field.
func WriteGeo(w io.Writer, stl string, size float64, boxes []RefinementBox) error {
	if size <= 0 {
		return fmt.Errorf("gmsh: geo: non-positive mesh size %g", size)
	}
	ids := ""
	for i := range boxes {
		if boxes[i].Size <= 0 {
			return fmt.Errorf("gmsh: geo: refinement box %d has size %g", i, boxes[i].Size)
		}
		if i > 0 {
			ids += ", "
		}
		ids += fmt.Sprint(i + 1)
	}
	return geoTemplate.Execute(w, geoData{
		STL:         stl,
		Size:        size,
		MinSize:     size * MinSizeFactor,
		Boxes:       boxes,
		FieldIDs:    ids,
		SurfaceName: SurfaceName,
		VolumeName:  VolumeName,
	})
}
