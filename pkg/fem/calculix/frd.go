package calculix

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoDisplacement is returned when a result file has no DISP block.
var ErrNoDisplacement = errors.New("calculix: no displacement results found")

// Stress is a nodal stress tensor: SXX, SYY, SZZ, SXY, SYZ, SZX in MPa.
type Stress [6]float64

// VonMises returns the equivalent stress.
func (s Stress) VonMises() float64 {
	sxx, syy, szz, sxy, syz, szx := s[0], s[1], s[2], s[3], s[4], s[5]
	return math.Sqrt(0.5 * ((sxx-syy)*(sxx-syy) + (syy-szz)*(syy-szz) + (szz-sxx)*(szz-sxx) +
		6*(sxy*sxy+syz*syz+szx*szx)))
}

// frdBlocks returns the nodal data of the last block of each requested
// result name. Records are fixed width: the node id in columns 3-13, then
// one value per 12 columns.
func frdBlocks(r io.Reader, names ...string) (map[string]map[int][]float64, error) {
	last := make(map[string]map[int][]float64)
	var cur map[int][]float64
	var curName string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-4"):
			cur, curName = nil, ""
			for _, n := range names {
				if f := strings.Fields(trimmed); len(f) > 1 && f[1] == n {
					cur, curName = make(map[int][]float64), n
				}
			}
		case strings.HasPrefix(trimmed, "-3"):
			if cur != nil {
				last[curName] = cur
			}
			cur, curName = nil, ""
		case cur != nil && strings.HasPrefix(line, " -1"):
			id, vals, ok := frdRecord(line)
			if ok {
				cur[id] = vals
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("calculix: read frd: %w", err)
	}
	return last, nil
}

func frdRecord(line string) (int, []float64, bool) {
	if len(line) < 13 {
		return 0, nil, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(line[3:13]))
	if err != nil {
		return 0, nil, false
	}
	var vals []float64
	for i := 13; i+12 <= len(line); i += 12 {
		v, err := strconv.ParseFloat(strings.TrimSpace(line[i:i+12]), 64)
		if err != nil {
			return 0, nil, false
		}
		vals = append(vals, v)
	}
	return id, vals, true
}

// Results are the final-increment nodal results of a run.
type Results struct {
	Displacements map[int]r3.Vec
	Stresses      map[int]Stress

	MaxDisplacement float64 // largest displacement magnitude, mm
	MaxUz           float64 // signed Z displacement of largest magnitude, mm
	MaxVonMises     float64 // MPa
	MaxStress       float64 // largest normal stress component, MPa
}

// ParseFRD reads displacements and, when present, stresses.
func ParseFRD(r io.Reader) (*Results, error) {
	blocks, err := frdBlocks(r, "DISP", "STRESS")
	if err != nil {
		return nil, err
	}
	disp, ok := blocks["DISP"]
	if !ok || len(disp) == 0 {
		return nil, ErrNoDisplacement
	}
	res := &Results{
		Displacements: make(map[int]r3.Vec, len(disp)),
		Stresses:      make(map[int]Stress, len(blocks["STRESS"])),
	}
	for id, v := range disp {
		if len(v) < 3 {
			continue
		}
		u := r3.Vec{X: v[0], Y: v[1], Z: v[2]}
		res.Displacements[id] = u
		res.MaxDisplacement = math.Max(res.MaxDisplacement, r3.Norm(u))
		if math.Abs(u.Z) > math.Abs(res.MaxUz) {
			res.MaxUz = u.Z
		}
	}
	for id, v := range blocks["STRESS"] {
		if len(v) < 6 {
			continue
		}
		s := Stress(v[:6])
		res.Stresses[id] = s
		res.MaxVonMises = math.Max(res.MaxVonMises, s.VonMises())
		res.MaxStress = math.Max(res.MaxStress, floats.Max(v[:3]))
	}
	return res, nil
}

// ReadFRD parses the result file at path.
func ReadFRD(path string) (*Results, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calculix: %w", err)
	}
	defer f.Close()
	return ParseFRD(f)
}

// Utilization returns the largest von Mises stress over the material's
// bending strength, a rough check against f_m_k.
func (r *Results) Utilization(m Material) float64 {
	if m.Strength.FmK <= 0 {
		return 0
	}
	return r.MaxVonMises / m.Strength.FmK
}
