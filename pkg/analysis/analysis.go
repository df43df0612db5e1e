package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jopdorp/timberframe/pkg/fem"
	"github.com/jopdorp/timberframe/pkg/fem/calculix"
	"github.com/jopdorp/timberframe/pkg/fem/gmsh"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/tessellate"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// File names inside a run directory.
const (
	MeshFile  = "mesh.inp"
	InputFile = "analysis.inp"
)

// Analyzer runs frame analyses with one configuration.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
	mesher gmsh.Mesher
	solver *calculix.Solver
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMesher replaces the per-run gmsh session.
func WithMesher(m gmsh.Mesher) Option {
	return func(a *Analyzer) { a.mesher = m }
}

// New validates cfg and returns an Analyzer.
func New(cfg Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: invalid config: %w", err)
	}
	a := &Analyzer{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	a.solver = &calculix.Solver{
		Executable: cfg.CCXPath,
		Threads:    cfg.Threads,
		Timeout:    cfg.Timeout,
		Logger:     a.logger,
	}
	return a, nil
}

// MeshFailure records a part that gmsh could not mesh. A failed refined
// mesh falls back to the coarse one; a failed coarse mesh ends the run.
type MeshFailure struct {
	Part   string
	Error  string
	Coarse bool
}

// Report describes a finished run. Success is false when the solver did
// not produce results; Message then says why.
type Report struct {
	ID   string
	Name string
	Dir  string

	Parts      int
	Nodes      int
	Elements   int
	Pairs      []string
	FixedNodes int
	LoadNodes  int
	LoadedBeam string
	Refined    []string
	Failures   []MeshFailure

	Solver   calculix.RunResult
	Results  *calculix.Results
	Success  bool
	Message  string
	Duration time.Duration
}

// Run tessellates the parts with k and analyzes them.
func (a *Analyzer) Run(ctx context.Context, name string, parts []frame.Part, k kernel.Kernel) (*Report, error) {
	surfaces, err := tessellate.Tessellate(parts, k, a.logger)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	members, err := Members(parts, surfaces)
	if err != nil {
		return nil, err
	}
	return a.RunMembers(ctx, name, members)
}

// RunMembers analyzes members that already carry surfaces.
func (a *Analyzer) RunMembers(ctx context.Context, name string, members []Member) (*Report, error) {
	if len(members) == 0 {
		return nil, errors.New("analysis: no parts")
	}
	start := time.Now()
	cfg := a.cfg
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	mat, err := calculix.MaterialByName(cfg.Material)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	id := uuid.New().String()
	rep := &Report{ID: id, Name: name, Parts: len(members)}
	rep.Dir = filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-%s", name, id[:8]))
	if err := os.MkdirAll(rep.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	logger := a.logger.With("run", id[:8], "frame", name)
	logger.Info("analysis started", "parts", len(members), "dir", rep.Dir)

	mesher := a.mesher
	if mesher == nil {
		s, err := gmsh.NewSession(
			gmsh.WithExecutable(cfg.GmshPath),
			gmsh.WithThreads(1),
			gmsh.WithTimeout(cfg.MeshTimeout),
			gmsh.WithDir(filepath.Join(rep.Dir, "mesh")),
			gmsh.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("analysis: %w", err)
		}
		defer s.Close()
		mesher = s
	}

	// Coarse pass.
	reqs := make([]gmsh.Request, len(members))
	for i, mb := range members {
		reqs[i] = gmsh.Request{Name: mb.Name, Surface: mb.Surface, Size: cfg.MeshSize}
	}
	coarse, err := gmsh.MeshAll(ctx, mesher, reqs, cfg.MaxParallel)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return a.meshFailed(rep, start, logger, err), nil
	}

	// Refine around the joints found on the coarse meshes.
	margin := cfg.MeshSize + cfg.ContactGap()
	pairs, err := FindContactPairs(members, coarse, cfg.PrefilterMargin, margin, fem.ModeCoarse)
	if err != nil {
		return nil, err
	}
	regions := RefinementRegions(pairs, byName(coarse), cfg.RefinementMargin)
	meshes, failures := a.refine(ctx, mesher, reqs, coarse, regions)
	rep.Failures = failures
	rep.Refined = lo.Filter(lo.Keys(regions), func(p string, _ int) bool {
		return !lo.ContainsBy(failures, func(f MeshFailure) bool { return f.Part == p })
	})
	slices.Sort(rep.Refined)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Contact on the final meshes.
	fine := cfg.FineMeshSize
	if len(regions) == 0 {
		fine = cfg.MeshSize
	}
	pairs, err = FindContactPairs(members, meshes, cfg.PrefilterMargin, fine+cfg.ContactGap(), mode)
	if err != nil {
		return nil, err
	}
	rep.Pairs = lo.Map(pairs, func(p Pair, _ int) string { return p.Name })
	logger.Info("contact pairs", "count", len(pairs), "mode", mode.String())

	combined, err := fem.Assemble(meshes)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	rep.Nodes, rep.Elements = combined.NumNodes(), combined.NumElements()
	surfaces, err := Surfaces(combined, pairs)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if err := fem.WriteMeshInpFile(filepath.Join(rep.Dir, MeshFile), combined, surfaces); err != nil {
		return nil, err
	}

	// Boundary conditions and loads.
	named := byName(meshes)
	fixed := FixedNodes(combined, members, named)
	rep.FixedNodes = len(fixed)
	loads := map[int]float64{}
	if cfg.SelfWeight {
		loads = SelfWeight(combined, mat.Density)
	}
	if beam, ok := LoadTarget(members, named); ok && cfg.Load > 0 {
		nodes := LoadNodes(combined, named[beam], cfg.MeshSize)
		AddLoad(loads, nodes, -cfg.Load)
		rep.LoadedBeam, rep.LoadNodes = beam, len(nodes)
	}
	if len(fixed) == 0 {
		logger.Warn("no fixed nodes, model is unrestrained")
	}

	deck := BuildDeck(name, cfg, mat, members, pairs, fixed, loads)
	input := filepath.Join(rep.Dir, InputFile)
	if err := deck.WriteFile(input); err != nil {
		return nil, err
	}

	rep.Solver = a.solver.Run(ctx, input)
	rep.Message = rep.Solver.Message
	if rep.Solver.Success {
		res, err := calculix.ReadFRD(rep.Solver.FRD)
		switch {
		case errors.Is(err, calculix.ErrNoDisplacement):
			rep.Message = "No displacement results found"
		case err != nil:
			rep.Message = err.Error()
		default:
			rep.Results, rep.Success = res, true
		}
	}
	rep.Duration = time.Since(start)
	logger.Info("analysis finished",
		"success", rep.Success,
		"message", rep.Message,
		"nodes", rep.Nodes,
		"elements", rep.Elements,
		"duration", rep.Duration)
	return rep, nil
}

// meshFailed finishes rep as an unsuccessful run after a coarse mesh
// failure.
func (a *Analyzer) meshFailed(rep *Report, start time.Time, logger *slog.Logger, err error) *Report {
	f := MeshFailure{Error: err.Error(), Coarse: true}
	var re *gmsh.RunError
	if errors.As(err, &re) {
		f.Part = re.Part
	}
	rep.Failures = append(rep.Failures, f)
	rep.Message = "Meshing failed: " + err.Error()
	rep.Duration = time.Since(start)
	logger.Error("coarse mesh failed", "part", f.Part, "error", err)
	return rep
}

// refine remeshes the parts that have refinement regions. A failed part
// keeps its coarse mesh.
func (a *Analyzer) refine(ctx context.Context, mesher gmsh.Mesher, reqs []gmsh.Request, coarse []*fem.Mesh, regions map[string][]r3.Box) ([]*fem.Mesh, []MeshFailure) {
	out := make([]*fem.Mesh, len(coarse))
	copy(out, coarse)
	errs := make([]error, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	if a.cfg.MaxParallel > 0 {
		g.SetLimit(a.cfg.MaxParallel)
	}
	for i, req := range reqs {
		boxes, ok := regions[req.Name]
		if !ok {
			continue
		}
		req.Refinements = lo.Map(boxes, func(b r3.Box, _ int) gmsh.RefinementBox {
			return gmsh.RefinementBox{Box: b, Size: a.cfg.FineMeshSize}
		})
		g.Go(func() error {
			m, err := mesher.Mesh(gCtx, req)
			if err != nil {
				errs[i] = err
				return nil
			}
			out[i] = m
			return nil
		})
	}
	_ = g.Wait()

	var failures []MeshFailure
	for i, err := range errs {
		if err != nil {
			a.logger.Warn("refined mesh failed, keeping coarse mesh", "part", reqs[i].Name, "error", err)
			failures = append(failures, MeshFailure{Part: reqs[i].Name, Error: err.Error()})
		}
	}
	return out, failures
}

func byName(meshes []*fem.Mesh) map[string]*fem.Mesh {
	return lo.SliceToMap(meshes, func(m *fem.Mesh) (string, *fem.Mesh) { return m.Name, m })
}
