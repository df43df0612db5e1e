// Package app ties the script engine, the frame builders, tessellation and
// analysis together for the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jopdorp/timberframe/internal/config"
	"github.com/jopdorp/timberframe/pkg/analysis"
	"github.com/jopdorp/timberframe/pkg/engine"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/kernel/sdfx"
	"github.com/jopdorp/timberframe/pkg/tessellate"
)

// App evaluates scripts into built frames.
type App struct {
	cfg          *config.Config
	engine       *engine.Engine
	kernel       kernel.Kernel
	logger       *slog.Logger
	analysisOpts []analysis.Option
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithKernel replaces the sdfx kernel.
func WithKernel(k kernel.Kernel) Option {
	return func(a *App) { a.kernel = k }
}

// WithAnalysisOptions passes options to every analyzer the app creates.
func WithAnalysisOptions(opts ...analysis.Option) Option {
	return func(a *App) { a.analysisOpts = append(a.analysisOpts, opts...) }
}

// New creates an App. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *App {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	a := &App{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.engine = engine.NewEngine(engine.WithLogger(a.logger))
	if a.kernel == nil {
		a.kernel = sdfx.WithMeshCells(cfg.Kernel.MeshCells)
	}
	return a
}

// Message is an error or warning tied to a script line or a frame.
type Message struct {
	Line    int
	Col     int
	Frame   string
	Message string
}

func (m Message) String() string {
	switch {
	case m.Line > 0:
		return fmt.Sprintf("line %d: %s", m.Line, m.Message)
	case m.Frame != "":
		return fmt.Sprintf("%s: %s", m.Frame, m.Message)
	default:
		return m.Message
	}
}

// Frame is a built frame, with meshes when tessellation was asked for.
type Frame struct {
	Name    string
	Kind    engine.FrameKind
	Summary string
	Parts   []frame.Part
	Meshes  []*kernel.Mesh
}

// Result is the output of evaluating a script.
type Result struct {
	Design   *engine.Design
	Frames   []Frame
	Errors   []Message
	Warnings []Message
}

// OK reports whether the script evaluated and every frame built.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Evaluate runs source and builds every declared frame. With mesh set,
// each part is also tessellated. A frame that fails to build is reported
// in Errors and skipped; the others are still returned.
func (a *App) Evaluate(source string, mesh bool) Result {
	res, err := a.engine.EvaluateResult(source)
	if err != nil {
		a.logger.Error("evaluate failed", "error", err)
		return Result{Errors: []Message{{Message: err.Error()}}}
	}
	return a.build(res, mesh)
}

// EvaluateFile is Evaluate on a script file.
func (a *App) EvaluateFile(path string, mesh bool) Result {
	res, err := a.engine.EvaluateFile(path)
	if err != nil {
		return Result{Errors: []Message{{Message: err.Error()}}}
	}
	return a.build(res, mesh)
}

func (a *App) build(res engine.EvalResult, mesh bool) Result {
	out := Result{Design: res.Design}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, Message{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, Message{Line: w.Line, Col: w.Col, Frame: w.Frame, Message: w.Message})
	}
	if res.Design == nil {
		return out
	}

	for i := range res.Design.Frames {
		spec := &res.Design.Frames[i]
		built, err := spec.Build(a.kernel, a.logger)
		if err != nil {
			out.Errors = append(out.Errors, Message{Frame: spec.Name, Message: err.Error()})
			continue
		}
		f := Frame{Name: built.Name, Kind: built.Kind, Summary: built.Summary, Parts: built.Parts}
		if mesh {
			meshes, err := tessellate.Tessellate(built.Parts, a.kernel, a.logger)
			if err != nil {
				out.Errors = append(out.Errors, Message{Frame: spec.Name, Message: "tessellation failed: " + err.Error()})
				continue
			}
			f.Meshes = meshes
		}
		a.logger.Debug("frame built", "frame", f.Name, "kind", f.Kind.String(), "parts", len(f.Parts))
		out.Frames = append(out.Frames, f)
	}
	return out
}

// Frame returns the named frame, or the only frame when name is empty.
func (r Result) Frame(name string) (*Frame, error) {
	if name == "" {
		if len(r.Frames) != 1 {
			return nil, fmt.Errorf("script has %d frames, choose one", len(r.Frames))
		}
		return &r.Frames[0], nil
	}
	for i := range r.Frames {
		if r.Frames[i].Name == name {
			return &r.Frames[i], nil
		}
	}
	return nil, fmt.Errorf("no frame named %q", name)
}

// Export writes every tessellated frame as STL files under dir/<frame>/.
func (a *App) Export(r Result, dir string) ([]string, error) {
	var paths []string
	for _, f := range r.Frames {
		if len(f.Meshes) == 0 {
			continue
		}
		written, err := tessellate.WriteSTLDir(filepath.Join(dir, f.Name), f.Meshes)
		if err != nil {
			return paths, err
		}
		paths = append(paths, written...)
	}
	a.logger.Info("exported STL", "files", len(paths), "dir", dir)
	return paths, nil
}

// AnalysisConfig merges the script's analysis settings over the
// configuration file. Executables, threads and timeouts always come from
// the file since scripts cannot set them.
func (a *App) AnalysisConfig(d *engine.Design) analysis.Config {
	base := a.cfg.Analysis
	if d == nil || d.Analysis == nil {
		return base
	}
	cfg := *d.Analysis
	cfg.GmshPath, cfg.CCXPath = base.GmshPath, base.CCXPath
	cfg.Threads = base.Threads
	cfg.MeshTimeout, cfg.Timeout = base.MeshTimeout, base.Timeout
	return cfg
}

// Analyze runs a finite element analysis of f. Tessellated meshes are
// reused; otherwise the analyzer tessellates.
func (a *App) Analyze(ctx context.Context, r Result, f *Frame) (*analysis.Report, error) {
	opts := append([]analysis.Option{analysis.WithLogger(a.logger)}, a.analysisOpts...)
	an, err := analysis.New(a.AnalysisConfig(r.Design), opts...)
	if err != nil {
		return nil, err
	}
	if len(f.Meshes) == len(f.Parts) && len(f.Meshes) > 0 {
		members, err := analysis.Members(f.Parts, f.Meshes)
		if err != nil {
			return nil, err
		}
		return an.RunMembers(ctx, f.Name, members)
	}
	return an.Run(ctx, f.Name, f.Parts, a.kernel)
}
