package gmsh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jopdorp/timberframe/pkg/fem"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/tessellate"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single gmsh run.
const DefaultTimeout = 5 * time.Minute

// Session owns a private working directory in which every Mesh call
// writes its STL, script and mesh files. Close removes the directory.
type Session struct {
	dir     string
	exe     string
	threads int
	timeout time.Duration
	keep    bool
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithExecutable sets the gmsh binary, by name or path.
func WithExecutable(path string) Option {
	return func(s *Session) {
		if path != "" {
			s.exe = path
		}
	}
}

// WithThreads passes -nt to gmsh when n > 0.
func WithThreads(n int) Option {
	return func(s *Session) { s.threads = n }
}

// WithTimeout bounds each gmsh run.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDir works in dir instead of a fresh temporary directory. Close
// leaves dir in place.
func WithDir(dir string) Option {
	return func(s *Session) {
		s.dir = dir
		s.keep = true
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session. Without WithDir it creates a temporary
// working directory.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		exe:     "gmsh",
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "timberframe-gmsh-")
		if err != nil {
			return nil, fmt.Errorf("gmsh: session: %w", err)
		}
		s.dir = dir
	} else if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("gmsh: session: %w", err)
	}
	return s, nil
}

// Dir returns the working directory.
func (s *Session) Dir() string { return s.dir }

// Close removes the working directory unless it was given with WithDir.
func (s *Session) Close() error {
	if s.keep {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Available reports whether the gmsh executable can be found.
func (s *Session) Available() bool {
	_, err := exec.LookPath(s.exe)
	return err == nil
}

// Request asks for a volume mesh of one part's surface.
type Request struct {
	Name        string
	Surface     *kernel.Mesh
	Size        float64
	Refinements []RefinementBox
}

// RunError reports a failed gmsh invocation. Stdout and Stderr hold the
// last lines of each stream; gmsh prints most of its errors to stdout.
type RunError struct {
	Part   string
	Stdout string
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("gmsh: part %s: %v", e.Part, e.Err)
	switch {
	case e.Stderr != "":
		msg += ": " + e.Stderr
	case e.Stdout != "":
		msg += ": " + e.Stdout
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// Mesh writes the request's files into the session directory, runs gmsh
// and parses the resulting mesh.
func (s *Session) Mesh(ctx context.Context, req Request) (*fem.Mesh, error) {
	if req.Name == "" {
		return nil, errors.New("gmsh: request without part name")
	}
	stl := req.Name + ".stl"
	geo := filepath.Join(s.dir, req.Name+".geo")
	msh := filepath.Join(s.dir, req.Name+".msh")

	if err := tessellate.WriteSTLFile(filepath.Join(s.dir, stl), req.Surface); err != nil {
		return nil, fmt.Errorf("gmsh: part %s: %w", req.Name, err)
	}
	f, err := os.Create(geo)
	if err != nil {
		return nil, fmt.Errorf("gmsh: part %s: %w", req.Name, err)
	}
	if err := WriteGeo(f, stl, req.Size, req.Refinements); err != nil {
		f.Close()
		return nil, fmt.Errorf("gmsh: part %s: %w", req.Name, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("gmsh: part %s: %w", req.Name, err)
	}

	args := []string{filepath.Base(geo), "-3", "-format", "msh2", "-o", filepath.Base(msh)}
	if s.threads > 0 {
		args = append(args, "-nt", strconv.Itoa(s.threads))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, s.exe, args...)
	cmd.Dir = s.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	s.logger.Debug("running gmsh", "part", req.Name, "size", req.Size, "refinements", len(req.Refinements))
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timeout after %s", s.timeout)
		}
		return nil, &RunError{
			Part:   req.Name,
			Stdout: lastLines(stdout.String(), 5),
			Stderr: lastLines(stderr.String(), 5),
			Err:    err,
		}
	}

	m, err := ReadMsh2File(msh, req.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("meshed part",
		"part", req.Name,
		"nodes", m.NumNodes(),
		"elements", m.NumElements(),
		"duration", time.Since(start))
	return m, nil
}

// Mesher turns a surface request into a volume mesh. *Session is the
// gmsh implementation.
type Mesher interface {
	Mesh(ctx context.Context, req Request) (*fem.Mesh, error)
}

// MeshAll meshes every request with at most limit concurrent runs
// (unlimited when limit <= 0). Results follow the request order. The
// first failure cancels the remaining runs.
func MeshAll(ctx context.Context, s Mesher, reqs []Request, limit int) ([]*fem.Mesh, error) {
	out := make([]*fem.Mesh, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			m, err := s.Mesh(gCtx, req)
			if err != nil {
				return err
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func lastLines(s string, n int) string {
	b := bytes.TrimSpace([]byte(s))
	for i, count := len(b)-1, 0; i >= 0; i-- {
		if b[i] == '\n' {
			count++
			if count == n {
				return string(b[i+1:])
			}
		}
	}
	return string(b)
}
