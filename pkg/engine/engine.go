// Package engine evaluates timber frame scripts. A script is zygomys Lisp
// run in a sandbox with a few builtins (bent, barn, joint, brace, material,
// analysis) that declare frames; the result is a Design.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultTimeout bounds one evaluation.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to an evaluation that finished after a
	// newer one had started on the same engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer one")
)

// EvalError is a parse or runtime error in a script. Line and Col are
// zero when zygomys did not report a position.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	switch {
	case e.Line > 0 && e.Col > 0:
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a non-fatal problem with a script, optionally tied to
// one frame.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Frame   string
}

// EvalResult is everything one evaluation produced. Design is nil when
// Errors is not empty.
type EvalResult struct {
	Design   *Design
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine evaluates scripts, each in a fresh sandbox. It is safe for
// concurrent use; when evaluations overlap only the newest one returns a
// design.
type Engine struct {
	timeout    time.Duration
	logger     *slog.Logger
	generation atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout replaces DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an engine with DefaultTimeout.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs source and returns the declared design. Script errors come
// back as EvalErrors with a nil design; the error return is reserved for
// timeouts, panics and superseded runs.
func (e *Engine) Evaluate(source string) (*Design, []EvalError, error) {
	res, err := e.EvaluateContext(context.Background(), source)
	if err != nil {
		return nil, nil, err
	}
	return res.Design, res.Errors, nil
}

// EvaluateResult is Evaluate with warnings.
func (e *Engine) EvaluateResult(source string) (EvalResult, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateFile reads and evaluates a script file.
func (e *Engine) EvaluateFile(path string) (EvalResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{}, fmt.Errorf("engine: %w", err)
	}
	return e.EvaluateContext(context.Background(), string(src))
}

// outcome is what the evaluating goroutine hands back.
type outcome struct {
	res EvalResult
	err error
}

// EvaluateContext evaluates source, giving up when ctx is done or the
// engine timeout passes. A script that does not stop keeps its goroutine
// until it finishes; its result is dropped.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (EvalResult, error) {
	gen := e.generation.Add(1)
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()
		done <- outcome{res: run(source)}
	}()

	res, err := e.await(ctx, gen, done)
	if err != nil {
		e.logger.Warn("script evaluation abandoned", "generation", gen, "error", err)
	}
	return res, err
}

// await waits for evaluation gen to report on done.
func (e *Engine) await(ctx context.Context, gen uint64, done <-chan outcome) (EvalResult, error) {
	select {
	case out := <-done:
		if e.generation.Load() != gen {
			return EvalResult{}, ErrSuperseded
		}
		return out.res, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return EvalResult{}, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
		}
		return EvalResult{}, ctx.Err()
	}
}

// run evaluates source in a new sandbox.
func run(source string) EvalResult {
	b := newBuilder()
	if strings.TrimSpace(source) == "" {
		return EvalResult{Design: b.design, Warnings: b.finish()}
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return EvalResult{Errors: scriptErrors(err)}
	}
	if _, err := env.Run(); err != nil {
		return EvalResult{Errors: scriptErrors(err)}
	}
	return EvalResult{Design: b.design, Warnings: b.finish()}
}

// positionPattern finds "line N" with an optional column in zygomys
// messages such as "Error on line 5: ..." or "line 3, col 7: ...".
var positionPattern = regexp.MustCompile(`(?i)(?:error\s+)?(?:on\s+)?\bline\s+(\d+)(?:\s*[,:]\s*col(?:umn)?\s+(\d+))?:\s*(.*)`)

// scriptErrors turns a zygomys error into an EvalError. The first line
// naming a position wins; otherwise the first non-empty line is the
// message.
func scriptErrors(err error) []EvalError {
	var first string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := positionPattern.FindStringSubmatch(line); m != nil {
			ev := EvalError{Message: strings.TrimSpace(m[3])}
			ev.Line, _ = strconv.Atoi(m[1])
			ev.Col, _ = strconv.Atoi(m[2])
			return []EvalError{ev}
		}
		if first == "" {
			first = line
		}
	}
	if first == "" {
		first = "evaluation failed"
	}
	return []EvalError{{Message: first}}
}
