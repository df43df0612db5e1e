package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// --- Evaluate ---

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		frames   []string
		analysis bool
		wantErr  string // substring of the first EvalError
	}{
		{name: "empty", src: ""},
		{name: "whitespace", src: "  \n\t \n"},
		{name: "comment only", src: "; nothing to build yet\n"},
		{name: "plain arithmetic declares nothing", src: "(+ 1 2)"},
		{name: "one bent", src: `(bent "front")`, frames: []string{"front"}},
		{
			name:   "spans computed from defs",
			src:    "(def bay 3000)\n(bent \"a\")\n(bent \"b\" :y bay)\n(bent \"c\" :y (* 2 bay))",
			frames: []string{"a", "b", "c"},
		},
		{
			name:   "kebab-case defs",
			src:    "(def post-height 2800)\n(bent \"low\" :post-height post-height)",
			frames: []string{"low"},
		},
		{
			name:     "barn with analysis",
			src:      "(barn \"shed\" :num-bents 2)\n(analysis :load 5000)",
			frames:   []string{"shed"},
			analysis: true,
		},
		{name: "unbalanced paren", src: `(bent "front"`, wantErr: ""},
		{name: "undefined span", src: `(bent :beam-length span)`, wantErr: "span"},
		{name: "bad keyword", src: `(bent :height 3000)`, wantErr: "unknown keyword :height"},
		{name: "duplicate frame", src: `(bent "a") (bent "a")`, wantErr: `frame "a" already defined`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, evalErrs, err := NewEngine().Evaluate(tt.src)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			failing := strings.Contains(tt.name, "paren") || tt.wantErr != ""
			if failing {
				if len(evalErrs) == 0 {
					t.Fatal("expected an eval error")
				}
				if d != nil {
					t.Error("design returned with errors")
				}
				if evalErrs[0].Message == "" || !strings.Contains(evalErrs[0].Error(), tt.wantErr) {
					t.Errorf("error = %q, want containing %q", evalErrs[0].Error(), tt.wantErr)
				}
				return
			}
			if len(evalErrs) > 0 {
				t.Fatalf("eval errors: %v", evalErrs)
			}
			if d == nil {
				t.Fatal("nil design")
			}
			var names []string
			for _, f := range d.Frames {
				names = append(names, f.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.frames, ",") {
				t.Errorf("frames = %v, want %v", names, tt.frames)
			}
			if (d.Analysis != nil) != tt.analysis {
				t.Errorf("analysis set = %v, want %v", d.Analysis != nil, tt.analysis)
			}
		})
	}
}

func TestEvaluateComputedPlacement(t *testing.T) {
	d, evalErrs, err := NewEngine().Evaluate("(def bay 3000)\n(bent \"b\" :y (* 2 bay) :post-height (- 3200 200))")
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("err=%v evalErrs=%v", err, evalErrs)
	}
	f, ok := d.Frame("b")
	if !ok {
		t.Fatal("frame b missing")
	}
	if f.Bent.Y != 6000 || f.Bent.PostHeight != 3000 {
		t.Errorf("bent y=%g post height=%g", f.Bent.Y, f.Bent.PostHeight)
	}
}

func TestEvaluateFreshSandbox(t *testing.T) {
	eng := NewEngine()
	if _, evalErrs, err := eng.Evaluate(`(def span 4000) (bent)`); err != nil || len(evalErrs) > 0 {
		t.Fatalf("first run: err=%v evalErrs=%v", err, evalErrs)
	}
	// Names and definitions do not carry over between runs.
	d, evalErrs, err := eng.Evaluate(`(bent)`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("second run: err=%v evalErrs=%v", err, evalErrs)
	}
	if d.Frames[0].Name != "bent1" {
		t.Errorf("name = %q, want bent1", d.Frames[0].Name)
	}
	if _, evalErrs, _ := eng.Evaluate(`(bent :beam-length span)`); len(evalErrs) == 0 {
		t.Error("span leaked from an earlier run")
	}
}

func TestEvaluateErrorLine(t *testing.T) {
	src := "(bent \"a\")\n(bent \"b\"\n"
	_, evalErrs, err := NewEngine().Evaluate(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected a parse error")
	}
	// zygomys reports parse positions for unterminated lists only in some
	// versions; when it does, the line must be within the script.
	if l := evalErrs[0].Line; l < 0 || l > 3 {
		t.Errorf("line = %d for a three-line script", l)
	}
}

func TestEvaluateWarnings(t *testing.T) {
	res, err := NewEngine().EvaluateResult("(+ 1 2)")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "no frames") {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	eng := NewEngine()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	designs := make([]*Design, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			designs[i], _, errs[i] = eng.Evaluate(`(bent "front")`)
		}()
	}
	wg.Wait()
	for i, err := range errs {
		switch {
		case errors.Is(err, ErrSuperseded):
		case err != nil:
			t.Errorf("run %d: %v", i, err)
		case designs[i] == nil || len(designs[i].Frames) != 1:
			t.Errorf("run %d: design = %+v", i, designs[i])
		}
	}
}

// --- Waiting ---

func TestAwait(t *testing.T) {
	design := &Design{Frames: []FrameSpec{{Name: "front"}}}

	t.Run("result", func(t *testing.T) {
		e := NewEngine()
		gen := e.generation.Add(1)
		done := make(chan outcome, 1)
		done <- outcome{res: EvalResult{Design: design}}
		res, err := e.await(context.Background(), gen, done)
		if err != nil || res.Design != design {
			t.Errorf("await = %+v, %v", res, err)
		}
	})

	t.Run("superseded", func(t *testing.T) {
		e := NewEngine()
		gen := e.generation.Add(1)
		e.generation.Add(1)
		done := make(chan outcome, 1)
		done <- outcome{res: EvalResult{Design: design}}
		if _, err := e.await(context.Background(), gen, done); !errors.Is(err, ErrSuperseded) {
			t.Errorf("error = %v, want ErrSuperseded", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		e := NewEngine(WithTimeout(20 * time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := e.await(ctx, e.generation.Add(1), make(chan outcome))
		if !errors.Is(err, ErrTimeout) || !strings.Contains(err.Error(), "20ms") {
			t.Errorf("error = %v, want ErrTimeout after 20ms", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		e := NewEngine()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := e.await(ctx, e.generation.Add(1), make(chan outcome)); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("panic", func(t *testing.T) {
		e := NewEngine()
		gen := e.generation.Add(1)
		done := make(chan outcome, 1)
		done <- outcome{err: errors.New("engine: panic during evaluation: boom")}
		if _, err := e.await(context.Background(), gen, done); err == nil {
			t.Error("panic outcome lost")
		}
	})
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	if e := NewEngine(WithTimeout(0)); e.timeout != DefaultTimeout {
		t.Errorf("timeout = %s, want %s", e.timeout, DefaultTimeout)
	}
	if e := NewEngine(WithTimeout(time.Second)); e.timeout != time.Second {
		t.Errorf("timeout = %s", e.timeout)
	}
}

func TestEvaluateContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Either the run wins the race or the cancellation does; a canceled
	// run must never hand back a half-built design.
	res, err := NewEngine().EvaluateContext(ctx, `(bent "front")`)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v", err)
		}
		if res.Design != nil {
			t.Error("design returned with an error")
		}
	}
}

// --- Error messages ---

func TestScriptErrors(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantCol  int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, 0, "unexpected token"},
		{"lower case", "error on line 12: missing paren", 12, 0, "missing paren"},
		{"builtin failure", "line 3: bent: unknown keyword :height", 3, 0, "bent: unknown keyword :height"},
		{"with column", "line 4, col 9: brace: angle 95 must be in (0, 90)", 4, 9, "brace: angle 95"},
		{"position on a later line", "Error calling 'barn'\nline 7: barn: frame \"shed\" already defined", 7, 0, "already defined"},
		{"no position", "some generic error", 0, 0, "some generic error"},
		{"leading blank lines", "\n\n  material: unknown grade \"oak\"\n  at top level", 0, 0, "unknown grade"},
		{"empty", "   ", 0, 0, "evaluation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := scriptErrors(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1", len(errs))
			}
			e := errs[0]
			if e.Line != tt.wantLine || e.Col != tt.wantCol {
				t.Errorf("position = %d:%d, want %d:%d", e.Line, e.Col, tt.wantLine, tt.wantCol)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	tests := []struct {
		err  EvalError
		want string
	}{
		{EvalError{Line: 5, Message: "bent: unknown keyword :height"}, "line 5: bent: unknown keyword :height"},
		{EvalError{Line: 2, Col: 7, Message: "unexpected )"}, "line 2:7: unexpected )"},
		{EvalError{Message: "no location"}, "no location"},
		{EvalError{Col: 3, Message: "column without line"}, "column without line"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
