package engine

import (
	"fmt"
	"slices"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/jopdorp/timberframe/pkg/analysis"
	"github.com/jopdorp/timberframe/pkg/fem/calculix"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/samber/lo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. Keywords become tagged strings: :post-height -> "__kw_post-height".
//     Keywords then never collide with user variables.
//
//  2. Kebab-case identifiers become underscores: bent-spacing -> bent_spacing.
//     zygomys reads a hyphen inside a symbol as subtraction.
//
//  3. ; line comments become // comments.
//
// String literals are left alone. Newlines are preserved so error line
// numbers still match the original source.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// := is assignment.
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not
		// a minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values between builtins
// ---------------------------------------------------------------------------

type sexpJoint struct {
	params frame.JointParams
}

func (j *sexpJoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(joint :tenon-length %g :clearance %g)", j.params.TenonLength, j.params.Clearance)
}
func (j *sexpJoint) Type() *zygo.RegisteredType { return nil }

type sexpBrace struct {
	params frame.BraceParams
}

func (b *sexpBrace) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(brace :section %g :angle %g)", b.params.Section, b.params.Angle)
}
func (b *sexpBrace) Type() *zygo.RegisteredType { return nil }

type sexpMaterial struct {
	mat calculix.Material
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", strings.ToLower(m.mat.Name))
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpFrameRef is what bent and barn return.
type sexpFrameRef struct {
	name string
	kind FrameKind
}

func (f *sexpFrameRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", f.kind, f.name)
}
func (f *sexpFrameRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name if s is a preprocessed keyword.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword acts as a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// setter stores one keyword value.
type setter func(zygo.Sexp) error

// apply runs the setter for every keyword in pa, in sorted keyword order.
// Unknown keywords are errors.
func (pa kwArgs) apply(fn string, setters map[string]setter) error {
	keys := lo.Keys(pa.kw)
	slices.Sort(keys)
	for _, k := range keys {
		set, ok := setters[k]
		if !ok {
			return fmt.Errorf("%s: unknown keyword :%s", fn, k)
		}
		if err := set(pa.kw[k]); err != nil {
			return fmt.Errorf("%s: %s: %w", fn, k, err)
		}
	}
	return nil
}

func setFloat(dst *float64) setter {
	return func(s zygo.Sexp) error {
		f, err := toFloat64(s)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setInt(dst *int) setter {
	return func(s zygo.Sexp) error {
		f, err := toFloat64(s)
		if err != nil {
			return err
		}
		if f != float64(int(f)) {
			return fmt.Errorf("expected integer, got %g", f)
		}
		*dst = int(f)
		return nil
	}
}

func setBool(dst *bool) setter {
	return func(s zygo.Sexp) error {
		v, err := toBool(s)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setString(dst *string) setter {
	return func(s zygo.Sexp) error {
		v, err := toKeywordString(s)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func setJoint(dst *frame.JointParams) setter {
	return func(s zygo.Sexp) error {
		j, ok := s.(*sexpJoint)
		if !ok {
			return fmt.Errorf("expected (joint ...), got %s", describe(s))
		}
		*dst = j.params
		return nil
	}
}

// setBrace accepts (brace ...) or a false value, which removes the braces.
func setBrace(dst **frame.BraceParams) setter {
	return func(s zygo.Sexp) error {
		if b, ok := s.(*sexpBrace); ok {
			p := b.params
			*dst = &p
			return nil
		}
		on, err := toBool(s)
		if err != nil {
			return fmt.Errorf("expected (brace ...) or false, got %s", describe(s))
		}
		if on {
			if *dst == nil {
				p := frame.DefaultBraceParams()
				*dst = &p
			}
			return nil
		}
		*dst = nil
		return nil
	}
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func describe(s zygo.Sexp) string {
	if s == nil {
		return "nil"
	}
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a SexpInt or SexpFloat.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", describe(s))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", describe(s))
}

// toKeywordString accepts a keyword (:strict) or a plain string ("strict").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %s", describe(s))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool accepts true/false, numbers (non-zero is true), nil, and the
// keywords or strings yes/no/on/off.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	case *zygo.SexpStr:
		switch strings.ToLower(strings.TrimPrefix(v.S, kwPrefix)) {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %s", describe(s))
}

// frameName returns the first positional argument as a name, or "".
func frameName(fn string, pa kwArgs) (string, error) {
	switch len(pa.positional) {
	case 0:
		return "", nil
	case 1:
		name, err := toString(pa.positional[0])
		if err != nil {
			return "", fmt.Errorf("%s: name: %w", fn, err)
		}
		return name, nil
	default:
		return "", fmt.Errorf("%s: expected at most one name, got %d positional arguments", fn, len(pa.positional))
	}
}

// ---------------------------------------------------------------------------
// Design builder
// ---------------------------------------------------------------------------

// builder collects what the builtins declare during one evaluation.
type builder struct {
	design   *Design
	warnings []EvalWarning
	unnamed  map[FrameKind]int
	analyses int
}

func newBuilder() *builder {
	return &builder{design: &Design{}, unnamed: map[FrameKind]int{}}
}

func (b *builder) addFrame(f FrameSpec) error {
	if f.Name == "" {
		b.unnamed[f.Kind]++
		f.Name = fmt.Sprintf("%s%d", f.Kind, b.unnamed[f.Kind])
		if f.Kind == KindBent {
			f.Bent.Name = f.Name
		}
	}
	if _, dup := b.design.Frame(f.Name); dup {
		return fmt.Errorf("%s: frame %q already defined", f.Kind, f.Name)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%s %q: %w", f.Kind, f.Name, err)
	}
	b.design.Frames = append(b.design.Frames, f)
	return nil
}

func (b *builder) warn(frame, format string, args ...any) {
	b.warnings = append(b.warnings, EvalWarning{Frame: frame, Message: fmt.Sprintf(format, args...)})
}

// finish adds the whole-design warnings and returns all warnings.
func (b *builder) finish() []EvalWarning {
	if len(b.design.Frames) == 0 {
		b.warn("", "script declares no frames")
	}
	if b.analyses > 1 {
		b.warn("", "analysis declared %d times, the last one wins", b.analyses)
	}
	for _, f := range b.design.Frames {
		if f.Kind == KindBarn && !f.Barn.IncludeGirts && f.Barn.IncludeGirtBraces {
			b.warn(f.Name, "girt braces need girts and are skipped")
		}
	}
	return b.warnings
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the frame builtins into env. They record into
// b. Source must go through preprocessSource first so keywords arrive as
// tagged strings.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (joint :tenon-length 60 :clearance 0.5 ...)
	// -----------------------------------------------------------------------
	env.AddFunction("joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		jp := frame.DefaultJointParams()
		err := pa.apply("joint", map[string]setter{
			"tenon-length":       setFloat(&jp.TenonLength),
			"tenon-width-ratio":  setFloat(&jp.TenonWidthRatio),
			"tenon-height-ratio": setFloat(&jp.TenonHeightRatio),
			"shoulder-depth":     setFloat(&jp.ShoulderDepth),
			"housing-depth":      setFloat(&jp.HousingDepth),
			"post-top-extension": setFloat(&jp.PostTopExtension),
			"clearance":          setFloat(&jp.Clearance),
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := jp.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: %w", err)
		}
		return &sexpJoint{params: jp}, nil
	})

	// -----------------------------------------------------------------------
	// (brace :section 100 :distance-from-post 500 :angle 45)
	// -----------------------------------------------------------------------
	env.AddFunction("brace", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bp := frame.DefaultBraceParams()
		err := pa.apply("brace", map[string]setter{
			"section":            setFloat(&bp.Section),
			"length":             setFloat(&bp.Length),
			"distance-from-post": setFloat(&bp.DistanceFromPost),
			"angle":              setFloat(&bp.Angle),
			"tenon-length":       setFloat(&bp.TenonLength),
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := bp.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("brace: %w", err)
		}
		return &sexpBrace{params: bp}, nil
	})

	// -----------------------------------------------------------------------
	// (material "c24")  or  (material :name :d30)
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var matName string
		if len(pa.positional) > 0 {
			s, err := toKeywordString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: %w", err)
			}
			matName = s
		}
		if err := pa.apply("material", map[string]setter{"name": setString(&matName)}); err != nil {
			return zygo.SexpNull, err
		}
		if matName == "" {
			return zygo.SexpNull, fmt.Errorf("material requires a name")
		}
		m, err := calculix.MaterialByName(matName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: %w", err)
		}
		return &sexpMaterial{mat: m}, nil
	})

	// -----------------------------------------------------------------------
	// (bent "front" :post-height 3000 :beam-length 5000 :brace (brace ...))
	// -----------------------------------------------------------------------
	env.AddFunction("bent", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fname, err := frameName("bent", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		c := frame.DefaultBentConfig()
		c.Name = fname
		err = pa.apply("bent", map[string]setter{
			"y":            setFloat(&c.Y),
			"post-height":  setFloat(&c.PostHeight),
			"post-section": setFloat(&c.PostSection),
			"beam-length":  setFloat(&c.BeamLength),
			"beam-section": setFloat(&c.BeamSection),
			"joint":        setJoint(&c.Joint),
			"brace":        setBrace(&c.Brace),
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		spec := FrameSpec{Name: fname, Kind: KindBent, Bent: c}
		if err := b.addFrame(spec); err != nil {
			return zygo.SexpNull, err
		}
		last := b.design.Frames[len(b.design.Frames)-1]
		return &sexpFrameRef{name: last.Name, kind: KindBent}, nil
	})

	// -----------------------------------------------------------------------
	// (barn "shed" :num-bents 3 :bent-spacing 3000 :girts true ...)
	// -----------------------------------------------------------------------
	env.AddFunction("barn", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		fname, err := frameName("barn", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		c := frame.DefaultBarnConfig()
		err = pa.apply("barn", map[string]setter{
			"post-height":  setFloat(&c.PostHeight),
			"post-section": setFloat(&c.PostSection),
			"beam-length":  setFloat(&c.BeamLength),
			"beam-section": setFloat(&c.BeamSection),
			"bent-spacing": setFloat(&c.BentSpacing),
			"num-bents":    setInt(&c.NumBents),
			"girt-section": setFloat(&c.GirtSection),
			"joint":        setJoint(&c.Joint),
			"brace":        setBrace(&c.Brace),
			"girts":        setBool(&c.IncludeGirts),
			"bent-braces":  setBool(&c.IncludeBentBraces),
			"girt-braces":  setBool(&c.IncludeGirtBraces),
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		if c.Brace == nil {
			c.IncludeBentBraces, c.IncludeGirtBraces = false, false
		}
		if err := b.addFrame(FrameSpec{Name: fname, Kind: KindBarn, Barn: c}); err != nil {
			return zygo.SexpNull, err
		}
		last := b.design.Frames[len(b.design.Frames)-1]
		return &sexpFrameRef{name: last.Name, kind: KindBarn}, nil
	})

	// -----------------------------------------------------------------------
	// (analysis :mesh-size 50 :fine-mesh-size 20 :load 10000 :material (material "c24"))
	// -----------------------------------------------------------------------
	env.AddFunction("analysis", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("analysis takes only keyword arguments")
		}
		cfg := analysis.DefaultConfig()
		err := pa.apply("analysis", map[string]setter{
			"mesh-size":         setFloat(&cfg.MeshSize),
			"fine-mesh-size":    setFloat(&cfg.FineMeshSize),
			"refinement-margin": setFloat(&cfg.RefinementMargin),
			"prefilter-margin":  setFloat(&cfg.PrefilterMargin),
			"clearance":         setFloat(&cfg.Clearance),
			"contact-mode":      setString(&cfg.ContactMode),
			"load":              setFloat(&cfg.Load),
			"self-weight":       setBool(&cfg.SelfWeight),
			"output-dir":        setString(&cfg.OutputDir),
			"max-parallel":      setInt(&cfg.MaxParallel),
			"threads":           setInt(&cfg.Threads),
			"material": func(s zygo.Sexp) error {
				if m, ok := s.(*sexpMaterial); ok {
					cfg.Material = strings.ToLower(m.mat.Name)
					return nil
				}
				return setString(&cfg.Material)(s)
			},
		})
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := cfg.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("analysis: %w", err)
		}
		b.analyses++
		b.design.Analysis = &cfg
		return zygo.SexpNull, nil
	})
}
