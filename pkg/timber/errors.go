package timber

import (
	"errors"
	"fmt"
)

// Validation codes.
const (
	CodeNonPositiveDimension = "NONPOSITIVE_DIMENSION"
	CodeTenonWidthRange      = "TENON_WIDTH_OUT_OF_RANGE"
	CodeTenonHeightRange     = "TENON_HEIGHT_OUT_OF_RANGE"
	CodeTenonLength          = "TENON_LENGTH_NONPOSITIVE"
	CodeShoulderDepth        = "SHOULDER_DEPTH_NONPOSITIVE"
	CodeTenonExceedsMember   = "TENON_EXCEEDS_MEMBER"
	CodeAngleRange           = "ANGLE_OUT_OF_RANGE"
	CodeBraceTooShort        = "BRACE_TOO_SHORT"
	CodeBlindOffset          = "BLIND_OFFSET_NONPOSITIVE"
)

// ErrDegenerateDirection is returned when an axis direction has zero length.
var ErrDegenerateDirection = errors.New("degenerate axis direction")

// ValidationError represents a geometric validation failure. It is raised
// at construction time; offending values are never clamped.
type ValidationError struct {
	Code    string
	Message string
	Part    string
}

func (e *ValidationError) Error() string {
	context := ""
	if e.Part != "" {
		context = fmt.Sprintf(" (part: %s)", e.Part)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

// Invalid builds a *ValidationError with a formatted message.
func Invalid(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err wraps a *ValidationError with the given code.
func HasCode(err error, code string) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Code == code
}
