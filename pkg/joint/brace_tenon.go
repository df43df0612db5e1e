package joint

import (
	"fmt"
	"math"

	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
)

// BraceTenonParams sizes a tenon on a brace that will be tilted by Angle
// degrees from horizontal. Zero Width and Height default to a third and two
// thirds of the brace section.
type BraceTenonParams struct {
	Angle  float64
	Width  float64
	Height float64
	Length float64
	End    End
}

// BraceShoulderDepth is the shoulder a brace of the given height needs to
// sit flush at angle degrees, limited so tenon and shoulder together stay
// within a third of the brace length.
func BraceShoulderDepth(height, length, tenonLen, angle float64) float64 {
	sd := height * math.Tan(angle*math.Pi/180)
	if limit := length / 3; sd+tenonLen > limit {
		sd = math.Max(1, limit-tenonLen)
	}
	return sd
}

// BraceTenon cuts a shouldered tenon on a horizontal, unplaced brace. The
// shoulder depth follows from the angle.
func BraceTenon(k kernel.Kernel, t *timber.Timber, p BraceTenonParams) (*ShoulderedTenonResult, error) {
	if !(p.Angle > 0 && p.Angle < 90) {
		return nil, fmt.Errorf("joint: brace tenon: %w", partErr(t, timber.Invalid(timber.CodeAngleRange,
			"brace angle %g must be in (0, 90)", p.Angle)))
	}
	w, h := p.Width, p.Height
	if w == 0 {
		w = t.Width / 3
	}
	if h == 0 {
		h = t.Height * 2 / 3
	}
	res, err := ShoulderedTenon(k, t, ShoulderedTenonParams{
		Width:         w,
		Height:        h,
		Length:        p.Length,
		ShoulderDepth: BraceShoulderDepth(t.Height, t.Length, p.Length, p.Angle),
		End:           p.End,
	})
	if err != nil {
		return nil, fmt.Errorf("joint: brace tenon: %w", err)
	}
	return res, nil
}
