package joint

import (
	"fmt"
	"math"

	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
)

// MortiseClearance is the default gap left around an inserted member when
// the receiving member is cut.
const MortiseClearance = 0.2

// ReceivingCut removes the placed solid of an inserted member from the
// receiving member, grown by margin on every side. A margin of zero or
// less cuts the exact solid. The receiver's placement is not touched.
func ReceivingCut(k kernel.Kernel, receiving *timber.Timber, name string, insert kernel.Solid, margin float64) {
	if margin > 0 {
		insert = k.Offset(insert, margin)
	}
	receiving.AddFeature(timber.Feature{
		Name:  name,
		Frame: timber.FrameWorld,
		Solid: insert,
	})
}

// BlindMortiseOffset is how far a tenoned member sits back from the far
// face of a receiver of the given depth: the wood left behind the tenon
// once the housing and the tenon itself are taken out.
func BlindMortiseOffset(receiverDepth, housing, tenonLen float64) (float64, error) {
	off := receiverDepth - housing - tenonLen
	if !(off > 0) {
		return 0, fmt.Errorf("joint: blind mortise: %w", timber.Invalid(timber.CodeBlindOffset,
			"receiver depth %g leaves no wood behind housing %g and tenon %g", receiverDepth, housing, tenonLen))
	}
	return off, nil
}

// ExtendUp sweeps s upward by height using copies stacked at most step
// apart, so the result covers every position between. It is used to open
// a mortise through the top of a post.
func ExtendUp(k kernel.Kernel, s kernel.Solid, height, step float64) kernel.Solid {
	if height <= 0 || step <= 0 {
		return s
	}
	n := int(math.Ceil(height / step))
	out := s
	for i := 1; i <= n; i++ {
		out = k.Union(out, k.Translate(s, 0, 0, height*float64(i)/float64(n)))
	}
	return out
}
