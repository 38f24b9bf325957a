package ir

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// spillRoundKSUIDThreshold is the spill-rewrite round count past which the
// plain monotone counter alone is no longer trusted to avoid colliding
// with a user identifier reused across rewrite rounds (spec.md §4.6's
// rewrite step re-runs allocation from the top on every spill, so a
// pathological function can cycle through many rounds).
const spillRoundKSUIDThreshold = 3

// FreshSpillName names a spill-rewrite or phi-lowering copy temporary.
// Below the round threshold a short counter is enough, matching the
// builder's own temp/label naming; at or past it, a KSUID fragment is
// appended so names stay collision-free without needing a global registry
// of everything minted so far.
func FreshSpillName(prefix string, n, round int) string {
	if round < spillRoundKSUIDThreshold {
		return fmt.Sprintf("%%%s.%d", prefix, n)
	}
	return fmt.Sprintf("%%%s.%d.%s", prefix, n, ksuid.New().String()[:8])
}
