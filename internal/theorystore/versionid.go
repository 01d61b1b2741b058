package theorystore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newVersionID produces a monotonically-ordered, globally unique version
// identifier: a millisecond timestamp prefix (for lexical/time ordering
// across the lineage index) plus a random suffix to break ties between
// versions minted in the same millisecond.
func newVersionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
