package okr

import (
	"fmt"

	"github.com/google/uuid"
)

// NewObjectiveID generates a unique objective identifier with a stable prefix
// for display and logging.
func NewObjectiveID() string {
	return newIdentifier("obj")
}

// NewKeyResultID generates a unique key result identifier.
func NewKeyResultID() string {
	return newIdentifier("kr")
}

func newIdentifier(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
