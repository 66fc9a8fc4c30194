package tagging

import (
	"time"

	"github.com/google/uuid"
)

// Rule tags imported lines whose bank text contains RawPattern, ignoring case.
type Rule struct {
	ID         uuid.UUID
	RawPattern string
	Tag        string // without the leading '#'
	CreatedAt  time.Time
}
