package importer

import (
	"io"

	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

// Format selects which statement layouts are tried.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatCGD     Format = "cgd"
	FormatGeneric Format = "generic"
)

type Parser interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}
