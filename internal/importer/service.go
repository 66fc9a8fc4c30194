package importer

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/importer/statement"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

type Service struct {
	parsers map[Format]Parser
}

func NewService() *Service {
	return &Service{
		parsers: map[Format]Parser{
			FormatAuto:    statement.NewParser(),
			FormatCGD:     statement.NewParser(statement.CGD...),
			FormatGeneric: statement.NewParser(statement.Generic...),
		},
	}
}

// Import parses r and books every line against accountID, if given. An empty
// format means FormatAuto.
func (s *Service) Import(format Format, accountID *uuid.UUID, r io.Reader) ([]transaction.CreateParams, error) {
	if format == "" {
		format = FormatAuto
	}

	parser, ok := s.parsers[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	params, err := parser.Parse(r)
	if err != nil {
		return nil, err
	}

	for i := range params {
		params[i].AccountID = accountID
	}

	return params, nil
}
