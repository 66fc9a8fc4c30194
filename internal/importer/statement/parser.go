// Package statement parses bank CSV exports into ledger lines.
package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/stash/internal/encoding"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

// Parser reads a CSV export, finds the header row of the first matching
// profile and returns one CreateParams per booked line. The bank text is
// kept in ImportedDescription so goal tags in it are picked up later.
type Parser struct {
	profiles []Profile
}

// NewParser tries profiles in order. With none given, All is used.
func NewParser(profiles ...Profile) *Parser {
	if len(profiles) == 0 {
		profiles = All()
	}

	return &Parser{profiles: profiles}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, _, err := encoding.ToUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := p.detect(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching statement format found")
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

// sniffDelimiter picks the most frequent of ';', ',' and tab in the first
// lines of data. Ties go to ';'.
func sniffDelimiter(data []byte) rune {
	lines := bytes.SplitN(data, []byte("\n"), 30)

	best, bestCount := ';', 0

	for _, d := range []rune{';', ',', '\t'} {
		n := 0
		for _, l := range lines {
			n += bytes.Count(l, []byte(string(d)))
		}

		if n > bestCount {
			best, bestCount = d, n
		}
	}

	return best
}

type colIndex map[string]int

func (p *Parser) detect(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range p.profiles {
			if matchesProfile(&p.profiles[i], cols) {
				return &p.profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows skips rows without a parseable date or a non-zero amount, which
// covers blank lines and page footers. headerRowNum is 0-based.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]transaction.CreateParams, error) {
	dateIdx := cols[p.DateCol]
	descIdx := cols[p.DescCol]

	txs := []transaction.CreateParams{}

	for i, row := range rows {
		rowNum := headerRowNum + i + 1

		date, ok := parseDate(cellValue(row, dateIdx), p.DateLayouts)
		if !ok {
			continue
		}

		amount, ok := rowAmount(p, cols, row)
		if !ok {
			continue
		}

		desc := cellValue(row, descIdx)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		txs = append(txs, transaction.CreateParams{
			Amount:              amount,
			Date:                date,
			ImportedDescription: desc,
		})
	}

	return txs, nil
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func rowAmount(p *Profile, cols colIndex, row []string) (int64, bool) {
	switch p.AmountMode {
	case amountSingle:
		return cellCents(row, cols[p.AmountCol], p.Numbers)
	case amountSplit:
		if cents, ok := cellCents(row, cols[p.DebitCol], p.Numbers); ok {
			return -abs(cents), true
		}

		if cents, ok := cellCents(row, cols[p.CreditCol], p.Numbers); ok {
			return abs(cents), true
		}
	}

	return 0, false
}

func cellCents(row []string, idx int, f numberFormat) (int64, bool) {
	s := cellValue(row, idx)
	if s == "" {
		return 0, false
	}

	cents, err := parseCents(s, f)
	if err != nil || cents == 0 {
		return 0, false
	}

	return cents, true
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
