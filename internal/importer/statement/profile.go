package statement

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle is one signed column, e.g. "Montante" holding "-10,00".
	amountSingle amountMode = iota
	// amountSplit is a pair of unsigned columns. Debits become negative.
	amountSplit
)

// numberFormat is the decimal convention of a statement's amounts.
type numberFormat int

const (
	// decimalComma is "1.234,56".
	decimalComma numberFormat = iota
	// decimalPoint is "1,234.56".
	decimalPoint
)

// Profile describes the column layout of a bank CSV export.
type Profile struct {
	Name        string
	DateCol     string
	DateLayouts []string
	DescCol     string
	AmountMode  amountMode
	AmountCol   string // amountSingle
	DebitCol    string // amountSplit
	CreditCol   string // amountSplit
	Numbers     numberFormat
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSingle:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

var cgdDate = []string{"02-01-2006"}

// CGD covers the Caixa Geral de Depósitos exports: card, statement and
// current account. Card comes first since its headers are the most specific.
var CGD = []Profile{
	{
		Name:        "cgd-cartao",
		DateCol:     "Data",
		DateLayouts: cgdDate,
		DescCol:     "Descrição",
		AmountMode:  amountSplit,
		DebitCol:    "Débito",
		CreditCol:   "Crédito",
		Numbers:     decimalComma,
	},
	{
		Name:        "cgd-extrato",
		DateCol:     "Data mov.",
		DateLayouts: cgdDate,
		DescCol:     "Descrição",
		AmountMode:  amountSingle,
		AmountCol:   "Movimento",
		Numbers:     decimalComma,
	},
	{
		Name:        "cgd-conta",
		DateCol:     "Data mov.",
		DateLayouts: cgdDate,
		DescCol:     "Descrição",
		AmountMode:  amountSingle,
		AmountCol:   "Montante",
		Numbers:     decimalComma,
	},
}

var genericDate = []string{"2006-01-02", "02/01/2006", "01/02/2006"}

// Generic covers plain English exports with either a signed amount or an
// outflow/inflow pair.
var Generic = []Profile{
	{
		Name:        "generic-split",
		DateCol:     "Date",
		DateLayouts: genericDate,
		DescCol:     "Description",
		AmountMode:  amountSplit,
		DebitCol:    "Outflow",
		CreditCol:   "Inflow",
		Numbers:     decimalPoint,
	},
	{
		Name:        "generic",
		DateCol:     "Date",
		DateLayouts: genericDate,
		DescCol:     "Description",
		AmountMode:  amountSingle,
		AmountCol:   "Amount",
		Numbers:     decimalPoint,
	},
}

// All is every known profile in detection order.
func All() []Profile {
	return append(append([]Profile{}, CGD...), Generic...)
}
