package statement_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/stash/internal/importer/statement"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParser_CGDConta(t *testing.T) {
	csv := `Consultar saldos e movimentos à ordem - 31-01-2026;"=""0000"""
Nome cliente;JOHN DOE

Dados da conta
Conta;0000 - EUR - Conta Extracto
Saldo contabilístico;1.000,00 EUR

Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;INSTITUTO GESTAO FINA;-588,74;48.825,46
09-01-2026;09-01-2026;TFI Wise #car;8.608,52;52.532,78
`

	txs, err := statement.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, date(2026, 1, 30), txs[0].Date)
	assert.Equal(t, "INSTITUTO GESTAO FINA", txs[0].ImportedDescription)
	assert.Equal(t, int64(-58874), txs[0].Amount)
	assert.Empty(t, txs[0].Notes)

	assert.Equal(t, date(2026, 1, 9), txs[1].Date)
	assert.Equal(t, "TFI Wise #car", txs[1].ImportedDescription)
	assert.Equal(t, int64(860852), txs[1].Amount)
}

func TestParser_CGDExtrato(t *testing.T) {
	csv := `Consultar extrato - 15-02-2026 : 0000
NIF ;500000000
Intervalo de ;01-02-2026 a 14-02-2026

Data mov. ;Data valor ;Origem ;Descrição ;Movimento ;Estorno ;Saldo contabilístico após movimento ;
13-02-2026;13-02-2026;"=""0003""";PAGAMENTO TSU ;-608,13;  ;41.393,66;
04-02-2026;04-02-2026;SIBS ;TFI Wise ;4.324,06;  ;51.302,85;
`

	txs, err := statement.NewParser(statement.CGD...).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "PAGAMENTO TSU", txs[0].ImportedDescription)
	assert.Equal(t, int64(-60813), txs[0].Amount)
	assert.Equal(t, int64(432406), txs[1].Amount)
}

func TestParser_CGDCartao(t *testing.T) {
	csv := `Consultar saldos e movimentos de cartões - 15-02-2026
Desde ;15/12/2025

Data ;Data valor ;Descrição ;Débito ;Crédito ;
16-12-2025 ;14-12-2025 ;PA GONDOMAR         GONDOMAR ;64,00 ; ;
31-12-2025 ;29-12-2025 ;REFUND AMAZON ; ;25,00 ;
 ; ; ; ;Página 1/2 ;
`

	txs, err := statement.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, date(2025, 12, 16), txs[0].Date)
	assert.Equal(t, "PA GONDOMAR         GONDOMAR", txs[0].ImportedDescription)
	assert.Equal(t, int64(-6400), txs[0].Amount)

	assert.Equal(t, int64(2500), txs[1].Amount)
}

func TestParser_Generic(t *testing.T) {
	type testCase struct {
		name       string
		csv        string
		wantAmount []int64
		wantDesc   []string
	}

	tests := []testCase{
		{
			name: "SignedAmount",
			csv: `Date,Description,Amount
2026-03-01,"Paycheck, March #car",500.00
2026-03-02,Transfer out #car,"-1,200.50"
`,
			wantAmount: []int64{50000, -120050},
			wantDesc:   []string{"Paycheck, March #car", "Transfer out #car"},
		},
		{
			name: "OutflowInflow",
			csv: "Date\tDescription\tOutflow\tInflow\n" +
				"2026-03-01\tGroceries\t$45.10\t\n" +
				"2026-03-03\tRefund #trip\t\t$12.00\n",
			wantAmount: []int64{-4510, 1200},
			wantDesc:   []string{"Groceries", "Refund #trip"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := statement.NewParser(statement.Generic...).Parse(strings.NewReader(tt.csv))
			require.NoError(t, err)
			require.Len(t, txs, len(tt.wantAmount))

			for i := range txs {
				assert.Equal(t, tt.wantAmount[i], txs[i].Amount)
				assert.Equal(t, tt.wantDesc[i], txs[i].ImportedDescription)
			}
		})
	}
}

func TestParser_Latin1Encoding(t *testing.T) {
	utf8CSV := "Data mov.;Descrição;Montante\n30-01-2026;CAFÉ CENTRAL;-10,00\n"

	latin1Bytes, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	txs, err := statement.NewParser().Parse(bytes.NewReader(latin1Bytes))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, "CAFÉ CENTRAL", txs[0].ImportedDescription)
}

func TestParser_DifferentColumnOrder(t *testing.T) {
	csv := `Random;MetaData
Montante;Descrição;Data mov.;Ignored
-10,00;TEST_ORDER;30-01-2026;XXX
`

	txs, err := statement.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, "TEST_ORDER", txs[0].ImportedDescription)
	assert.Equal(t, int64(-1000), txs[0].Amount)
}

func TestParser_Errors(t *testing.T) {
	type testCase struct {
		name    string
		csv     string
		wantErr string
	}

	tests := []testCase{
		{name: "EmptyFile", csv: "", wantErr: "no matching statement format"},
		{name: "UnknownHeaders", csv: "When;What;HowMuch\n", wantErr: "no matching statement format"},
		{name: "MissingDescription", csv: "Data mov.;Descrição;Montante\n30-01-2026;;-10,00\n", wantErr: "row 2: missing description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := statement.NewParser().Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_SkipsNonTransactionRows(t *testing.T) {
	csv := `Data mov.;Descrição;Montante
30-01-2026;TEST;-10,00
30-01-2026;ZERO;0,00
Totais;;;;
`

	txs, err := statement.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestParser_HeaderOnly(t *testing.T) {
	txs, err := statement.NewParser().Parse(strings.NewReader(`Data mov.;Data-valor;Descrição;Montante`))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestParser_LargeAmounts(t *testing.T) {
	csv := `Data mov.;Descrição;Montante
30-01-2026;BIG TRANSFER;-1.234.567,89
`

	txs, err := statement.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, int64(-123456789), txs[0].Amount)
}
