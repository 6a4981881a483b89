package importer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/cnstrctnetwork/cnstrct/internal/importer"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParse_Expenses(t *testing.T) {
	csv := `Date,Description,Amount,Category
2026-03-01,Ready-mix concrete,1250.00,materials
2026-03-04,Crane hire,"1,800.50",equipment
03/09/2026,Site permit,75,
`

	rows, err := importer.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, date(2026, 3, 1), rows[0].Date)
	assert.Equal(t, "Ready-mix concrete", rows[0].Description)
	assert.Equal(t, int64(125000), rows[0].Amount)
	assert.Equal(t, "materials", rows[0].Category)

	assert.Equal(t, int64(180050), rows[1].Amount)

	assert.Equal(t, date(2026, 3, 9), rows[2].Date)
	assert.Equal(t, int64(7500), rows[2].Amount)
	assert.Empty(t, rows[2].Category)
}

func TestParse_SemicolonEuropeanAmounts(t *testing.T) {
	csv := "date;description;amount\n2026-02-10;Tijolos;1.234,56\n2026-02-11;Areia;10,00\n"

	rows, err := importer.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(123456), rows[0].Amount)
	assert.Equal(t, int64(1000), rows[1].Amount)
}

func TestParse_BankStatementKeepsDebits(t *testing.T) {
	csv := `Consultar saldos e movimentos à ordem - 31-01-2026
Nome cliente;JOHN DOE

Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;LEROY MERLIN;-588,74;48.825,46
09-01-2026;09-01-2026;TRANSFERENCIA CLIENTE;8.608,52;52.532,78
Saldo final;;;;
`

	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(csv))
	require.NoError(t, err)

	rows, err := importer.Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, date(2026, 1, 30), rows[0].Date)
	assert.Equal(t, "LEROY MERLIN", rows[0].Description)
	assert.Equal(t, int64(58874), rows[0].Amount)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr error
		errText string
	}{
		{
			name:    "No header",
			csv:     "foo,bar\n1,2\n",
			wantErr: importer.ErrNoHeader,
		},
		{
			name:    "Missing description",
			csv:     "date,description,amount\n2026-01-01,,10\n",
			errText: "row 2: missing description",
		},
		{
			name:    "Bad amount",
			csv:     "date,description,amount\n2026-01-01,Nails,ten\n",
			errText: "row 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importer.Parse(strings.NewReader(tt.csv))
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}
