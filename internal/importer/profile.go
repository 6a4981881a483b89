package importer

// decimalStyle says how amount cells spell the decimal separator.
type decimalStyle int

const (
	// decimalAuto picks the separator per cell: the last of '.' or ',' wins.
	decimalAuto decimalStyle = iota
	// decimalComma means "1.234,56".
	decimalComma
)

// Profile describes the column layout of an expense CSV export.
type Profile struct {
	Name        string
	DateCol     string
	DescCol     string
	AmountCol   string
	CategoryCol string // optional
	DateLayouts []string
	Decimal     decimalStyle
	// DebitsOnly keeps only negative amounts, flipping their sign. Bank
	// statements mix income and spending in one signed column.
	DebitsOnly bool
}

func (p Profile) requiredCols() []string {
	return []string{p.DateCol, p.DescCol, p.AmountCol}
}

// profiles is tried in order; header names are compared case-insensitively.
var profiles = []Profile{
	{
		Name:        "expenses",
		DateCol:     "date",
		DescCol:     "description",
		AmountCol:   "amount",
		CategoryCol: "category",
		DateLayouts: []string{"2006-01-02", "01/02/2006", "1/2/2006", "02-01-2006"},
		Decimal:     decimalAuto,
	},
	{
		Name:        "cgd",
		DateCol:     "data mov.",
		DescCol:     "descrição",
		AmountCol:   "montante",
		DateLayouts: []string{"02-01-2006"},
		Decimal:     decimalComma,
		DebitsOnly:  true,
	},
}
