package app

import (
	"charm.land/bubbles/v2/table"

	"payadmin/internal/types"
)

const (
	referenceColumnWidth = 14
	typeColumnWidth      = 14
	amountColumnWidth    = 18
	statusColumnWidth    = 16
	createdColumnWidth   = 17
	minCustomerWidth     = 12
	// each column carries one cell of padding on both sides
	columnPadding = 2
)

func newTransferTable() table.Model {
	t := table.New(
		table.WithColumns(transferColumns(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeLines),
	)
	styles := table.DefaultStyles()
	styles.Header = tableHeaderStyle
	styles.Cell = tableCellStyle
	styles.Selected = selectedStyle
	t.SetStyles(styles)
	return t
}

// transferColumns gives the customer column whatever width the fixed
// columns leave over.
func transferColumns(width int) []table.Column {
	fixed := referenceColumnWidth + typeColumnWidth + amountColumnWidth + statusColumnWidth + createdColumnWidth
	customer := max(width-fixed-6*columnPadding, minCustomerWidth)
	return []table.Column{
		{Title: "Reference", Width: referenceColumnWidth},
		{Title: "Customer", Width: customer},
		{Title: "Type", Width: typeColumnWidth},
		{Title: "Amount", Width: amountColumnWidth},
		{Title: "Status", Width: statusColumnWidth},
		{Title: "Created", Width: createdColumnWidth},
	}
}

func transferRows(items []*types.Transfer) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, transfer := range items {
		rows = append(rows, transferRow(transfer))
	}
	return rows
}

func transferRow(t *types.Transfer) table.Row {
	customer := ""
	if t.User != nil {
		customer = cleanLine(t.User.DisplayName())
	}
	if customer == "" {
		customer = cleanLine(t.UserID)
	}
	reference := cleanLine(t.Reference)
	if reference == "" {
		reference = cleanLine(t.ID)
	}
	created := ""
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	return table.Row{
		reference,
		customer,
		t.Type.Label(),
		formatAmount(t.Amount.StringFixed(amountPlaces), t.Currency),
		t.Status.Label(),
		created,
	}
}
