package commands

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// tableData is an ad-hoc table.
type tableData struct {
	headers []string
	rows    [][]string
}

func newTableData(headers ...string) *tableData {
	return &tableData{headers: headers, rows: make([][]string, 0)}
}

func (t *tableData) addRow(row ...string) {
	t.rows = append(t.rows, row)
}

// printTable writes t as a borderless, left-aligned table.
func printTable(w io.Writer, t *tableData) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(t.headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(t.rows)
	table.Render()
}
