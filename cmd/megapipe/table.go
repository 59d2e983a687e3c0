package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// errorColumnWidth bounds the error column; longer messages wrap.
const errorColumnWidth = 72

type column struct {
	title    string
	align    text.Align
	maxWidth int
}

var (
	stagesColumns = []column{
		{title: "Stage", align: text.AlignLeft, maxWidth: 0},
		{title: "Input", align: text.AlignLeft, maxWidth: 0},
		{title: "Output", align: text.AlignLeft, maxWidth: 0},
		{title: "Description", align: text.AlignLeft, maxWidth: 0},
	}
	runColumns = []column{
		{title: "Stage", align: text.AlignLeft, maxWidth: 0},
		{title: "Processed", align: text.AlignRight, maxWidth: 0},
		{title: "Skipped", align: text.AlignRight, maxWidth: 0},
		{title: "Failed", align: text.AlignRight, maxWidth: 0},
	}
	syncColumns = []column{
		{title: "Sync", align: text.AlignLeft, maxWidth: 0},
		{title: "Kind", align: text.AlignLeft, maxWidth: 0},
		{title: "Transferred", align: text.AlignRight, maxWidth: 0},
		{title: "Failed", align: text.AlignRight, maxWidth: 0},
	}
	failureColumns = []column{
		{title: "Item", align: text.AlignLeft, maxWidth: 0},
		{title: "Retryable", align: text.AlignLeft, maxWidth: 0},
		{title: "Error", align: text.AlignLeft, maxWidth: errorColumnWidth},
	}
)

// renderTable lays rows out under columns; missing cells render empty.
func renderTable(columns []column, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))

	for index, col := range columns {
		header = append(header, col.title)
		configs = append(configs, table.ColumnConfig{
			Number:           index + 1,
			Align:            col.align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         col.maxWidth,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}

	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for index := range row {
			row[index] = ""
			if index < len(cells) {
				row[index] = cells[index]
			}
		}

		tw.AppendRow(row)
	}

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}

	fd := file.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(enabled bool, value string, colors text.Colors) string {
	if !enabled || value == "" {
		return value
	}

	return colors.Sprint(value)
}
