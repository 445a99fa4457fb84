package main

import (
	"encoding/json"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type column struct {
	title string
	align text.Align
}

var (
	fieldColumns  = []column{{title: "Field"}, {title: "Value"}}
	heightColumns = []column{{title: "Block Height", align: text.AlignRight}}
	assetColumns  = []column{{title: "Asset"}}
)

// renderTable pads short rows and drops cells beyond the column count.
func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render() + "\n"
}

func renderFields(rows [][]string) string {
	return renderTable(fieldColumns, rows)
}

func renderHeights(heights []int64) string {
	rows := make([][]string, 0, len(heights))
	for _, height := range heights {
		rows = append(rows, []string{strconv.FormatInt(height, 10)})
	}
	return renderTable(heightColumns, rows)
}

func renderAssets(names []string) string {
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name})
	}
	return renderTable(assetColumns, rows)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
