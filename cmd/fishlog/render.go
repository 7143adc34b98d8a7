package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"fishingCatchesLogger/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func renderRecords(recs []models.Record) string {
	if len(recs) == 0 {
		return dimStyle.Render("no records")
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := []string{strconv.FormatInt(r.ID, 10), string(r.Kind), models.FormatTimestamp(r.Timestamp), num(r.Weight), "", "", ""}
		if r.Catch != nil {
			row[4], row[5] = num(r.Catch.Latitude), num(r.Catch.Longitude)
		}
		if r.Sell != nil {
			row[6] = num(r.Sell.Revenue)
		}
		rows = append(rows, row)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		}).
		Headers("ID", "KIND", "TIMESTAMP", "WEIGHT", "LAT", "LON", "REVENUE").
		Rows(rows...).
		String()
}

func renderStock(total float64) string {
	return titleStyle.Render("stock") + " " + num(total)
}
