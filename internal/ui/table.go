package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/jamx/internal/models"
)

// AdditionsTable renders additions newest first as a bordered table.
func AdditionsTable(additions []*models.Addition) string {
	if len(additions) == 0 {
		return Muted("No tracks have been added yet.")
	}

	rows := make([][]string, 0, len(additions))
	for i, a := range additions {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			a.AddedAt().Local().Format("2006-01-02 15:04"),
			a.TrackID(),
			string(a.Source()),
			a.Channel(),
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.help).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("#", "ADDED", "TRACK", "SOURCE", "CHANNEL").
		Rows(rows...)

	return t.Render()
}
