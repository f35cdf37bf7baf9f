package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/tui/ui"
)

// SearchView lists people matching a "/" query. Choosing one starts or
// resumes a conversation with them.
type SearchView struct {
	*tview.Table
	theme   *ui.Theme
	query   string
	results []domain.Profile
}

// NewSearchView creates the people search results table.
func NewSearchView(theme *ui.Theme) *SearchView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetTitleColor(theme.TitleColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	sv := &SearchView{
		Table: table,
		theme: theme,
	}
	sv.render()
	return sv
}

// Name implements ui.Component.
func (sv *SearchView) Name() string { return "Find people" }

// Hints implements ui.Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Chat"},
		{Key: "/", Description: "New search"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update shows the results of query.
func (sv *SearchView) Update(query string, results []domain.Profile) {
	sv.query = query
	sv.results = results
	sv.render()
	if len(results) > 0 {
		sv.Select(1, 0)
	}
}

// Selected returns the identity on the selected row.
func (sv *SearchView) Selected() (domain.Identity, bool) {
	row, _ := sv.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(sv.results) {
		return domain.Identity{}, false
	}
	return sv.results[idx].Identity, true
}

func (sv *SearchView) render() {
	sv.Clear()
	for col, h := range []string{" NAME", " ROLE", " ID", " EMAIL"} {
		sv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}
	for i, p := range sv.results {
		row := i + 1
		sv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(p.DisplayName()))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 1, tview.NewTableCell(" "+string(p.Role)).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(p.ID)).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 3, tview.NewTableCell(" "+tview.Escape(p.Email)).SetTextColor(sv.theme.FgColor))
	}
	if sv.query == "" {
		sv.SetTitle(" Find people ")
		return
	}
	sv.SetTitle(fmt.Sprintf(" %q (%d) ", sv.query, len(sv.results)))
}
