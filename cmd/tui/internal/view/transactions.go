package view

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

type txState int

const (
	txStateBrowse txState = iota
	txStateEdit
)

type TransactionsModel struct {
	txService   *transaction.Service
	tagService  *tagging.Service
	recalc      *goal.Recalculator

	state     txState
	table     table.Model
	txs       []*transaction.Transaction
	form      *huh.Form
	timeframe Timeframe
	filter    transaction.ListFilter

	loading bool
	err     error
	status  string

	fields *txFields
}

// txFields is shared by pointer so huh's bindings survive model copies.
type txFields struct {
	notes     string
	tag       string
	suggested string
}

func NewTransactionsModel(txSvc *transaction.Service, tagSvc *tagging.Service, recalc *goal.Recalculator) TransactionsModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Amount", Width: 12},
			{Title: "Imported Description", Width: 36},
			{Title: "Notes", Width: 28},
			{Title: "Account", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return TransactionsModel{
		txService:   txSvc,
		tagService:  tagSvc,
		recalc:      recalc,
		table:       t,
	}
}

func (m TransactionsModel) Title() string { return "Transactions" }

func (m TransactionsModel) ShortHelp() string {
	if m.state == txStateEdit {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | e: edit notes | d: date filter | r: refresh"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTxsMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.txs = msg.txs
			m.refreshTable()
		}

		return m, nil

	case suggestMsg:
		if m.fields != nil {
			m.fields.suggested = msg.tag
		}

		return m, nil

	case txSaveMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error saving: %v", msg.err))
		}

		m.state = txStateBrowse
		m.form = nil
		m.fields = nil
		m.table.Focus()

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == txStateEdit {
		return m.updateEdit(msg)
	}

	return m.updateBrowse(msg)
}

func (m TransactionsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "e":
			return m.enterEditMode()
		case "d":
			m.timeframe = m.timeframe.Next()
			m.filter.StartDate, m.filter.EndDate = m.timeframe.Range(time.Now())

			return m, m.loadTxsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransactionsModel) current() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m TransactionsModel) enterEditMode() (tea.Model, tea.Cmd) {
	tx := m.current()
	if tx == nil {
		return m, nil
	}

	m.fields = &txFields{notes: tx.Notes}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Notes").
				Value(&m.fields.notes),
			huh.NewInput().
				Title("Tag rule").
				Description("Tag every line imported with this description").
				Placeholder("car, leave empty to skip").
				Value(&m.fields.tag).
				Validate(func(s string) error {
					s = strings.TrimPrefix(strings.TrimSpace(s), "#")
					if s == "" {
						return nil
					}
					return goal.ValidatePattern(s)
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = txStateEdit
	m.table.Blur()

	return m, tea.Batch(m.form.Init(), m.suggestCmd(tx.ImportedDescription))
}

func (m TransactionsModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = txStateBrowse
		m.form = nil
		m.fields = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m TransactionsModel) View() string {
	if m.loading {
		return padded.Render("Loading transactions...")
	}

	if m.err != nil {
		return padded.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("Filter: [d] Date: %s", activeStyle(m.timeframe.String()))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == txStateEdit && m.form != nil {
		imported := ""
		if tx := m.current(); tx != nil {
			imported = tx.ImportedDescription
		}

		hint := ""
		if m.fields.suggested != "" {
			hint = faintStyle.Render("Suggested: "+goal.Tag(m.fields.suggested)) + "\n\n"
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("Edit Transaction\n\nImported: %s\n\n%s%s", imported, hint, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return padded.Render(content)
}

func (m *TransactionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		account := ""
		if tx.Account != nil {
			account = tx.Account.Name
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			FormatAmount(tx.Amount),
			tx.ImportedDescription,
			tx.Notes,
			account,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadTxsMsg struct {
	txs []*transaction.Transaction
	err error
}

type suggestMsg struct {
	tag string
}

type txSaveMsg struct {
	status string
	err    error
}

func (m TransactionsModel) loadTxsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.List(ctx, filter)

		return loadTxsMsg{txs: txs, err: err}
	}
}

func (m TransactionsModel) suggestCmd(importedDescription string) tea.Cmd {
	if importedDescription == "" {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tag, err := m.tagService.Suggest(ctx, importedDescription)
		if err != nil {
			slog.Warn("tag suggestion failed", "error", err)
		}

		return suggestMsg{tag: tag}
	}
}

// saveCmd stores the notes and, when a tag was given, learns a rule for the
// imported description and makes sure the notes carry the tag.
func (m TransactionsModel) saveCmd() tea.Cmd {
	tx := m.current()
	if tx == nil {
		return nil
	}

	fields := *m.fields

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		notes := strings.TrimSpace(fields.notes)
		tag := strings.TrimPrefix(strings.TrimSpace(fields.tag), "#")

		if tag != "" && !goal.Matches(tag, notes, tx.ImportedDescription) {
			notes = strings.TrimSpace(notes + " " + goal.Tag(tag))
		}

		updated := *tx
		updated.Notes = notes

		if err := m.txService.Update(ctx, &updated); err != nil {
			return txSaveMsg{err: err}
		}

		status := "Saved"

		if tag != "" && tx.ImportedDescription != "" {
			if _, err := m.tagService.Learn(ctx, tx.ImportedDescription, tag); err != nil {
				return txSaveMsg{err: fmt.Errorf("learning tag rule: %w", err)}
			}

			status = fmt.Sprintf("Saved, future %q lines will be tagged %s", tx.ImportedDescription, goal.Tag(tag))
		}

		if _, err := m.recalc.Run(ctx); err != nil {
			slog.Error("failed to recalculate goals", "error", err)
		}

		return txSaveMsg{status: status}
	}
}
