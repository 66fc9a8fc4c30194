package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

type goalsState int

const (
	goalsStateBrowse goalsState = iota
	goalsStateForm
	goalsStateConfirmDelete
	goalsStateTransactions
)

type GoalsModel struct {
	goalService *goal.Service
	history     *undo.Manager
	recalc      *goal.Recalculator

	state   goalsState
	goals   []*goal.Goal
	cursor  int
	bar     progress.Model
	form    *huh.Form
	editing *goal.Goal
	txTable table.Model

	status string
	err    error

	fields *goalFields
}

// goalFields is shared by pointer so huh's bindings survive model copies.
type goalFields struct {
	name    string
	desc    string
	target  string
	date    string
	pattern string
	color   string
	confirm bool
}

func NewGoalsModel(goalSvc *goal.Service, history *undo.Manager, recalc *goal.Recalculator) GoalsModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Amount", Width: 12},
			{Title: "Description", Width: 40},
			{Title: "Account", Width: 20},
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

	return GoalsModel{
		goalService: goalSvc,
		history:     history,
		recalc:      recalc,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		txTable:     t,
	}
}

func (m GoalsModel) Title() string { return "Goals" }

func (m GoalsModel) ShortHelp() string {
	switch m.state {
	case goalsStateForm, goalsStateConfirmDelete:
		return "Navigate form | Esc: cancel"
	case goalsStateTransactions:
		return "Esc: back to goals"
	}

	return "Esc: back | n: new | e: edit | d: delete | Enter: transactions | r: recalculate | u: undo | U: redo"
}

func (m GoalsModel) Init() tea.Cmd {
	return m.loadGoalsCmd()
}

func (m GoalsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadGoalsMsg:
		m.err = msg.err
		if msg.err == nil {
			m.goals = msg.goals
			m.cursor = min(m.cursor, max(0, len(m.goals)-1))
		}

		return m, nil

	case goalActionMsg:
		m.state = goalsStateBrowse
		m.form = nil
		m.editing = nil
		m.status = msg.status

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
		}

		return m, m.loadGoalsCmd()

	case goalTransactionsMsg:
		rows := make([]table.Row, 0, len(msg.txs))
		for _, tx := range msg.txs {
			rows = append(rows, table.Row{FormatDate(tx.Date), FormatAmount(tx.Amount), tx.Description, tx.Account})
		}

		m.txTable.SetRows(rows)
		m.txTable.GotoTop()
		m.state = goalsStateTransactions

		return m, nil

	case tea.WindowSizeMsg:
		m.txTable.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case goalsStateForm, goalsStateConfirmDelete:
		return m.updateForm(msg)
	case goalsStateTransactions:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			m.state = goalsStateBrowse
			return m, nil
		}

		var cmd tea.Cmd
		m.txTable, cmd = m.txTable.Update(msg)

		return m, cmd
	}

	return m.updateBrowse(msg)
}

func (m GoalsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.goals)-1 {
			m.cursor++
		}
	case "n":
		return m.openForm(nil)
	case "e":
		if g := m.selected(); g != nil {
			return m.openForm(g)
		}
	case "d":
		if g := m.selected(); g != nil {
			return m.openDelete(g)
		}
	case "enter":
		if g := m.selected(); g != nil {
			return m, m.transactionsCmd(g.ID)
		}
	case "r":
		m.status = "Recalculating..."
		return m, m.recalculateCmd()
	case "u":
		return m, m.historyCmd(m.history.Undo, "Undid")
	case "U":
		return m, m.historyCmd(m.history.Redo, "Redid")
	}

	return m, nil
}

func (m GoalsModel) selected() *goal.Goal {
	if m.cursor < 0 || m.cursor >= len(m.goals) {
		return nil
	}

	return m.goals[m.cursor]
}

// openForm shows the create form, or the edit form prefilled from g.
func (m GoalsModel) openForm(g *goal.Goal) (tea.Model, tea.Cmd) {
	m.editing = g
	m.fields = &goalFields{}

	if g != nil {
		m.fields.name = g.Name
		m.fields.target = FormatAmount(g.TargetAmount)
		m.fields.pattern = g.TagPattern
		m.fields.color = g.Color

		if g.Description != nil {
			m.fields.desc = *g.Description
		}

		if g.TargetDate != nil {
			m.fields.date = FormatDate(*g.TargetDate)
		}
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fields.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name cannot be empty")
					}
					return nil
				}),
			huh.NewInput().Title("Description").Value(&m.fields.desc),
			huh.NewInput().
				Title("Target amount").
				Placeholder("1500.00").
				Value(&m.fields.target).
				Validate(func(s string) error {
					_, err := ParseAmount(s)
					return err
				}),
			huh.NewInput().
				Title("Target date").
				Placeholder("YYYY-MM-DD, optional").
				Value(&m.fields.date).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					_, err := time.Parse(time.DateOnly, s)
					return err
				}),
			huh.NewInput().
				Title("Tag").
				Placeholder("car").
				Value(&m.fields.pattern).
				Validate(goal.ValidatePattern),
			huh.NewInput().
				Title("Color").
				Placeholder("#3b82f6").
				Value(&m.fields.color),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = goalsStateForm

	return m, m.form.Init()
}

func (m GoalsModel) openDelete(g *goal.Goal) (tea.Model, tea.Cmd) {
	m.editing = g
	m.fields = &goalFields{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", g.Name)).
				Value(&m.fields.confirm),
		),
	).WithShowHelp(false)

	m.state = goalsStateConfirmDelete

	return m, m.form.Init()
}

func (m GoalsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = goalsStateBrowse
		m.form = nil
		m.editing = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == goalsStateConfirmDelete {
		if !m.fields.confirm {
			m.state = goalsStateBrowse
			m.form = nil

			return m, nil
		}

		return m, m.deleteCmd(m.editing.ID, m.editing.Name)
	}

	if m.editing != nil {
		return m, m.updateCmd(m.editing)
	}

	return m, m.createCmd()
}

func (m GoalsModel) View() string {
	if m.err != nil {
		return padded.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.state == goalsStateTransactions {
		g := m.selected()
		if g == nil {
			return ""
		}

		header := fmt.Sprintf("Transactions tagged %s", activeStyle(goal.Tag(g.TagPattern)))

		return padded.Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render(header),
			m.txTable.View(),
		))
	}

	content := m.goalsView()

	if m.form != nil {
		title := "New Goal"
		switch {
		case m.state == goalsStateConfirmDelete:
			title = "Delete Goal"
		case m.editing != nil:
			title = "Edit Goal"
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(title + "\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n\n" + content
	}

	return padded.Render(content)
}

func (m GoalsModel) goalsView() string {
	if len(m.goals) == 0 {
		return "No goals yet. Press n to create one."
	}

	var b strings.Builder

	for i, g := range m.goals {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(g.Color)).Render(g.Name)

		due := ""
		if g.TargetDate != nil {
			due = faintStyle.Render("  due " + FormatDate(*g.TargetDate))
		}

		fmt.Fprintf(&b, "%s%s %s%s\n", cursor, name, faintStyle.Render(goal.Tag(g.TagPattern)), due)
		fmt.Fprintf(&b, "  %s  %s / %s  (%s left)\n\n",
			m.bar.ViewAs(g.Percent()/100),
			FormatAmount(g.CurrentAmount),
			FormatAmount(g.TargetAmount),
			FormatAmount(g.Remaining()),
		)
	}

	return b.String()
}

// Messages

type loadGoalsMsg struct {
	goals []*goal.Goal
	err   error
}

type goalActionMsg struct {
	status string
	err    error
}

type goalTransactionsMsg struct {
	txs []goal.GoalTransaction
}

func (m GoalsModel) loadGoalsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		goals, err := m.goalService.List(ctx)

		return loadGoalsMsg{goals: goals, err: err}
	}
}

func (m GoalsModel) transactionsCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return goalTransactionsMsg{txs: m.goalService.Transactions(ctx, &id, "")}
	}
}

func (m GoalsModel) recalculateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		result, err := m.recalc.Run(ctx)
		if err != nil {
			return goalActionMsg{err: err}
		}

		if len(result.Failed) > 0 {
			return goalActionMsg{status: fmt.Sprintf("Recalculated %d goals, %d failed", len(result.Updated), len(result.Failed))}
		}

		return goalActionMsg{status: fmt.Sprintf("Recalculated %d goals", len(result.Updated))}
	}
}

func (m GoalsModel) formParams() (goal.CreateParams, error) {
	target, err := ParseAmount(m.fields.target)
	if err != nil {
		return goal.CreateParams{}, err
	}

	params := goal.CreateParams{
		Name:         strings.TrimSpace(m.fields.name),
		TargetAmount: target,
		TagPattern:   strings.TrimSpace(m.fields.pattern),
		Color:        strings.TrimSpace(m.fields.color),
	}

	if d := strings.TrimSpace(m.fields.desc); d != "" {
		params.Description = &d
	}

	if m.fields.date != "" {
		d, err := time.Parse(time.DateOnly, m.fields.date)
		if err != nil {
			return goal.CreateParams{}, err
		}

		params.TargetDate = &d
	}

	return params, nil
}

func (m GoalsModel) createCmd() tea.Cmd {
	params, err := m.formParams()

	return func() tea.Msg {
		if err != nil {
			return goalActionMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		err := m.history.Run(ctx, func(ctx context.Context) (*undo.Entry, error) {
			g, err := m.goalService.Create(ctx, params)
			if err != nil {
				return nil, err
			}

			return &undo.Entry{
				Name: "create goal",
				Undo: func(ctx context.Context) error {
					_, err := m.goalService.Delete(ctx, g.ID)
					return err
				},
				Redo: func(ctx context.Context) error {
					_, err := m.goalService.Restore(ctx, g.ID)
					return err
				},
			}, nil
		})
		if err != nil {
			return goalActionMsg{err: err}
		}

		return goalActionMsg{status: fmt.Sprintf("Created %q", params.Name)}
	}
}

// updateCmd sends only the fields that differ from before.
func (m GoalsModel) updateCmd(before *goal.Goal) tea.Cmd {
	next, err := m.formParams()

	return func() tea.Msg {
		if err != nil {
			return goalActionMsg{err: err}
		}

		var params goal.UpdateParams

		if next.Name != before.Name {
			params.Name = &next.Name
		}

		if next.TargetAmount != before.TargetAmount {
			params.TargetAmount = &next.TargetAmount
		}

		if next.TagPattern != before.TagPattern {
			params.TagPattern = &next.TagPattern
		}

		if next.Color != "" && next.Color != before.Color {
			params.Color = &next.Color
		}

		if desc := strings.TrimSpace(m.fields.desc); before.Description == nil || *before.Description != desc {
			if before.Description != nil || desc != "" {
				params.Description = &desc
			}
		}

		switch {
		case next.TargetDate == nil && before.TargetDate != nil:
			params.ClearTargetDate = true
		case next.TargetDate != nil && (before.TargetDate == nil || !next.TargetDate.Equal(*before.TargetDate)):
			params.TargetDate = next.TargetDate
		}

		if params.Empty() {
			return goalActionMsg{status: "Nothing changed"}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		err := m.history.Run(ctx, func(ctx context.Context) (*undo.Entry, error) {
			after, err := m.goalService.Update(ctx, before.ID, params)
			if err != nil {
				return nil, err
			}

			return &undo.Entry{
				Name: "update goal",
				Undo: func(ctx context.Context) error {
					_, err := m.goalService.Revert(ctx, before)
					return err
				},
				Redo: func(ctx context.Context) error {
					_, err := m.goalService.Revert(ctx, after)
					return err
				},
			}, nil
		})
		if err != nil {
			return goalActionMsg{err: err}
		}

		return goalActionMsg{status: fmt.Sprintf("Updated %q", next.Name)}
	}
}

func (m GoalsModel) deleteCmd(id uuid.UUID, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := m.history.Run(ctx, func(ctx context.Context) (*undo.Entry, error) {
			ok, err := m.goalService.Delete(ctx, id)
			if err != nil || !ok {
				return nil, err
			}

			return &undo.Entry{
				Name: "delete goal",
				Undo: func(ctx context.Context) error {
					_, err := m.goalService.Restore(ctx, id)
					return err
				},
				Redo: func(ctx context.Context) error {
					_, err := m.goalService.Delete(ctx, id)
					return err
				},
			}, nil
		})
		if err != nil {
			return goalActionMsg{err: err}
		}

		return goalActionMsg{status: fmt.Sprintf("Deleted %q", name)}
	}
}

func (m GoalsModel) historyCmd(step func(context.Context) (string, error), verb string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		name, err := step(ctx)
		if err != nil {
			return goalActionMsg{err: err}
		}

		return goalActionMsg{status: fmt.Sprintf("%s %s", verb, name)}
	}
}
