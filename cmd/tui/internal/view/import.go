package view

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/importer"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFormatSelect importState = iota
	importStateAccountSelect
	importStateFilePick
	importStateImporting
	importStateConflicts
	importStateResult
)

type ImportModel struct {
	txService     *transaction.Service
	importService *importer.Service
	tagService    *tagging.Service
	recalc        *goal.Recalculator

	state          importState
	filePicker     filepicker.Model
	selectedFormat importer.Format
	formatOptions  []importer.Format
	accounts       []*transaction.Account
	account        *transaction.Account
	cursor         int
	tagged         int

	newParams    []transaction.CreateParams
	conflicts    []transaction.Conflict
	conflictList list.Model
	selected     map[int]bool

	status string
	err    error
}

func NewImportModel(txSvc *transaction.Service, impSvc *importer.Service, tagSvc *tagging.Service, recalc *goal.Recalculator) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		txService:     txSvc,
		importService: impSvc,
		tagService:    tagSvc,
		recalc:        recalc,
		filePicker:    fp,
		formatOptions: []importer.Format{importer.FormatAuto, importer.FormatCGD, importer.FormatGeneric},
		selected:      make(map[int]bool),
	}
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateConflicts:
		return "Space: toggle | a: all | n: none | Enter: confirm | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.loadAccountsCmd()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateFormatSelect || m.state == importStateAccountSelect {
			return m.updateSelect(msg)
		}

		if m.state == importStateConflicts {
			return m.updateConflicts(msg)
		}

	case accountsMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.accounts = msg.accounts

		return m, nil

	case importResultMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.tagged = msg.tagged

		if len(msg.result.Conflicts) == 0 {
			m.state = importStateResult
			m.status = fmt.Sprintf("Imported %d transactions, %d tagged.", len(msg.result.Imported), m.tagged)

			return m, nil
		}

		m.newParams = msg.result.New
		m.conflicts = msg.result.Conflicts
		m.selected = make(map[int]bool)
		m.state = importStateConflicts

		items := make([]list.Item, len(m.conflicts))
		for i, c := range m.conflicts {
			items[i] = conflictItem{conflict: c, index: i}
		}

		delegate := conflictDelegate{selected: &m.selected}
		m.conflictList = list.New(items, delegate, 80, 20)
		m.conflictList.Title = "Duplicate Conflicts"
		m.conflictList.SetShowStatusBar(false)
		m.conflictList.SetFilteringEnabled(false)
		m.conflictList.SetShowHelp(false)

		return m, nil

	case confirmResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Imported %d transactions.", msg.count)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateAccountSelect:
		m.state = importStateFormatSelect
		m.cursor = 0

		return m, nil
	case importStateFilePick:
		m.state = importStateAccountSelect
		m.cursor = 0

		return m, nil
	case importStateResult:
		m.state = importStateFormatSelect
		m.err = nil
		m.status = ""

		return m, nil
	case importStateConflicts:
		m.state = importStateFormatSelect
		m.conflicts = nil
		m.newParams = nil
		m.selected = make(map[int]bool)

		return m, nil
	}

	return m, Back
}

// updateSelect drives both pickers. The account list has a leading
// "no account" option at index 0.
func (m ImportModel) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.formatOptions)
	if m.state == importStateAccountSelect {
		n = len(m.accounts) + 1
	}

	switch msg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < n-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if m.state == importStateFormatSelect {
			m.selectedFormat = m.formatOptions[m.cursor]
			m.state = importStateAccountSelect
			m.cursor = 0

			return m, nil
		}

		m.account = nil
		if m.cursor > 0 {
			m.account = m.accounts[m.cursor-1]
		}

		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) updateConflicts(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.conflictList.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil
	case "a":
		for i := range m.conflicts {
			m.selected[i] = true
		}

		return m, nil
	case "n":
		for i := range m.conflicts {
			m.selected[i] = false
		}

		return m, nil
	case "enter":
		return m, m.confirmCmd()
	}

	var cmd tea.Cmd
	m.conflictList, cmd = m.conflictList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFormatSelect:
		return m.viewFormatSelect()
	case importStateAccountSelect:
		return m.viewAccountSelect()
	case importStateFilePick:
		return m.viewFilePick()
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateConflicts:
		return lipgloss.NewStyle().Padding(1).Render(m.conflictList.View())
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewFormatSelect() string {
	s := "Select statement format:\n\n"

	for i, f := range m.formatOptions {
		s += fmt.Sprintf("%s %s\n", pointer(i == m.cursor), string(f))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewAccountSelect() string {
	s := "Book lines against account:\n\n"
	s += fmt.Sprintf("%s %s\n", pointer(m.cursor == 0), faintStyle.Render("(no account)"))

	for i, a := range m.accounts {
		s += fmt.Sprintf("%s %s\n", pointer(m.cursor == i+1), a.Name)
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func pointer(on bool) string {
	if on {
		return ">"
	}

	return " "
}

func (m ImportModel) viewFilePick() string {
	return lipgloss.NewStyle().Padding(1).Render(
		fmt.Sprintf("Select file to import (%s):\n\n%s", m.selectedFormat, m.filePicker.View()),
	)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle.Render(m.status) + "\n\n(Esc to go back)")
	}

	return style.Render(successStyle.Render(m.status) + "\n\n(Esc to go back)")
}

// Messages

type accountsMsg struct {
	accounts []*transaction.Account
	err      error
}

type importResultMsg struct {
	result *transaction.ImportResult
	tagged int
	err    error
}

type confirmResultMsg struct {
	count int
	err   error
}

func (m ImportModel) loadAccountsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		accounts, err := m.txService.ListAccounts(ctx)

		return accountsMsg{accounts: accounts, err: err}
	}
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	var accountID *uuid.UUID
	if m.account != nil {
		accountID = &m.account.ID
	}

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		params, err := m.importService.Import(m.selectedFormat, accountID, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		tagged, err := m.tagService.Apply(ctx, params)
		if err != nil {
			return importResultMsg{err: fmt.Errorf("applying tag rules: %w", err)}
		}

		result, err := m.txService.ImportBatch(ctx, params)
		if err != nil {
			return importResultMsg{err: err}
		}

		if len(result.Conflicts) == 0 {
			m.recalculate(ctx)
		}

		return importResultMsg{result: result, tagged: tagged}
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	newParams := m.newParams
	conflicts := m.conflicts
	selected := m.selected

	return func() tea.Msg {
		var allParams []transaction.CreateParams
		allParams = append(allParams, newParams...)

		for i, c := range conflicts {
			if !selected[i] {
				continue
			}

			allParams = append(allParams, c.Incoming)
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := m.txService.CreateBatch(ctx, allParams)
		if err != nil {
			return confirmResultMsg{err: err}
		}

		m.recalculate(ctx)

		return confirmResultMsg{count: len(txs)}
	}
}

// recalculate refreshes goal progress once new lines are stored. The import
// already succeeded, so a failure is only logged.
func (m ImportModel) recalculate(ctx context.Context) {
	if _, err := m.recalc.Run(ctx); err != nil {
		slog.Error("failed to recalculate goals after import", "error", err)
	}
}

// Conflict list item

type conflictItem struct {
	conflict transaction.Conflict
	index    int
}

func (i conflictItem) Title() string       { return "" }
func (i conflictItem) Description() string { return "" }
func (i conflictItem) FilterValue() string { return "" }

// Conflict list delegate

type conflictDelegate struct {
	selected *map[int]bool
}

func (d conflictDelegate) Height() int                             { return 3 }
func (d conflictDelegate) Spacing() int                            { return 0 }
func (d conflictDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(conflictItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if (*d.selected)[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	incoming := item.conflict.Incoming
	existing := item.conflict.Existing

	line1 := fmt.Sprintf("%s%s %s  %s  %s",
		cursor, checkbox,
		FormatDate(incoming.Date),
		FormatAmount(incoming.Amount),
		incoming.ImportedDescription,
	)

	line2 := fmt.Sprintf("      Existing: %s  %s  %s %s",
		FormatDate(existing.Date),
		FormatAmount(existing.Amount),
		existing.ImportedDescription,
		faintStyle.Render(existing.Notes),
	)

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
