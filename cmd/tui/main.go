package main

import (
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/stash/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/stash/internal/config"
	"github.com/MrJamesThe3rd/stash/internal/database"
	"github.com/MrJamesThe3rd/stash/internal/goal"
	goalStore "github.com/MrJamesThe3rd/stash/internal/goal/store"
	"github.com/MrJamesThe3rd/stash/internal/importer"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
	taggingStore "github.com/MrJamesThe3rd/stash/internal/tagging/store"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
	txStore "github.com/MrJamesThe3rd/stash/internal/transaction/store"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

type model struct {
	goalService   *goal.Service
	txService     *transaction.Service
	tagService    *tagging.Service
	importService *importer.Service
	history       *undo.Manager
	recalc        *goal.Recalculator

	currentView View

	goalsView        view.GoalsModel
	importView       view.ImportModel
	transactionsView view.TransactionsModel
}

type View int

const (
	ViewMenu         View = 0
	ViewGoals        View = 1
	ViewImport       View = 2
	ViewTransactions View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// The terminal belongs to bubbletea, so service logs are dropped.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	goalSvc := goal.NewService(
		goalStore.New(db),
		goal.WithLogger(logger),
		goal.WithDefaultColor(cfg.Goals.DefaultColor),
	)
	txSvc := transaction.NewService(txStore.New(db))
	tagSvc := tagging.NewService(taggingStore.New(db))
	impSvc := importer.NewService()
	history := undo.NewManager(cfg.Goals.UndoDepth, logger)
	recalc := goal.NewRecalculator(goalSvc, history)

	return model{
		goalService:      goalSvc,
		txService:        txSvc,
		tagService:       tagSvc,
		importService:    impSvc,
		history:          history,
		recalc:           recalc,
		currentView:      ViewMenu,
		goalsView:        view.NewGoalsModel(goalSvc, history, recalc),
		importView:       view.NewImportModel(txSvc, impSvc, tagSvc, recalc),
		transactionsView: view.NewTransactionsModel(txSvc, tagSvc, recalc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewGoals
				m.goalsView = view.NewGoalsModel(m.goalService, m.history, m.recalc)

				return m, m.goalsView.Init()
			case "2":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.txService, m.importService, m.tagService, m.recalc)

				return m, m.importView.Init()
			case "3":
				m.currentView = ViewTransactions
				m.transactionsView = view.NewTransactionsModel(m.txService, m.tagService, m.recalc)

				return m, m.transactionsView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewGoals:
		var newModel tea.Model
		newModel, cmd = m.goalsView.Update(msg)
		m.goalsView = newModel.(view.GoalsModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	}

	return m, cmd
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Stash\n\n" +
				"1. Goals\n" +
				"2. Import Statement\n" +
				"3. Transactions\n\n" +
				"q. Quit",
		)
	case ViewGoals:
		current = m.goalsView
	case ViewImport:
		current = m.importView
	case ViewTransactions:
		current = m.transactionsView
	default:
		return "Unknown View"
	}

	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(current.ShortHelp())
	title := lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(current.Title())

	return lipgloss.JoinVertical(lipgloss.Left, title, current.View(), help)
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
