// Package undo serialises goal mutations and keeps enough history to
// reverse them.
package undo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Func applies one side of a mutation.
type Func func(ctx context.Context) error

// Entry is a completed mutation. Undo reverses it, Redo applies it again.
type Entry struct {
	Name string
	Undo Func
	Redo Func
}

// Manager runs mutations one at a time and records them for undo.
// A new mutation clears the redo history.
type Manager struct {
	mu     sync.Mutex
	depth  int
	undo   []Entry
	redo   []Entry
	logger *slog.Logger
}

func NewManager(depth int, logger *slog.Logger) *Manager {
	if depth < 1 {
		depth = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{depth: depth, logger: logger}
}

// Run executes fn under the manager's lock. fn returns the entry to record,
// or nil when nothing changed. Failed mutations are not recorded.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context) (*Entry, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := fn(ctx)
	if err != nil {
		return err
	}

	if entry == nil {
		return nil
	}

	m.undo = append(m.undo, *entry)
	if len(m.undo) > m.depth {
		m.undo = m.undo[len(m.undo)-m.depth:]
	}

	m.redo = nil

	return nil
}

// Do executes fn under the manager's lock without recording anything.
func (m *Manager) Do(ctx context.Context, fn Func) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(ctx)
}

// Undo reverses the most recent mutation and returns its name. On failure the
// entry stays on the undo stack.
func (m *Manager) Undo(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undo) == 0 {
		return "", ErrNothingToUndo
	}

	e := m.undo[len(m.undo)-1]
	if err := e.Undo(ctx); err != nil {
		return "", fmt.Errorf("undo %s: %w", e.Name, err)
	}

	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, e)

	m.logger.Info("undone", "mutation", e.Name)

	return e.Name, nil
}

// Redo re-applies the most recently undone mutation and returns its name.
func (m *Manager) Redo(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return "", ErrNothingToRedo
	}

	e := m.redo[len(m.redo)-1]
	if err := e.Redo(ctx); err != nil {
		return "", fmt.Errorf("redo %s: %w", e.Name, err)
	}

	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, e)

	m.logger.Info("redone", "mutation", e.Name)

	return e.Name, nil
}

// Len reports how many entries can be undone and redone.
func (m *Manager) Len() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.undo), len(m.redo)
}
