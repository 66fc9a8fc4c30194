package goal

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultColor = "#3b82f6"

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=goal
type Repository interface {
	ListGoals(ctx context.Context) ([]*Goal, error)
	GetGoal(ctx context.Context, id uuid.UUID) (*Goal, error)
	CreateGoal(ctx context.Context, g *Goal) error
	UpdateGoal(ctx context.Context, id uuid.UUID, params UpdateParams, at time.Time) error
	DeleteGoal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	RestoreGoal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetProgress(ctx context.Context, id uuid.UUID, amount int64, at time.Time) error

	// ListTaggedTransactions returns live transactions whose notes or imported
	// description contain tag literally, newest first.
	ListTaggedTransactions(ctx context.Context, tag string) ([]*TaggedTransaction, error)
}

type Service struct {
	repo         Repository
	logger       *slog.Logger
	now          func() time.Time
	newID        func() uuid.UUID
	defaultColor string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDefaultColor(color string) Option {
	return func(s *Service) {
		if color != "" {
			s.defaultColor = color
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		logger:       slog.Default(),
		now:          time.Now,
		newID:        uuid.New,
		defaultColor: DefaultColor,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) List(ctx context.Context) ([]*Goal, error) {
	return s.repo.ListGoals(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Goal, error) {
	return s.repo.GetGoal(ctx, id)
}

// Create validates and stores a new goal, then computes its initial progress
// so transactions tagged before the goal existed are counted immediately.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Goal, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.TagPattern = strings.TrimSpace(params.TagPattern)

	if err := s.validateCreate(params); err != nil {
		return nil, err
	}

	now := s.now()
	g := &Goal{
		ID:           s.newID(),
		Name:         params.Name,
		Description:  params.Description,
		TargetAmount: params.TargetAmount,
		TargetDate:   params.TargetDate,
		TagPattern:   params.TagPattern,
		Color:        cmp.Or(params.Color, s.defaultColor),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}

	if err := s.refreshProgress(ctx, g); err != nil {
		// Nothing records the goal for undo unless Create succeeds.
		if _, delErr := s.repo.DeleteGoal(ctx, g.ID, s.now()); delErr != nil {
			s.logger.Error("failed to discard goal after progress error", "goal_id", g.ID, "error", delErr)
		}

		return nil, fmt.Errorf("compute initial progress: %w", err)
	}

	return g, nil
}

// Update applies a partial update. Progress is only recomputed when the tag
// pattern actually changes; other edits leave the cached amount as it is.
// UpdatedAt is refreshed even when params change nothing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Goal, error) {
	if params.Name != nil {
		params.Name = new(strings.TrimSpace(*params.Name))
	}

	if params.TagPattern != nil {
		params.TagPattern = new(strings.TrimSpace(*params.TagPattern))
	}

	if err := s.validateUpdate(params); err != nil {
		return nil, err
	}

	if err := s.validateTargetDate(params.TargetDate); err != nil {
		return nil, err
	}

	return s.apply(ctx, id, params)
}

// Revert puts a goal's editable fields back to those of snapshot. The
// snapshot was valid when taken, so a target date that has since passed is
// accepted.
func (s *Service) Revert(ctx context.Context, snapshot *Goal) (*Goal, error) {
	params := UpdateParams{
		Name:         &snapshot.Name,
		Description:  snapshot.Description,
		TargetAmount: &snapshot.TargetAmount,
		TargetDate:   snapshot.TargetDate,
		TagPattern:   &snapshot.TagPattern,
		Color:        &snapshot.Color,
	}

	if snapshot.Description == nil {
		params.Description = new("")
	}

	if snapshot.TargetDate == nil {
		params.ClearTargetDate = true
	}

	if err := s.validateUpdate(params); err != nil {
		return nil, err
	}

	return s.apply(ctx, snapshot.ID, params)
}

func (s *Service) apply(ctx context.Context, id uuid.UUID, params UpdateParams) (*Goal, error) {
	existing, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGoal(ctx, id, params, s.now()); err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}

	updated, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload goal: %w", err)
	}

	if params.TagPattern != nil && *params.TagPattern != existing.TagPattern {
		if err := s.refreshProgress(ctx, updated); err != nil {
			return nil, fmt.Errorf("recompute progress: %w", err)
		}
	}

	return updated, nil
}

// Delete tombstones the goal. Deleting a missing or already deleted goal
// reports false without an error.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.DeleteGoal(ctx, id, s.now())
	if err != nil {
		return false, fmt.Errorf("delete goal: %w", err)
	}

	return deleted, nil
}

// Restore clears the tombstone of a deleted goal and brings its progress up
// to date, since the ledger may have moved while it was hidden.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (bool, error) {
	restored, err := s.repo.RestoreGoal(ctx, id, s.now())
	if err != nil {
		return false, fmt.Errorf("restore goal: %w", err)
	}

	if !restored {
		return false, nil
	}

	if _, err := s.ComputeProgress(ctx, id); err != nil {
		return true, fmt.Errorf("recompute progress: %w", err)
	}

	return true, nil
}

// RecalculateAll recomputes every live goal in turn. A goal that fails is
// logged and reported in the result; the rest of the batch still runs.
func (s *Service) RecalculateAll(ctx context.Context) (*RecalculateResult, error) {
	goals, err := s.repo.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	result := &RecalculateResult{
		Updated: make([]uuid.UUID, 0, len(goals)),
		Failed:  make(map[uuid.UUID]error),
	}

	for _, g := range goals {
		if err := s.refreshProgress(ctx, g); err != nil {
			s.logger.Error("failed to recalculate goal", "goal_id", g.ID, "tag_pattern", g.TagPattern, "error", err)
			result.Failed[g.ID] = err

			continue
		}

		result.Updated = append(result.Updated, g.ID)
	}

	if len(result.Failed) > 0 {
		s.logger.Warn("goal recalculation finished with failures",
			"updated", len(result.Updated), "failed", len(result.Failed))
	}

	return result, nil
}

func (s *Service) validateCreate(p CreateParams) error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}

	if p.TargetAmount <= 0 {
		return &ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	}

	if err := ValidatePattern(p.TagPattern); err != nil {
		return err
	}

	return s.validateTargetDate(p.TargetDate)
}

func (s *Service) validateUpdate(p UpdateParams) error {
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}

	if p.TargetAmount != nil && *p.TargetAmount <= 0 {
		return &ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	}

	if p.TagPattern != nil {
		if err := ValidatePattern(*p.TagPattern); err != nil {
			return err
		}
	}

	if p.TargetDate != nil && p.ClearTargetDate {
		return &ValidationError{Field: "target_date", Reason: "cannot be set and cleared at once"}
	}

	return nil
}

func (s *Service) validateTargetDate(d *time.Time) error {
	if d == nil {
		return nil
	}

	if !d.After(s.now()) {
		return &ValidationError{Field: "target_date", Reason: "must be in the future"}
	}

	return nil
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
