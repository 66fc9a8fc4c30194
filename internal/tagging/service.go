package tagging

import (
	"context"
	"errors"
	"strings"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=tagging
type Repository interface {
	FindTag(ctx context.Context, importedDescription string) (string, error)
	CreateRule(ctx context.Context, r *Rule) error
	ListRules(ctx context.Context) ([]*Rule, error)
}

var ErrEmptyPattern = errors.New("raw pattern is required")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the tag for importedDescription, or "" when no rule matches.
func (s *Service) Suggest(ctx context.Context, importedDescription string) (string, error) {
	return s.repo.FindTag(ctx, importedDescription)
}

// Learn stores a rule. The tag must be a valid goal tag pattern.
func (s *Service) Learn(ctx context.Context, rawPattern, tag string) (*Rule, error) {
	rawPattern = strings.TrimSpace(rawPattern)
	if rawPattern == "" {
		return nil, ErrEmptyPattern
	}

	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if err := goal.ValidatePattern(tag); err != nil {
		return nil, err
	}

	r := &Rule{RawPattern: rawPattern, Tag: tag}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// Apply appends "#tag" to the notes of every line whose imported description
// matches a rule, unless the line already carries that tag. It returns how
// many lines were tagged.
func (s *Service) Apply(ctx context.Context, params []transaction.CreateParams) (int, error) {
	if len(params) == 0 {
		return 0, nil
	}

	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return 0, err
	}

	tagged := 0

	for i := range params {
		p := &params[i]

		tag := Match(rules, p.ImportedDescription)
		if tag == "" || goal.Matches(tag, p.Notes, p.ImportedDescription) {
			continue
		}

		p.Notes = strings.TrimSpace(p.Notes + " " + goal.Tag(tag))
		tagged++
	}

	return tagged, nil
}

// Match picks the rule with the longest pattern contained in text, newest
// first on ties.
func Match(rules []*Rule, text string) string {
	lower := strings.ToLower(text)

	var best *Rule

	for _, r := range rules {
		if !strings.Contains(lower, strings.ToLower(r.RawPattern)) {
			continue
		}

		if best == nil || len(r.RawPattern) > len(best.RawPattern) ||
			(len(r.RawPattern) == len(best.RawPattern) && r.CreatedAt.After(best.CreatedAt)) {
			best = r
		}
	}

	if best == nil {
		return ""
	}

	return best.Tag
}
