package goal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/stash/internal/goal"
)

// optionalDate tells an absent field apart from an explicit null.
type optionalDate struct {
	Set   bool
	Value *time.Time
}

func (d *optionalDate) UnmarshalJSON(b []byte) error {
	d.Set = true

	if string(b) == "null" {
		d.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("target_date: %w", err)
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("target_date must be YYYY-MM-DD: %w", err)
	}

	d.Value = &t

	return nil
}

type createGoalRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	TargetAmount int64   `json:"target_amount"`
	TargetDate   *string `json:"target_date,omitempty"`
	TagPattern   string  `json:"tag_pattern"`
	Color        string  `json:"color,omitempty"`
}

func (req createGoalRequest) params() (goal.CreateParams, error) {
	p := goal.CreateParams{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		TagPattern:   req.TagPattern,
		Color:        req.Color,
	}

	if req.TargetDate != nil {
		t, err := time.Parse(time.DateOnly, *req.TargetDate)
		if err != nil {
			return goal.CreateParams{}, fmt.Errorf("target_date must be YYYY-MM-DD")
		}

		p.TargetDate = &t
	}

	return p, nil
}

type updateGoalRequest struct {
	Name         *string      `json:"name,omitempty"`
	Description  *string      `json:"description,omitempty"`
	TargetAmount *int64       `json:"target_amount,omitempty"`
	TargetDate   optionalDate `json:"target_date"`
	TagPattern   *string      `json:"tag_pattern,omitempty"`
	Color        *string      `json:"color,omitempty"`
}

func (req updateGoalRequest) params() goal.UpdateParams {
	return goal.UpdateParams{
		Name:            req.Name,
		Description:     req.Description,
		TargetAmount:    req.TargetAmount,
		TargetDate:      req.TargetDate.Value,
		ClearTargetDate: req.TargetDate.Set && req.TargetDate.Value == nil,
		TagPattern:      req.TagPattern,
		Color:           req.Color,
	}
}

type goalResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	TargetAmount  int64     `json:"target_amount"`
	CurrentAmount int64     `json:"current_amount"`
	Remaining     int64     `json:"remaining"`
	Percent       float64   `json:"percent"`
	TargetDate    *string   `json:"target_date"`
	TagPattern    string    `json:"tag_pattern"`
	Color         string    `json:"color"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toResponse(g *goal.Goal) goalResponse {
	resp := goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Remaining:     g.Remaining(),
		Percent:       g.Percent(),
		TagPattern:    g.TagPattern,
		Color:         g.Color,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}

	if g.TargetDate != nil {
		resp.TargetDate = new(g.TargetDate.Format(time.DateOnly))
	}

	return resp
}

func toResponseList(goals []*goal.Goal) []goalResponse {
	resp := make([]goalResponse, len(goals))
	for i, g := range goals {
		resp[i] = toResponse(g)
	}

	return resp
}

type transactionResponse struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Notes       string    `json:"notes"`
	Account     string    `json:"account"`
}

func toTransactionList(txs []goal.GoalTransaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = transactionResponse{
			ID:          tx.ID,
			Date:        tx.Date.Format(time.DateOnly),
			Amount:      tx.Amount,
			Description: tx.Description,
			Notes:       tx.Notes,
			Account:     tx.Account,
		}
	}

	return resp
}
