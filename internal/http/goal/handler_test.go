package goal_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	goalhttp "github.com/MrJamesThe3rd/stash/internal/http/goal"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newServer(t *testing.T, repo goal.Repository) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := goal.NewService(repo,
		goal.WithLogger(logger),
		goal.WithClock(func() time.Time { return fixedNow }),
	)
	history := undo.NewManager(10, logger)
	h := goalhttp.NewHandler(svc, history, goal.NewRecalculator(svc, history))

	r := chi.NewRouter()
	r.Route("/goals", h.Routes)
	h.HistoryRoutes(r)

	return r
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func TestHandler_CreateThenUndoRedo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := goal.NewMockRepository(ctrl)

	var id uuid.UUID

	repo.EXPECT().CreateGoal(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, g *goal.Goal) error {
		id = g.ID
		return nil
	})
	repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return([]*goal.TaggedTransaction{
		{ID: uuid.New(), Amount: 50000, Notes: "Paycheck #car"},
		{ID: uuid.New(), Amount: -20000, Notes: "Transfer out #car"},
	}, nil)
	repo.EXPECT().SetProgress(gomock.Any(), gomock.Any(), int64(50000), fixedNow).Return(nil)

	srv := newServer(t, repo)

	rec := do(t, srv, http.MethodPost, "/goals", `{"name":"Car","target_amount":1000000,"tag_pattern":"car","target_date":"2026-12-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	assert.Equal(t, id.String(), body["id"])
	assert.Equal(t, float64(50000), body["current_amount"])
	assert.Equal(t, float64(950000), body["remaining"])
	assert.Equal(t, goal.DefaultColor, body["color"])
	assert.Equal(t, "2026-12-31", body["target_date"])

	repo.EXPECT().DeleteGoal(gomock.Any(), id, fixedNow).Return(true, nil)

	rec = do(t, srv, http.MethodPost, "/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "create goal", decode[map[string]string](t, rec)["undone"])

	repo.EXPECT().RestoreGoal(gomock.Any(), id, fixedNow).Return(true, nil)
	repo.EXPECT().GetGoal(gomock.Any(), id).Return(&goal.Goal{ID: id, TagPattern: "car"}, nil)
	repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return(nil, nil)
	repo.EXPECT().SetProgress(gomock.Any(), id, int64(0), fixedNow).Return(nil)

	rec = do(t, srv, http.MethodPost, "/redo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/redo", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Create_Rejects(t *testing.T) {
	type testCase struct {
		name     string
		body     string
		wantCode int
	}

	tests := []testCase{
		{name: "ZeroTarget", body: `{"name":"Car","target_amount":0,"tag_pattern":"car"}`, wantCode: http.StatusBadRequest},
		{name: "BadTag", body: `{"name":"Car","target_amount":100,"tag_pattern":"new car"}`, wantCode: http.StatusBadRequest},
		{name: "PastDate", body: `{"name":"Car","target_amount":100,"tag_pattern":"car","target_date":"2026-03-15"}`, wantCode: http.StatusBadRequest},
		{name: "MalformedDate", body: `{"name":"Car","target_amount":100,"tag_pattern":"car","target_date":"15/03/2027"}`, wantCode: http.StatusBadRequest},
		{name: "MalformedJSON", body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			srv := newServer(t, goal.NewMockRepository(ctrl))

			rec := do(t, srv, http.MethodPost, "/goals", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			rec = do(t, srv, http.MethodPost, "/undo", "")
			assert.Equal(t, http.StatusConflict, rec.Code)
		})
	}
}

func TestHandler_Update(t *testing.T) {
	id := uuid.New()
	before := &goal.Goal{ID: id, Name: "Car", TargetAmount: 1000, TagPattern: "car", Color: "#3b82f6", TargetDate: new(fixedNow.AddDate(1, 0, 0))}

	t.Run("ClearsTargetDateAndUndoReverts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := goal.NewMockRepository(ctrl)

		after := *before
		after.TargetDate = nil

		repo.EXPECT().GetGoal(gomock.Any(), id).Return(before, nil)
		repo.EXPECT().GetGoal(gomock.Any(), id).Return(before, nil)
		repo.EXPECT().UpdateGoal(gomock.Any(), id, goal.UpdateParams{ClearTargetDate: true}, fixedNow).Return(nil)
		repo.EXPECT().GetGoal(gomock.Any(), id).Return(&after, nil)

		srv := newServer(t, repo)

		rec := do(t, srv, http.MethodPatch, "/goals/"+id.String(), `{"target_date":null}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decode[map[string]any](t, rec)["target_date"])

		repo.EXPECT().GetGoal(gomock.Any(), id).Return(&after, nil)
		repo.EXPECT().UpdateGoal(gomock.Any(), id, gomock.Any(), fixedNow).
			DoAndReturn(func(_ any, _ uuid.UUID, p goal.UpdateParams, _ time.Time) error {
				require.NotNil(t, p.TargetDate)
				assert.Equal(t, *before.TargetDate, *p.TargetDate)

				return nil
			})
		repo.EXPECT().GetGoal(gomock.Any(), id).Return(before, nil)

		rec = do(t, srv, http.MethodPost, "/undo", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := goal.NewMockRepository(ctrl)
		repo.EXPECT().GetGoal(gomock.Any(), id).Return(nil, goal.ErrNotFound)

		rec := do(t, newServer(t, repo), http.MethodPatch, "/goals/"+id.String(), `{"color":"#000000"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		rec := do(t, newServer(t, goal.NewMockRepository(ctrl)), http.MethodPatch, "/goals/nope", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()

	repo := goal.NewMockRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().DeleteGoal(gomock.Any(), id, fixedNow).Return(true, nil),
		repo.EXPECT().DeleteGoal(gomock.Any(), id, fixedNow).Return(false, nil),
	)

	srv := newServer(t, repo)

	rec := do(t, srv, http.MethodDelete, "/goals/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]bool](t, rec)["deleted"])

	rec = do(t, srv, http.MethodDelete, "/goals/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]bool](t, rec)["deleted"])

	repo.EXPECT().RestoreGoal(gomock.Any(), id, fixedNow).Return(false, nil)

	rec = do(t, srv, http.MethodPost, "/undo", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/undo", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Recalculate(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *goal.MockRepository)
		wantCode  int
	}

	a, b := uuid.New(), uuid.New()

	tests := []testCase{
		{
			name: "PartialFailureStillSucceeds",
			setupMock: func(m *goal.MockRepository) {
				m.EXPECT().ListGoals(gomock.Any()).Return([]*goal.Goal{
					{ID: a, TagPattern: "car"},
					{ID: b, TagPattern: "trip"},
				}, nil)
				m.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return(nil, errors.New("db error"))
				m.EXPECT().ListTaggedTransactions(gomock.Any(), "#trip").Return(nil, nil)
				m.EXPECT().SetProgress(gomock.Any(), b, int64(0), fixedNow).Return(nil)
			},
			wantCode: http.StatusNoContent,
		},
		{
			name: "ListFails",
			setupMock: func(m *goal.MockRepository) {
				m.EXPECT().ListGoals(gomock.Any()).Return(nil, errors.New("db error"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := goal.NewMockRepository(ctrl)
			tt.setupMock(repo)

			rec := do(t, newServer(t, repo), http.MethodPost, "/goals/recalculate", "")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHandler_Transactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	repo := goal.NewMockRepository(ctrl)
	repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return([]*goal.TaggedTransaction{
		{ID: uuid.New(), Date: day(1), Amount: 50000, Notes: "Paycheck #car", AccountName: "Checking"},
		{ID: uuid.New(), Date: day(2), Amount: -20000, Notes: "Transfer out #car"},
	}, nil)

	srv := newServer(t, repo)

	rec := do(t, srv, http.MethodGet, "/goals/transactions?tag_pattern=car", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]map[string]any](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-02", got[0]["date"])
	assert.Equal(t, goal.UnknownAccount, got[0]["account"])
	assert.Equal(t, "Paycheck", got[1]["description"])
	assert.Equal(t, "Paycheck #car", got[1]["notes"])

	rec = do(t, srv, http.MethodGet, "/goals/transactions?goal_id=bad", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/goals/transactions?tag_pattern=not+valid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))
}
