package importcsv_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/http/importcsv"
	"github.com/MrJamesThe3rd/stash/internal/importer"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

const statement = "Date,Description,Amount\n" +
	"2026-03-01,PAYROLL ACME,2500.00\n" +
	"2026-03-02,COFFEE,-3.20\n"

type mocks struct {
	tx   *transaction.MockRepository
	itx  *transaction.MockImportTx
	tag  *tagging.MockRepository
	goal *goal.MockRepository
}

func newServer(t *testing.T) (http.Handler, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		tx:   transaction.NewMockRepository(ctrl),
		itx:  transaction.NewMockImportTx(ctrl),
		tag:  tagging.NewMockRepository(ctrl),
		goal: goal.NewMockRepository(ctrl),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	goalSvc := goal.NewService(m.goal, goal.WithLogger(logger))
	h := importcsv.NewHandler(
		importer.NewService(),
		transaction.NewService(m.tx),
		tagging.NewService(m.tag),
		goal.NewRecalculator(goalSvc, undo.NewManager(5, logger)),
	)

	r := chi.NewRouter()
	r.Route("/import", h.Routes)

	return r, m
}

func upload(t *testing.T, srv http.Handler, fields map[string]string, file string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(file))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Import_TagsAndRecalculates(t *testing.T) {
	srv, m := newServer(t)

	accountID := uuid.New()
	goalID := uuid.New()

	m.tag.EXPECT().ListRules(gomock.Any()).Return([]*tagging.Rule{{RawPattern: "payroll", Tag: "car"}}, nil)
	m.tx.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
	m.itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Any()).Return(nil, nil)
	m.itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
			require.Len(t, txs, 2)
			assert.Equal(t, "#car", txs[0].Notes)
			assert.Equal(t, &accountID, txs[0].AccountID)
			assert.Empty(t, txs[1].Notes)

			for _, tx := range txs {
				tx.ID = uuid.New()
			}

			return nil
		})
	m.itx.EXPECT().Commit().Return(nil)
	m.itx.EXPECT().Rollback().Return(nil)

	m.goal.EXPECT().ListGoals(gomock.Any()).Return([]*goal.Goal{{ID: goalID, TagPattern: "car"}}, nil)
	m.goal.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return([]*goal.TaggedTransaction{
		{Amount: 250000, Notes: "#car", ImportedDescription: "PAYROLL ACME"},
	}, nil)
	m.goal.EXPECT().SetProgress(gomock.Any(), goalID, int64(250000), gomock.Any()).Return(nil)

	rec := upload(t, srv, map[string]string{"account_id": accountID.String(), "format": "generic"}, statement)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Imported int `json:"imported"`
		Tagged   int `json:"tagged"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, 1, resp.Tagged)
}

func TestHandler_Import_Conflicts(t *testing.T) {
	srv, m := newServer(t)

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	m.tag.EXPECT().ListRules(gomock.Any()).Return(nil, nil)
	m.tx.EXPECT().BeginImport(gomock.Any(), gomock.Any(), gomock.Any()).Return(m.itx, nil)
	m.itx.EXPECT().FindDuplicates(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{
		{ID: uuid.New(), Date: date, Amount: -320, ImportedDescription: "COFFEE"},
	}, nil)
	m.itx.EXPECT().Rollback().Return(nil)

	rec := upload(t, srv, nil, statement)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		New       []map[string]any `json:"new"`
		Conflicts []map[string]any `json:"conflicts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.New, 1)
	assert.Len(t, resp.Conflicts, 1)
}

func TestHandler_Import_BadInput(t *testing.T) {
	type testCase struct {
		name   string
		fields map[string]string
		file   string
	}

	tests := []testCase{
		{name: "UnknownHeaders", file: "When;What\n"},
		{name: "UnknownFormat", fields: map[string]string{"format": "qif"}, file: statement},
		{name: "BadAccount", fields: map[string]string{"account_id": "x"}, file: statement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t)

			rec := upload(t, srv, tt.fields, tt.file)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
