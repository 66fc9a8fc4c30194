package goal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/stash/internal/goal"
)

func TestDisplayDescription(t *testing.T) {
	type args struct {
		notes               string
		importedDescription string
	}

	type testCase struct {
		name string
		args args
		want string
	}

	tests := []testCase{
		{
			name: "StripsFromNotes",
			args: args{notes: "Paycheck #car", importedDescription: "PAYROLL #car"},
			want: "Paycheck",
		},
		{
			name: "FallsBackToImportedDescription",
			args: args{notes: "monthly", importedDescription: "SEPA   TRANSFER #car"},
			want: "SEPA TRANSFER",
		},
		{
			name: "OnlyTagKeepsOriginal",
			args: args{notes: "#car"},
			want: "#car",
		},
		{
			name: "EmptyNotesUsesImported",
			args: args{importedDescription: "ATM"},
			want: "ATM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goal.DisplayDescription("car", tt.args.notes, tt.args.importedDescription))
		})
	}
}

func TestService_Transactions(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	accountID := uuid.New()

	t.Run("SignAgnosticNewestFirst", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		t1 := &goal.TaggedTransaction{ID: uuid.New(), Date: day(1), Amount: 50000, Notes: "Paycheck #car", AccountID: &accountID, AccountName: "Checking"}
		t2 := &goal.TaggedTransaction{ID: uuid.New(), Date: day(2), Amount: -20000, Notes: "Transfer out #car"}

		repo := goal.NewMockRepository(ctrl)
		repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return([]*goal.TaggedTransaction{t1, t2}, nil)

		got := newTestService(repo).Transactions(context.Background(), nil, "car")
		require.Len(t, got, 2)

		assert.Equal(t, t2.ID, got[0].ID)
		assert.Equal(t, "Transfer out", got[0].Description)
		assert.Equal(t, int64(-20000), got[0].Amount)
		assert.Equal(t, goal.UnknownAccount, got[0].Account)

		assert.Equal(t, t1.ID, got[1].ID)
		assert.Equal(t, "Paycheck", got[1].Description)
		assert.Equal(t, "Paycheck #car", got[1].Notes)
		assert.Equal(t, "Checking", got[1].Account)
	})

	t.Run("ResolvesPatternFromGoal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		id := uuid.New()

		repo := goal.NewMockRepository(ctrl)
		repo.EXPECT().GetGoal(gomock.Any(), id).Return(&goal.Goal{ID: id, TagPattern: "trip"}, nil)
		repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#trip").Return([]*goal.TaggedTransaction{
			{ID: uuid.New(), Date: day(4), Amount: 900, ImportedDescription: "FLIGHTS #trip"},
		}, nil)

		got := newTestService(repo).Transactions(context.Background(), &id, "")
		require.Len(t, got, 1)
		assert.Equal(t, "FLIGHTS", got[0].Description)
	})

	t.Run("StoreErrorYieldsEmpty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := goal.NewMockRepository(ctrl)
		repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return(nil, errors.New("db error"))

		got := newTestService(repo).Transactions(context.Background(), nil, "car")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("InvalidPatternSkipsStore", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		got := newTestService(goal.NewMockRepository(ctrl)).Transactions(context.Background(), nil, "new car")
		assert.Empty(t, got)
	})
}
