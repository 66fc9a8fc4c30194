package goal_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/stash/internal/goal"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

// ledgerRepo backs a MockRepository with a single goal held in memory.
// The first listing for blockTag waits on gate after closing entered.
type ledgerRepo struct {
	mu     sync.Mutex
	goal   goal.Goal
	ledger map[string][]*goal.TaggedTransaction

	blockTag string
	entered  chan struct{}
	gate     chan struct{}
	once     sync.Once
}

func newLedgerRepo(ctrl *gomock.Controller, g goal.Goal, blockTag string) (*goal.MockRepository, *ledgerRepo) {
	l := &ledgerRepo{
		goal: g,
		ledger: map[string][]*goal.TaggedTransaction{
			"#car":      {{ID: uuid.New(), Amount: 50000, Notes: "Paycheck #car"}},
			"#vacation": {{ID: uuid.New(), Amount: 700, Notes: "Refund #vacation"}},
		},
		blockTag: blockTag,
		entered:  make(chan struct{}),
		gate:     make(chan struct{}),
	}

	m := goal.NewMockRepository(ctrl)

	m.EXPECT().ListGoals(gomock.Any()).DoAndReturn(func(context.Context) ([]*goal.Goal, error) {
		return []*goal.Goal{l.snapshot()}, nil
	}).AnyTimes()
	m.EXPECT().GetGoal(gomock.Any(), g.ID).DoAndReturn(func(context.Context, uuid.UUID) (*goal.Goal, error) {
		return l.snapshot(), nil
	}).AnyTimes()
	m.EXPECT().UpdateGoal(gomock.Any(), g.ID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, p goal.UpdateParams, at time.Time) error {
			l.mu.Lock()
			defer l.mu.Unlock()

			if p.TagPattern != nil {
				l.goal.TagPattern = *p.TagPattern
			}
			l.goal.UpdatedAt = at

			return nil
		}).AnyTimes()
	m.EXPECT().SetProgress(gomock.Any(), g.ID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, amount int64, _ time.Time) error {
			l.mu.Lock()
			defer l.mu.Unlock()

			l.goal.CurrentAmount = amount

			return nil
		}).AnyTimes()
	m.EXPECT().ListTaggedTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tag string) ([]*goal.TaggedTransaction, error) {
			if tag == l.blockTag {
				l.once.Do(func() {
					close(l.entered)
					<-l.gate
				})
			}

			return l.ledger[tag], nil
		}).AnyTimes()

	return m, l
}

func (l *ledgerRepo) snapshot() *goal.Goal {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.goal

	return &g
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
}

func TestRecalculator_TagChangeDuringImportRecalculation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := uuid.New()

	repo, l := newLedgerRepo(ctrl, goal.Goal{ID: id, Name: "Car", TargetAmount: 100000, TagPattern: "car"}, "#car")
	svc := newTestService(repo)
	history := undo.NewManager(10, logger)
	recalc := goal.NewRecalculator(svc, history)

	var wg sync.WaitGroup

	wg.Go(func() {
		_, err := recalc.Run(context.Background())
		assert.NoError(t, err)
	})

	// The recalculation has read the old tag and is about to sum it.
	waitClosed(t, l.entered)

	wg.Go(func() {
		err := history.Run(context.Background(), func(ctx context.Context) (*undo.Entry, error) {
			_, err := svc.Update(ctx, id, goal.UpdateParams{TagPattern: new("vacation")})
			return nil, err
		})
		assert.NoError(t, err)
	})

	time.Sleep(50 * time.Millisecond)
	close(l.gate)
	wg.Wait()

	got := l.snapshot()
	assert.Equal(t, "vacation", got.TagPattern)
	assert.Equal(t, int64(700), got.CurrentAmount)
}

func TestRecalculator_LateCallerGetsFreshRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := uuid.New()

	repo := goal.NewMockRepository(ctrl)

	entered := make(chan struct{})
	gate := make(chan struct{})

	var once sync.Once

	repo.EXPECT().ListGoals(gomock.Any()).Return([]*goal.Goal{{ID: id, TagPattern: "car"}}, nil).Times(2)
	repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").
		DoAndReturn(func(context.Context, string) ([]*goal.TaggedTransaction, error) {
			once.Do(func() {
				close(entered)
				<-gate
			})

			return nil, nil
		}).Times(2)
	repo.EXPECT().SetProgress(gomock.Any(), id, int64(0), fixedNow).Return(nil).Times(2)

	recalc := goal.NewRecalculator(newTestService(repo), undo.NewManager(10, logger))

	var wg sync.WaitGroup

	wg.Go(func() {
		_, err := recalc.Run(context.Background())
		assert.NoError(t, err)
	})

	waitClosed(t, entered)

	wg.Go(func() {
		result, err := recalc.Run(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{id}, result.Updated)
	})

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
}

func TestRecalculator_WaitingCallersShareRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := uuid.New()

	repo := goal.NewMockRepository(ctrl)
	repo.EXPECT().ListGoals(gomock.Any()).Return([]*goal.Goal{{ID: id, TagPattern: "car"}}, nil).Times(1)
	repo.EXPECT().ListTaggedTransactions(gomock.Any(), "#car").Return(nil, nil).Times(1)
	repo.EXPECT().SetProgress(gomock.Any(), id, int64(0), fixedNow).Return(nil).Times(1)

	history := undo.NewManager(10, logger)
	recalc := goal.NewRecalculator(newTestService(repo), history)

	held := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup

	// Another mutation holds the lock while both callers queue up.
	wg.Go(func() {
		err := history.Do(context.Background(), func(context.Context) error {
			close(held)
			<-release

			return nil
		})
		assert.NoError(t, err)
	})

	waitClosed(t, held)

	for range 2 {
		wg.Go(func() {
			result, err := recalc.Run(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []uuid.UUID{id}, result.Updated)
		})
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
}
