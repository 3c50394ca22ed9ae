package payout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"creatorhub/entity"
)

type fakeStore struct {
	mu          sync.Mutex
	creators    map[string]*entity.Creator
	withdrawals []*entity.WithdrawalRequest

	failSave   error
	resetCalls int
}

func newFakeStore(creators ...*entity.Creator) *fakeStore {
	s := &fakeStore{creators: make(map[string]*entity.Creator)}
	for _, c := range creators {
		s.creators[c.Id] = c
	}
	return s
}

func (s *fakeStore) GetCreator(id string) (*entity.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *creator
	return &copied, nil
}

func (s *fakeStore) ResetProgress(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return entity.ErrNotFound
	}
	creator.Progress = make(map[entity.AreaKind]float64)
	s.resetCalls++
	return nil
}

func (s *fakeStore) IncrementLevel(id string) (*entity.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	creator.Level++
	now := time.Now()
	creator.LastLevelUpAt = &now
	copied := *creator
	return &copied, nil
}

func (s *fakeStore) TakeBonus(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return 0, entity.ErrNotFound
	}
	bonus := creator.BonusCents
	creator.BonusCents = 0
	return bonus, nil
}

func (s *fakeStore) AddBonus(id string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return entity.ErrNotFound
	}
	creator.BonusCents += amountCents
	return nil
}

func (s *fakeStore) SaveWithdrawal(request *entity.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.withdrawals = append(s.withdrawals, request)
	return nil
}

func (s *fakeStore) WithdrawalsByCreator(creatorId string) ([]*entity.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.WithdrawalRequest
	for _, w := range s.withdrawals {
		if w.CreatorId == creatorId {
			out = append(out, w)
		}
	}
	return out, nil
}

type fakeCoupons struct {
	mu       sync.Mutex
	calls    int
	failWith error
}

func (f *fakeCoupons) Recreate(_ context.Context, creatorId string) (*entity.CouponRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &entity.CouponRef{ExternalId: fmt.Sprintf("promo_%d", f.calls), Name: "NAME"}, nil
}

type fakeCodes struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCodes) InvalidateAll(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeEarnings struct {
	total int64
	err   error
}

func (f *fakeEarnings) EarnedTotal(string, time.Time) (int64, error) {
	return f.total, f.err
}

type fakeChat struct {
	mu        sync.Mutex
	messages  []string
	nicknames []string
}

func (f *fakeChat) SendDirectMessage(_ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeChat) SetNickname(_ int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames = append(f.nicknames, name)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyCreator() *entity.Creator {
	return &entity.Creator{
		Id:            "c1",
		Name:          "Alice",
		Level:         2,
		Contracted:    true,
		AssignedAreas: []entity.AreaKind{entity.AreaPhotos},
		Goals:         map[entity.AreaKind]float64{entity.AreaPhotos: 5},
		Progress:      map[entity.AreaKind]float64{entity.AreaPhotos: 7},
		BonusCents:    1500,
		TelegramId:    100,
	}
}

func bankDetails() *entity.PayoutDetails {
	return &entity.PayoutDetails{Method: "bank", Account: "PL0000", Country: "Poland"}
}

func TestWithdrawalHappyPath(t *testing.T) {
	store := newFakeStore(readyCreator())
	coupons := &fakeCoupons{}
	codes := &fakeCodes{}
	chat := &fakeChat{}
	o := New(store, coupons, codes, &fakeEarnings{total: 5000}, discardLogger())
	o.SetChat(chat)

	receipt, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails())
	if err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	if receipt.AmountCents != 6500 {
		t.Errorf("amount = %d, want 6500 (earned 5000 + bonus 1500)", receipt.AmountCents)
	}
	if receipt.NewLevel != 3 {
		t.Errorf("new level = %d, want 3", receipt.NewLevel)
	}
	if receipt.PayoutRef == "" {
		t.Error("empty payout ref")
	}

	after, _ := store.GetCreator("c1")
	if after.BonusCents != 0 {
		t.Errorf("bonus not consumed: %d", after.BonusCents)
	}
	if len(after.Progress) != 0 {
		t.Errorf("progress not reset: %v", after.Progress)
	}
	if after.Level != 3 {
		t.Errorf("level = %d, want 3", after.Level)
	}
	if coupons.calls != 1 {
		t.Errorf("coupon recreations = %d, want 1", coupons.calls)
	}
	if codes.calls != 1 {
		t.Errorf("code invalidations = %d, want 1", codes.calls)
	}

	saved := store.withdrawals
	if len(saved) != 1 {
		t.Fatalf("saved withdrawals = %d, want 1", len(saved))
	}
	if saved[0].ProgressSnapshot[entity.AreaPhotos] != 7 {
		t.Errorf("snapshot = %v, want pre-reset progress", saved[0].ProgressSnapshot)
	}
	if saved[0].Status != entity.WithdrawalCompleted {
		t.Errorf("status = %q", saved[0].Status)
	}
	if len(chat.messages) != 1 || len(chat.nicknames) != 1 {
		t.Errorf("chat side effects: %d messages, %d nicknames", len(chat.messages), len(chat.nicknames))
	}
	if chat.nicknames[0] != "Alice [L3]" {
		t.Errorf("nickname = %q, want Alice [L3]", chat.nicknames[0])
	}
}

func TestWithdrawalRequiresContract(t *testing.T) {
	creator := readyCreator()
	creator.Contracted = false
	o := New(newFakeStore(creator), &fakeCoupons{}, &fakeCodes{}, &fakeEarnings{total: 5000}, discardLogger())

	if _, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails()); !errors.Is(err, entity.ErrNotContracted) {
		t.Errorf("got %v, want ErrNotContracted", err)
	}
}

func TestWithdrawalGoalGate(t *testing.T) {
	creator := readyCreator()
	creator.Progress[entity.AreaPhotos] = 3
	store := newFakeStore(creator)
	coupons := &fakeCoupons{}
	o := New(store, coupons, &fakeCodes{}, &fakeEarnings{total: 5000}, discardLogger())

	_, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails())
	if !errors.Is(err, entity.ErrGoalsNotMet) {
		t.Fatalf("got %v, want ErrGoalsNotMet", err)
	}
	var goalsErr *entity.GoalsNotMetError
	if !errors.As(err, &goalsErr) {
		t.Fatalf("error does not carry the missing amounts: %v", err)
	}
	if goalsErr.Missing[entity.AreaPhotos] != 2 {
		t.Errorf("missing = %v, want photos:2", goalsErr.Missing)
	}

	// the gate must refuse before any state change
	after, _ := store.GetCreator("c1")
	if after.Level != 2 || after.BonusCents != 1500 {
		t.Errorf("gate mutated state: level=%d bonus=%d", after.Level, after.BonusCents)
	}
	if coupons.calls != 0 {
		t.Error("gate touched the coupon service")
	}
}

func TestWithdrawalNothingPayable(t *testing.T) {
	creator := readyCreator()
	creator.BonusCents = 0
	o := New(newFakeStore(creator), &fakeCoupons{}, &fakeCodes{}, &fakeEarnings{total: 0}, discardLogger())

	if _, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails()); !errors.Is(err, entity.ErrNothingToWithdraw) {
		t.Errorf("got %v, want ErrNothingToWithdraw", err)
	}
}

func TestWithdrawalWithoutEarningsSource(t *testing.T) {
	// no community database connected: bonus alone is payable
	o := New(newFakeStore(readyCreator()), &fakeCoupons{}, &fakeCodes{}, nil, discardLogger())

	receipt, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails())
	if err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	if receipt.AmountCents != 1500 {
		t.Errorf("amount = %d, want 1500", receipt.AmountCents)
	}
}

func TestWithdrawalSaveFailureRestoresBonus(t *testing.T) {
	store := newFakeStore(readyCreator())
	store.failSave = fmt.Errorf("write concern failed")
	o := New(store, &fakeCoupons{}, &fakeCodes{}, &fakeEarnings{total: 5000}, discardLogger())

	if _, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails()); err == nil {
		t.Fatal("expected error")
	}
	after, _ := store.GetCreator("c1")
	if after.BonusCents != 1500 {
		t.Errorf("bonus = %d, want 1500 restored", after.BonusCents)
	}
	if after.Level != 2 {
		t.Errorf("level = %d, want unchanged 2", after.Level)
	}
	if store.resetCalls != 0 {
		t.Error("progress reset despite failed save")
	}
}

func TestWithdrawalSurvivesCouponFailure(t *testing.T) {
	// once the withdrawal is recorded, a coupon hiccup must not undo it
	store := newFakeStore(readyCreator())
	coupons := &fakeCoupons{failWith: entity.ErrCouponCreateFailed}
	o := New(store, coupons, &fakeCodes{}, &fakeEarnings{total: 5000}, discardLogger())

	receipt, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails())
	if err != nil {
		t.Fatalf("withdrawal failed on coupon error: %v", err)
	}
	if receipt.AmountCents != 6500 {
		t.Errorf("amount = %d, want 6500", receipt.AmountCents)
	}
	if len(store.withdrawals) != 1 {
		t.Errorf("withdrawal record lost")
	}
}

func TestLevelUpHappyPath(t *testing.T) {
	creator := readyCreator()
	creator.Contracted = false
	store := newFakeStore(creator)
	coupons := &fakeCoupons{}
	codes := &fakeCodes{}
	o := New(store, coupons, codes, nil, discardLogger())

	updated, err := o.LevelUp(context.Background(), "c1")
	if err != nil {
		t.Fatalf("level up: %v", err)
	}
	if updated.Level != 3 {
		t.Errorf("level = %d, want 3", updated.Level)
	}
	if len(updated.Progress) != 0 {
		t.Errorf("progress not reset: %v", updated.Progress)
	}
	if coupons.calls != 1 || codes.calls != 1 {
		t.Errorf("coupon calls=%d codes calls=%d, want 1 each", coupons.calls, codes.calls)
	}
	// bonus is untouched by a plain level-up
	after, _ := store.GetCreator("c1")
	if after.BonusCents != 1500 {
		t.Errorf("bonus = %d, want 1500", after.BonusCents)
	}
}

func TestLevelUpGoalGate(t *testing.T) {
	creator := readyCreator()
	creator.Progress = map[entity.AreaKind]float64{}
	o := New(newFakeStore(creator), &fakeCoupons{}, &fakeCodes{}, nil, discardLogger())

	if _, err := o.LevelUp(context.Background(), "c1"); !errors.Is(err, entity.ErrGoalsNotMet) {
		t.Errorf("got %v, want ErrGoalsNotMet", err)
	}
}

func TestLevelUpAbortsOnCouponFailure(t *testing.T) {
	// without a monetary record to preserve, a coupon failure stops
	// everything before the creator's state changes
	store := newFakeStore(readyCreator())
	coupons := &fakeCoupons{failWith: entity.ErrCouponCreateFailed}
	codes := &fakeCodes{}
	o := New(store, coupons, codes, nil, discardLogger())

	if _, err := o.LevelUp(context.Background(), "c1"); !errors.Is(err, entity.ErrCouponCreateFailed) {
		t.Fatalf("got %v, want ErrCouponCreateFailed", err)
	}
	after, _ := store.GetCreator("c1")
	if after.Level != 2 {
		t.Errorf("level = %d, want unchanged 2", after.Level)
	}
	if after.Progress[entity.AreaPhotos] != 7 {
		t.Errorf("progress reset despite abort: %v", after.Progress)
	}
	if codes.calls != 0 {
		t.Error("codes invalidated despite abort")
	}
}

func TestGoalStatus(t *testing.T) {
	creator := readyCreator()
	creator.Progress[entity.AreaPhotos] = 4
	o := New(newFakeStore(creator), &fakeCoupons{}, &fakeCodes{}, nil, discardLogger())

	status, err := o.GoalStatus("c1")
	if err != nil {
		t.Fatalf("goal status: %v", err)
	}
	if status.Met {
		t.Error("status.Met = true, want false")
	}
	if status.Missing[entity.AreaPhotos] != 1 {
		t.Errorf("missing = %v, want photos:1", status.Missing)
	}

	if _, err = o.GoalStatus("ghost"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestWithdrawalsListing(t *testing.T) {
	store := newFakeStore(readyCreator())
	o := New(store, &fakeCoupons{}, &fakeCodes{}, &fakeEarnings{total: 100}, discardLogger())

	if _, err := o.RequestWithdrawal(context.Background(), "c1", bankDetails()); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	list, err := o.Withdrawals("c1")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d records, want 1", len(list))
	}
	if _, err = o.Withdrawals("ghost"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestConcurrentWithdrawalsSerialize(t *testing.T) {
	// repeated attempts race; the keyed lock lets exactly one pass the
	// payable gate per cycle, the rest see the drained bonus
	store := newFakeStore(readyCreator())
	o := New(store, &fakeCoupons{}, &fakeCodes{}, nil, discardLogger())

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = o.RequestWithdrawal(context.Background(), "c1", bankDetails())
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, entity.ErrNothingToWithdraw), errors.Is(err, entity.ErrGoalsNotMet):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("got %d successful withdrawals, want exactly 1", success)
	}
	if len(store.withdrawals) != 1 {
		t.Fatalf("%d withdrawal records, want 1", len(store.withdrawals))
	}
}
