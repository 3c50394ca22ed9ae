package coupon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"creatorhub/entity"
	"creatorhub/internal/config"
)

type memStore struct {
	mu       sync.Mutex
	creators map[string]*entity.Creator
	setCalls int
}

func newMemStore(creators ...*entity.Creator) *memStore {
	s := &memStore{creators: make(map[string]*entity.Creator)}
	for _, c := range creators {
		s.creators[c.Id] = c
	}
	return s
}

func (s *memStore) GetCreator(id string) (*entity.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *creator
	return &copied, nil
}

func (s *memStore) SetCouponRef(id string, ref *entity.CouponRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creator, ok := s.creators[id]
	if !ok {
		return entity.ErrNotFound
	}
	creator.Coupon = ref
	s.setCalls++
	return nil
}

// fakeService simulates the remote coupon service: a name registry with
// scriptable per-call failures.
type fakeService struct {
	mu      sync.Mutex
	nextId  int
	byId    map[string]*entity.RemoteCoupon
	byName  map[string]string
	creates int
	deletes int

	// failCreate returns a non-nil error for the nth create call (1-based).
	failCreate func(call int) error
}

func newFakeService() *fakeService {
	return &fakeService{
		byId:   make(map[string]*entity.RemoteCoupon),
		byName: make(map[string]string),
	}
}

func (f *fakeService) Create(_ context.Context, name string, _ float64) (*entity.CouponRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failCreate != nil {
		if err := f.failCreate(f.creates); err != nil {
			return nil, err
		}
	}
	if _, taken := f.byName[name]; taken {
		return nil, entity.ErrCouponNameTaken
	}
	f.nextId++
	id := fmt.Sprintf("promo_%d", f.nextId)
	f.byId[id] = &entity.RemoteCoupon{Id: id, Name: name}
	f.byName[name] = id
	return &entity.CouponRef{ExternalId: id, Name: name}, nil
}

func (f *fakeService) Delete(_ context.Context, externalId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	remote, ok := f.byId[externalId]
	if !ok {
		return entity.ErrCouponNotFound
	}
	delete(f.byName, remote.Name)
	delete(f.byId, externalId)
	return nil
}

func (f *fakeService) Get(_ context.Context, externalId string) (*entity.RemoteCoupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	remote, ok := f.byId[externalId]
	if !ok {
		return nil, entity.ErrCouponNotFound
	}
	copied := *remote
	return &copied, nil
}

func (f *fakeService) claim(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextId++
	id := fmt.Sprintf("promo_%d", f.nextId)
	f.byId[id] = &entity.RemoteCoupon{Id: id, Name: name}
	f.byName[name] = id
}

func testManager(store Store, svc Service) *Manager {
	conf := &config.Config{}
	conf.Program.CouponRetryAttempts = 3
	conf.Program.CouponRetryDelaySec = 0
	conf.Program.CouponSettleSec = 0
	conf.Program.CouponPercentOff = 10
	return New(store, svc, conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateStoresRefOnSuccess(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice"})
	svc := newFakeService()
	m := testManager(store, svc)

	ref, err := m.Create(context.Background(), "c1", "ALICE10", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref.Name != "ALICE10" {
		t.Errorf("name = %q, want ALICE10", ref.Name)
	}
	stored, _ := store.GetCreator("c1")
	if stored.Coupon == nil || stored.Coupon.ExternalId != ref.ExternalId {
		t.Errorf("stored ref = %+v, want %+v", stored.Coupon, ref)
	}
}

func TestCreateReplacesExistingCoupon(t *testing.T) {
	// one live coupon per creator: a second create tears the old one down
	svc := newFakeService()
	old, err := svc.Create(context.Background(), "OLDNAME", 10)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(&entity.Creator{
		Id:     "c1",
		Name:   "Alice",
		Coupon: &entity.CouponRef{ExternalId: old.ExternalId, Name: "OLDNAME"},
	})
	m := testManager(store, svc)

	fresh, err := m.Create(context.Background(), "c1", "NEWNAME", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = svc.Get(context.Background(), old.ExternalId); !errors.Is(err, entity.ErrCouponNotFound) {
		t.Error("old coupon left live remotely")
	}
	stored, _ := store.GetCreator("c1")
	if stored.Coupon == nil || stored.Coupon.ExternalId != fresh.ExternalId {
		t.Errorf("stored ref = %+v, want %+v", stored.Coupon, fresh)
	}
}

func TestCreateNameTakenNoDisambiguation(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice"})
	svc := newFakeService()
	svc.claim("ALICE10")
	m := testManager(store, svc)

	_, err := m.Create(context.Background(), "c1", "ALICE10", false)
	if !errors.Is(err, entity.ErrCouponCreateFailed) {
		t.Fatalf("got %v, want ErrCouponCreateFailed", err)
	}
	// the collision sentinel stays in the chain so the API maps it to 409
	if !errors.Is(err, entity.ErrCouponNameTaken) {
		t.Fatalf("got %v, want ErrCouponNameTaken in the chain", err)
	}
	stored, _ := store.GetCreator("c1")
	if stored.Coupon != nil {
		t.Error("failed create must not store a ref")
	}
	// without disambiguation every attempt uses the same taken name
	for name := range svc.byName {
		if name != "ALICE10" {
			t.Errorf("unexpected coupon created: %s", name)
		}
	}
}

func TestCreateDisambiguatesWhenAsked(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice"})
	svc := newFakeService()
	svc.claim("ALICE")
	m := testManager(store, svc)

	ref, err := m.Create(context.Background(), "c1", "ALICE", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref.Name == "ALICE" {
		t.Fatal("expected a disambiguated name")
	}
	if !strings.HasPrefix(ref.Name, "ALICE") {
		t.Errorf("disambiguated name %q does not keep the base", ref.Name)
	}
}

func TestCreateRetriesTransientFailures(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice"})
	svc := newFakeService()
	svc.failCreate = func(call int) error {
		if call <= 2 {
			return fmt.Errorf("remote unavailable")
		}
		return nil
	}
	m := testManager(store, svc)

	ref, err := m.Create(context.Background(), "c1", "ALICE10", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref.Name != "ALICE10" {
		t.Errorf("name = %q, want ALICE10", ref.Name)
	}
	if svc.creates != 3 {
		t.Errorf("creates = %d, want 3", svc.creates)
	}
}

func TestCreateUnknownCreator(t *testing.T) {
	m := testManager(newMemStore(), newFakeService())
	if _, err := m.Create(context.Background(), "ghost", "X", false); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteNotFoundIsSuccess(t *testing.T) {
	m := testManager(newMemStore(), newFakeService())
	ref := &entity.CouponRef{ExternalId: "promo_missing", Name: "GONE"}
	if err := m.Delete(context.Background(), ref); err != nil {
		t.Fatalf("delete of missing coupon: %v", err)
	}
	if err := m.Delete(context.Background(), nil); err != nil {
		t.Fatalf("delete of nil ref: %v", err)
	}
}

func TestDeleteRemovesRemote(t *testing.T) {
	svc := newFakeService()
	m := testManager(newMemStore(), svc)
	ref, err := svc.Create(context.Background(), "ALICE10", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err = m.Delete(context.Background(), ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err = svc.Get(context.Background(), ref.ExternalId); !errors.Is(err, entity.ErrCouponNotFound) {
		t.Errorf("coupon still present: %v", err)
	}
	// repeating is a no-op
	if err = m.Delete(context.Background(), ref); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRecreatePreservesName(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice"})
	svc := newFakeService()
	m := testManager(store, svc)

	first, err := m.Create(context.Background(), "c1", "ALICE10", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second, err := m.Recreate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if second.Name != "ALICE10" {
		t.Errorf("recreated name = %q, want ALICE10", second.Name)
	}
	if second.ExternalId == first.ExternalId {
		t.Error("recreate must produce a fresh external id")
	}
	if _, err = svc.Get(context.Background(), first.ExternalId); !errors.Is(err, entity.ErrCouponNotFound) {
		t.Error("old coupon not removed")
	}
	stored, _ := store.GetCreator("c1")
	if stored.Coupon == nil || stored.Coupon.ExternalId != second.ExternalId {
		t.Errorf("stored ref = %+v, want %+v", stored.Coupon, second)
	}
}

func TestRecreateUsesRemoteName(t *testing.T) {
	// the stored name drifted from the remote one; the remote wins
	svc := newFakeService()
	remote, err := svc.Create(context.Background(), "TRUENAME", 10)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(&entity.Creator{
		Id:     "c1",
		Name:   "Alice",
		Coupon: &entity.CouponRef{ExternalId: remote.ExternalId, Name: "STALENAME"},
	})
	m := testManager(store, svc)

	ref, err := m.Recreate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if ref.Name != "TRUENAME" {
		t.Errorf("name = %q, want TRUENAME", ref.Name)
	}
}

func TestRecreateWithoutExistingCoupon(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice Example"})
	svc := newFakeService()
	m := testManager(store, svc)

	ref, err := m.Recreate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if !strings.HasPrefix(ref.Name, "ALICEEXAMPLE") {
		t.Errorf("derived name = %q", ref.Name)
	}
}

func TestRecreateFailureKeepsNoStaleRef(t *testing.T) {
	svc := newFakeService()
	remote, err := svc.Create(context.Background(), "ALICE10", 10)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore(&entity.Creator{
		Id:     "c1",
		Name:   "Alice",
		Coupon: &entity.CouponRef{ExternalId: remote.ExternalId, Name: "ALICE10"},
	})
	// every create after the delete fails
	svc.failCreate = func(int) error { return fmt.Errorf("remote unavailable") }
	m := testManager(store, svc)

	if _, err = m.Recreate(context.Background(), "c1"); !errors.Is(err, entity.ErrCouponCreateFailed) {
		t.Fatalf("got %v, want ErrCouponCreateFailed", err)
	}
	if store.setCalls != 0 {
		t.Error("failed recreate must not rewrite the stored ref")
	}
}

func TestSalesClearsStaleReference(t *testing.T) {
	store := newMemStore(&entity.Creator{
		Id:     "c1",
		Name:   "Alice",
		Coupon: &entity.CouponRef{ExternalId: "promo_gone", Name: "ALICE10"},
	})
	m := testManager(store, newFakeService())

	total, err := m.Sales(context.Background(), "c1")
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	stored, _ := store.GetCreator("c1")
	if stored.Coupon != nil {
		t.Error("stale reference not cleared")
	}
}

func TestSalesReportsRemoteCounter(t *testing.T) {
	svc := newFakeService()
	remote, err := svc.Create(context.Background(), "ALICE10", 10)
	if err != nil {
		t.Fatal(err)
	}
	svc.byId[remote.ExternalId].SalesTotal = 42
	store := newMemStore(&entity.Creator{
		Id:     "c1",
		Name:   "Alice",
		Coupon: &entity.CouponRef{ExternalId: remote.ExternalId, Name: "ALICE10"},
	})
	m := testManager(store, svc)

	total, err := m.Sales(context.Background(), "c1")
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if total != 42 {
		t.Errorf("total = %d, want 42", total)
	}
}

func TestSalesWithoutCoupon(t *testing.T) {
	store := newMemStore(&entity.Creator{Id: "c1", Name: "Alice"})
	m := testManager(store, newFakeService())
	total, err := m.Sales(context.Background(), "c1")
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}
