package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/donorcall-backend/internal/model"
	"github.com/unclebandit/donorcall-backend/internal/phone"
	"github.com/unclebandit/donorcall-backend/internal/queue"
	"github.com/unclebandit/donorcall-backend/internal/service"
)

// --- Mocks ---

type MockDonorRepo struct {
	mu        sync.Mutex
	donors    []model.Donor
	confirmed []model.Donor

	insertConfirmedErr error
	deleted            []int
}

func (m *MockDonorRepo) ListByBloodGroup(group string) ([]model.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Donor{}
	for _, d := range m.donors {
		if d.BloodGroup == group {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MockDonorRepo) GetByPhone(phoneNumber string) (*model.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.donors {
		if phone.Digits(d.PhoneNumber) == phone.Digits(phoneNumber) {
			found := d
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockDonorRepo) Delete(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MockDonorRepo) InsertConfirmed(d *model.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertConfirmedErr != nil {
		return m.insertConfirmedErr
	}
	m.confirmed = append(m.confirmed, *d)
	return nil
}

func (m *MockDonorRepo) ListConfirmed() ([]model.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Donor, len(m.confirmed))
	copy(out, m.confirmed)
	return out, nil
}

func (m *MockDonorRepo) DeleteAllConfirmed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = nil
	return nil
}

func (m *MockDonorRepo) confirmedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.confirmed)
}

type MockHistoryRepo struct {
	mu      sync.Mutex
	records []model.HistoryRecord
	err     error
}

func (m *MockHistoryRepo) Insert(rec *model.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = len(m.records) + 1
	m.records = append(m.records, *rec)
	return nil
}

type MockGateway struct {
	mu       sync.Mutex
	calls    []string
	failFor  map[string]bool
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (m *MockGateway) PlaceCall(ctx context.Context, to string) (string, error) {
	cur := atomic.AddInt32(&m.inFlight, 1)
	for {
		max := atomic.LoadInt32(&m.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&m.maxSeen, max, cur) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	atomic.AddInt32(&m.inFlight, -1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return "", fmt.Errorf("placement rejected for %s", to)
	}
	m.calls = append(m.calls, to)
	return fmt.Sprintf("CA%04d", len(m.calls)), nil
}

type MockQueue struct {
	mu     sync.Mutex
	events []queue.CallEvent
}

func (m *MockQueue) Publish(topic string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := payload.(queue.CallEvent); ok {
		m.events = append(m.events, ev)
	}
	return nil
}

func (m *MockQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

func (m *MockQueue) byStatus(status string) []queue.CallEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []queue.CallEvent{}
	for _, ev := range m.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}

func bPlusDonors() []model.Donor {
	return []model.Donor{
		{ID: 1, Name: "Arun Kumar", Age: 28, BloodGroup: "B+", PhoneNumber: "+919876543210", Location: "Chennai"},
		{ID: 2, Name: "Priya Sharma", Age: 34, BloodGroup: "B+", PhoneNumber: "919812345678", Location: "Delhi"},
		{ID: 3, Name: "Rahul Menon", Age: 41, BloodGroup: "B+", PhoneNumber: "+919845012345", Location: "Kochi"},
	}
}

func newTestService(repo *MockDonorRepo) (*service.CampaignService, *MockGateway, *MockQueue, *MockHistoryRepo) {
	gateway := &MockGateway{}
	q := &MockQueue{}
	history := &MockHistoryRepo{}
	svc := &service.CampaignService{
		DonorRepo:   repo,
		HistoryRepo: history,
		Gateway:     gateway,
		Queue:       q,
		State:       service.NewCampaignState(),
	}
	return svc, gateway, q, history
}

// --- Dispatch ---

func TestCallDonorsInitializesCampaign(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, gateway, q, _ := newTestService(repo)

	result, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)
	require.Equal(t, 3, result.Count)

	snap := svc.State.Snapshot()
	require.True(t, snap.Active)
	require.Equal(t, "B+", snap.BloodGroup)
	require.Equal(t, 3, snap.TotalCalls)
	require.Equal(t, 0, snap.AnsweredCalls)
	require.Empty(t, snap.Confirmed)

	require.Len(t, gateway.calls, 3)
	for _, to := range gateway.calls {
		require.Regexp(t, `^\+\d+$`, to)
	}
	require.Len(t, q.byStatus("initiated"), 3)
}

func TestCallDonorsMissingBloodGroup(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, gateway, _, _ := newTestService(repo)

	for _, group := range []string{"", "   "} {
		_, err := svc.CallDonors(context.Background(), group)
		require.EqualError(t, err, "blood_group is required")
	}

	require.False(t, svc.State.Snapshot().Active)
	require.Empty(t, gateway.calls)
}

func TestCallDonorsUnknownGroupLeavesStateUntouched(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)

	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	_, err = svc.CallDonors(context.Background(), "AB-")
	require.EqualError(t, err, "no AB- donors found")

	// the open B+ campaign survives
	snap := svc.State.Snapshot()
	require.Equal(t, "B+", snap.BloodGroup)
	require.Equal(t, 3, snap.TotalCalls)
}

func TestCallDonorsPlacementFailureContinues(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, gateway, q, _ := newTestService(repo)
	gateway.failFor = map[string]bool{"+919812345678": true}

	result, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	// count reports attempted recipients, not successful placements
	require.Equal(t, 3, result.Count)
	require.Len(t, gateway.calls, 2)
	require.Len(t, q.byStatus("initiated"), 2)
}

func TestCallDonorsBoundsConcurrency(t *testing.T) {
	donors := []model.Donor{}
	for i := 0; i < 8; i++ {
		donors = append(donors, model.Donor{
			ID:          i + 1,
			Name:        fmt.Sprintf("Donor %d", i+1),
			BloodGroup:  "O+",
			PhoneNumber: fmt.Sprintf("+9198000000%02d", i),
		})
	}
	repo := &MockDonorRepo{donors: donors}
	svc, gateway, _, _ := newTestService(repo)
	svc.MaxConcurrentCalls = 2
	gateway.delay = 20 * time.Millisecond

	_, err := svc.CallDonors(context.Background(), "O+")
	require.NoError(t, err)
	require.LessOrEqual(t, atomic.LoadInt32(&gateway.maxSeen), int32(2))
	require.Len(t, gateway.calls, 8)
}

// --- Digit events ---

func TestHandleDigitConfirmIsIdempotent(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	first := svc.HandleDigit(context.Background(), "+919876543210", "1")
	second := svc.HandleDigit(context.Background(), "+919876543210", "1")

	require.Contains(t, first, "Thank you for confirming")
	require.Contains(t, second, "Thank you for confirming")

	snap := svc.State.Snapshot()
	require.Len(t, snap.Confirmed, 1)
	require.Equal(t, "Arun Kumar", snap.Confirmed[0].Name)
	// the store was written exactly once
	require.Equal(t, 1, repo.confirmedCount())
}

func TestHandleDigitDeclined(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	doc := svc.HandleDigit(context.Background(), "+919876543210", "2")
	require.Contains(t, doc, "Thank you for your response")

	require.Empty(t, svc.State.Snapshot().Confirmed)
	require.Zero(t, repo.confirmedCount())
}

func TestHandleDigitUnknownNumber(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	doc := svc.HandleDigit(context.Background(), "+911111111111", "1")
	require.Contains(t, doc, "could not find your record")

	require.Empty(t, svc.State.Snapshot().Confirmed)
	require.Zero(t, repo.confirmedCount())
}

func TestHandleDigitResolvesDigitsOnlyRow(t *testing.T) {
	// Priya's directory row has no leading "+"; the gateway reports one.
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	doc := svc.HandleDigit(context.Background(), "+919812345678", "1")
	require.Contains(t, doc, "Thank you for confirming")

	snap := svc.State.Snapshot()
	require.Len(t, snap.Confirmed, 1)
	require.Equal(t, "+919812345678", snap.Confirmed[0].PhoneNumber)
}

func TestHandleDigitRemoveOnConfirm(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)
	svc.RemoveOnConfirm = true
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	svc.HandleDigit(context.Background(), "+919876543210", "1")
	svc.HandleDigit(context.Background(), "+919876543210", "1")

	require.Equal(t, []int{1}, repo.deleted)
}

func TestHandleDigitStoreFailureKeepsMemoryState(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	repo.insertConfirmedErr = fmt.Errorf("connection reset")
	svc, _, _, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	doc := svc.HandleDigit(context.Background(), "+919876543210", "1")
	require.Contains(t, doc, "Thank you for confirming")
	require.Len(t, svc.State.Snapshot().Confirmed, 1)
}

// --- Status events ---

func TestHandleStatusCompletedSetSemantics(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, q, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	svc.HandleStatus(context.Background(), "+919876543210", "completed")
	svc.HandleStatus(context.Background(), "+919876543210", "completed")

	require.Equal(t, 1, svc.State.Snapshot().AnsweredCalls)
	// both deliveries still reach the call log
	require.Len(t, q.byStatus("completed"), 2)
}

func TestHandleStatusOtherStatusesIgnored(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, q, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	for _, status := range []string{"busy", "no-answer", "failed", "canceled"} {
		svc.HandleStatus(context.Background(), "+919876543210", status)
	}

	require.Equal(t, 0, svc.State.Snapshot().AnsweredCalls)
	require.Len(t, q.byStatus("busy"), 1)
}

func TestHandleStatusWithoutCampaign(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)

	svc.HandleStatus(context.Background(), "+919876543210", "completed")
	require.Equal(t, 0, svc.State.Snapshot().AnsweredCalls)
}

func TestEventOrderIndependence(t *testing.T) {
	run := func(statusFirst bool) service.CampaignSnapshot {
		repo := &MockDonorRepo{donors: bPlusDonors()}
		svc, _, _, _ := newTestService(repo)
		_, err := svc.CallDonors(context.Background(), "B+")
		require.NoError(t, err)

		if statusFirst {
			svc.HandleStatus(context.Background(), "+919876543210", "completed")
			svc.HandleDigit(context.Background(), "+919876543210", "1")
		} else {
			svc.HandleDigit(context.Background(), "+919876543210", "1")
			svc.HandleStatus(context.Background(), "+919876543210", "completed")
		}
		return svc.State.Snapshot()
	}

	a := run(true)
	b := run(false)
	require.Equal(t, a.AnsweredCalls, b.AnsweredCalls)
	require.Equal(t, a.Confirmed, b.Confirmed)
}

// --- Finalize ---

func TestFinalizeArchivesAndResets(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, history := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	svc.HandleDigit(context.Background(), "+919876543210", "1")
	svc.HandleDigit(context.Background(), "+919812345678", "1")
	svc.HandleStatus(context.Background(), "+919876543210", "completed")

	rec, err := svc.Finalize(context.Background())
	require.NoError(t, err)
	require.Equal(t, "B+", rec.BloodGroup)
	require.Equal(t, 3, rec.TotalCalls)
	require.Equal(t, 1, rec.AnsweredCalls)
	require.Equal(t, 2, rec.ConfirmedCount)
	require.Len(t, rec.ConfirmedDonors, 2)

	require.Len(t, history.records, 1)
	require.Zero(t, repo.confirmedCount())

	snap := svc.State.Snapshot()
	require.False(t, snap.Active)
	require.Zero(t, snap.TotalCalls)
	require.Zero(t, snap.AnsweredCalls)
	require.Empty(t, snap.Confirmed)
}

func TestFinalizeHistoryFailureStillResets(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, history := newTestService(repo)
	history.err = fmt.Errorf("history table unavailable")
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	rec, err := svc.Finalize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.False(t, svc.State.Snapshot().Active)
}

func TestFullCampaignScenario(t *testing.T) {
	// dispatch to B+ with 3 donors, three digit events (one duplicate),
	// one completed status, then finalize.
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)

	result, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)
	require.Equal(t, 3, result.Count)

	svc.HandleDigit(context.Background(), "+919876543210", "1")
	svc.HandleDigit(context.Background(), "+919812345678", "1")
	svc.HandleDigit(context.Background(), "+919876543210", "1") // duplicate delivery
	svc.HandleStatus(context.Background(), "+919876543210", "completed")

	rec, err := svc.Finalize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, rec.TotalCalls)
	require.Equal(t, 1, rec.AnsweredCalls)
	require.Equal(t, 2, rec.ConfirmedCount)

	// a fresh campaign starts from zero
	result, err = svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)
	require.Equal(t, 3, result.Count)
	snap := svc.State.Snapshot()
	require.Equal(t, 0, snap.AnsweredCalls)
	require.Empty(t, snap.Confirmed)
}

func TestConcurrentEventDelivery(t *testing.T) {
	repo := &MockDonorRepo{donors: bPlusDonors()}
	svc, _, _, _ := newTestService(repo)
	_, err := svc.CallDonors(context.Background(), "B+")
	require.NoError(t, err)

	numbers := []string{"+919876543210", "+919812345678", "+919845012345"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for _, n := range numbers {
			n := n
			wg.Add(2)
			go func() {
				defer wg.Done()
				svc.HandleDigit(context.Background(), n, "1")
			}()
			go func() {
				defer wg.Done()
				svc.HandleStatus(context.Background(), n, "completed")
			}()
		}
	}
	wg.Wait()

	snap := svc.State.Snapshot()
	require.Equal(t, 3, snap.AnsweredCalls)
	require.Len(t, snap.Confirmed, 3)
	require.Equal(t, 3, repo.confirmedCount())
}
