package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/donorcall-backend/internal/errors"
	"github.com/unclebandit/donorcall-backend/internal/logger"
	"github.com/unclebandit/donorcall-backend/internal/model"
	"github.com/unclebandit/donorcall-backend/internal/phone"
	"github.com/unclebandit/donorcall-backend/internal/queue"
	"github.com/unclebandit/donorcall-backend/internal/repository"
	"github.com/unclebandit/donorcall-backend/internal/twiml"
)

// CallGateway is the narrow telephony interface the service depends on.
// Implemented by twilio.Client.
type CallGateway interface {
	PlaceCall(ctx context.Context, to string) (sid string, err error)
}

type CampaignService struct {
	DonorRepo   repository.DonorRepositoryInterface
	HistoryRepo repository.HistoryRepositoryInterface
	Gateway     CallGateway
	Queue       queue.Queue
	State       *CampaignState

	GatherURL          string // action URL for the digit-collection webhook
	MaxConcurrentCalls int    // 0 means the default bound of 5
	ConfirmDigit       string // 0 value means "1"
	RemoveOnConfirm    bool   // drop a donor from the active pool once confirmed
}

// Result struct for CallDonors
type CallDonorsResult struct {
	BloodGroup string `json:"blood_group"`
	Count      int    `json:"count"`
}

// CallDonors starts a campaign: fetches every donor with the given blood
// group and fans out one call per donor with a bounded number in flight.
// Per-donor placement failures are logged and skipped; the returned count is
// the number of donors the campaign was attempted for.
func (s *CampaignService) CallDonors(ctx context.Context, bloodGroup string) (*CallDonorsResult, error) {
	bloodGroup = strings.TrimSpace(bloodGroup)
	if bloodGroup == "" {
		return nil, appErrors.ErrMissingBloodGroup
	}

	donors, err := s.DonorRepo.ListByBloodGroup(bloodGroup)
	if err != nil {
		return nil, err
	}
	if len(donors) == 0 {
		// campaign state is left untouched
		return nil, appErrors.NewNoDonorsFound(bloodGroup)
	}

	if replaced := s.State.Begin(bloodGroup, len(donors)); replaced {
		logger.Log.Warnf("Overwriting an open campaign with a new %s campaign", bloodGroup)
	}

	limit := s.MaxConcurrentCalls
	if limit < 1 {
		limit = 5
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, donor := range donors {
		donor := donor
		g.Go(func() error {
			s.placeCall(gctx, donor)
			return nil // best effort, independent per donor
		})
	}
	g.Wait()

	return &CallDonorsResult{BloodGroup: bloodGroup, Count: len(donors)}, nil
}

func (s *CampaignService) placeCall(ctx context.Context, donor model.Donor) {
	to, err := phone.Normalize(donor.PhoneNumber)
	if err != nil {
		logger.Log.Warnf("Skipping donor %s: %v", donor.Name, err)
		return
	}

	sid, err := s.Gateway.PlaceCall(ctx, to)
	if err != nil {
		logger.Log.Warnf("Call failed for %s: %v", to, err)
		return
	}

	logger.Log.Infof("[CALL] %s (%s) at %s: %s", donor.Name, donor.BloodGroup, to, sid)
	s.publishEvent(queue.CallEvent{
		EventID:     uuid.New(),
		PhoneNumber: to,
		DonorName:   donor.Name,
		CallSID:     sid,
		Status:      "initiated",
		OccurredAt:  time.Now(),
	})
}

// HandleDigit reconciles a keypress reported by the gateway and returns the
// voice document for the call's final turn. Confirmation is idempotent: a
// redelivered digit event neither duplicates the in-memory entry nor the
// confirmed-store row.
func (s *CampaignService) HandleDigit(ctx context.Context, reportedNumber, digit string) string {
	confirmDigit := s.ConfirmDigit
	if confirmDigit == "" {
		confirmDigit = "1"
	}
	if digit != confirmDigit {
		return twiml.Declined()
	}

	normalized, err := phone.Normalize(reportedNumber)
	if err != nil {
		logger.Log.Warnf("Unparseable number in digit event: %v", err)
		return twiml.NotFound()
	}

	donor, err := s.DonorRepo.GetByPhone(normalized)
	if err != nil {
		logger.Log.Errorf("Donor lookup failed for %s: %v", normalized, err)
		return twiml.NotFound()
	}
	if donor == nil {
		// Reconciliation miss: the provider reported a number the
		// directory does not know. Expected for numbers outside the pool.
		logger.Log.Warnf("Donor not found for number: %s", normalized)
		return twiml.NotFound()
	}
	donor.PhoneNumber = normalized

	if first := s.State.AddConfirmed(*donor); first {
		logger.Log.Infof("[CONFIRMED] %s moved to confirmed donors", donor.Name)

		// Persistence failures never roll back the in-memory confirmation.
		if err := s.DonorRepo.InsertConfirmed(donor); err != nil {
			logger.Log.Errorf("Failed to persist confirmation for %s: %v", normalized, err)
		}
		if s.RemoveOnConfirm {
			if err := s.DonorRepo.Delete(donor.ID); err != nil {
				logger.Log.Errorf("Failed to remove confirmed donor %d: %v", donor.ID, err)
			}
		}
	}

	return twiml.Confirmed()
}

// HandleStatus reconciles a call-status callback. "completed" adds the
// number to the answered set (idempotent); every other status is accepted
// and ignored. The status is also forwarded to the call log.
func (s *CampaignService) HandleStatus(ctx context.Context, reportedNumber, status string) {
	normalized, err := phone.Normalize(reportedNumber)
	if err != nil {
		logger.Log.Warnf("Unparseable number in status event: %v", err)
		return
	}

	logger.Log.Infof("[STATUS] Call to %s ended with status: %s", normalized, status)
	s.publishEvent(queue.CallEvent{
		EventID:     uuid.New(),
		PhoneNumber: normalized,
		Status:      status,
		OccurredAt:  time.Now(),
	})

	if status == "completed" {
		s.State.MarkAnswered(normalized)
	}
}

// Finalize archives the just-closed campaign and resets working state.
// The confirmed-donors store is the source of truth for who confirmed; the
// in-memory list only guards idempotence during the campaign.
func (s *CampaignService) Finalize(ctx context.Context) (*model.HistoryRecord, error) {
	confirmed, err := s.DonorRepo.ListConfirmed()
	if err != nil {
		return nil, err
	}

	snap := s.State.Snapshot()

	rec := &model.HistoryRecord{
		BloodGroup:      snap.BloodGroup,
		TotalCalls:      snap.TotalCalls,
		AnsweredCalls:   snap.AnsweredCalls,
		ConfirmedCount:  len(confirmed),
		ConfirmedDonors: confirmed,
	}

	// Availability over strict persistence consistency: failures here are
	// logged and the reset still happens.
	if err := s.HistoryRepo.Insert(rec); err != nil {
		logger.Log.Errorf("Failed to write history record: %v", err)
	}
	if err := s.DonorRepo.DeleteAllConfirmed(); err != nil {
		logger.Log.Errorf("Failed to clear confirmed donors: %v", err)
	}

	s.State.Reset()
	logger.Log.Info("[FINALIZED] History saved and confirmed donors cleared")
	return rec, nil
}

func (s *CampaignService) publishEvent(ev queue.CallEvent) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(queue.TopicCallEvents, ev); err != nil {
		logger.Log.Warnf("Failed to publish call event for %s: %v", ev.PhoneNumber, err)
	}
}
