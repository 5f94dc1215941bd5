package service

import (
	"sync"

	"github.com/unclebandit/donorcall-backend/internal/model"
)

// CampaignState is the single shared record of the in-progress campaign.
// There is at most one live campaign; dispatch workers and webhook handlers
// mutate it concurrently, so every read-modify-write holds the mutex for
// the whole operation.
type CampaignState struct {
	mu         sync.Mutex
	active     bool
	bloodGroup string
	totalCalls int
	answered   map[string]struct{} // phone numbers whose call completed
	confirmed  []model.Donor       // donors who pressed the confirm digit, in arrival order
	confirmedBy map[string]struct{}
}

// CampaignSnapshot is a consistent copy of the state at one instant.
type CampaignSnapshot struct {
	Active        bool
	BloodGroup    string
	TotalCalls    int
	AnsweredCalls int
	Confirmed     []model.Donor
}

func NewCampaignState() *CampaignState {
	return &CampaignState{
		answered:    make(map[string]struct{}),
		confirmedBy: make(map[string]struct{}),
	}
}

// Begin overwrites any prior campaign with a fresh one. Returns true when a
// campaign was already active (single-active-campaign constraint: the caller
// logs a warning, the old state is discarded, never merged).
func (s *CampaignState) Begin(bloodGroup string, totalCalls int) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced = s.active
	s.active = true
	s.bloodGroup = bloodGroup
	s.totalCalls = totalCalls
	s.answered = make(map[string]struct{})
	s.confirmed = nil
	s.confirmedBy = make(map[string]struct{})
	return replaced
}

// MarkAnswered adds a phone number to the answered set. Idempotent under
// repeated delivery; reports false for duplicates or when no campaign is open.
func (s *CampaignState) MarkAnswered(phoneNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false
	}
	if _, seen := s.answered[phoneNumber]; seen {
		return false
	}
	s.answered[phoneNumber] = struct{}{}
	return true
}

// AddConfirmed appends a donor snapshot to the confirmed list unless the
// number already confirmed this campaign. Returns true on first confirmation.
func (s *CampaignState) AddConfirmed(d model.Donor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.confirmedBy[d.PhoneNumber]; seen {
		return false
	}
	s.confirmedBy[d.PhoneNumber] = struct{}{}
	s.confirmed = append(s.confirmed, d)
	return true
}

// Snapshot returns a consistent copy of the current campaign.
func (s *CampaignState) Snapshot() CampaignSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	confirmed := make([]model.Donor, len(s.confirmed))
	copy(confirmed, s.confirmed)

	return CampaignSnapshot{
		Active:        s.active,
		BloodGroup:    s.bloodGroup,
		TotalCalls:    s.totalCalls,
		AnsweredCalls: len(s.answered),
		Confirmed:     confirmed,
	}
}

// Reset clears the state back to idle. Full overwrite, not a merge: events
// reconciled between a finalize snapshot and this reset are lost updates,
// which the consistency model accepts.
func (s *CampaignState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
	s.bloodGroup = ""
	s.totalCalls = 0
	s.answered = make(map[string]struct{})
	s.confirmed = nil
	s.confirmedBy = make(map[string]struct{})
}
