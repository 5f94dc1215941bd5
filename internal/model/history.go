package model

import "time"

// HistoryRecord is the archived summary of one finished campaign.
// Immutable once written.
type HistoryRecord struct {
    ID              int       `db:"id" json:"id"`
    BloodGroup      string    `db:"blood_group" json:"blood_group"`
    TotalCalls      int       `db:"total_calls" json:"total_calls"`
    AnsweredCalls   int       `db:"answered_calls" json:"answered_calls"`
    ConfirmedCount  int       `db:"confirmed_count" json:"confirmed_count"`
    ConfirmedDonors []Donor   `db:"confirmed_donors" json:"confirmed_donors"`
    CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
