package repository

import (
    "database/sql"
    "encoding/json"
    "time"

    "github.com/unclebandit/donorcall-backend/internal/model"
)

type HistoryRepositoryInterface interface {
    Insert(rec *model.HistoryRecord) error
}

type HistoryRepository struct {
    DB *sql.DB
}

// Insert archives one campaign summary. The confirmed snapshot is stored as jsonb.
func (r *HistoryRepository) Insert(rec *model.HistoryRecord) error {
    rec.CreatedAt = time.Now()

    snapshot, err := json.Marshal(rec.ConfirmedDonors)
    if err != nil {
        return err
    }

    query := `
        INSERT INTO history (blood_group, total_calls, answered_calls, confirmed_count, confirmed_donors, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
    return r.DB.QueryRow(
        query,
        rec.BloodGroup,
        rec.TotalCalls,
        rec.AnsweredCalls,
        rec.ConfirmedCount,
        snapshot,
        rec.CreatedAt,
    ).Scan(&rec.ID)
}

var _ HistoryRepositoryInterface = (*HistoryRepository)(nil)
