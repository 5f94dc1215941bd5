package repository

import (
    "database/sql"
    "time"

    "github.com/unclebandit/donorcall-backend/internal/model"
)

type CallLogRepositoryInterface interface {
    Insert(a *model.CallAttempt) error
    UpdateStatus(phoneNumber, status string) error
}

type CallLogRepository struct {
    DB *sql.DB
}

// Insert records a new call attempt and returns the created ID
func (r *CallLogRepository) Insert(a *model.CallAttempt) error {
    a.CreatedAt = time.Now()
    query := `
        INSERT INTO call_logs (phone_number, donor_name, call_sid, call_status, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
    return r.DB.QueryRow(query, a.PhoneNumber, a.DonorName, a.CallSID, a.CallStatus, a.CreatedAt).Scan(&a.ID)
}

// UpdateStatus sets the terminal status on the most recent attempt for a number
func (r *CallLogRepository) UpdateStatus(phoneNumber, status string) error {
    query := `
        UPDATE call_logs SET call_status = $1, updated_at = NOW()
        WHERE id = (SELECT id FROM call_logs WHERE phone_number = $2 ORDER BY id DESC LIMIT 1)
    `
    _, err := r.DB.Exec(query, status, phoneNumber)
    return err
}

var _ CallLogRepositoryInterface = (*CallLogRepository)(nil)
