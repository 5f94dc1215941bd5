package model

import "time"

type CallAttempt struct {
    ID          int       `db:"id" json:"id"`
    PhoneNumber string    `db:"phone_number" json:"phone_number"`
    DonorName   string    `db:"donor_name" json:"donor_name"`
    CallSID     string    `db:"call_sid" json:"call_sid"`
    CallStatus  string    `db:"call_status" json:"call_status"` // initiated, completed, busy, failed, ...
    CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
