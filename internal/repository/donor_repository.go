package repository

import (
    "database/sql"

    "github.com/unclebandit/donorcall-backend/internal/model"
    "github.com/unclebandit/donorcall-backend/internal/phone"
)

// DonorRepositoryInterface defines the directory operations used by the service
type DonorRepositoryInterface interface {
    ListByBloodGroup(group string) ([]model.Donor, error)
    GetByPhone(phoneNumber string) (*model.Donor, error)
    Delete(id int) error

    // Confirmed donors store
    InsertConfirmed(d *model.Donor) error
    ListConfirmed() ([]model.Donor, error)
    DeleteAllConfirmed() error
}

// DonorRepository is the concrete Postgres implementation
type DonorRepository struct {
    DB *sql.DB
}

// ListByBloodGroup fetches all donors with the exact blood group tag
func (r *DonorRepository) ListByBloodGroup(group string) ([]model.Donor, error) {
    query := `
        SELECT id, name, age, blood_group, phone_number, COALESCE(dob::text, ''), COALESCE(location, '')
        FROM donors
        WHERE blood_group = $1
    `
    rows, err := r.DB.Query(query, group)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    donors := []model.Donor{}
    for rows.Next() {
        var d model.Donor
        if err := rows.Scan(&d.ID, &d.Name, &d.Age, &d.BloodGroup, &d.PhoneNumber, &d.DOB, &d.Location); err != nil {
            return nil, err
        }
        // Older rows were stored without the leading "+".
        if normalized, err := phone.Normalize(d.PhoneNumber); err == nil {
            d.PhoneNumber = normalized
        }
        donors = append(donors, d)
    }
    return donors, rows.Err()
}

// GetByPhone fetches a donor by phone number. Rows stored with or without
// the leading "+" both resolve.
func (r *DonorRepository) GetByPhone(phoneNumber string) (*model.Donor, error) {
    query := `
        SELECT id, name, age, blood_group, phone_number, COALESCE(dob::text, ''), COALESCE(location, '')
        FROM donors
        WHERE ltrim(phone_number, '+') = $1
    `
    row := r.DB.QueryRow(query, phone.Digits(phoneNumber))

    var d model.Donor
    if err := row.Scan(&d.ID, &d.Name, &d.Age, &d.BloodGroup, &d.PhoneNumber, &d.DOB, &d.Location); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // not found
        }
        return nil, err
    }
    if normalized, err := phone.Normalize(d.PhoneNumber); err == nil {
        d.PhoneNumber = normalized
    }
    return &d, nil
}

// Delete removes a donor from the active pool
func (r *DonorRepository) Delete(id int) error {
    _, err := r.DB.Exec(`DELETE FROM donors WHERE id = $1`, id)
    return err
}

// ====================== Confirmed donors ======================

func (r *DonorRepository) InsertConfirmed(d *model.Donor) error {
    query := `
        INSERT INTO confirmed_donors (name, age, blood_group, phone_number, dob, location)
        VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, $6)
    `
    _, err := r.DB.Exec(query, d.Name, d.Age, d.BloodGroup, d.PhoneNumber, d.DOB, d.Location)
    return err
}

func (r *DonorRepository) ListConfirmed() ([]model.Donor, error) {
    query := `
        SELECT id, name, age, blood_group, phone_number, COALESCE(dob::text, ''), COALESCE(location, '')
        FROM confirmed_donors
        ORDER BY id
    `
    rows, err := r.DB.Query(query)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    donors := []model.Donor{}
    for rows.Next() {
        var d model.Donor
        if err := rows.Scan(&d.ID, &d.Name, &d.Age, &d.BloodGroup, &d.PhoneNumber, &d.DOB, &d.Location); err != nil {
            return nil, err
        }
        if normalized, err := phone.Normalize(d.PhoneNumber); err == nil {
            d.PhoneNumber = normalized
        }
        donors = append(donors, d)
    }
    return donors, rows.Err()
}

func (r *DonorRepository) DeleteAllConfirmed() error {
    _, err := r.DB.Exec(`DELETE FROM confirmed_donors`)
    return err
}

var _ DonorRepositoryInterface = (*DonorRepository)(nil)
