package model

type Donor struct {
    ID          int    `db:"id" json:"id"`
    Name        string `db:"name" json:"name"`
    Age         int    `db:"age" json:"age"`
    BloodGroup  string `db:"blood_group" json:"blood_group"`
    PhoneNumber string `db:"phone_number" json:"phone_number"`
    DOB         string `db:"dob" json:"dob,omitempty"`
    Location    string `db:"location" json:"location,omitempty"`
}
