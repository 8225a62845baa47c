// Package model holds the plain domain entities of the prescription
// system. These carry no persistence or wire tags; the store and the
// protocol layers map them at their own boundaries.
package model

import "time"

// Role is the closed set of user roles. A doctor is the only variant
// that carries a specialty.
type Role string

const (
	RoleAdmin      Role = "ADM"
	RoleDoctor     Role = "MED"
	RolePharmacist Role = "FAR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePharmacist:
		return true
	}
	return false
}

// User is a system account. Specialty is set only when Role is
// RoleDoctor.
type User struct {
	ID        string
	Name      string
	Role      Role
	Specialty string
}

// Patient is a person prescriptions are issued for.
type Patient struct {
	ID        string
	Name      string
	BirthDate time.Time
	Phone     string
}

// Medication is one catalog entry.
type Medication struct {
	Code         string
	Name         string
	Presentation string
}

// PrescriptionItem is one medication line on a prescription.
type PrescriptionItem struct {
	Medication   Medication
	Quantity     int
	Directions   string
	DurationDays int
}

// Prescription is a full prescription with its dispatch lifecycle.
// The transition timestamps are nil until the matching state is
// reached.
type Prescription struct {
	ID          string
	IssuedAt    time.Time
	PickupAt    time.Time
	State       string
	DoctorID    string
	Patient     Patient
	Items       []PrescriptionItem
	ProcessedAt *time.Time
	ReadyAt     *time.Time
	DeliveredAt *time.Time
}

// Message is one direct message between users.
type Message struct {
	ID            int64
	SenderID      string
	SenderName    string
	RecipientID   string
	RecipientName string
	Text          string
	SentAt        time.Time
	Read          bool
}

// ActiveUser is one row of the signed-in user ledger.
type ActiveUser struct {
	UserID   string
	Name     string
	Role     Role
	LoginAt  time.Time
	SourceIP string
}
