package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// ── users ────────────────────────────────────────────────────────────

func TestUsers_AddAndLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doctor := model.User{ID: "med1", Name: "Dra. Rojas", Role: model.RoleDoctor, Specialty: "Cardiología"}
	require.NoError(t, s.AddUser(ctx, doctor, "secreta"))

	got, err := s.ValidateLogin(ctx, "med1", "secreta")
	require.NoError(t, err)
	assert.Equal(t, doctor, got)

	_, err = s.ValidateLogin(ctx, "med1", "wrong")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)

	_, err = s.ValidateLogin(ctx, "ghost", "secreta")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestUsers_PasswordsNotStoredInPlaintext(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, model.User{ID: "adm1", Name: "Root", Role: model.RoleAdmin}, "hunter2"))

	var row userRow
	require.NoError(t, s.db.NewSelect().Model(&row).Where("id = ?", "adm1").Scan(ctx))
	assert.NotEqual(t, "hunter2", row.PasswordHash)
	assert.NotEmpty(t, row.PasswordHash)
}

func TestUsers_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := model.User{ID: "far1", Name: "Luis", Role: model.RolePharmacist}
	require.NoError(t, s.AddUser(ctx, u, "pw"))
	assert.ErrorIs(t, s.AddUser(ctx, u, "pw"), errors.ErrDuplicate)
}

func TestUsers_UpdatePassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, model.User{ID: "u1", Name: "Ana", Role: model.RoleAdmin}, "old"))
	require.NoError(t, s.UpdatePassword(ctx, "u1", "new"))

	_, err := s.ValidateLogin(ctx, "u1", "old")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
	_, err = s.ValidateLogin(ctx, "u1", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "ghost", "x"), errors.ErrNotFound)
}

func TestUsers_ListByRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, model.User{ID: "m1", Name: "A", Role: model.RoleDoctor, Specialty: "Pediatría"}, "p"))
	require.NoError(t, s.AddUser(ctx, model.User{ID: "m2", Name: "B", Role: model.RoleDoctor, Specialty: "Cirugía"}, "p"))
	require.NoError(t, s.AddUser(ctx, model.User{ID: "f1", Name: "C", Role: model.RolePharmacist}, "p"))

	doctors, err := s.ListByRole(ctx, model.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Pediatría", doctors[0].Specialty)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUsers_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, model.User{ID: "u1", Name: "Ana", Role: model.RoleAdmin}, "p"))
	require.NoError(t, s.DeleteUser(ctx, "u1"))
	assert.ErrorIs(t, s.DeleteUser(ctx, "u1"), errors.ErrNotFound)
}

// ── patients ─────────────────────────────────────────────────────────

func TestPatients_SoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.Patient{ID: "p1", Name: "Juan Pérez", BirthDate: time.Date(1980, 3, 14, 0, 0, 0, 0, time.UTC), Phone: "555-0001"}
	require.NoError(t, s.AddPatient(ctx, p))
	assert.ErrorIs(t, s.AddPatient(ctx, p), errors.ErrDuplicate)

	require.NoError(t, s.RemovePatient(ctx, "p1"))

	_, err := s.FindPatient(ctx, "p1")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// The row is still resolvable for historical prescriptions.
	got, err := s.findPatientAny(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", got.Name)

	list, err := s.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPatients_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.Patient{ID: "p1", Name: "Juan", BirthDate: time.Now().UTC()}
	require.NoError(t, s.AddPatient(ctx, p))

	p.Phone = "555-9999"
	require.NoError(t, s.UpdatePatient(ctx, p))

	got, err := s.FindPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "555-9999", got.Phone)

	assert.ErrorIs(t, s.UpdatePatient(ctx, model.Patient{ID: "ghost"}), errors.ErrNotFound)
}

// ── medications ──────────────────────────────────────────────────────

func TestMedications_Catalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := model.Medication{Code: "AMX500", Name: "Amoxicilina", Presentation: "Cápsulas 500mg"}
	require.NoError(t, s.AddMedication(ctx, m))
	assert.ErrorIs(t, s.AddMedication(ctx, m), errors.ErrDuplicate)

	m.Presentation = "Tabletas 500mg"
	require.NoError(t, s.UpdateMedication(ctx, m))

	got, err := s.FindMedication(ctx, "AMX500")
	require.NoError(t, err)
	assert.Equal(t, "Tabletas 500mg", got.Presentation)

	require.NoError(t, s.RemoveMedication(ctx, "AMX500"))
	_, err = s.FindMedication(ctx, "AMX500")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// Still visible to historical resolution.
	_, err = s.findMedicationAny(ctx, "AMX500")
	assert.NoError(t, err)
}

// ── prescriptions ────────────────────────────────────────────────────

func seedPrescription(t *testing.T, s *Store, id string) model.Prescription {
	t.Helper()
	ctx := context.Background()

	_ = s.AddPatient(ctx, model.Patient{ID: "p1", Name: "Juan", BirthDate: time.Now().UTC()})
	_ = s.AddMedication(ctx, model.Medication{Code: "AMX500", Name: "Amoxicilina"})
	_ = s.AddMedication(ctx, model.Medication{Code: "IBU400", Name: "Ibuprofeno"})

	patient, err := s.FindPatient(ctx, "p1")
	require.NoError(t, err)
	amx, err := s.FindMedication(ctx, "AMX500")
	require.NoError(t, err)
	ibu, err := s.FindMedication(ctx, "IBU400")
	require.NoError(t, err)

	rx := model.Prescription{
		ID:       id,
		IssuedAt: time.Now().UTC(),
		PickupAt: time.Now().UTC().Add(24 * time.Hour),
		State:    protocol.StateIssued,
		DoctorID: "med1",
		Patient:  patient,
		Items: []model.PrescriptionItem{
			{Medication: amx, Quantity: 21, Directions: "1 cada 8 horas", DurationDays: 7},
			{Medication: ibu, Quantity: 10, Directions: "según dolor", DurationDays: 5},
		},
	}
	require.NoError(t, s.AddPrescription(ctx, rx))
	return rx
}

func TestPrescriptions_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rx := seedPrescription(t, s, "RX-001")

	got, err := s.FindPrescription(ctx, "RX-001")
	require.NoError(t, err)
	assert.Equal(t, rx.DoctorID, got.DoctorID)
	assert.Equal(t, protocol.StateIssued, got.State)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "AMX500", got.Items[0].Medication.Code)
	assert.Equal(t, 21, got.Items[0].Quantity)
	assert.Nil(t, got.ProcessedAt)

	assert.ErrorIs(t, s.AddPrescription(ctx, rx), errors.ErrDuplicate)
}

func TestPrescriptions_StateTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedPrescription(t, s, "RX-002")

	require.NoError(t, s.UpdatePrescriptionState(ctx, "RX-002", protocol.StateInProcess))
	got, err := s.FindPrescription(ctx, "RX-002")
	require.NoError(t, err)
	assert.Equal(t, protocol.StateInProcess, got.State)
	assert.NotNil(t, got.ProcessedAt)
	assert.Nil(t, got.ReadyAt)

	require.NoError(t, s.UpdatePrescriptionState(ctx, "RX-002", protocol.StateReady))
	require.NoError(t, s.UpdatePrescriptionState(ctx, "RX-002", protocol.StateDelivered))
	got, err = s.FindPrescription(ctx, "RX-002")
	require.NoError(t, err)
	assert.Equal(t, protocol.StateDelivered, got.State)
	assert.NotNil(t, got.ReadyAt)
	assert.NotNil(t, got.DeliveredAt)

	assert.ErrorIs(t, s.UpdatePrescriptionState(ctx, "RX-002", "volando"), errors.ErrInvalidState)
	assert.ErrorIs(t, s.UpdatePrescriptionState(ctx, "ghost", protocol.StateReady), errors.ErrNotFound)
}

func TestPrescriptions_ListByState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedPrescription(t, s, "RX-010")
	seedPrescription(t, s, "RX-011")
	require.NoError(t, s.UpdatePrescriptionState(ctx, "RX-011", protocol.StateReady))

	ready, err := s.ListPrescriptionsByState(ctx, protocol.StateReady)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "RX-011", ready[0].ID)

	all, err := s.ListPrescriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPrescriptions_SurviveSoftDeletedReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedPrescription(t, s, "RX-020")
	require.NoError(t, s.RemovePatient(ctx, "p1"))
	require.NoError(t, s.RemoveMedication(ctx, "AMX500"))

	got, err := s.FindPrescription(ctx, "RX-020")
	require.NoError(t, err)
	assert.Equal(t, "Juan", got.Patient.Name)
	assert.Equal(t, "Amoxicilina", got.Items[0].Medication.Name)
}

// ── messages ─────────────────────────────────────────────────────────

func TestMessages_InboxFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m1 := model.Message{SenderID: "med1", SenderName: "Dra. Rojas", RecipientID: "far1", Text: "lista la RX-001?"}
	require.NoError(t, s.AddMessage(ctx, &m1))
	assert.NotZero(t, m1.ID)
	assert.False(t, m1.SentAt.IsZero())

	m2 := model.Message{SenderID: "med1", RecipientID: "far1", Text: "urgente"}
	require.NoError(t, s.AddMessage(ctx, &m2))

	unread, err := s.UnreadMessages(ctx, "far1")
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	n, err := s.CountUnread(ctx, "far1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.MarkMessageRead(ctx, m1.ID))
	n, err = s.CountUnread(ctx, "far1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, s.MarkMessageRead(ctx, 9999), errors.ErrNotFound)

	// Other users' inboxes are untouched.
	n, err = s.CountUnread(ctx, "med1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ── active users ─────────────────────────────────────────────────────

func TestActiveUsers_Ledger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := model.ActiveUser{UserID: "u1", Name: "Ana", Role: model.RoleAdmin, LoginAt: time.Now().UTC(), SourceIP: "10.0.0.7"}
	require.NoError(t, s.RegisterLogin(ctx, first))

	// A second login upserts instead of failing.
	second := first
	second.LoginAt = first.LoginAt.Add(time.Minute)
	second.SourceIP = "10.0.0.8"
	require.NoError(t, s.RegisterLogin(ctx, second))

	active, err := s.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "10.0.0.8", active[0].SourceIP)

	require.NoError(t, s.RegisterLogout(ctx, "u1"))
	active, err = s.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Logging out an absent user is a no-op.
	require.NoError(t, s.RegisterLogout(ctx, "u1"))
}
