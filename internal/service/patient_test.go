package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-patients/internal/apperror"
	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/queue"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

var doctor = Actor{ID: 5, Role: model.RoleDoctor}

func newPatients() (*PatientService, *fakePatients, *fakePublisher) {
	store := newFakePatients()
	pub := &fakePublisher{}
	return NewPatientService(store, pub, zerolog.Nop()), store, pub
}

func TestPatientCreate_RecordsCreator(t *testing.T) {
	svc, _, pub := newPatients()
	ctx := context.Background()

	p, err := svc.Create(ctx, doctor, PatientInput{FirstName: "Ana", LastName: "Lopez", Age: intPtr(30)})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, doctor.ID, *p.CreatedBy)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, "Lopez", got.LastName)
	assert.Equal(t, 30, got.Age)
	assert.Equal(t, doctor.ID, *got.CreatedBy)

	require.Len(t, pub.events, 1)
	assert.Equal(t, queue.ActionCreated, pub.events[0].Action)
	assert.Equal(t, p.ID, pub.events[0].PatientID)
	assert.Equal(t, "doctor", pub.events[0].ActorRole)
}

func TestPatientCreate_RequiredFields(t *testing.T) {
	svc, store, _ := newPatients()

	_, err := svc.Create(context.Background(), doctor, PatientInput{FirstName: "Ana", LastName: "  "})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, e.Kind)
	assert.Equal(t, msgPatientRequired, e.Message)

	fields := map[string]bool{}
	for _, f := range e.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["apellido"])
	assert.True(t, fields["edad"])
	assert.False(t, fields["nombre"])
	assert.Empty(t, store.rows)
}

func TestPatientCreate_ZeroAgeAllowed(t *testing.T) {
	svc, _, _ := newPatients()
	p, err := svc.Create(context.Background(), doctor, PatientInput{FirstName: "Bebé", LastName: "Lopez", Age: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Age)
}

func TestPatientCreate_BadOptionalEmail(t *testing.T) {
	svc, _, _ := newPatients()
	_, err := svc.Create(context.Background(), doctor, PatientInput{
		FirstName: "Ana", LastName: "Lopez", Age: intPtr(30), Email: strPtr("ana-at-mail"),
	})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, msgInvalidInput, e.Message)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "email", e.Fields[0].Field)
}

func TestPatientUpdate_FullOverwrite(t *testing.T) {
	svc, _, pub := newPatients()
	ctx := context.Background()
	p, err := svc.Create(ctx, doctor, PatientInput{
		FirstName: "Ana", LastName: "Lopez", Age: intPtr(30),
		Phone: strPtr("555-1234"), Diagnosis: strPtr("Gripe"),
	})
	require.NoError(t, err)

	admin := Actor{ID: 1, Role: model.RoleAdmin}
	up, err := svc.Update(ctx, admin, p.ID, PatientInput{FirstName: "Ana", LastName: "López", Age: intPtr(31)})
	require.NoError(t, err)
	assert.Equal(t, "López", up.LastName)
	assert.Equal(t, 31, up.Age)
	assert.Nil(t, up.Phone, "omitted optional fields are cleared")
	assert.Nil(t, up.Diagnosis)
	assert.Equal(t, doctor.ID, *up.CreatedBy, "creator is not changed by updates")

	require.Len(t, pub.events, 2)
	assert.Equal(t, queue.ActionUpdated, pub.events[1].Action)
	assert.Equal(t, admin.ID, pub.events[1].ActorID)
}

func TestPatientUpdate_Missing(t *testing.T) {
	svc, _, pub := newPatients()
	_, err := svc.Update(context.Background(), doctor, 404, PatientInput{FirstName: "A", LastName: "B", Age: intPtr(1)})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Empty(t, pub.events)
}

func TestPatientDelete(t *testing.T) {
	svc, _, pub := newPatients()
	ctx := context.Background()
	admin := Actor{ID: 1, Role: model.RoleAdmin}
	p, err := svc.Create(ctx, doctor, PatientInput{FirstName: "Ana", LastName: "Lopez", Age: intPtr(30)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	err = svc.Delete(ctx, admin, p.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Len(t, pub.events, 2)
}

func TestPatientMutation_PublishFailureIgnored(t *testing.T) {
	svc, _, pub := newPatients()
	pub.err = errBoom

	_, err := svc.Create(context.Background(), doctor, PatientInput{FirstName: "Ana", LastName: "Lopez", Age: intPtr(30)})
	assert.NoError(t, err)
}

func TestPatientList_StoreFailure(t *testing.T) {
	svc, store, _ := newPatients()
	store.err = errBoom

	_, err := svc.List(context.Background())
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindInternal, e.Kind)
	assert.NotContains(t, e.Message, "boom")
}
