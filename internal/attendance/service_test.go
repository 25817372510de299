package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, window time.Duration) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo, window, zap.NewNop()), repo
}

func TestAddWorker_ValidatesFields(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	cases := []struct {
		name   string
		worker Worker
		want   string
	}{
		{"short name", Worker{Name: "A", Role: RoleCook, Shift: ShiftMorning, PIN: "1234"}, "name"},
		{"bad role", Worker{Name: "Ada", Role: "Chef", Shift: ShiftMorning, PIN: "1234"}, "role"},
		{"bad shift", Worker{Name: "Ada", Role: RoleCook, Shift: "Night", PIN: "1234"}, "shift"},
		{"short pin", Worker{Name: "Ada", Role: RoleCook, Shift: ShiftMorning, PIN: "123"}, "pin"},
		{"non numeric pin", Worker{Name: "Ada", Role: RoleCook, Shift: ShiftMorning, PIN: "12a4"}, "pin must contain only digits"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddWorker(ctx, tc.worker)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPIN_MustBeFourDigits(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	ada, err := svc.AddWorker(ctx, Worker{Name: "Ada", Role: RoleCarer, Shift: ShiftMorning, PIN: "0007"})
	require.NoError(t, err)

	for _, pin := range []string{"1.23", "-123", "+123", "12a4", "12 4", "１２３４"} {
		t.Run(pin, func(t *testing.T) {
			_, err := svc.AddWorker(ctx, Worker{Name: "Bob", Role: RoleCook, Shift: ShiftMorning, PIN: pin})
			assert.ErrorIs(t, err, ErrValidation, "add")

			upd := ada
			upd.PIN = pin
			assert.ErrorIs(t, svc.UpdateWorker(ctx, upd), ErrValidation, "update")

			_, _, err = svc.Submit(ctx, SubmitRequest{WorkerID: ada.ID, PIN: pin, Notes: "Morning rounds"})
			assert.ErrorIs(t, err, ErrValidation, "submit")
		})
	}

	workers, err := svc.Workers(ctx)
	require.NoError(t, err)
	assert.Len(t, workers, 1)
}

func TestAddWorker_AcceptsOffDayShift(t *testing.T) {
	svc, _ := newTestService(t, 0)
	w, err := svc.AddWorker(context.Background(), Worker{Name: "  Grace  ", Role: RoleVolunteer, Shift: ShiftOffDay, PIN: "0042"})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "Grace", w.Name)
}

func TestAddWorker_RejectsDuplicatePIN(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	_, err := svc.AddWorker(ctx, Worker{Name: "Ada", Role: RoleCarer, Shift: ShiftMorning, PIN: "1111"})
	require.NoError(t, err)

	_, err = svc.AddWorker(ctx, Worker{Name: "Bob", Role: RoleCook, Shift: ShiftAfternoon, PIN: "1111"})
	assert.ErrorIs(t, err, ErrPINTaken)
}

func TestUpdateWorker(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	ada, err := svc.AddWorker(ctx, Worker{Name: "Ada", Role: RoleCarer, Shift: ShiftMorning, PIN: "1111"})
	require.NoError(t, err)
	bob, err := svc.AddWorker(ctx, Worker{Name: "Bob", Role: RoleCook, Shift: ShiftAfternoon, PIN: "2222"})
	require.NoError(t, err)

	// keeping your own PIN is fine
	ada.Shift = ShiftOffDay
	require.NoError(t, svc.UpdateWorker(ctx, ada))
	got, err := svc.Worker(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, ShiftOffDay, got.Shift)

	bob.PIN = "1111"
	assert.ErrorIs(t, svc.UpdateWorker(ctx, bob), ErrPINTaken)

	assert.ErrorIs(t, svc.UpdateWorker(ctx, Worker{ID: "missing", Name: "Cy", Role: RoleCook, Shift: ShiftMorning, PIN: "3333"}), ErrNotFound)
}

func TestWorkers_OrderedByName(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	for i, name := range []string{"Zoe", "Ada", "Mia"} {
		_, err := svc.AddWorker(ctx, Worker{Name: name, Role: RoleCook, Shift: ShiftMorning, PIN: []string{"1000", "2000", "3000"}[i]})
		require.NoError(t, err)
	}
	ws, err := svc.Workers(ctx)
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.Equal(t, []string{"Ada", "Mia", "Zoe"}, []string{ws[0].Name, ws[1].Name, ws[2].Name})
}

func TestSubmit_RecordsDenormalisedCopy(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	w, err := svc.AddWorker(ctx, Worker{Name: "Ada", Role: RoleCarer, Shift: ShiftMorning, PIN: "1234"})
	require.NoError(t, err)

	rec, dup, err := svc.Submit(ctx, SubmitRequest{WorkerID: w.ID, PIN: "1234", Notes: "  Helped with lunch  "})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, w.ID, rec.WorkerID)
	assert.Equal(t, "Ada", rec.Name)
	assert.Equal(t, RoleCarer, rec.Role)
	assert.Equal(t, ShiftMorning, rec.Shift)
	assert.Equal(t, "Helped with lunch", rec.Notes)
	assert.Equal(t, StatusPending, rec.Status)
	assert.False(t, rec.Timestamp.IsZero())

	// deleting the worker leaves history intact
	require.NoError(t, svc.DeleteWorker(ctx, w.ID))
	got, err := svc.Record(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
}

func TestSubmit_WrongPIN(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()
	w, err := svc.AddWorker(ctx, Worker{Name: "Ada", Role: RoleCarer, Shift: ShiftMorning, PIN: "1234"})
	require.NoError(t, err)

	_, _, err = svc.Submit(ctx, SubmitRequest{WorkerID: w.ID, PIN: "4321", Notes: "Morning shift"})
	assert.ErrorIs(t, err, ErrInvalidPIN)

	recs, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	_, _, err := svc.Submit(ctx, SubmitRequest{WorkerID: "w", PIN: "1234", Notes: "hi"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "notes must be at least 5")

	_, _, err = svc.Submit(ctx, SubmitRequest{WorkerID: "nobody", PIN: "1234", Notes: "Morning shift"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmit_DedupWindow(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()
	w, err := svc.AddWorker(ctx, Worker{Name: "Ada", Role: RoleCarer, Shift: ShiftMorning, PIN: "1234"})
	require.NoError(t, err)

	first, dup, err := svc.Submit(ctx, SubmitRequest{WorkerID: w.ID, PIN: "1234", Notes: "Morning shift"})
	require.NoError(t, err)
	require.False(t, dup)

	second, dup, err := svc.Submit(ctx, SubmitRequest{WorkerID: w.ID, PIN: "1234", Notes: "Morning shift again"})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.ID, second.ID)

	recs, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCenterLocation(t *testing.T) {
	svc, _ := newTestService(t, 0)
	ctx := context.Background()

	loc, err := svc.CenterLocation(ctx)
	require.NoError(t, err)
	assert.Nil(t, loc)

	set, err := svc.SetCenterLocation(ctx, 1.3, 103.8, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRadiusMeters, set.Radius)
	assert.False(t, set.UpdatedAt.IsZero())

	r := 5.0
	_, err = svc.SetCenterLocation(ctx, 1.3, 103.8, &r)
	require.NoError(t, err)
	loc, err = svc.CenterLocation(ctx)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, 5.0, loc.Radius)
	assert.True(t, loc.Configured())

	zero := 0.0
	_, err = svc.SetCenterLocation(ctx, 1.3, 103.8, &zero)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SetCenterLocation(ctx, 91, 0, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
