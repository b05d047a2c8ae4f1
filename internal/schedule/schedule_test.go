package schedule_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/schedule"
	"github.com/hedaas-code/neoagent/internal/store"
	"github.com/hedaas-code/neoagent/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "neoagent_test.db")
	db, err := sqlite.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func at(t *testing.T, hour, minute int) time.Time {
	base := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestCreateRefusesConflictAtEqualPriority(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	_, err := eng.Create(ctx, &store.Schedule{
		Title: "Meeting", Kind: store.ScheduleAppointment,
		StartTime: at(t, 10, 0), EndTime: at(t, 11, 0), Priority: store.PriorityMedium,
	}, schedule.CreateOptions{CheckConflict: true})
	require.NoError(t, err)

	_, err = eng.Create(ctx, &store.Schedule{
		Title: "Call", Kind: store.ScheduleAppointment,
		StartTime: at(t, 10, 30), EndTime: at(t, 11, 30), Priority: store.PriorityMedium,
	}, schedule.CreateOptions{CheckConflict: true})
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrConflict))
}

func TestCreateDismissesLowerPriorityConflict(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	_, err := eng.Create(ctx, &store.Schedule{
		Title: "Low priority nap", Kind: store.ScheduleAppointment,
		StartTime: at(t, 10, 0), EndTime: at(t, 11, 0), Priority: store.PriorityLow,
	}, schedule.CreateOptions{CheckConflict: true})
	require.NoError(t, err)

	result, err := eng.Create(ctx, &store.Schedule{
		Title: "Urgent call", Kind: store.ScheduleAppointment,
		StartTime: at(t, 10, 30), EndTime: at(t, 11, 30), Priority: store.PriorityCritical,
	}, schedule.CreateOptions{CheckConflict: true})
	require.NoError(t, err)
	require.Len(t, result.Replaced, 1)
}

func TestCreateInvolvingUserIsPendingAndNotQueryable(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	result, err := eng.Create(ctx, &store.Schedule{
		Title: "Dinner", Kind: store.ScheduleAppointment,
		StartTime: at(t, 18, 0), EndTime: at(t, 19, 0), InvolvesUser: true,
	}, schedule.CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, store.CollaborationPending, result.Schedule.CollaborationStatus)
	require.False(t, result.Schedule.IsQueryable)
}

func TestConfirmCollaborationAcceptMakesQueryable(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	result, err := eng.Create(ctx, &store.Schedule{
		Title: "Dinner", Kind: store.ScheduleAppointment,
		StartTime: at(t, 18, 0), EndTime: at(t, 19, 0), InvolvesUser: true,
	}, schedule.CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, eng.ConfirmCollaboration(ctx, result.Schedule.ScheduleID, true))

	got, err := db.GetSchedule(ctx, result.Schedule.ScheduleID)
	require.NoError(t, err)
	require.Equal(t, store.CollaborationAccepted, got.CollaborationStatus)
	require.True(t, got.IsQueryable)
}

func TestFreeSlotsComplementsBusySchedules(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	_, err := eng.Create(ctx, &store.Schedule{
		Title: "Morning meeting", Kind: store.ScheduleAppointment,
		StartTime: at(t, 9, 0), EndTime: at(t, 10, 0),
	}, schedule.CreateOptions{})
	require.NoError(t, err)

	slots, err := eng.FreeSlots(ctx, at(t, 0, 0), 30)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	for _, s := range slots {
		overlapsBusy := s.Start.Before(at(t, 10, 0)) && at(t, 9, 0).Before(s.End)
		require.False(t, overlapsBusy)
	}
}

func TestCreateTouchingIntervalsDoNotConflict(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	_, err := eng.Create(ctx, &store.Schedule{
		Title: "First", Kind: store.ScheduleAppointment,
		StartTime: at(t, 10, 0), EndTime: at(t, 11, 0),
	}, schedule.CreateOptions{CheckConflict: true})
	require.NoError(t, err)

	_, err = eng.Create(ctx, &store.Schedule{
		Title: "Second", Kind: store.ScheduleAppointment,
		StartTime: at(t, 11, 0), EndTime: at(t, 12, 0),
	}, schedule.CreateOptions{CheckConflict: true})
	require.NoError(t, err)
}

func TestFreeSlotsAroundSingleAppointment(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	_, err := eng.Create(ctx, &store.Schedule{
		Title: "Coffee", Kind: store.ScheduleAppointment,
		StartTime: at(t, 14, 0), EndTime: at(t, 15, 0),
	}, schedule.CreateOptions{})
	require.NoError(t, err)

	slots, err := eng.FreeSlots(ctx, at(t, 0, 0), 60)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, at(t, 0, 0), slots[0].Start)
	require.Equal(t, at(t, 14, 0), slots[0].End)
	require.Equal(t, at(t, 15, 0), slots[1].Start)
	require.Equal(t, at(t, 24, 0), slots[1].End)
	for _, s := range slots {
		require.GreaterOrEqual(t, s.End.Sub(s.Start), 60*time.Minute)
	}
}

func TestInRangeReturnsCreatedSchedule(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)
	ctx := context.Background()

	result, err := eng.Create(ctx, &store.Schedule{
		Title: "Walk", Kind: store.ScheduleAppointment,
		StartTime: at(t, 16, 0), EndTime: at(t, 17, 0),
	}, schedule.CreateOptions{})
	require.NoError(t, err)

	got, err := eng.InRange(ctx, at(t, 16, 0), at(t, 17, 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, result.Schedule.ScheduleID, got[0].ScheduleID)
}

func TestHourBandClassification(t *testing.T) {
	require.Equal(t, schedule.BandDawn, schedule.HourBand(6))
	require.Equal(t, schedule.BandMorning, schedule.HourBand(9))
	require.Equal(t, schedule.BandNoon, schedule.HourBand(13))
	require.Equal(t, schedule.BandAfternoon, schedule.HourBand(15))
	require.Equal(t, schedule.BandEvening, schedule.HourBand(19))
	require.Equal(t, schedule.BandNight, schedule.HourBand(2))
}

func TestGenerateTemporaryFallsBackWithoutRouter(t *testing.T) {
	db := newTestStore(t)
	eng := schedule.New(db, nil)

	out, err := eng.GenerateTemporary(context.Background(), at(t, 0, 0), "loves reading")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, store.ScheduleTemporary, out[0].Kind)
}
