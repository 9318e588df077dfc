package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
	"github.com/noah-isme/lab-booking-api/pkg/timeofday"
)

func TestGenerateWindowsSimpleDay(t *testing.T) {
	specs := GenerateWindows(timeofday.MustParse("08:00"), timeofday.MustParse("16:00"), 120, 30, DefaultCapacityFactor)
	require.Len(t, specs, 4)

	starts := []string{"08:00", "10:00", "12:00", "14:00"}
	for i, spec := range specs {
		assert.Equal(t, i, spec.Index)
		assert.Equal(t, starts[i], spec.Start.String())
		assert.Equal(t, 120, spec.End.Minutes()-spec.Start.Minutes())
		assert.Equal(t, 3, spec.MaxTests)
	}
}

func TestGenerateWindowsClipsLastWindowAndSpreadsRemainder(t *testing.T) {
	specs := GenerateWindows(timeofday.MustParse("09:00"), timeofday.MustParse("10:30"), 60, 10, DefaultCapacityFactor)
	require.Len(t, specs, 2)
	assert.Equal(t, "10:00", specs[1].Start.String())
	assert.Equal(t, "10:30", specs[1].End.String())
	// 90/10 = 9 -> 6 per day, 3 each
	assert.Equal(t, 3, specs[0].MaxTests)
	assert.Equal(t, 3, specs[1].MaxTests)

	specs = GenerateWindows(timeofday.MustParse("08:00"), timeofday.MustParse("16:00"), 180, 30, DefaultCapacityFactor)
	require.Len(t, specs, 3)
	assert.Equal(t, []int{4, 4, 4}, []int{specs[0].MaxTests, specs[1].MaxTests, specs[2].MaxTests})

	specs = GenerateWindows(timeofday.MustParse("08:00"), timeofday.MustParse("16:00"), 180, 25, DefaultCapacityFactor)
	require.Len(t, specs, 3)
	// 480/25 = 19 -> 14 per day: 5, 5, 4
	assert.Equal(t, []int{5, 5, 4}, []int{specs[0].MaxTests, specs[1].MaxTests, specs[2].MaxTests})
}

func TestGenerateWindowsWithoutUsableHours(t *testing.T) {
	assert.Nil(t, GenerateWindows(timeofday.MustParse("10:00"), timeofday.MustParse("10:00"), 30, 10, DefaultCapacityFactor))
	assert.Nil(t, GenerateWindows(timeofday.MustParse("12:00"), timeofday.MustParse("10:00"), 30, 10, DefaultCapacityFactor))
	assert.Nil(t, GenerateWindows(timeofday.MustParse("08:00"), timeofday.MustParse("10:00"), 0, 10, DefaultCapacityFactor))
}

func TestDailyCapacityIsAtLeastOne(t *testing.T) {
	assert.Equal(t, 1, DailyCapacity(30, 1000, DefaultCapacityFactor))
	assert.Equal(t, 12, DailyCapacity(480, 30, DefaultCapacityFactor))
	assert.Equal(t, 360, DailyCapacity(480, 0, DefaultCapacityFactor))
}

func TestGenerateWindowsPartitionAndConservation(t *testing.T) {
	for _, opens := range []string{"07:00", "09:15"} {
		for _, working := range []int{1, 45, 60, 95, 480, 601} {
			for _, size := range []int{1, 15, 20, 45, 60, 120, 700} {
				for _, duration := range []int{1, 7, 30, 90, 1000} {
					name := fmt.Sprintf("%s+%d/%d/%d", opens, working, size, duration)
					start := timeofday.MustParse(opens)
					end := start.Add(working)
					specs := GenerateWindows(start, end, size, duration, DefaultCapacityFactor)
					require.NotEmpty(t, specs, name)

					assert.Equal(t, start, specs[0].Start, name)
					assert.Equal(t, end, specs[len(specs)-1].End, name)
					sum := 0
					for i, spec := range specs {
						assert.Equal(t, i, spec.Index, name)
						assert.True(t, spec.End > spec.Start, name)
						if i > 0 {
							assert.Equal(t, specs[i-1].End, spec.Start, name)
							assert.LessOrEqual(t, spec.MaxTests, specs[i-1].MaxTests, name)
						}
						assert.LessOrEqual(t, specs[0].MaxTests-spec.MaxTests, 1, name)
						sum += spec.MaxTests
					}
					assert.Equal(t, DailyCapacity(working, duration, DefaultCapacityFactor), sum, name)
				}
			}
		}
	}
}

func TestWindowServiceRegenerateIsIdempotent(t *testing.T) {
	store := newLabStoreStub()
	store.addTest("cbc", "complete blood count", "30", false)
	schedule := store.addSchedule("cbc", 0, "08:00", "16:00", false)
	svc := newWindowServiceForTest(store)

	first, err := svc.Regenerate(context.Background(), "cbc", schedule.ID, 120)
	require.NoError(t, err)
	require.Len(t, first, 4)
	require.Len(t, store.windowsOf(schedule.ID), 4)

	second, err := svc.Regenerate(context.Background(), "cbc", schedule.ID, 120)
	require.NoError(t, err)
	require.Len(t, second, 4)
	for i := range first {
		assert.NotEqual(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].WindowStart, second[i].WindowStart)
		assert.Equal(t, first[i].WindowEnd, second[i].WindowEnd)
		assert.Equal(t, first[i].MaxTests, second[i].MaxTests)
	}
	assert.Len(t, store.windowsOf(schedule.ID), 4)

	third, err := svc.Regenerate(context.Background(), "cbc", schedule.ID, 60)
	require.NoError(t, err)
	assert.Len(t, third, 8)
	assert.Len(t, store.windowsOf(schedule.ID), 8)
}

func TestWindowServiceRegenerateClosedScheduleClearsWindows(t *testing.T) {
	store := newLabStoreStub()
	store.addTest("cbc", "complete blood count", "30", false)
	schedule := store.addSchedule("cbc", 6, "", "", true)
	store.addWindow(schedule, 0, "08:00", "09:00", 3)
	svc := newWindowServiceForTest(store)

	windows, err := svc.Regenerate(context.Background(), "cbc", schedule.ID, 60)
	require.NoError(t, err)
	assert.Empty(t, windows)
	assert.Empty(t, store.windowsOf(schedule.ID))
}

func TestWindowServiceRegenerateErrors(t *testing.T) {
	store := newLabStoreStub()
	store.addTest("cbc", "complete blood count", "30", false)
	store.addTest("lipid", "lipid profile", "15", false)
	other := store.addSchedule("lipid", 0, "08:00", "12:00", false)
	svc := newWindowServiceForTest(store)

	_, err := svc.Regenerate(context.Background(), "missing", other.ID, 60)
	assert.ErrorIs(t, err, appErrors.ErrTestNotFound)

	_, err = svc.Regenerate(context.Background(), "cbc", other.ID, 60)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Regenerate(context.Background(), "lipid", other.ID, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
