package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("04:00")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 4}, c)
	assert.Equal(t, "04:00", c.String())

	c, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 23, Minute: 59}, c)

	for _, bad := range []string{"", "4am", "24:00", "12:60"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextRun(t *testing.T) {
	at4 := Clock{Hour: 4}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 6, 1, 1, 30, 0, 0, time.UTC),
			want: time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "already passed",
			now:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly now rolls over",
			now:  time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "month end",
			now:  time.Date(2025, 6, 30, 5, 0, 0, 0, time.UTC),
			want: time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, at4, time.UTC)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestNextRunUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)

	// 22:00 UTC is already 03:00 the next day in loc
	now := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	got := NextRun(now, Clock{Hour: 4}, loc)

	assert.True(t, time.Date(2025, 6, 2, 4, 0, 0, 0, loc).Equal(got), "got %s", got)
	assert.Equal(t, time.Hour, got.Sub(now))
}

func TestClockSpec(t *testing.T) {
	assert.Equal(t, "0 4 * * *", Clock{Hour: 4}.Spec())
	assert.Equal(t, "59 23 * * *", Clock{Hour: 23, Minute: 59}.Spec())
}

func TestDailyRunsJobAndStops(t *testing.T) {
	d := NewDaily("test", Clock{Hour: 4}, time.UTC, time.Second, logger.Discard())
	d.spec = "@every 1s"

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, func(context.Context) error {
			if runs.Add(1) == 2 {
				cancel()
			}
			return errors.New("job errors do not stop the schedule")
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, int32(2), runs.Load())
}

func TestDailyRejectsBadSchedule(t *testing.T) {
	d := NewDaily("test", Clock{}, time.UTC, time.Second, logger.Discard())
	d.spec = "not a schedule"

	err := d.Run(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunOnceAppliesTimeout(t *testing.T) {
	d := NewDaily("test", Clock{}, time.UTC, 50*time.Millisecond, logger.Discard())

	var hadDeadline bool
	d.RunOnce(context.Background(), func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})
	assert.True(t, hadDeadline)
}
