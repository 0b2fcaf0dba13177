package window

import (
	"testing"
	"time"

	"github.com/jimdaga/promise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func promiseAt(created time.Time, completed bool) *models.Promise {
	p := &models.Promise{Completed: completed}
	p.CreatedAt = created
	return p
}

func TestRemainingTime(t *testing.T) {
	p := promiseAt(t0, false)

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"at creation", t0, 24 * time.Hour},
		{"just before deadline", t0.Add(24*time.Hour - time.Nanosecond), time.Nanosecond},
		{"at deadline", t0.Add(24 * time.Hour), 0},
		{"just after deadline", t0.Add(24*time.Hour + time.Nanosecond), 0},
		{"long after deadline", t0.Add(72 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingTime(p, tt.now))
		})
	}
}

func TestRemainingTime_UsesTargetDate(t *testing.T) {
	target := t0.Add(6 * time.Hour)
	p := promiseAt(t0, false)
	p.TargetDate = &target

	assert.Equal(t, target, Deadline(p))
	assert.Equal(t, 5*time.Hour, RemainingTime(p, t0.Add(time.Hour)))
	assert.Zero(t, RemainingTime(p, t0.Add(7*time.Hour)))
}

func TestRemainingTime_NilPromise(t *testing.T) {
	assert.Zero(t, RemainingTime(nil, t0))
}

func TestCanCreateNew(t *testing.T) {
	assert.True(t, CanCreateNew(nil, t0), "no promise yet")

	for _, completed := range []bool{false, true} {
		p := promiseAt(t0, completed)

		assert.False(t, CanCreateNew(p, t0), "immediately after creation (completed=%v)", completed)
		assert.False(t, CanCreateNew(p, t0.Add(24*time.Hour-time.Second)), "one second early (completed=%v)", completed)
		assert.True(t, CanCreateNew(p, t0.Add(24*time.Hour)), "exact boundary is inclusive (completed=%v)", completed)
		assert.True(t, CanCreateNew(p, t0.Add(25*time.Hour)), "after window (completed=%v)", completed)
	}
}

func TestTimeUntilEligible(t *testing.T) {
	p := promiseAt(t0, false)

	assert.Nil(t, TimeUntilEligible(nil, t0))
	assert.Nil(t, TimeUntilEligible(p, t0.Add(24*time.Hour)))

	w := TimeUntilEligible(p, t0.Add(time.Hour+30*time.Second))
	require.NotNil(t, w)
	assert.Equal(t, Wait{Hours: 22, Minutes: 59}, *w, "seconds are truncated, not rounded")
	assert.Equal(t, "22h 59m", w.String())

	w = TimeUntilEligible(p, t0.Add(23*time.Hour+50*time.Minute))
	require.NotNil(t, w)
	assert.Equal(t, Wait{Hours: 0, Minutes: 10}, *w)
	assert.Equal(t, "10m", w.String())

	w = TimeUntilEligible(p, t0.Add(24*time.Hour-30*time.Second))
	require.NotNil(t, w)
	assert.Equal(t, Wait{}, *w)
	assert.Equal(t, "<1m", w.String())
}
