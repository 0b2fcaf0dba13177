package promises

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/promise/internal/apperr"
)

func TestParseTargetDate(t *testing.T) {
	t.Run("rfc3339", func(t *testing.T) {
		got, err := ParseTargetDate("2026-03-03T18:00:00+02:00", t0)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC), got)
		assert.Equal(t, time.UTC, got.Location())
	})

	t.Run("natural language", func(t *testing.T) {
		got, err := ParseTargetDate("tomorrow", t0)
		require.NoError(t, err)
		assert.True(t, got.After(t0))
		assert.WithinDuration(t, t0.Add(24*time.Hour), got, 24*time.Hour)
	})

	t.Run("past", func(t *testing.T) {
		_, err := ParseTargetDate("2026-03-01T09:00:00Z", t0)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("now is not the future", func(t *testing.T) {
		_, err := ParseTargetDate(t0.Format(time.RFC3339), t0)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseTargetDate("   ", t0)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("gibberish", func(t *testing.T) {
		_, err := ParseTargetDate("qwzx blorp", t0)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}
