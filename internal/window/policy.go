// Package window implements the 24-hour promise window: when a promise is due
// and when its owner may start the next one.
package window

import (
	"fmt"
	"time"

	"github.com/jimdaga/promise/internal/models"
)

// Length is both the default completion window and the cool-down between promises.
const Length = 24 * time.Hour

// Deadline returns the effective deadline of a promise: its explicit target
// date when set, otherwise creation time plus Length.
func Deadline(p *models.Promise) time.Time {
	if p.TargetDate != nil {
		return *p.TargetDate
	}
	return p.CreatedAt.Add(Length)
}

// RemainingTime returns how long is left before the promise deadline. Never negative.
func RemainingTime(p *models.Promise, now time.Time) time.Duration {
	if p == nil {
		return 0
	}
	left := Deadline(p).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// CanCreateNew reports whether a new promise may be written given the most
// recent promise of any state. Completing early does not shorten the wait,
// and exactly Length after creation is already eligible.
func CanCreateNew(mostRecent *models.Promise, now time.Time) bool {
	if mostRecent == nil {
		return true
	}
	return now.Sub(mostRecent.CreatedAt) >= Length
}

// Wait is a whole-minute countdown until the next promise may be created
type Wait struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func (w Wait) String() string {
	if w.Hours == 0 && w.Minutes == 0 {
		return "<1m"
	}
	if w.Hours > 0 {
		return fmt.Sprintf("%dh %dm", w.Hours, w.Minutes)
	}
	return fmt.Sprintf("%dm", w.Minutes)
}

// TimeUntilEligible returns nil when a new promise may be created, otherwise
// the remaining wait with seconds truncated.
func TimeUntilEligible(mostRecent *models.Promise, now time.Time) *Wait {
	if CanCreateNew(mostRecent, now) {
		return nil
	}
	left := mostRecent.CreatedAt.Add(Length).Sub(now)
	return &Wait{
		Hours:   int(left / time.Hour),
		Minutes: int((left % time.Hour) / time.Minute),
	}
}
