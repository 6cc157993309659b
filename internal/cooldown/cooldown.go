// Package cooldown decides whether horses are unavailable on given dates.
// The checks are pure; both event provisioning and horse edits run them
// before touching storage.
package cooldown

import (
	"sort"
	"strings"
	"time"
)

// dateFormat matches the admin-facing conflict messages, e.g. "Jan 2, 2026".
const dateFormat = "Jan 2, 2006"

// HorseConflict lists the dates on which one horse is inside its cooldown
// window, sorted ascending.
type HorseConflict struct {
	HorseName string      `json:"horseName"`
	Dates     []time.Time `json:"dates"`
}

// Window is the subset of a horse row the checker needs.
type Window struct {
	Name  string
	Start *time.Time
	End   *time.Time
}

// Conflicts reports whether date falls inside the cooldown window. The end
// date is inclusive through end of day: the window is half-open at midnight
// after End.
func Conflicts(w Window, date time.Time) bool {
	if w.Start == nil || w.End == nil {
		return false
	}
	cutoff := w.End.AddDate(0, 0, 1)
	return !date.Before(*w.Start) && date.Before(cutoff)
}

// ConflictsForSet collects, per horse, every date in dates that conflicts
// with that horse's cooldown window. Horses with no conflicts are omitted.
func ConflictsForSet(horses []Window, dates []time.Time) []HorseConflict {
	var out []HorseConflict
	for _, h := range horses {
		var conflicting []time.Time
		for _, d := range dates {
			if Conflicts(h, d) {
				conflicting = append(conflicting, d)
			}
		}
		if len(conflicting) == 0 {
			continue
		}
		sort.Slice(conflicting, func(i, j int) bool { return conflicting[i].Before(conflicting[j]) })
		out = append(out, HorseConflict{HorseName: h.Name, Dates: conflicting})
	}
	return out
}

// Summary renders conflicts as "HorseA (Jan 1, 2026, Jan 2, 2026), HorseB (Jan 3, 2026)".
func Summary(conflicts []HorseConflict) string {
	var b strings.Builder
	for i, c := range conflicts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.HorseName)
		b.WriteString(" (")
		for j, d := range c.Dates {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Format(dateFormat))
		}
		b.WriteString(")")
	}
	return b.String()
}
