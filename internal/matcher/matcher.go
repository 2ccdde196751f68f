// Package matcher decides whether a speaker's declared availability admits a
// given slot. It is pure: no storage, no clock, callers pass everything in.
package matcher

import (
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

// IsEligible reports whether a slot is still open and its date appears among
// the speaker's availability entries. Confirmed or blocked slots are never
// eligible, and a speaker with no entries at all is eligible for nothing.
func IsEligible(entries []persistence.AvailabilityEntry, slot persistence.SeminarSlot) bool {
	if slot.Status != persistence.SlotAvailable {
		return false
	}
	for _, entry := range entries {
		if entry.Date == slot.Date {
			return true
		}
	}
	return false
}

// EligibleSlots filters slots down to the ones the entries admit, preserving
// input order.
func EligibleSlots(entries []persistence.AvailabilityEntry, slots []persistence.SeminarSlot) []persistence.SeminarSlot {
	var eligible []persistence.SeminarSlot
	for _, slot := range slots {
		if IsEligible(entries, slot) {
			eligible = append(eligible, slot)
		}
	}
	return eligible
}

// InvalidDate describes one rejected availability date.
type InvalidDate struct {
	Date   string
	Reason string
}

// ValidateDates checks submitted availability entries against the plan's
// slot dates. Dates must parse as YYYY-MM-DD, be unique, and name a date the
// plan actually offers. The returned list is empty when every entry is
// acceptable.
func ValidateDates(entries []persistence.AvailabilityEntry, planSlotDates []string) []InvalidDate {
	offered := make(map[string]bool, len(planSlotDates))
	for _, date := range planSlotDates {
		offered[date] = true
	}

	seen := make(map[string]bool, len(entries))

	var invalid []InvalidDate
	for _, entry := range entries {
		if _, err := time.Parse("2006-01-02", entry.Date); err != nil {
			invalid = append(invalid, InvalidDate{
				Date:   entry.Date,
				Reason: "not a valid date",
			})
			continue
		}
		if seen[entry.Date] {
			invalid = append(invalid, InvalidDate{
				Date:   entry.Date,
				Reason: "duplicate date",
			})
			continue
		}
		seen[entry.Date] = true

		if !offered[entry.Date] {
			invalid = append(invalid, InvalidDate{
				Date:   entry.Date,
				Reason: "no seminar slot on this date",
			})
		}
	}

	return invalid
}

func (d InvalidDate) String() string {
	return fmt.Sprintf("%s: %s", d.Date, d.Reason)
}
