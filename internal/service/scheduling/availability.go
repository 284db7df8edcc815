package scheduling

import "github.com/jwalitptl/medipass-api/internal/model"

// availabilityIndex keeps each practitioner's planning: the consultation ids
// booked with them, in registration order. Not safe for concurrent use; the
// owning Service serializes access.
type availabilityIndex struct {
	planning map[int][]int
}

func newAvailabilityIndex() *availabilityIndex {
	return &availabilityIndex{planning: make(map[int][]int)}
}

func (a *availabilityIndex) add(practitionerID, consultationID int) {
	a.planning[practitionerID] = append(a.planning[practitionerID], consultationID)
}

// ids returns a copy of the practitioner's planning; never nil.
func (a *availabilityIndex) ids(practitionerID int) []int {
	src := a.planning[practitionerID]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

func (a *availabilityIndex) isAvailable(practitionerID int, candidate model.Interval, lookup func(int) (*model.Consultation, bool)) bool {
	return slotFree(a.planning[practitionerID], candidate, lookup)
}

// slotFree scans every id, skipping cancelled consultations. Order is not
// assumed: cancellations and loads from storage leave plannings unsorted.
func slotFree(ids []int, candidate model.Interval, lookup func(int) (*model.Consultation, bool)) bool {
	for _, id := range ids {
		c, ok := lookup(id)
		if !ok || c.IsCancelled() {
			continue
		}
		if c.Interval().Overlaps(candidate) {
			return false
		}
	}
	return true
}
