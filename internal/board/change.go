package board

import (
	"sort"

	"sprintboard/internal/models"
)

// Status is the lifecycle state of a TagChange.
type Status string

const (
	// StatusApplied: the board shows the new tag, the server has not answered.
	StatusApplied Status = "applied"
	// StatusConfirmed: the server accepted the new tag.
	StatusConfirmed Status = "confirmed"
	// StatusReverted: the server refused the change.
	StatusReverted Status = "reverted"
)

// TagChange records one drop of a daily onto a lane.
type TagChange struct {
	Seq     int64
	DailyID int64
	From    models.Tag
	To      models.Tag
	Status  Status
	// Restored is set on a reverted change when the board was rolled back to From. It stays
	// false if the daily was moved again before the failure arrived.
	Restored bool
	Err      error
}

func sortChanges(cs []TagChange) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Seq < cs[j].Seq })
}
