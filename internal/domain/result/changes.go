// internal/domain/result/changes.go
package result

// Targets maps a student id to the messaging user that should be mentioned
// when the student's result changes.
type Targets map[string]string

// Change describes one student whose row is worth notifying about.
type Change struct {
	StudentID string
	Previous  Record
	Current   Record
	IsNew     bool
}

// Detect compares freshly fetched rows with the persisted snapshot and
// returns one Change per notifiable difference, in the order of current.
//
// A student missing from previous is reported only if it is myID or has a
// notification target. A known student is reported when its result or total
// points differ; tutor and SP point changes alone are not reported.
func Detect(current []Record, previous Snapshot, myID string, targets Targets) []Change {
	var changes []Change
	for _, cur := range current {
		prev, ok := previous.Get(cur.StudentID)
		if !ok {
			if !isTracked(cur.StudentID, myID, targets) {
				continue
			}
			changes = append(changes, Change{
				StudentID: cur.StudentID,
				Previous:  placeholderFor(cur.StudentID),
				Current:   cur,
				IsNew:     true,
			})
			continue
		}
		if cur.Differs(prev) {
			changes = append(changes, Change{
				StudentID: cur.StudentID,
				Previous:  prev,
				Current:   cur,
			})
		}
	}
	return changes
}

func isTracked(id, myID string, targets Targets) bool {
	if myID != "" && id == myID {
		return true
	}
	_, ok := targets[id]
	return ok
}

func placeholderFor(id string) Record {
	return Record{
		StudentID:   id,
		SPPoints:    NewStudentPoints,
		TotalPoints: NewStudentPoints,
		Result:      NewStudentResult,
	}
}
