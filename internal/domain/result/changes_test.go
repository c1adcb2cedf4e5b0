package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id, tutor, sp, total, res string) Record {
	return Record{StudentID: id, Tutor: tutor, SPPoints: sp, TotalPoints: total, Result: res}
}

func TestDetect_NewTrackedStudent(t *testing.T) {
	current := []Record{rec("A12345", "Novak", "60", "85", "Prospěl")}

	changes := Detect(current, Snapshot{}, "A12345", nil)

	require.Len(t, changes, 1)
	c := changes[0]
	assert.True(t, c.IsNew)
	assert.Equal(t, "A12345", c.StudentID)
	assert.Equal(t, NewStudentResult, c.Previous.Result)
	assert.Equal(t, NewStudentPoints, c.Previous.TotalPoints)
	assert.Equal(t, NewStudentPoints, c.Previous.SPPoints)
	assert.Equal(t, current[0], c.Current)
}

func TestDetect_NewStudentTrackedByTarget(t *testing.T) {
	current := []Record{rec("B1", "Novak", "0", "0", NotGraded)}

	changes := Detect(current, Snapshot{}, "A12345", Targets{"B1": "42"})

	require.Len(t, changes, 1)
	assert.True(t, changes[0].IsNew)
}

func TestDetect_UntrackedNewStudentIgnored(t *testing.T) {
	current := []Record{rec("C9", "Novak", "0", "0", NotGraded)}

	assert.Empty(t, Detect(current, Snapshot{}, "A12345", Targets{"B1": "42"}))
}

func TestDetect_EmptyOwnIDDoesNotTrackEverything(t *testing.T) {
	current := []Record{rec("", "Novak", "0", "0", NotGraded)}

	assert.Empty(t, Detect(current, Snapshot{}, "", nil))
}

func TestDetect_TutorOnlyChangeIgnored(t *testing.T) {
	previous := Snapshot{"A12345": {Tutor: "Novak", SPPoints: "0", TotalPoints: "0", Result: NotGraded}}
	current := []Record{rec("A12345", "Svoboda", "0", "0", NotGraded)}

	assert.Empty(t, Detect(current, previous, "A12345", nil))
}

func TestDetect_SPPointsOnlyChangeIgnored(t *testing.T) {
	previous := Snapshot{"A12345": {Tutor: "Novak", SPPoints: "10", TotalPoints: "50", Result: NotGraded}}
	current := []Record{rec("A12345", "Novak", "20", "50", NotGraded)}

	assert.Empty(t, Detect(current, previous, "A12345", nil))
}

func TestDetect_ResultOrTotalChange(t *testing.T) {
	previous := Snapshot{
		"A1": {Tutor: "Novak", SPPoints: "10", TotalPoints: "50", Result: NotGraded},
		"A2": {Tutor: "Novak", SPPoints: "10", TotalPoints: "50", Result: NotGraded},
		"A3": {Tutor: "Novak", SPPoints: "10", TotalPoints: "50", Result: NotGraded},
	}
	current := []Record{
		rec("A1", "Novak", "10", "50", "Prospěl"),
		rec("A2", "Novak", "10", "50", NotGraded),
		rec("A3", "Novak", "10", "61", NotGraded),
	}

	changes := Detect(current, previous, "", nil)

	require.Len(t, changes, 2)
	assert.Equal(t, "A1", changes[0].StudentID)
	assert.Equal(t, "A3", changes[1].StudentID)
	assert.False(t, changes[0].IsNew)
	assert.Equal(t, "A1", changes[0].Previous.StudentID)
	assert.Equal(t, NotGraded, changes[0].Previous.Result)
}

func TestDetect_KnownUntrackedStudentStillReported(t *testing.T) {
	previous := Snapshot{"Z1": {TotalPoints: "0", Result: NotGraded}}
	current := []Record{rec("Z1", "", "0", "70", "Prospěl")}

	require.Len(t, Detect(current, previous, "A12345", nil), 1)
}

func TestDetect_IsPure(t *testing.T) {
	previous := Snapshot{"A1": {TotalPoints: "1", Result: NotGraded}}
	current := []Record{
		rec("A1", "", "0", "2", NotGraded),
		rec("A2", "", "0", "0", NotGraded),
	}
	targets := Targets{"A2": "7"}

	first := Detect(current, previous, "", targets)
	second := Detect(current, previous, "", targets)

	assert.Equal(t, first, second)
	assert.Len(t, previous, 1)
	assert.Len(t, targets, 1)
}

func TestSnapshotOf(t *testing.T) {
	s := SnapshotOf([]Record{rec("A1", "T", "1", "2", "R")})

	r, ok := s.Get("A1")
	require.True(t, ok)
	assert.Equal(t, "A1", r.StudentID)
	assert.Equal(t, "2", r.TotalPoints)
}
