// internal/domain/result/record.go
package result

// Sentinel values shown when the results page leaves a cell empty or a
// detail page cannot be read.
const (
	NotGraded       = "Nezadáno"
	DefaultPoints   = "0"
	UnknownDate     = "Neznamo"
	NoComment       = "Zadny textovy komentar."
	DetailLoadError = "Nepodarilo se nacist detail."
	UnknownTutor    = "Neznamo"

	// Placeholders for the "previous" side of a change that has no history.
	NewStudentResult  = "N/A"
	NewStudentPoints  = "?"
	StartupTestResult = "TEST_START"
)

// Record is one row of the results table for a single student.
// It is replaced as a whole whenever a fetch yields new values.
type Record struct {
	StudentID   string `json:"-"`
	Tutor       string `json:"tutor"`
	SPPoints    string `json:"sp_points"`
	TotalPoints string `json:"total_points"`
	Result      string `json:"result"`
}

// Differs reports whether r represents a notifiable change against prev.
// Only the result and the total points take part in the comparison.
func (r Record) Differs(prev Record) bool {
	return r.Result != prev.Result || r.TotalPoints != prev.TotalPoints
}

// Snapshot maps student id to the last observed record.
type Snapshot map[string]Record

// SnapshotOf builds the snapshot that will be persisted for the given rows.
func SnapshotOf(records []Record) Snapshot {
	s := make(Snapshot, len(records))
	for _, r := range records {
		s[r.StudentID] = r
	}
	return s
}

// Get returns the record for id with its StudentID populated.
func (s Snapshot) Get(id string) (Record, bool) {
	r, ok := s[id]
	if ok {
		r.StudentID = id
	}
	return r, ok
}

// Detail is the per-student assessment page content used to enrich a
// notification. It is never persisted.
type Detail struct {
	Comment        string
	SubmissionDate string
	DocumentURL    string
	DetailURL      string
}

// UnavailableDetail is used when the detail page could not be fetched.
func UnavailableDetail(detailURL string) Detail {
	return Detail{
		Comment:        DetailLoadError,
		SubmissionDate: UnknownDate,
		DocumentURL:    "",
		DetailURL:      detailURL,
	}
}
