package scraper

import (
	"fmt"
	"strings"
	"testing"

	"grade_watchdog/internal/domain/result"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// row renders a results table row with the given number of cells; cells
// not listed in values are filled with "x".
func row(id string, columns int, values map[int]string) string {
	var b strings.Builder
	if id == "" {
		b.WriteString("<tr>")
	} else {
		fmt.Fprintf(&b, `<tr id="%s">`, id)
	}
	for i := 0; i < columns; i++ {
		v, ok := values[i]
		if !ok {
			v = "x"
		}
		fmt.Fprintf(&b, "<td>%s</td>", v)
	}
	b.WriteString("</tr>")
	return b.String()
}

func resultsPage(rows ...string) string {
	return `<html><body><table class="timetable-tab"><tr><th>Os. číslo</th></tr>` +
		strings.Join(rows, "") + `</table></body></html>`
}

func TestParseResults(t *testing.T) {
	page := resultsPage(
		row("A12345", 11, map[int]string{1: " Novák ", 2: "60", 9: "85", 10: "Prospěl"}),
		row("A20001", 12, map[int]string{1: "Svoboda", 2: "", 9: " ", 10: ""}),
	)

	records, err := ParseResults(page)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, result.Record{StudentID: "A12345", Tutor: "Novák", SPPoints: "60", TotalPoints: "85", Result: "Prospěl"}, records[0])
	assert.Equal(t, result.Record{StudentID: "A20001", Tutor: "Svoboda", SPPoints: "0", TotalPoints: "0", Result: result.NotGraded}, records[1])
}

func TestParseResults_SkipsShortAndAnonymousRows(t *testing.T) {
	page := resultsPage(
		row("A1", 9, nil),
		row("A2", 10, nil),
		row("", 11, nil),
		row("A3", 11, map[int]string{10: "Prospěl"}),
	)

	records, err := ParseResults(page)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A3", records[0].StudentID)
}

func TestParseResults_MissingTable(t *testing.T) {
	records, err := ParseResults(`<html><body><p>Nic tu není</p></body></html>`)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseResults_DuplicateIDKeepsPosition(t *testing.T) {
	page := resultsPage(
		row("A1", 11, map[int]string{10: "first"}),
		row("A2", 11, nil),
		row("A1", 11, map[int]string{10: "second"}),
	)

	records, err := ParseResults(page)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].StudentID)
	assert.Equal(t, "second", records[0].Result)
}

func TestParseResults_CellTextJoinsTrimmedParts(t *testing.T) {
	page := resultsPage(row("A1", 11, map[int]string{1: " Jan <br> <b>Novák</b> ", 10: "<span> Prospěl </span>"}))

	records, err := ParseResults(page)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "JanNovák", records[0].Tutor)
	assert.Equal(t, "Prospěl", records[0].Result)
}

const detailPage = `<html><body>
<form>
  <b>Student</b> <input type="text" value="A12345">
  <b>Datum odevzdání SP:</b> <span>(poslední)</span>
  <input type="text" value="12.01.2025 23:59">
  <textarea name="hodnoceni">
    Pěkná práce, drobné chyby v dokumentaci.
  </textarea>
  <a href="/files/readme.txt">readme</a>
  <a href="https://www.kiv.zcu.cz/upload/A12345/dokumentace_sp.pdf">dokumentace</a>
</form>
</body></html>`

func TestParseDetail(t *testing.T) {
	detail, err := ParseDetail(detailPage, "https://detail/A12345")

	require.NoError(t, err)
	assert.Equal(t, "Pěkná práce, drobné chyby v dokumentaci.", detail.Comment)
	assert.Equal(t, "12.01.2025 23:59", detail.SubmissionDate)
	assert.Equal(t, "https://www.kiv.zcu.cz/upload/A12345/dokumentace_sp.pdf", detail.DocumentURL)
	assert.Equal(t, "https://detail/A12345", detail.DetailURL)
}

func TestParseDetail_Sentinels(t *testing.T) {
	detail, err := ParseDetail(`<html><body><b>Datum odevzdání</b></body></html>`, "u")

	require.NoError(t, err)
	assert.Equal(t, result.NoComment, detail.Comment)
	assert.Equal(t, result.UnknownDate, detail.SubmissionDate)
	assert.Equal(t, "", detail.DocumentURL)
}

func TestParseDetail_InputWithoutValue(t *testing.T) {
	detail, err := ParseDetail(`<b>Datum odevzdání</b><input type="text">`, "u")

	require.NoError(t, err)
	assert.Equal(t, result.UnknownDate, detail.SubmissionDate)
}

func TestParseDetail_InputBeforeLabelIgnored(t *testing.T) {
	detail, err := ParseDetail(`<input value="early"><b>Jiný popisek</b><input value="other">`, "u")

	require.NoError(t, err)
	assert.Equal(t, result.UnknownDate, detail.SubmissionDate)
}
