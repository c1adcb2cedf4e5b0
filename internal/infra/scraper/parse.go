package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"grade_watchdog/internal/domain/result"

	"github.com/PuerkitoBio/goquery"
)

const (
	resultsTableSelector = "table.timetable-tab"
	submissionDateMarker = "Datum odevzdání"
	minColumns           = 11
)

// Column positions in the results table.
const (
	colTutor       = 1
	colSPPoints    = 2
	colTotalPoints = 9
	colResult      = 10
)

var documentationLink = regexp.MustCompile(`dokumentace.*\.pdf`)

// ParseResults extracts the student rows of the results table in table order.
// A page without the table yields no rows and no error.
func ParseResults(page string) ([]result.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	table := doc.Find(resultsTableSelector).First()
	if table.Length() == 0 {
		return nil, nil
	}

	var records []result.Record
	index := make(map[string]int)
	table.Find("tr[id]").Each(func(_ int, row *goquery.Selection) {
		id := strings.TrimSpace(row.AttrOr("id", ""))
		if id == "" {
			return
		}
		cols := row.Find("td")
		if cols.Length() < minColumns {
			return
		}

		rec := result.Record{
			StudentID:   id,
			Tutor:       cellText(cols.Eq(colTutor)),
			SPPoints:    orDefault(cellText(cols.Eq(colSPPoints)), result.DefaultPoints),
			TotalPoints: orDefault(cellText(cols.Eq(colTotalPoints)), result.DefaultPoints),
			Result:      orDefault(cellText(cols.Eq(colResult)), result.NotGraded),
		}
		// A repeated id keeps its first position and takes the latest values.
		if i, ok := index[id]; ok {
			records[i] = rec
			return
		}
		index[id] = len(records)
		records = append(records, rec)
	})
	return records, nil
}

// ParseDetail extracts the evaluator comment, the submission date and the
// documentation link from a student's assessment page.
func ParseDetail(page, detailURL string) (result.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return result.Detail{}, fmt.Errorf("failed to parse detail page: %w", err)
	}

	detail := result.Detail{
		Comment:        result.NoComment,
		SubmissionDate: result.UnknownDate,
		DetailURL:      detailURL,
	}

	if textarea := doc.Find("textarea").First(); textarea.Length() > 0 {
		detail.Comment = cellText(textarea)
	}

	// The date sits in the first input following the bold label, in
	// document order.
	labelSeen := false
	doc.Find("b, input").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if goquery.NodeName(sel) == "b" {
			if !labelSeen && strings.Contains(sel.Text(), submissionDateMarker) {
				labelSeen = true
			}
			return true
		}
		if labelSeen {
			detail.SubmissionDate = sel.AttrOr("value", result.UnknownDate)
			return false
		}
		return true
	})

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		if documentationLink.MatchString(href) {
			detail.DocumentURL = href
			return false
		}
		return true
	})

	return detail, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
