package qa

import (
	"fmt"
	"time"
)

// Variant selects which extractor a run uses. Each variant also carries the
// defaults the rest of the run is tuned to.
type Variant string

const (
	// VariantPairs extracts question/answer pairs.
	VariantPairs Variant = "qa"
	// VariantQuestions extracts standalone question lines only.
	VariantQuestions Variant = "questions"
)

// Profile holds the per-variant defaults.
type Profile struct {
	Topic        string
	OutputFile   string
	SheetName    string
	MaxURLs      int
	MaxPages     int
	NavTimeout   time.Duration
	SettleDelay  time.Duration
	// SearchSettle is the pause on each search results page before it is
	// scrolled and read.
	SearchSettle time.Duration
}

var profiles = map[Variant]Profile{
	VariantPairs: {
		Topic:        "dot net interview questions",
		OutputFile:   "Interview_QA.xlsx",
		SheetName:    "Interview_QA",
		MaxURLs:      60,
		MaxPages:     3,
		NavTimeout:   30 * time.Second,
		SettleDelay:  4 * time.Second,
		SearchSettle: 3 * time.Second,
	},
	VariantQuestions: {
		Topic:        "Java developer interview questions",
		OutputFile:   "Interview_Questions.xlsx",
		SheetName:    "Questions",
		MaxURLs:      5,
		MaxPages:     1,
		NavTimeout:   25 * time.Second,
		SettleDelay:  3 * time.Second,
		SearchSettle: 5 * time.Second,
	},
}

// ParseVariant maps a user-supplied name to a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if _, ok := profiles[v]; !ok {
		return "", fmt.Errorf("unknown variant %q (want %q or %q)", s, VariantPairs, VariantQuestions)
	}
	return v, nil
}

// Profile returns the defaults of v. Unknown variants get the pairs profile.
func (v Variant) Profile() Profile {
	if p, ok := profiles[v]; ok {
		return p
	}
	return profiles[VariantPairs]
}

// Extract runs the extractor of v over text and stamps every record with source.
func (v Variant) Extract(text, source string) []Record {
	var recs []Record
	if v == VariantQuestions {
		recs = ExtractQuestions(text)
	} else {
		recs = ExtractPairs(text)
	}
	for i := range recs {
		recs[i].Source = source
	}
	return recs
}

// Columns returns the spreadsheet header for records of v, in field order.
func (v Variant) Columns() []string {
	if v == VariantQuestions {
		return []string{"Question", "Source"}
	}
	return []string{"Question", "Answer", "Source"}
}

// Row returns r's cells matching Columns.
func (v Variant) Row(r Record) []any {
	if v == VariantQuestions {
		return []any{r.Question, r.Source}
	}
	return []any{r.Question, r.Answer, r.Source}
}
