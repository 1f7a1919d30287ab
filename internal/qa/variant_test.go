package qa

import (
	"testing"
	"time"
)

func TestParseVariant(t *testing.T) {
	for _, s := range []string{"qa", "questions"} {
		if _, err := ParseVariant(s); err != nil {
			t.Errorf("ParseVariant(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseVariant("answers"); err == nil {
		t.Errorf("expected error for unknown variant")
	}
}

func TestVariant_Profile(t *testing.T) {
	p := VariantPairs.Profile()
	if p.OutputFile != "Interview_QA.xlsx" || p.SheetName != "Interview_QA" || p.MaxURLs != 60 || p.MaxPages != 3 ||
		p.SettleDelay != 4*time.Second || p.SearchSettle != 3*time.Second {
		t.Errorf("unexpected pairs profile: %+v", p)
	}
	q := VariantQuestions.Profile()
	if q.OutputFile != "Interview_Questions.xlsx" || q.SheetName != "Questions" || q.MaxURLs != 5 || q.SearchSettle != 5*time.Second {
		t.Errorf("unexpected questions profile: %+v", q)
	}
	if Variant("bogus").Profile() != p {
		t.Errorf("unknown variant should fall back to the pairs profile")
	}
}

func TestVariant_ExtractStampsSource(t *testing.T) {
	text := "What is a goroutine?\nA goroutine is a lightweight thread managed by the Go runtime."

	pairs := VariantPairs.Extract(text, "https://example.com/go")
	if len(pairs) != 1 || pairs[0].Source != "https://example.com/go" || pairs[0].Answer == "" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}

	questions := VariantQuestions.Extract(text, "https://example.com/go")
	if len(questions) != 1 || questions[0].Source != "https://example.com/go" || questions[0].Answer != "" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
}

func TestVariant_ColumnsMatchRow(t *testing.T) {
	r := Record{Question: "Q?", Answer: "A", Source: "S"}
	for _, v := range []Variant{VariantPairs, VariantQuestions} {
		if len(v.Columns()) != len(v.Row(r)) {
			t.Errorf("%s: %d columns but %d cells", v, len(v.Columns()), len(v.Row(r)))
		}
	}
}
