package qa

import (
	"strings"
	"unicode/utf8"
)

// Thresholds of the line heuristics. They are tuned to interview-style prose
// and are kept exactly as is; changing them changes which pages yield records.
// Lengths count runes, so an emoji is one character, not two UTF-16 units.
const (
	minQuestionLen = 10  // exclusive
	maxQuestionLen = 200 // exclusive

	maxAnswerLen      = 700 // accumulation stops once the answer reaches this
	sentenceAnswerLen = 100 // past this, a period ends the answer
	minAnswerLen      = 15  // exclusive, measured after trimming
)

// Record is a single extracted question, optionally paired with an answer,
// together with the page it was found on.
type Record struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Source   string `json:"source"`
}

// ExtractQuestions returns one record per line that looks like a standalone
// question: it ends with "?" and its trimmed length is strictly between 10
// and 200 characters. Records carry no answer and no source.
func ExtractQuestions(text string) []Record {
	var out []Record
	for _, line := range splitLines(text) {
		n := utf8.RuneCountInString(line)
		if isQuestion(line) && n > minQuestionLen && n < maxQuestionLen {
			out = append(out, Record{Question: line})
		}
	}
	return out
}

// ExtractPairs scans the text line by line and pairs every question line with
// the prose that follows it.
//
// Lines after a question are joined with single spaces into the answer until
// one of these holds:
//   - the next line is itself a question (it is left to start a new pair),
//   - the answer has reached 700 characters,
//   - the answer is longer than 100 characters and contains a period.
//
// The pair is kept only when the trimmed answer is longer than 15 characters.
func ExtractPairs(text string) []Record {
	lines := splitLines(text)

	var out []Record
	for i := 0; i < len(lines)-1; i++ {
		if !isQuestion(lines[i]) {
			continue
		}

		var b strings.Builder
		n := 0
		for j := i + 1; j < len(lines) && n < maxAnswerLen; j++ {
			if isQuestion(lines[j]) {
				break
			}
			b.WriteString(lines[j])
			b.WriteByte(' ')
			n += utf8.RuneCountInString(lines[j]) + 1
			if n > sentenceAnswerLen && strings.Contains(b.String(), ".") {
				break
			}
		}

		answer := strings.TrimSpace(b.String())
		if utf8.RuneCountInString(answer) > minAnswerLen {
			out = append(out, Record{Question: lines[i], Answer: answer})
		}
	}
	return out
}

func isQuestion(line string) bool {
	return strings.HasSuffix(line, "?")
}

// splitLines splits on newlines, trims every line and drops the empty ones.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
