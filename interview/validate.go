package interview

import (
	"strconv"
	"strings"
)

// answerValue is a validated answer. Exactly one of text, list or number is
// meaningful, depending on the question type.
type answerValue struct {
	text   string
	list   []string
	number float64
}

// parseAnswer validates raw input against the question's declared type.
// A false return means the question must be asked again unchanged.
func parseAnswer(q *Question, answer string) (answerValue, bool) {
	trimmed := strings.TrimSpace(answer)

	switch q.Type {
	case AnswerChoice:
		if isDigits(trimmed) {
			idx, err := strconv.Atoi(trimmed)
			if err != nil || idx < 1 || idx > len(q.Options) {
				return answerValue{}, false
			}
			return answerValue{text: q.Options[idx-1]}, true
		}
		for _, opt := range q.Options {
			if trimmed == opt {
				return answerValue{text: trimmed}, true
			}
		}
		return answerValue{}, false

	case AnswerMultiChoice:
		if trimmed == "无" || trimmed == "没有" {
			return answerValue{list: []string{}}, true
		}
		tokens := strings.Split(strings.ReplaceAll(trimmed, "，", ","), ",")
		var selected, valid []string
		for _, tok := range tokens {
			s := strings.TrimSpace(tok)
			if s == "" {
				continue
			}
			selected = append(selected, s)
			if isDigits(s) {
				if idx, err := strconv.Atoi(s); err == nil && idx >= 1 && idx <= len(q.Options) {
					valid = append(valid, q.Options[idx-1])
				}
				continue
			}
			if s == "其他" || containsString(q.Options, s) {
				valid = append(valid, s)
			}
		}
		if len(selected) == 0 {
			return answerValue{}, false
		}
		// Unmatched free-form input is kept rather than discarded, so users
		// can report conditions the option list never anticipated.
		if len(valid) == 0 {
			valid = selected
		}
		return answerValue{list: valid}, true

	case AnswerNumber:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return answerValue{}, false
		}
		if n < q.Min || n > q.Max {
			return answerValue{}, false
		}
		return answerValue{number: n}, true

	default: // AnswerText
		if trimmed == "" {
			return answerValue{}, false
		}
		// Follow-up questions may carry suggested options; a bare index
		// picks the suggestion, anything else is taken as free text.
		if len(q.Options) > 0 && isDigits(trimmed) {
			if idx, err := strconv.Atoi(trimmed); err == nil && idx >= 1 && idx <= len(q.Options) {
				return answerValue{text: q.Options[idx-1]}, true
			}
		}
		return answerValue{text: trimmed}, true
	}
}

// screenText flattens a validated answer for risk screening.
func screenText(v answerValue) string {
	if v.text != "" {
		return v.text
	}
	return strings.Join(v.list, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
