// Package scoring computes test results from submitted answers. Score is
// pure and deterministic so the same submission always grades identically.
package scoring

import "math"

// Question is the grading view of a question: its identity, point value and
// recorded correct answer. Correct is a string or a []string depending on
// the question type.
type Question struct {
	ID      uint
	Points  *int // nil means the default of 1 point
	Correct interface{}
}

// Answer is one submitted answer. Value is a string or a []string.
type Answer struct {
	QuestionID uint
	Value      interface{}
}

type Result struct {
	CorrectCount   int `json:"correct_count"`
	TotalQuestions int `json:"total_questions"`
	EarnedPoints   int `json:"earned_points"`
	TotalPoints    int `json:"total_points"`
	Percentage     int `json:"percentage"`
}

// Score grades answers against questions. Every question contributes its
// points (default 1) to the total; a question earns its points when the
// first submitted answer with a matching question id equals the recorded
// correct answer exactly (case-sensitive string or array equality).
//
// Duplicate answers for the same question follow first-match-wins: later
// duplicates are ignored. Unanswered or unmatched questions contribute zero
// earned points and never an error. Inputs are not mutated. Percentage is
// round(earned/total*100), defined as 0 when the total is 0.
func Score(answers []Answer, questions []Question) Result {
	firstByQuestion := make(map[uint]interface{}, len(answers))
	for _, a := range answers {
		if _, seen := firstByQuestion[a.QuestionID]; !seen {
			firstByQuestion[a.QuestionID] = a.Value
		}
	}

	res := Result{TotalQuestions: len(questions)}
	for _, q := range questions {
		points := 1
		if q.Points != nil {
			points = *q.Points
		}
		res.TotalPoints += points

		value, ok := firstByQuestion[q.ID]
		if !ok {
			continue
		}
		if answerEquals(value, q.Correct) {
			res.CorrectCount++
			res.EarnedPoints += points
		}
	}

	if res.TotalPoints > 0 {
		res.Percentage = int(math.Round(float64(res.EarnedPoints) / float64(res.TotalPoints) * 100))
	}
	return res
}

// answerEquals compares a submitted value with the recorded correct answer.
// Strings compare case-sensitively; arrays compare element-wise in order.
// JSON-decoded []interface{} values are accepted alongside []string.
func answerEquals(submitted, correct interface{}) bool {
	if correct == nil {
		return false
	}
	cs, cIsStr := asString(correct)
	ss, sIsStr := asString(submitted)
	if cIsStr || sIsStr {
		return cIsStr && sIsStr && cs == ss
	}

	cl, cOK := asStringSlice(correct)
	sl, sOK := asStringSlice(submitted)
	if !cOK || !sOK || len(cl) != len(sl) {
		return false
	}
	for i := range cl {
		if cl[i] != sl[i] {
			return false
		}
	}
	return true
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
