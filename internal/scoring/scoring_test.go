package scoring

import (
	"math/rand"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestScore_Basic(t *testing.T) {
	questions := []Question{
		{ID: 1, Points: intPtr(10), Correct: "B"},
		{ID: 2, Points: intPtr(5), Correct: "A"},
	}
	answers := []Answer{
		{QuestionID: 1, Value: "B"},
	}

	got := Score(answers, questions)

	want := Result{CorrectCount: 1, TotalQuestions: 2, EarnedPoints: 10, TotalPoints: 15, Percentage: 67}
	if got != want {
		t.Errorf("Score() = %+v, want %+v", got, want)
	}
}

func TestScore_EmptyAnswers(t *testing.T) {
	questions := []Question{
		{ID: 1, Points: intPtr(10), Correct: "A"},
		{ID: 2, Points: intPtr(5), Correct: "B"},
	}

	got := Score(nil, questions)

	if got.CorrectCount != 0 || got.EarnedPoints != 0 || got.Percentage != 0 {
		t.Errorf("Score(nil) = %+v, want zero correct/earned/percentage", got)
	}
	if got.TotalPoints != 15 || got.TotalQuestions != 2 {
		t.Errorf("Score(nil) totals = %+v", got)
	}
}

func TestScore_NoQuestions(t *testing.T) {
	got := Score([]Answer{{QuestionID: 1, Value: "A"}}, nil)
	if got.Percentage != 0 || got.TotalPoints != 0 {
		t.Errorf("Score with no questions = %+v, want zeros", got)
	}
}

func TestScore_DefaultAndZeroPoints(t *testing.T) {
	questions := []Question{
		{ID: 1, Correct: "A"},                    // default 1 point
		{ID: 2, Points: intPtr(0), Correct: "B"}, // explicit zero
	}
	answers := []Answer{
		{QuestionID: 1, Value: "A"},
		{QuestionID: 2, Value: "B"},
	}

	got := Score(answers, questions)

	if got.TotalPoints != 1 || got.EarnedPoints != 1 {
		t.Errorf("points = earned %d / total %d, want 1/1", got.EarnedPoints, got.TotalPoints)
	}
	if got.CorrectCount != 2 {
		t.Errorf("CorrectCount = %d, want 2 (zero-point question still counts)", got.CorrectCount)
	}
	if got.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", got.Percentage)
	}
}

// Duplicate answers for the same question: first match wins.
func TestScore_DuplicateAnswersFirstWins(t *testing.T) {
	questions := []Question{{ID: 1, Points: intPtr(10), Correct: "A"}}

	correctFirst := Score([]Answer{
		{QuestionID: 1, Value: "A"},
		{QuestionID: 1, Value: "B"},
	}, questions)
	if correctFirst.EarnedPoints != 10 {
		t.Errorf("correct-then-wrong earned %d, want 10", correctFirst.EarnedPoints)
	}

	wrongFirst := Score([]Answer{
		{QuestionID: 1, Value: "B"},
		{QuestionID: 1, Value: "A"},
	}, questions)
	if wrongFirst.EarnedPoints != 0 {
		t.Errorf("wrong-then-correct earned %d, want 0 (first match wins)", wrongFirst.EarnedPoints)
	}
}

func TestScore_ArrayAnswers(t *testing.T) {
	questions := []Question{
		{ID: 1, Points: intPtr(4), Correct: []string{"A", "C"}},
	}

	tests := []struct {
		name  string
		value interface{}
		want  int
	}{
		{"exact match", []string{"A", "C"}, 4},
		{"json-decoded match", []interface{}{"A", "C"}, 4},
		{"order matters", []string{"C", "A"}, 0},
		{"case sensitive", []string{"a", "c"}, 0},
		{"length mismatch", []string{"A"}, 0},
		{"string vs array", "A", 0},
		{"nil value", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score([]Answer{{QuestionID: 1, Value: tt.value}}, questions)
			if got.EarnedPoints != tt.want {
				t.Errorf("earned %d, want %d", got.EarnedPoints, tt.want)
			}
		})
	}
}

// Score must be invariant under reordering of both inputs.
func TestScore_OrderInvariance(t *testing.T) {
	questions := []Question{
		{ID: 1, Points: intPtr(3), Correct: "A"},
		{ID: 2, Points: intPtr(7), Correct: "B"},
		{ID: 3, Points: intPtr(2), Correct: []string{"X", "Y"}},
		{ID: 4, Correct: "D"},
	}
	answers := []Answer{
		{QuestionID: 2, Value: "B"},
		{QuestionID: 3, Value: []string{"X", "Y"}},
		{QuestionID: 1, Value: "wrong"},
	}

	base := Score(answers, questions)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		qs := append([]Question(nil), questions...)
		as := append([]Answer(nil), answers...)
		rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		rng.Shuffle(len(as), func(i, j int) { as[i], as[j] = as[j], as[i] })

		if got := Score(as, qs); got != base {
			t.Fatalf("Score changed under reordering: %+v vs %+v", got, base)
		}
	}
}

func TestScore_DoesNotMutateInputs(t *testing.T) {
	questions := []Question{{ID: 1, Points: intPtr(10), Correct: "A"}}
	answers := []Answer{{QuestionID: 1, Value: "A"}}

	Score(answers, questions)

	if *questions[0].Points != 10 || questions[0].Correct != "A" {
		t.Error("questions mutated")
	}
	if answers[0].Value != "A" {
		t.Error("answers mutated")
	}
}
