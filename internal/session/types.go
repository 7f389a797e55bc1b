package session

// AnswerState records the outcome of one question. SelectedIndex is the chosen
// position in display order, nil when the question was skipped or timed out.
type AnswerState struct {
	SelectedIndex *int `json:"selectedIndex"`
	IsCorrect     bool `json:"isCorrect"`
	PointsAwarded int  `json:"pointsAwarded"`
	IsSkipped     bool `json:"isSkipped"`
	IsTimedOut    bool `json:"isTimedOut"`
}

// ShuffleOrder fixes the display order of a question's choices for the life of
// a session. ChoiceIndices is a permutation of 0..N-1 over the original
// choices; CorrectIndex is the display position of the originally-correct one.
type ShuffleOrder struct {
	ChoiceIndices []int `json:"choiceIndices"`
	CorrectIndex  int   `json:"correctIndex"`
}

// Valid reports whether the order is a proper permutation with an in-range
// correct position.
func (o ShuffleOrder) Valid() bool {
	if o.CorrectIndex < 0 || o.CorrectIndex >= len(o.ChoiceIndices) {
		return false
	}
	seen := make([]bool, len(o.ChoiceIndices))
	for _, idx := range o.ChoiceIndices {
		if idx < 0 || idx >= len(o.ChoiceIndices) || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
