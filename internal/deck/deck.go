// Package deck loads the quiz deck consumed by the scoring engine. It only
// reads the fields the engine needs; rendering content and schema validation
// belong to the presentation side.
package deck

import (
	"encoding/json"
	"fmt"
	"os"
)

// SlideTypeQuiz marks slides that participate in scoring.
const SlideTypeQuiz = "quiz"

// Slide is one deck entry. Non-quiz slides carry no scoring fields.
type Slide struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Prompt           string   `json:"prompt,omitempty"`
	Choices          []string `json:"choices,omitempty"`
	CorrectChoice    int      `json:"correctChoice,omitempty"`
	BasePoints       int      `json:"basePoints,omitempty"`
	TimeLimitSeconds int      `json:"timeLimitSeconds,omitempty"`
}

// IsQuiz reports whether the slide is scored.
func (s Slide) IsQuiz() bool { return s.Type == SlideTypeQuiz }

// Deck is the full slide sequence.
type Deck struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Load reads a deck from a JSON file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	return Parse(data)
}

// Parse decodes a deck from JSON.
func Parse(data []byte) (*Deck, error) {
	var d Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deck: %w", err)
	}
	return &d, nil
}

// Slide returns the slide with the given id.
func (d *Deck) Slide(id string) (Slide, bool) {
	for _, s := range d.Slides {
		if s.ID == id {
			return s, true
		}
	}
	return Slide{}, false
}

// QuizSlides returns the scored slides in deck order.
func (d *Deck) QuizSlides() []Slide {
	var out []Slide
	for _, s := range d.Slides {
		if s.IsQuiz() {
			out = append(out, s)
		}
	}
	return out
}

// TotalPossible sums base points across every quiz slide, used to seed the
// session's maximum-possible total in one step.
func (d *Deck) TotalPossible() int {
	total := 0
	for _, s := range d.Slides {
		if s.IsQuiz() && s.BasePoints > 0 {
			total += s.BasePoints
		}
	}
	return total
}
