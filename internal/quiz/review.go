package quiz

// Status ist die Einordnung einer Antwort in der Auswertung
type Status string

const (
	StatusCorrect    Status = "correct"
	StatusIncorrect  Status = "incorrect"
	StatusUnanswered Status = "unanswered"
)

// BlankReview ist die Auswertung einer einzelnen Lücke
type BlankReview struct {
	Given    string `json:"given"`
	Expected string `json:"expected,omitempty"`
	Correct  bool   `json:"correct"`
}

// ItemReview ist die Auswertung einer Frage. Expected ist nur bei falschen
// oder unbeantworteten Fragen gesetzt.
type ItemReview struct {
	Index    int           `json:"index"`
	Type     Type          `json:"type"`
	Prompt   string        `json:"question"`
	Status   Status        `json:"status"`
	Given    any           `json:"given"`
	Expected any           `json:"expected,omitempty"`
	Blanks   []BlankReview `json:"blanks,omitempty"`
}

// Review leitet die Auswertung allein aus Fragen und Antworten ab
func Review(questions []Question, answers []Answer) []ItemReview {
	items := make([]ItemReview, 0, len(questions))
	for i, q := range questions {
		var a Answer
		if i < len(answers) {
			a = answers[i]
		}
		items = append(items, reviewItem(i, q, a))
	}
	return items
}

func reviewItem(index int, q Question, a Answer) ItemReview {
	item := ItemReview{
		Index:  index,
		Type:   q.Type(),
		Prompt: q.common().Prompt,
		Given:  EncodeAnswer(a),
	}

	switch q := q.(type) {
	case MultipleChoice:
		item.Status = classify(q, a, a != nil)
		if item.Status != StatusCorrect {
			item.Expected = q.Answer
		}
	case TrueFalse:
		item.Status = classify(q, a, a != nil)
		if item.Status != StatusCorrect {
			item.Expected = q.Answer
		}
	case FillInBlank:
		given, _ := a.(Blanks)
		anyFilled := false
		for _, g := range given {
			if Normalize(g) != "" {
				anyFilled = true
				break
			}
		}
		item.Status = classify(q, a, anyFilled)
		item.Blanks = make([]BlankReview, len(q.Blanks))
		for j, expected := range q.Blanks {
			br := BlankReview{}
			if j < len(given) {
				br.Given = given[j]
			}
			br.Correct = EqualText(br.Given, expected)
			if !br.Correct {
				br.Expected = expected
			}
			item.Blanks[j] = br
		}
		if item.Status != StatusCorrect {
			item.Expected = q.Blanks
		}
	}
	return item
}

func classify(q Question, a Answer, answered bool) Status {
	switch {
	case !answered:
		return StatusUnanswered
	case IsCorrect(q, a):
		return StatusCorrect
	default:
		return StatusIncorrect
	}
}

// Discrepancies liefert die Fragen, die nicht korrekt beantwortet wurden
func Discrepancies(items []ItemReview) []ItemReview {
	var out []ItemReview
	for _, it := range items {
		if it.Status != StatusCorrect {
			out = append(out, it)
		}
	}
	return out
}
