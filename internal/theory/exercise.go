package theory

import (
	"strings"
	"unicode"

	"polnischlernen/internal/quiz"
)

// Exercise ist ein Frage-Antwort-Paar aus einer "Frage | Antwort"-Zeile
type Exercise struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Flashcard ist ein "Wort | Übersetzung"-Paar aus dem Bildmaterial-Abschnitt
type Flashcard struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
}

// ParseExercises liest alle Zeilen der Form "Frage | Antwort"
func ParseExercises(body string) []Exercise {
	var out []Exercise
	for _, pair := range pipePairs(body) {
		out = append(out, Exercise{Question: pair[0], Answer: pair[1]})
	}
	return out
}

// ParseFlashcards liest alle Zeilen der Form "Wort | Übersetzung"
func ParseFlashcards(body string) []Flashcard {
	var out []Flashcard
	for _, pair := range pipePairs(body) {
		out = append(out, Flashcard{
			Word:        stripEmphasis(pair[0]),
			Translation: stripEmphasis(pair[1]),
		})
	}
	return out
}

// pipePairs ignoriert Markdown-Tabellen und Zeilen ohne beide Seiten
func pipePairs(body string) [][2]string {
	var out [][2]string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "|") || strings.HasPrefix(line, ">") {
			continue
		}
		left, right, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		left = stripListMarker(strings.TrimSpace(left))
		right = strings.TrimSpace(right)
		if left == "" || right == "" {
			continue
		}
		out = append(out, [2]string{left, right})
	}
	return out
}

// stripListMarker entfernt "- ", "* " und "12. " am Zeilenanfang
func stripListMarker(s string) string {
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") {
		return strings.TrimSpace(s[2:])
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func stripEmphasis(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '*' || r == '_' || unicode.IsSpace(r)
	})
}

// CheckResult ist das Ergebnis einer Übungsprüfung
type CheckResult struct {
	Results []bool `json:"results"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
	Passed  bool   `json:"passed"`
}

// CheckExercises vergleicht die Eingaben ohne Beachtung von Groß-/Kleinschreibung.
// Bestanden ist nur, wenn alle Übungen stimmen; eine leere Liste besteht nie.
func CheckExercises(exercises []Exercise, inputs []string) CheckResult {
	res := CheckResult{Results: make([]bool, len(exercises)), Total: len(exercises)}
	for i, ex := range exercises {
		if i < len(inputs) && quiz.EqualText(inputs[i], stripEmphasis(ex.Answer)) {
			res.Results[i] = true
			res.Correct++
		}
	}
	res.Passed = res.Total > 0 && res.Correct == res.Total
	return res
}
