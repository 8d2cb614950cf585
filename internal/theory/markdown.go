package theory

import (
	"strings"
)

// Überschriften, mit denen das generierte Markdown gegliedert ist
const (
	HeadingIntro      = "Введение"
	HeadingMainText   = "Основной текст"
	HeadingDiscussion = "Вопросы для обсуждения"
	HeadingExercises  = "Упражнения"
	HeadingVisual     = "Визуальный материал"
	HeadingRiddles    = "Загадки"
	HeadingListening  = "Аудирование"
	HeadingGrammar    = "Грамматика"

	GrammarRule       = "Правило"
	GrammarExplain    = "Объяснение"
	GrammarExceptions = "Исключения"
	GrammarExamples   = "Примеры использования"
	GrammarExercises  = "Упражнения"
)

// Document ist das in Abschnitte zerlegte Theorie-Markdown.
// Fehlende Abschnitte bleiben leer.
type Document struct {
	Title      string      `json:"title"`
	Intro      string      `json:"intro"`
	MainText   string      `json:"mainText"`
	Discussion string      `json:"discussion"`
	Exercises  []Exercise  `json:"exercises"`
	Flashcards []Flashcard `json:"flashcards"`
	Riddles    string      `json:"riddles"`
	Listening  string      `json:"listening"`
	Grammar    Grammar     `json:"grammar"`
}

// Grammar ist der Grammatikteil mit seinen Unterabschnitten
type Grammar struct {
	Rule        string     `json:"rule"`
	Explanation string     `json:"explanation"`
	Exceptions  string     `json:"exceptions"`
	Examples    string     `json:"examples"`
	Text        string     `json:"text"` // Grammatikteil ohne Übungen
	Exercises   []Exercise `json:"exercises"`
}

// TheoryText fasst die Leseabschnitte der Theoriephase zusammen
func (d Document) TheoryText() string {
	var parts []string
	for _, s := range []string{d.Intro, d.MainText, d.Discussion, d.Riddles, d.Listening} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Parse zerlegt das Markdown anhand der festen Überschriften
func Parse(markdown string) Document {
	var doc Document
	sections := splitHeadings(markdown, "## ")

	for _, sec := range sections {
		switch {
		case sec.title == "" && doc.Title == "":
			doc.Title = documentTitle(sec.body)
		case strings.Contains(sec.title, HeadingIntro):
			doc.Intro = sec.body
		case strings.Contains(sec.title, HeadingMainText):
			doc.MainText = sec.body
		case strings.Contains(sec.title, HeadingDiscussion):
			doc.Discussion = sec.body
		case strings.Contains(sec.title, HeadingExercises):
			doc.Exercises = ParseExercises(sec.body)
		case strings.Contains(sec.title, HeadingVisual):
			doc.Flashcards = ParseFlashcards(sec.body)
		case strings.Contains(sec.title, HeadingRiddles):
			doc.Riddles = sec.body
		case strings.Contains(sec.title, HeadingListening):
			doc.Listening = sec.body
		case strings.Contains(sec.title, HeadingGrammar):
			doc.Grammar = parseGrammar(sec.body)
		}
	}
	return doc
}

func parseGrammar(body string) Grammar {
	var g Grammar
	var text []string
	for _, sub := range splitHeadings(body, "### ") {
		switch {
		case strings.Contains(sub.title, GrammarExercises):
			g.Exercises = ParseExercises(sub.body)
			continue
		case strings.Contains(sub.title, GrammarRule):
			g.Rule = sub.body
		case strings.Contains(sub.title, GrammarExplain):
			g.Explanation = sub.body
		case strings.Contains(sub.title, GrammarExceptions):
			g.Exceptions = sub.body
		case strings.Contains(sub.title, GrammarExamples):
			g.Examples = sub.body
		}
		if sub.title != "" {
			text = append(text, "### "+sub.title)
		}
		if sub.body != "" {
			text = append(text, sub.body)
		}
	}
	g.Text = strings.Join(text, "\n\n")
	return g
}

type section struct {
	title string
	body  string
}

// splitHeadings schneidet an Zeilen, die mit prefix beginnen. Text vor der ersten
// Überschrift landet in einem Abschnitt ohne Titel.
func splitHeadings(text, prefix string) []section {
	var out []section
	cur := section{}
	var body []string

	flush := func() {
		cur.body = strings.TrimSpace(strings.Join(body, "\n"))
		if cur.title != "" || cur.body != "" {
			out = append(out, cur)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, prefix) {
			flush()
			cur = section{title: strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))}
			body = nil
			continue
		}
		body = append(body, line)
	}
	flush()
	return out
}

func documentTitle(preamble string) string {
	for _, line := range strings.Split(preamble, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}
