package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"polnischlernen/internal/logging"
	"polnischlernen/internal/quiz"
)

// ErrInvalidResponse signalisiert eine Modellantwort, die nicht verarbeitet werden kann
var ErrInvalidResponse = errors.New("ungültige antwort vom modell")

const quizSystemPrompt = `You are a Polish language teacher. Your job is to create a quiz with exactly 4 questions specifically for Polish language learning. Questions should test vocabulary, grammar, pronunciation, or cultural knowledge about Poland. Mix the three question types below. For multiple choice questions each option should be roughly equal in length. You must return ONLY a valid JSON array matching this schema:
[
  {
    "type": "multipleChoice",
    "question": string,
    "options": [string, string, string, string],
    "answer": "A"|"B"|"C"|"D",
    "difficulty": "easy"|"medium"|"hard",
    "hint": string (optional),
    "timeLimit": number (optional, in seconds)
  },
  {
    "type": "fillInBlank",
    "question": string,
    "context": string containing one "[BLANK]" marker per expected value,
    "blanks": [string, ...],
    "difficulty": "easy"|"medium"|"hard",
    "hint": string (optional)
  },
  {
    "type": "trueFalse",
    "question": string,
    "statement": string,
    "answer": true|false,
    "difficulty": "easy"|"medium"|"hard",
    "hint": string (optional)
  }
]
Questions can include Polish vocabulary with translations. Do not include any other text in your response.`

const theorySystemPrompt = `You are me - a friendly and experienced Polish language tutor for Russian speakers. Write in a casual, conversational style as if you're explaining to a friend. Your explanations should be:

- Warm and encouraging, using phrases like "давайте разберем", "смотрите", "обратите внимание"
- Include relatable examples from everyday life
- Point out common mistakes Russians make, but in a helpful way ("многие путают...", "часто возникает вопрос...")
- Compare with Russian where helpful ("это похоже на русское...", "в отличие от русского...")
- Use humor and mnemonics to make things memorable

Format the content using markdown with the following structure:

# [Topic Name]

## 1. Введение
- Brief introduction to the topic
- Key concepts to understand

## 2. Основной текст
- Main content with highlighted Polish words in **bold** and Russian translations in *italic*
- Format translations as "Polish text | Russian text"
- Include relevant examples and comparisons

## 3. Вопросы для обсуждения
- 3 thought-provoking questions about the topic
- Questions should encourage critical thinking and practice

## 4. Упражнения
Format each exercise as "Question | Answer" for automatic parsing:
- Translation exercises: "Translate to Polish: [Russian phrase] | [Polish answer]"
- Fill-in-the-blank: "Complete the sentence: Mam ... lat. | dziesięć"
- Word order exercises: "Arrange words: (dom, mój, jest, to) | To jest mój dom"
- At least 5 exercises of different types

## 5. Визуальный материал
List exactly 15 items in the format "Polish word | Russian translation":
1. word1 | translation1
2. word2 | translation2
etc.
Each word should be relevant to the topic and commonly used.

## 6. Загадки
- 3-4 riddles about the topic
- Include answers in Polish and Russian

## 7. Аудирование
- Questions based on listening comprehension
- Include audio-related tasks

## 8. Грамматика
Structure the grammar section clearly:

### Правило
Clear explanation of the grammar rule with examples.

### Объяснение
Why this rule exists and how it differs from Russian.

### Исключения
List any exceptions to the rule.

### Примеры использования
At least 3 examples showing correct usage.

### Упражнения
Grammar exercises in the format "Question | Answer":
1. Exercise1 | Answer1
2. Exercise2 | Answer2
etc.

Use markdown formatting:
- Headers (h1, h2, h3) for sections
- Lists for easy scanning
- Tables for clear comparisons
- Blockquotes for key points and tips
- Bold for Polish words
- Italic for Russian translations

Keep it engaging and conversational throughout.`

// VoiceInstructions steuert Aussprache und Tonfall der Sprachausgabe
const VoiceInstructions = `Voice: Medium-pitched and melodic, with distinctive nasal quality and stressed consonants, characteristic of native Polish speakers.

Tone: Patient and encouraging, balancing academic authority with warmth, creating comfortable learning environment.

Dialect: Polish-influenced English with characteristic word stress patterns and simplified consonant clusters.

Pronunciation: Emphasizes "sz", "cz" sounds, rolls "r"s strongly, stresses first syllables, and pronounces "w" as "v".

Features: Uses occasional Polish expressions ("Dobrze!", "Rozumiem"), elongates certain vowels, adds rising intonation for questions, and maintains formal but supportive teaching cadence.`

const (
	theoryTemperature = 0.7
	theoryMaxTokens   = 2000
)

// Tutor verwaltet die didaktische KI-Logik
type Tutor struct {
	provider Provider
	images   *ImagePool
	logger   logging.Logger
}

// NewTutor erstellt einen neuen Tutor
func NewTutor(provider Provider, images *ImagePool, logger logging.Logger) *Tutor {
	return &Tutor{
		provider: provider,
		images:   images,
		logger:   logger.With("component", "tutor"),
	}
}

// Provider gibt das verwendete Backend zurück
func (t *Tutor) Provider() Provider {
	return t.provider
}

// GenerateQuiz erstellt ein Quiz mit vier Fragen und illustriert jede Frage
func (t *Tutor) GenerateQuiz(ctx context.Context, topic string) (quiz.Set, error) {
	t.logger.Info("📝 Generiere Quiz", "topic", topic)

	resp, err := t.provider.Chat(ctx, []ChatMessage{
		System(quizSystemPrompt),
		User(fmt.Sprintf("Create a quiz about Polish language on the topic: %s. Remember to return ONLY the JSON array.", topic)),
	}, &GenerateOptions{Temperature: 0})
	if err != nil {
		return nil, err
	}

	questions, err := parseQuizResponse(resp.Content)
	if err != nil {
		t.logger.Warn("Quiz-Antwort nicht verwertbar", "error", err, "raw", limitContent(resp.Content, 500))
		return nil, err
	}

	if t.images != nil {
		questions = t.images.Illustrate(ctx, questions)
	}

	t.logger.Info("✓ Quiz erstellt", "topic", topic, "questions", len(questions))
	return questions, nil
}

func theoryMessages(topic string) []ChatMessage {
	return []ChatMessage{
		System(theorySystemPrompt),
		User(fmt.Sprintf("Create comprehensive theory content about Polish language on the topic: %s. Return the content in markdown format.", topic)),
	}
}

// GenerateTheory erstellt das Theorie-Markdown zu einem Thema
func (t *Tutor) GenerateTheory(ctx context.Context, topic string) (string, error) {
	t.logger.Info("📖 Generiere Theorie", "topic", topic)

	resp, err := t.provider.Chat(ctx, theoryMessages(topic), &GenerateOptions{
		Temperature: theoryTemperature,
		MaxTokens:   theoryMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: leerer theorietext", ErrInvalidResponse)
	}
	return resp.Content, nil
}

// StreamTheory liefert das Theorie-Markdown stückweise
func (t *Tutor) StreamTheory(ctx context.Context, topic string) (<-chan StreamChunk, error) {
	return t.provider.ChatStream(ctx, theoryMessages(topic), &GenerateOptions{
		Temperature: theoryTemperature,
		MaxTokens:   theoryMaxTokens,
	})
}

// GenerateAudio spricht den Text mit polnischem Akzent
func (t *Tutor) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	return t.provider.GenerateSpeech(ctx, text, VoiceInstructions)
}

// FlashcardImage erzeugt eine minimalistische Illustration für eine Lernkarte
func (t *Tutor) FlashcardImage(ctx context.Context, word string) (string, error) {
	prompt := fmt.Sprintf(`A simple, clear illustration representing the word "%s" in a minimalist style. The image should be easily recognizable and suitable for language learning flashcards. Use a clean, modern style with minimal background.`, word)
	return t.provider.GenerateImage(ctx, prompt)
}

// Helper-Funktionen

func limitContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "\n[... gekürzt ...]"
}

// stripFences entfernt umschließende Markdown-Codeblöcke
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSON schneidet den äußersten Block zwischen open und close heraus
func extractJSON(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || start >= end {
		return ""
	}
	return text[start : end+1]
}

func parseQuizResponse(response string) (quiz.Set, error) {
	raw := stripFences(response)
	if !strings.HasPrefix(raw, "[") {
		raw = extractJSON(raw, '[', ']')
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: kein JSON-Array gefunden", ErrInvalidResponse)
	}

	var questions quiz.Set
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := questions.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return questions, nil
}
