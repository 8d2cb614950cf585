package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"polnischlernen/internal/logging"
	"polnischlernen/internal/quiz"
)

// imageTask ist eine Illustrationsaufgabe für eine Frage
type imageTask struct {
	Index  int
	Prompt string
}

// imageResult ist das Ergebnis eines Workers
type imageResult struct {
	Index    int
	URL      *string
	Err      error
	Duration time.Duration
}

// ImagePoolConfig konfiguriert den Worker-Pool
type ImagePoolConfig struct {
	MaxWorkers     int
	TimeoutPerTask time.Duration
}

// ImagePool erzeugt Illustrationen parallel mit begrenzter Worker-Zahl
type ImagePool struct {
	provider Provider
	config   ImagePoolConfig
	logger   logging.Logger
}

// NewImagePool erstellt einen neuen Pool
func NewImagePool(provider Provider, config ImagePoolConfig, logger logging.Logger) *ImagePool {
	if config.MaxWorkers < 1 {
		config.MaxWorkers = 1
	}
	if config.TimeoutPerTask == 0 {
		config.TimeoutPerTask = time.Minute
	}
	return &ImagePool{
		provider: provider,
		config:   config,
		logger:   logger.With("component", "images"),
	}
}

// IllustrationPrompt ist der Bildprompt für eine Quizfrage
func IllustrationPrompt(question string) string {
	return fmt.Sprintf("An illustration related to Polish language or culture representing: %s", question)
}

// Illustrate setzt für jede Frage eine Bild-URL. Schlägt ein Bild fehl, bleibt imageUrl null.
func (p *ImagePool) Illustrate(ctx context.Context, questions quiz.Set) quiz.Set {
	if len(questions) == 0 {
		return questions
	}
	start := time.Now()

	tasks := make(chan imageTask, len(questions))
	results := make(chan imageResult, len(questions))

	workers := min(p.config.MaxWorkers, len(questions))
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, tasks, results)
		}(w)
	}

	for i, q := range questions {
		tasks <- imageTask{Index: i, Prompt: IllustrationPrompt(quiz.Info(q).Prompt)}
	}
	close(tasks)
	wg.Wait()
	close(results)

	out := make(quiz.Set, len(questions))
	copy(out, questions)
	failed := 0
	for r := range results {
		if r.Err != nil {
			failed++
		}
		out[r.Index] = quiz.WithImage(out[r.Index], r.URL)
	}

	p.logger.Info("🖼️ Illustrationen fertig",
		"count", len(questions),
		"failed", failed,
		"duration", time.Since(start).String())
	return out
}

func (p *ImagePool) worker(ctx context.Context, workerID int, tasks <-chan imageTask, results chan<- imageResult) {
	for task := range tasks {
		started := time.Now()

		taskCtx, cancel := context.WithTimeout(ctx, p.config.TimeoutPerTask)
		url, err := p.provider.GenerateImage(taskCtx, task.Prompt)
		cancel()

		res := imageResult{Index: task.Index, Duration: time.Since(started)}
		if err != nil {
			p.logger.Warn("Bildgenerierung fehlgeschlagen", "worker", workerID, "question", task.Index+1, "error", err)
			res.Err = err
		} else {
			res.URL = &url
		}
		results <- res
	}
}
