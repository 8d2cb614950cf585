package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"polnischlernen/internal/models"
)

// CompletionStore hält die Abschlussdatensätze der Lektionsquizze pro Nutzer
type CompletionStore struct {
	cache CacheService
}

func NewCompletionStore(c CacheService) *CompletionStore {
	return &CompletionStore{cache: c}
}

func completionKey(userID, lessonID string) string {
	return fmt.Sprintf("completion:%s:%s", userID, lessonID)
}

// Get liefert nil ohne Fehler, wenn noch kein Datensatz existiert
func (s *CompletionStore) Get(ctx context.Context, userID, lessonID string) (*models.CompletionRecord, error) {
	var rec models.CompletionRecord
	err := s.cache.Get(ctx, completionKey(userID, lessonID), &rec)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *CompletionStore) Set(ctx context.Context, userID, lessonID string, rec models.CompletionRecord) error {
	return s.cache.Set(ctx, completionKey(userID, lessonID), rec, 0)
}

// Reset entfernt alle Abschlüsse eines Nutzers
func (s *CompletionStore) Reset(ctx context.Context, userID string) error {
	return s.cache.DeletePattern(ctx, completionKey(userID, "*"))
}

// TheoryCache speichert generierte Theorie pro Thema
type TheoryCache struct {
	cache CacheService
	ttl   time.Duration
}

func NewTheoryCache(c CacheService, ttl time.Duration) *TheoryCache {
	return &TheoryCache{cache: c, ttl: ttl}
}

func theoryKey(topic string) string {
	return "theory:" + strings.ToLower(strings.Join(strings.Fields(topic), " "))
}

func (t *TheoryCache) Get(ctx context.Context, topic string) (string, bool) {
	var content string
	if err := t.cache.Get(ctx, theoryKey(topic), &content); err != nil {
		return "", false
	}
	return content, true
}

func (t *TheoryCache) Set(ctx context.Context, topic, content string) error {
	if t.ttl <= 0 {
		return nil
	}
	return t.cache.Set(ctx, theoryKey(topic), content, t.ttl)
}
