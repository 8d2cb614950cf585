package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"polnischlernen/internal/logging"

	"github.com/sashabaranov/go-openai"
)

// Provider definiert das Interface für LLM-Backends
type Provider interface {
	// Chat führt einen Chat mit Nachrichtenverlauf
	Chat(ctx context.Context, messages []ChatMessage, options *GenerateOptions) (*GenerateResponse, error)

	// ChatStream liefert die Antwort stückweise
	ChatStream(ctx context.Context, messages []ChatMessage, options *GenerateOptions) (<-chan StreamChunk, error)

	// GenerateImage erzeugt ein Bild und gibt dessen URL zurück
	GenerateImage(ctx context.Context, prompt string) (string, error)

	// GenerateSpeech erzeugt MP3-Audio aus Text
	GenerateSpeech(ctx context.Context, text, instructions string) ([]byte, error)

	// GetModels gibt verfügbare Modelle zurück
	GetModels(ctx context.Context) ([]ModelInfo, error)

	// IsAvailable prüft, ob das Backend erreichbar ist
	IsAvailable(ctx context.Context) bool

	GetName() string
	SetModel(model string)
	GetCurrentModel() string
}

// GenerateOptions enthält optionale Parameter für die Generierung
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// GenerateResponse enthält die Antwort des LLM
type GenerateResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	TotalTokens  int    `json:"total_tokens"`
	PromptTokens int    `json:"prompt_tokens"`
}

// ChatMessage repräsentiert eine Chat-Nachricht
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) ChatMessage { return ChatMessage{Role: openai.ChatMessageRoleSystem, Content: content} }
func User(content string) ChatMessage   { return ChatMessage{Role: openai.ChatMessageRoleUser, Content: content} }

// ModelInfo enthält Informationen über ein Modell
type ModelInfo struct {
	Name       string    `json:"name"`
	OwnedBy    string    `json:"owned_by,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
}

// StreamChunk repräsentiert einen Chunk im Streaming-Modus
type StreamChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Error   error  `json:"-"`
}

// OpenAIConfig beschreibt ein OpenAI-kompatibles Backend
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	ChatModel     string
	ImageModel    string
	SpeechModel   string
	SpeechVoice   string
	MaxConcurrent int
	MaxRetries    int
	RetryDelay    time.Duration
}

// OpenAIProvider spricht jede OpenAI-kompatible API an (OpenAI, x.ai, lokale Gateways)
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger logging.Logger

	mu        sync.RWMutex
	chatModel string

	// sem limitiert gleichzeitige Anfragen an das Backend
	sem chan struct{}
}

// NewOpenAIProvider erstellt einen neuen Provider
func NewOpenAIProvider(cfg OpenAIConfig, logger logging.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		cfg:       cfg,
		logger:    logger.With("component", "llm"),
		chatModel: cfg.ChatModel,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (o *OpenAIProvider) acquire(ctx context.Context) error {
	select {
	case o.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *OpenAIProvider) release() {
	<-o.sem
}

func (o *OpenAIProvider) GetName() string {
	return "OpenAI-kompatibel"
}

// SetModel ändert das Standard-Modell für Chats
func (o *OpenAIProvider) SetModel(model string) {
	if model == "" {
		return
	}
	o.mu.Lock()
	o.chatModel = model
	o.mu.Unlock()
}

// GetCurrentModel gibt das aktuelle Modell zurück
func (o *OpenAIProvider) GetCurrentModel() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.chatModel
}

func (o *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if o.cfg.APIKey == "" {
		return false
	}
	_, err := o.client.ListModels(ctx)
	return err == nil
}

func (o *OpenAIProvider) GetModels(ctx context.Context) ([]ModelInfo, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("modelle abrufen: %w", err)
	}

	models := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, ModelInfo{
			Name:       m.ID,
			OwnedBy:    m.OwnedBy,
			ModifiedAt: time.Unix(m.CreatedAt, 0),
		})
	}
	return models, nil
}

func (o *OpenAIProvider) chatRequest(messages []ChatMessage, options *GenerateOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{Model: o.GetCurrentModel()}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if options != nil {
		if options.Model != "" {
			req.Model = options.Model
		}
		req.Temperature = options.Temperature
		req.MaxTokens = options.MaxTokens
	}
	// 0 würde wegen omitempty weggelassen und als 1 interpretiert
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	return req
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage, options *GenerateOptions) (*GenerateResponse, error) {
	if err := o.acquire(ctx); err != nil {
		return nil, err
	}
	defer o.release()

	req := o.chatRequest(messages, options)
	return withRetry(ctx, o.logger, o.cfg.MaxRetries, o.cfg.RetryDelay, func() (*GenerateResponse, error) {
		start := time.Now()
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("%w: keine antwort vom modell", ErrInvalidResponse)
		}
		o.logger.Debug("Chat-Antwort erhalten",
			"model", resp.Model,
			"tokens", resp.Usage.TotalTokens,
			"duration", time.Since(start).String())
		return &GenerateResponse{
			Content:      resp.Choices[0].Message.Content,
			Model:        resp.Model,
			TotalTokens:  resp.Usage.TotalTokens,
			PromptTokens: resp.Usage.PromptTokens,
		}, nil
	})
}

func (o *OpenAIProvider) ChatStream(ctx context.Context, messages []ChatMessage, options *GenerateOptions) (<-chan StreamChunk, error) {
	if err := o.acquire(ctx); err != nil {
		return nil, err
	}

	req := o.chatRequest(messages, options)
	req.Stream = true
	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		o.release()
		return nil, fmt.Errorf("stream starten: %w", err)
	}

	ch := make(chan StreamChunk, 100)
	go func() {
		defer o.release()
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, StreamChunk{Done: true})
				return
			}
			if err != nil {
				send(ctx, ch, StreamChunk{Error: err, Done: true})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ctx, ch, StreamChunk{Content: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()

	return ch, nil
}

// send blockiert höchstens bis der Verbraucher den Kontext abbricht
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if err := o.acquire(ctx); err != nil {
		return "", err
	}
	defer o.release()

	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.cfg.ImageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("bildgenerierung fehlgeschlagen: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("%w: keine bild-url", ErrInvalidResponse)
	}
	return resp.Data[0].URL, nil
}

func (o *OpenAIProvider) GenerateSpeech(ctx context.Context, text, instructions string) ([]byte, error) {
	if err := o.acquire(ctx); err != nil {
		return nil, err
	}
	defer o.release()

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(o.cfg.SpeechVoice),
		Instructions:   instructions,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("sprachausgabe fehlgeschlagen: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("audio lesen: %w", err)
	}
	return audio, nil
}

// withRetry wiederholt fn bei Netzwerk-, Rate-Limit- und Serverfehlern
func withRetry[T any](ctx context.Context, logger logging.Logger, maxRetries int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			logger.Warn("🔄 Wiederhole Anfrage", "attempt", attempt, "max", maxRetries, "error", lastErr)
			select {
			case <-time.After(time.Duration(attempt-1) * delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, ErrInvalidResponse)
}
