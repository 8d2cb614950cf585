package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// FakeProvider ist ein Provider ohne Netzwerk, für Tests und den Offline-Betrieb
type FakeProvider struct {
	mu sync.Mutex

	ChatContent string
	ChatErr     error
	ImageURL    string
	ImageErr    func(prompt string) error
	Speech      []byte
	Models      []ModelInfo

	model        string
	ChatCalls    []GenerateOptions
	ImagePrompts []string
	SpeechCalls  []string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		ImageURL: "https://bilder.example/illustration.png",
		Speech:   []byte("ID3-fake-audio"),
		model:    "fake-model",
		Models:   []ModelInfo{{Name: "fake-model"}, {Name: "fake-model-large"}},
	}
}

func (f *FakeProvider) Chat(_ context.Context, _ []ChatMessage, options *GenerateOptions) (*GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if options != nil {
		f.ChatCalls = append(f.ChatCalls, *options)
	}
	if f.ChatErr != nil {
		return nil, f.ChatErr
	}
	return &GenerateResponse{Content: f.ChatContent, Model: f.model}, nil
}

// ChatStream zerlegt ChatContent zeilenweise
func (f *FakeProvider) ChatStream(ctx context.Context, messages []ChatMessage, options *GenerateOptions) (<-chan StreamChunk, error) {
	resp, err := f.Chat(ctx, messages, options)
	if err != nil {
		return nil, err
	}
	lines := strings.SplitAfter(resp.Content, "\n")
	ch := make(chan StreamChunk, len(lines)+1)
	for _, line := range lines {
		if line != "" {
			ch <- StreamChunk{Content: line}
		}
	}
	ch <- StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (f *FakeProvider) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ImagePrompts = append(f.ImagePrompts, prompt)
	if f.ImageErr != nil {
		if err := f.ImageErr(prompt); err != nil {
			return "", err
		}
	}
	return f.ImageURL, nil
}

func (f *FakeProvider) GenerateSpeech(_ context.Context, text, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SpeechCalls = append(f.SpeechCalls, text)
	if len(f.Speech) == 0 {
		return nil, errors.New("keine sprachausgabe")
	}
	return f.Speech, nil
}

func (f *FakeProvider) GetModels(context.Context) ([]ModelInfo, error) {
	return f.Models, nil
}

func (f *FakeProvider) IsAvailable(context.Context) bool { return true }

func (f *FakeProvider) GetName() string { return "Fake" }

func (f *FakeProvider) SetModel(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if model != "" {
		f.model = model
	}
}

func (f *FakeProvider) GetCurrentModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}
