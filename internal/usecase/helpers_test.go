package usecase_test

import (
	"sync"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// fakeAI replays scripted responses and records prompts.
type fakeAI struct {
	mu        sync.Mutex
	jsonQueue []string
	textQueue []string
	jsonErr   error
	textErr   error
	calls     int
	prompts   []string
}

func (f *fakeAI) ChatJSON(_ domain.Context, _ string, userPrompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if len(f.jsonQueue) == 0 {
		return "{}", nil
	}
	out := f.jsonQueue[0]
	if len(f.jsonQueue) > 1 {
		f.jsonQueue = f.jsonQueue[1:]
	}
	return out, nil
}

func (f *fakeAI) ChatText(_ domain.Context, _ string, userPrompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.textQueue) == 0 {
		return "Rating: 7/10 - solid answer.", nil
	}
	out := f.textQueue[0]
	if len(f.textQueue) > 1 {
		f.textQueue = f.textQueue[1:]
	}
	return out, nil
}
