package llm

import (
	"context"
	"time"
)

// Observer receives a notification after every LLM call, successful or not.
// Implementations must not block; the API's Prometheus collector is one.
type Observer interface {
	OnLLMCall(ctx context.Context, event CallEvent)
}

// CallEvent describes one provider execution.
type CallEvent struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Error        error
	Duration     time.Duration
	StartedAt    time.Time
}

// ObserverFunc is a convenience type for using a function as an Observer.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnLLMCall implements Observer.
func (f ObserverFunc) OnLLMCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}

// MultiObserver dispatches each event to every observer.
type MultiObserver []Observer

// OnLLMCall implements Observer.
func (m MultiObserver) OnLLMCall(ctx context.Context, event CallEvent) {
	for _, obs := range m {
		obs.OnLLMCall(ctx, event)
	}
}

// Observed wraps a provider so each Execute is reported to obs.
func Observed(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &observedProvider{Provider: p, obs: obs}
}

type observedProvider struct {
	Provider
	obs Observer
}

func (o *observedProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.Provider.Execute(ctx, req)

	event := CallEvent{
		Provider:  o.Name(),
		Model:     o.Model(),
		Error:     err,
		Duration:  time.Since(start),
		StartedAt: start,
	}
	if resp != nil {
		if resp.Model != "" {
			event.Model = resp.Model
		}
		event.InputTokens = resp.Usage.InputTokens
		event.OutputTokens = resp.Usage.OutputTokens
		event.Cost = resp.Cost
	}
	o.obs.OnLLMCall(ctx, event)

	return resp, err
}
