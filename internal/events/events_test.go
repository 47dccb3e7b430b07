package events

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestManager_PublishAndShutdown(t *testing.T) {
	m := NewManager(true, zerolog.Nop())

	var mu sync.Mutex
	var got []Event
	m.Subscribe(EventRulesReloaded, func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.PublishRulesReloaded(ctx, RulesReloadedData{Source: "file", Version: "v1", Stores: 3})
	m.PublishEvaluationCompleted(ctx, EvaluationCompletedData{StoreID: "cu"})
	m.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	data, ok := got[0].Data.(RulesReloadedData)
	if !ok || data.Version != "v1" || got[0].Type != EventRulesReloaded {
		t.Errorf("unexpected event %+v", got[0])
	}

	m.PublishRulesReloaded(context.Background(), RulesReloadedData{})
	if len(got) != 1 {
		t.Error("expected no delivery after shutdown")
	}
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager(false, zerolog.Nop())
	called := false
	m.Subscribe(EventEvaluationCompleted, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})
	m.PublishEvaluationCompleted(context.Background(), EvaluationCompletedData{})
	m.Shutdown()
	if called {
		t.Error("disabled manager must not deliver events")
	}

	var nilManager *Manager
	nilManager.PublishEvaluationCompleted(context.Background(), EvaluationCompletedData{})
}

func TestManager_HandlerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(true, zerolog.New(&buf))
	m.Subscribe(EventEvaluationCompleted, func(ctx context.Context, e Event) error {
		return errors.New("sink down")
	})
	m.PublishEvaluationCompleted(context.Background(), EvaluationCompletedData{StoreID: "cu"})
	m.Shutdown()

	if !bytes.Contains(buf.Bytes(), []byte("sink down")) {
		t.Errorf("expected handler error in log, got %q", buf.String())
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := LogHandler(zerolog.New(&buf))
	err := h(context.Background(), Event{
		Type: EventEvaluationCompleted,
		Data: EvaluationCompletedData{StoreID: "cu", BestMethod: "SKT 멤버십", BestBenefit: 1000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"store_id":"cu"`, `"best_benefit":1000`, `"event":"evaluation.completed"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %s in %s", want, buf.String())
		}
	}
}
