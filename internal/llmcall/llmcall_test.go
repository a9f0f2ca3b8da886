package llmcall

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/shotlist/internal/providers"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "nested", "calls.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFromChatResult(t *testing.T) {
	if FromChatResult(nil, RecordOptions{}) != nil {
		t.Error("expected nil for nil result")
	}

	temp := 0.7
	call := FromChatResult(&providers.ChatResult{
		Content:          "SCENE 1",
		PromptTokens:     10,
		CompletionTokens: 20,
		ExecutionTime:    1500 * time.Millisecond,
		Provider:         "gemini",
		ModelUsed:        "gemini-2.5-pro",
		Attempts:         2,
		Success:          true,
	}, RecordOptions{Stage: "shots", Source: "ep1.txt", PromptKey: "stages.shots.system", PromptHash: "abc", Temperature: &temp})

	if call.ID == "" || call.LatencyMs != 1500 || call.Stage != "shots" || call.PromptHash != "abc" {
		t.Errorf("unexpected call: %+v", call)
	}
	if call.Error != "" {
		t.Error("successful call should carry no error")
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	temp := 0.5
	calls := []*Call{
		{ID: "a", Timestamp: base, Stage: "shots", Source: "ep1.txt", Provider: "gemini", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true, Temperature: &temp},
		{ID: "b", Timestamp: base.Add(time.Minute), Stage: "shots", Source: "ep2.txt", Provider: "gemini", InputTokens: 20, OutputTokens: 5, LatencyMs: 300, Success: false, ErrorType: "transient", Error: "boom"},
		{ID: "c", Timestamp: base.Add(2 * time.Minute), Stage: "tables", Source: "ep1_image_prompts.txt", Provider: "openai", CostUSD: 0.25, LatencyMs: 50, Success: true},
	}
	for _, c := range calls {
		if err := s.Insert(ctx, c); err != nil {
			t.Fatalf("Insert(%s) error = %v", c.ID, err)
		}
	}

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || !got.Timestamp.Equal(base) || got.Temperature == nil || *got.Temperature != 0.5 {
			t.Errorf("Get(a) = %+v", got)
		}
		missing, err := s.Get(ctx, "zzz")
		if err != nil || missing != nil {
			t.Errorf("Get(zzz) = %+v, %v", missing, err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		got, err := s.List(ctx, QueryFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
			t.Errorf("List() order = %v", ids(got))
		}
	})

	t.Run("list filters", func(t *testing.T) {
		failed := false
		got, err := s.List(ctx, QueryFilter{Stage: "shots", Success: &failed})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "b" || got[0].ErrorType != "transient" {
			t.Errorf("List(failed shots) = %v", ids(got))
		}

		got, err = s.List(ctx, QueryFilter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "b" {
			t.Errorf("List(limit) = %v", ids(got))
		}
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := s.Stats(ctx, QueryFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(stats) != 2 {
			t.Fatalf("expected 2 stages, got %+v", stats)
		}
		shots := stats[0]
		if shots.Stage != "shots" || shots.Calls != 2 || shots.Succeeded != 1 || shots.Failed != 1 || shots.InputTokens != 30 || shots.AvgLatencyMs != 200 {
			t.Errorf("shots stats = %+v", shots)
		}
		if stats[1].CostUSD != 0.25 {
			t.Errorf("tables cost = %v", stats[1].CostUSD)
		}
	})
}

func TestRecorder(t *testing.T) {
	s := openTestStore(t)
	rec := NewRecorder(s, nil)

	ctx := WithOptions(context.Background(), RecordOptions{Stage: "imagery", Source: "ep1_shot_list.txt", PromptKey: "stages.imagery.system"})
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	req := &providers.ChatRequest{Temperature: 0.7}
	rec.RecordCall(ctx, req, &providers.ChatResult{Provider: "mock", Success: false, ErrorType: "auth"}, errors.New("mock call failed: unauthorized"))

	got, err := s.List(context.Background(), QueryFilter{Stage: "imagery"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one recorded call, got %d", len(got))
	}
	c := got[0]
	if c.Source != "ep1_shot_list.txt" || c.Error != "mock call failed: unauthorized" || c.Temperature == nil || *c.Temperature != 0.7 {
		t.Errorf("recorded call = %+v", c)
	}

	// A nil store disables recording without panicking.
	NewRecorder(nil, nil).RecordCall(ctx, req, &providers.ChatResult{}, nil)
}

func ids(calls []Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.ID
	}
	return out
}
