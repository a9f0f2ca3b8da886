package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jackzampolin/shotlist/internal/llmcall"
	"github.com/jackzampolin/shotlist/internal/pipeline"
)

func TestStageReport_WriteText(t *testing.T) {
	r := stageReport{Stages: []*pipeline.Output{{
		Stage:  "shots",
		Files:  []string{"text_files/shot_lists/ep1_shot_list.txt"},
		Failed: []pipeline.Failure{{Path: "ep2.txt", ErrorType: "request", Error: "content blocked"}},
	}}}

	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{
		"STAGE",
		"wrote   text_files/shot_lists/ep1_shot_list.txt",
		"failed  ep2.txt (request: content blocked)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestCallStats_WriteText(t *testing.T) {
	s := callStats{Stages: []llmcall.Stats{
		{Stage: "shots", Calls: 3, Succeeded: 2, Failed: 1, InputTokens: 900, OutputTokens: 300, CostUSD: 0.0125, AvgLatencyMs: 1200},
	}}

	var buf bytes.Buffer
	if err := s.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", lines)
	}
	if fields := strings.Fields(lines[1]); strings.Join(fields, " ") != "shots 3 2 1 900 300 $0.0125 1200ms" {
		t.Errorf("row = %q", lines[1])
	}
}
