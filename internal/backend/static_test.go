package backend

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/doublewordai/arbiter/internal/engine"
)

func TestParseID2Label(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[int]string
		wantErr bool
	}{
		{
			name: "empty",
			raw:  "",
			want: map[int]string{},
		},
		{
			name: "two classes with spaces in labels",
			raw:  "0=No Claim,1=Claim",
			want: map[int]string{0: "No Claim", 1: "Claim"},
		},
		{
			name:    "missing separator",
			raw:     "0-No Claim",
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			raw:     "x=Claim",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID2Label(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID2Label: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for id, label := range tt.want {
				if got[id] != label {
					t.Errorf("id %d: got %q, want %q", id, got[id], label)
				}
			}
		})
	}
}

func TestStatic_ClassifyBatch(t *testing.T) {
	s := NewStatic(map[int]string{0: "No Claim", 1: "Claim", 2: "Unsure"}, nil)

	reqs := []engine.ClassificationRequest{
		{Model: "m", Input: []string{"the weather is nice", "claims abound"}},
		{Model: "m", Input: []string{"another text"}},
	}

	results, err := s.ClassifyBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("result %d: %v", i, res.Err)
		}
		resp := res.Response
		if resp.Object != engine.ObjectList {
			t.Errorf("object = %q, want %q", resp.Object, engine.ObjectList)
		}
		if len(resp.Data) != len(reqs[i].Input) {
			t.Fatalf("result %d: %d data entries for %d inputs", i, len(resp.Data), len(reqs[i].Input))
		}
		for j, d := range resp.Data {
			if d.Index != j {
				t.Errorf("result %d data %d: index = %d", i, j, d.Index)
			}
			if d.NumClasses != 3 {
				t.Errorf("num_classes = %d, want 3", d.NumClasses)
			}
			var sum float64
			for _, p := range d.Probs {
				sum += p
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("probs sum to %f, want 1", sum)
			}
		}
	}
}

func TestStatic_Deterministic(t *testing.T) {
	s := NewStatic(nil, nil)

	req := []engine.ClassificationRequest{{Model: "m", Input: []string{"stable input"}}}

	first, err := s.ClassifyBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	second, err := s.ClassifyBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}

	a, b := first[0].Response.Data[0], second[0].Response.Data[0]
	if a.Label != b.Label {
		t.Errorf("labels differ: %q vs %q", a.Label, b.Label)
	}
	for i := range a.Probs {
		if a.Probs[i] != b.Probs[i] {
			t.Errorf("prob %d differs: %f vs %f", i, a.Probs[i], b.Probs[i])
		}
	}
}

func TestStatic_LabelFallback(t *testing.T) {
	s := NewStatic(map[int]string{0: "Only"}, nil)
	if got := s.label(7); got != "LABEL_7" {
		t.Errorf("label(7) = %q, want LABEL_7", got)
	}
}

func TestStatic_EmptyInputFailsPerRequest(t *testing.T) {
	s := NewStatic(nil, nil)

	results, err := s.ClassifyBatch(context.Background(), []engine.ClassificationRequest{
		{Model: "m", Input: []string{"ok"}},
		{Model: "m"},
	})
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("result 0 failed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, engine.ErrEmptyInput) {
		t.Errorf("result 1: err = %v, want ErrEmptyInput", results[1].Err)
	}
}

func TestStatic_UsageHeuristic(t *testing.T) {
	s := NewStatic(nil, nil)

	// 9 bytes -> ceil(9/4) = 3; 1 byte -> 1
	results, err := s.ClassifyBatch(context.Background(), []engine.ClassificationRequest{
		{Model: "m", Input: []string{"nine char", "x"}},
	})
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}

	usage := results[0].Response.Usage
	if usage.PromptTokens != 4 {
		t.Errorf("prompt_tokens = %d, want 4", usage.PromptTokens)
	}
	if usage.TotalTokens != 4 {
		t.Errorf("total_tokens = %d, want 4", usage.TotalTokens)
	}
	if usage.CompletionTokens != 0 {
		t.Errorf("completion_tokens = %d, want 0", usage.CompletionTokens)
	}
}
