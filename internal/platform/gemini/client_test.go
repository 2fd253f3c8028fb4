package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), "", "gemini-1.5-flash", 0); !errors.Is(err, domain.ErrGeneratorUnavailable) {
		t.Fatalf("New() error = %v, want ErrGeneratorUnavailable", err)
	}
}

func TestDisabled(t *testing.T) {
	if _, err := (Disabled{}).Generate(context.Background(), "hi", domain.GenerateOptions{}); !errors.Is(err, domain.ErrGeneratorUnavailable) {
		t.Fatalf("Generate() error = %v, want ErrGeneratorUnavailable", err)
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{
			name: "joined parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("Hold "), genai.Text("firm. ")}},
			}}},
			want: "Hold firm.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := responseText(tt.resp); got != tt.want {
				t.Fatalf("responseText() = %q, want %q", got, tt.want)
			}
		})
	}
}
