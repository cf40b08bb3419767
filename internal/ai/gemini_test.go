package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
)

func fakeClient(reply string, err error, seen *[]genai.Part) *Client {
	return newClient(func(_ context.Context, parts ...genai.Part) (string, error) {
		if seen != nil {
			*seen = parts
		}
		return reply, err
	}, Options{RPS: 1000})
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"No markdown", `{"key": "value"}`, `{"key": "value"}`},
		{"With markdown code block", "```json\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"Without language", "```\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"With extra whitespace", "  \n  {\"key\": \"value\"}  \n  ", `{"key": "value"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := cleanJSONResponse(tt.input); result != tt.expected {
				t.Errorf("cleanJSONResponse(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMapFieldParsesSuggestion(t *testing.T) {
	var parts []genai.Part
	c := fakeClient("```json\n{\"mappedField\": \" remarks \", \"confidence\": 1.4, \"reasoning\": \"notes column\"}\n```", nil, &parts)
	s, err := c.MapField(context.Background(), "Catatan Khas", []string{"remarks", "description"})
	if err != nil {
		t.Fatalf("MapField: %v", err)
	}
	if s.MappedField != "remarks" || s.Confidence != 1 || s.Reasoning != "notes column" {
		t.Fatalf("unexpected suggestion %+v", s)
	}
	prompt, ok := parts[0].(genai.Text)
	if !ok || !strings.Contains(string(prompt), `"Catatan Khas"`) || !strings.Contains(string(prompt), "remarks, description") {
		t.Fatalf("prompt missing header or candidates: %v", parts)
	}
}

func TestMapFieldErrors(t *testing.T) {
	if _, err := fakeClient("not json", nil, nil).MapField(context.Background(), "x", nil); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := fakeClient("```json\n```", nil, nil).MapField(context.Background(), "x", nil); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := fakeClient("", boom, nil).MapField(context.Background(), "x", nil); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestExtractTextFromImage(t *testing.T) {
	var parts []genai.Part
	reply := `{"text": "Load No | Customer\nL1 | ACME", "confidence": 0.82, "shipmentData": {"loadNumber": "L1"}}`
	c := fakeClient(reply, nil, &parts)
	res, err := c.ExtractTextFromImage(context.Background(), []byte{0x89, 0x50}, "image/png", true)
	if err != nil {
		t.Fatalf("ExtractTextFromImage: %v", err)
	}
	if res.Confidence != 0.82 || res.ShipmentData["loadNumber"] != "L1" || !strings.HasPrefix(res.Text, "Load No") {
		t.Fatalf("unexpected result %+v", res)
	}
	blob, ok := parts[1].(genai.Blob)
	if !ok || blob.MIMEType != "image/png" {
		t.Fatalf("image not sent as blob: %v", parts)
	}

	res, err = fakeClient("plain transcription", nil, nil).ExtractTextFromImage(context.Background(), []byte{1}, "image/jpeg", false)
	if err != nil || res.Text != "plain transcription" || res.Confidence != 0.5 {
		t.Fatalf("plain reply handling: %+v %v", res, err)
	}
	if _, err := c.ExtractTextFromImage(context.Background(), nil, "image/png", false); err == nil {
		t.Fatalf("expected error for empty image")
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	rl := NewRateLimiter(1)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := rl.Wait(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("wait ignored context cancellation")
	}
}
