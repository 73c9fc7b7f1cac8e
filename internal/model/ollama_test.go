package model

import (
	"testing"

	"github.com/fernwood/berrysight/internal/detection"
)

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"fenced with language", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced bare", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"inline backticks", "`{\"a\": 1}`", `{"a": 1}`},
		{"surrounding prose", `Here are the results: {"a": 1} let me know!`, `{"a": 1}`},
		{"trailing commas", `{"a": [1, 2,],}`, `{"a": [1, 2]}`},
		{"block comment", `{"a": 1 /* note */}`, `{"a": 1 }`},
		{"whitespace", "  \n {\"a\": 1} \n ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeModelJSON(tt.raw); got != tt.want {
				t.Errorf("sanitizeModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseVisionResult(t *testing.T) {
	raw := `{"detections": [{"label": "ripe", "confidence": 0.9, "box": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.4}}]}`

	dets := parseVisionResult(raw)
	if len(dets) != 1 {
		t.Fatalf("detections: got %d, want 1", len(dets))
	}
	d := dets[0]
	if d.Label != "ripe" || d.Confidence != 0.9 {
		t.Errorf("got label %q confidence %v, want ripe 0.9", d.Label, d.Confidence)
	}
	if d.Box.X != 0.1 || d.Box.Y != 0.2 || d.Box.W != 0.3 || d.Box.H != 0.4 {
		t.Errorf("box: got %+v", d.Box)
	}
}

func TestParseVisionResult_ChattyModel(t *testing.T) {
	// Fences, a comment line and trailing commas all at once.
	raw := "```json\n" +
		"{\n" +
		"  \"detections\": [\n" +
		"    // strongest berry first\n" +
		"    {\"label\": \"semi_ripe\", \"confidence\": 0.8, \"box\": {\"x\": 0.0, \"y\": 0.0, \"w\": 0.5, \"h\": 0.5}},\n" +
		"  ],\n" +
		"}\n" +
		"```"

	dets := parseVisionResult(raw)
	if len(dets) != 1 {
		t.Fatalf("detections: got %d, want 1", len(dets))
	}
	if dets[0].Label != "semi_ripe" {
		t.Errorf("label: got %q, want semi_ripe", dets[0].Label)
	}
}

func TestParseVisionResult_Unparseable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose only", "I do not see any blueberries in this image."},
		{"broken json", `Sure! {"detections": [}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if dets := parseVisionResult(tt.raw); len(dets) != 0 {
				t.Errorf("parseVisionResult(%q) = %v, want none", tt.raw, dets)
			}
		})
	}
}

func TestParseVisionResult_EmptyList(t *testing.T) {
	if dets := parseVisionResult(`{"detections": []}`); len(dets) != 0 {
		t.Errorf("got %v, want empty list", dets)
	}
}

func TestBoxToBounds(t *testing.T) {
	tests := []struct {
		name         string
		box          visionBox
		srcW, srcH   int
		sentW, sentH int
		want         detection.Bounds
	}{
		{
			name: "normalized coordinates",
			box:  visionBox{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			srcW: 200, srcH: 100, sentW: 100, sentH: 50,
			want: detection.Bounds{X1: 50, Y1: 25, X2: 150, Y2: 75},
		},
		{
			name: "pixel coordinates rescaled from the sent frame",
			box:  visionBox{X: 256, Y: 128, W: 128, H: 64},
			srcW: 400, srcH: 200, sentW: 512, sentH: 256,
			want: detection.Bounds{X1: 200, Y1: 100, X2: 300, Y2: 150},
		},
		{
			name: "negative values clamp to zero",
			box:  visionBox{X: -0.5, Y: -0.5, W: 0.5, H: 0.5},
			srcW: 100, srcH: 100, sentW: 100, sentH: 100,
			want: detection.Bounds{X1: 0, Y1: 0, X2: 50, Y2: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := boxToBounds(tt.box, tt.srcW, tt.srcH, tt.sentW, tt.sentH)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClampUnit(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := clampUnit(tt.in); got != tt.want {
			t.Errorf("clampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewOllama(t *testing.T) {
	o, err := NewOllama("http://localhost:11434/some/path", "llava", 0)
	if err != nil {
		t.Fatalf("NewOllama failed: %v", err)
	}

	info := o.Info()
	if info.Backend != "ollama" {
		t.Errorf("backend: got %q, want ollama", info.Backend)
	}
	if info.Model != "llava" {
		t.Errorf("model: got %q, want llava", info.Model)
	}
	if info.ConfidenceThreshold != DefaultThreshold {
		t.Errorf("zero threshold should default, got %v", info.ConfidenceThreshold)
	}
	if info.Available {
		t.Error("Available should be false before any probe")
	}
}

func TestNewOllama_InvalidHost(t *testing.T) {
	if _, err := NewOllama("://missing-scheme", "llava", 0.5); err == nil {
		t.Fatal("want error for an unparseable host")
	}
}
