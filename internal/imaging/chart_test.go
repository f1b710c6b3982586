package imaging

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"testing"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

func sampleProfile() []skew.AngleVotes {
	return []skew.AngleVotes{
		{Angle: -1, Votes: 10},
		{Angle: -0.5, Votes: 40},
		{Angle: 0, Votes: 120},
		{Angle: 0.5, Votes: 35},
		{Angle: 1, Votes: 8},
	}
}

func TestAngleProfileChart(t *testing.T) {
	var buf bytes.Buffer
	if err := AngleProfileChart(sampleProfile(), 0, &buf); err != nil {
		t.Fatalf("AngleProfileChart failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != ProfileChartWidth || img.Bounds().Dy() != ProfileChartHeight {
		t.Errorf("dimensions: got %v, want %dx%d", img.Bounds(), ProfileChartWidth, ProfileChartHeight)
	}
}

func TestAngleProfileChart_TooFewBuckets(t *testing.T) {
	var buf bytes.Buffer
	err := AngleProfileChart([]skew.AngleVotes{{Angle: 0, Votes: 3}}, 0, &buf)
	if err == nil {
		t.Error("single bucket should fail")
	}
}

func TestAngleProfileChart_NoVotes(t *testing.T) {
	profile := []skew.AngleVotes{{Angle: -1}, {Angle: 0}, {Angle: 1}}
	var buf bytes.Buffer
	if err := AngleProfileChart(profile, 0, &buf); err != nil {
		t.Fatalf("empty profile should still render: %v", err)
	}
}

func TestAngleProfilePNG(t *testing.T) {
	result, err := AngleProfilePNG(sampleProfile(), 0)
	if err != nil {
		t.Fatalf("AngleProfilePNG failed: %v", err)
	}
	if result.PeakAngle != 0 || result.PeakVotes != 120 {
		t.Errorf("peak: got %v/%d, want 0/120", result.PeakAngle, result.PeakVotes)
	}
	if _, err := base64.StdEncoding.DecodeString(result.ImageBase64); err != nil {
		t.Errorf("invalid base64: %v", err)
	}
}
