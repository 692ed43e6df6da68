package main

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		speed, grade float64
		wantGrade    float64
		wantFlat     float64
	}{
		{6, 0, 0, 6},
		{6, 10, 10, 6 / 1.18},
		{6, 45, 30, 6 / 1.54},
		{6, -45, -30, 6 / 0.46},
	}
	for _, tt := range tests {
		got := convert(tt.speed, tt.grade)
		if got.Grade != tt.wantGrade || math.Abs(got.FlatSpeed-tt.wantFlat) > 1e-9 {
			t.Errorf("convert(%v, %v) = %+v, want grade %v flat %v", tt.speed, tt.grade, got, tt.wantGrade, tt.wantFlat)
		}
	}
}

func TestFormatPace(t *testing.T) {
	tests := []struct {
		minutes float64
		unit    string
		want    string
	}{
		{10, "mph", "10:00 /mi"},
		{11.8, "mph", "11:48 /mi"},
		{5.5, "km/h", "5:30 /km"},
		{0, "mph", "-"},
	}
	for _, tt := range tests {
		if got := formatPace(tt.minutes, tt.unit); got != tt.want {
			t.Errorf("formatPace(%v, %q) = %q, want %q", tt.minutes, tt.unit, got, tt.want)
		}
	}
}

func TestConvertCommandOffline(t *testing.T) {
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"convert", "6", "10"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if !strings.Contains(out.String(), "5.08 mph") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
