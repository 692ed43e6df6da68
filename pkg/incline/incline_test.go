package incline

import (
	"math"
	"testing"
)

func TestFlatSpeed(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		grade float64
		want  float64
	}{
		{name: "flat is identity", speed: 6.0, grade: 0, want: 6.0},
		{name: "stopped belt", speed: 0, grade: 12, want: 0},
		{name: "10 percent", speed: 6.0, grade: 10.0, want: 6.0 / 1.18},
		{name: "max incline", speed: 5.0, grade: 30, want: 5.0 / 1.54},
		{name: "max decline", speed: 5.0, grade: -30, want: 5.0 / 0.46},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlatSpeed(tt.speed, tt.grade); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("FlatSpeed() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := FlatSpeed(6.0, 10.0); math.Abs(got-5.0847) > 1e-4 {
		t.Errorf("FlatSpeed(6, 10) = %v, want ~5.0847", got)
	}
}

func TestFlatSpeedIdentityAcrossSpeeds(t *testing.T) {
	for s := 0.0; s <= 15; s += 0.5 {
		if got := FlatSpeed(s, 0); got != s {
			t.Fatalf("FlatSpeed(%v, 0) = %v", s, got)
		}
	}
}

func TestFlatSpeedDenominatorStaysPositive(t *testing.T) {
	for g := -MaxGrade; g <= MaxGrade; g += GradeStep {
		if d := 1 + (g/100)*1.8; d <= 0 {
			t.Fatalf("denominator %v at grade %v", d, g)
		}
	}
}

func TestGradeFromPitch(t *testing.T) {
	if got := GradeFromPitch(0, MaxGrade); got != 0 {
		t.Errorf("level pitch gave %v", got)
	}
	if got := GradeFromPitch(math.Atan(0.05), MaxGrade); math.Abs(got-5) > 1e-9 {
		t.Errorf("5%% pitch gave %v", got)
	}
	if got := GradeFromPitch(math.Pi/4, MaxGrade); got != MaxGrade {
		t.Errorf("45 degree pitch gave %v, want clamp to %v", got, MaxGrade)
	}
	if got := GradeFromPitch(-math.Pi/4, MaxGrade); got != -MaxGrade {
		t.Errorf("-45 degree pitch gave %v, want clamp to %v", got, -MaxGrade)
	}
}

func TestClampSpeedAndRound(t *testing.T) {
	if got := ClampSpeed(-0.1); got != 0 {
		t.Errorf("ClampSpeed(-0.1) = %v", got)
	}
	if got := Round(0.1+0.2, 1); got != 0.3 {
		t.Errorf("Round(0.1+0.2, 1) = %v", got)
	}
}

func TestPace(t *testing.T) {
	if got := Pace(6); got != 10 {
		t.Errorf("Pace(6) = %v, want 10", got)
	}
	if got := Pace(0); got != 0 {
		t.Errorf("Pace(0) = %v, want 0", got)
	}
}
