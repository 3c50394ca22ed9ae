package entity

import "testing"

func TestEvaluateGoals(t *testing.T) {
	tests := []struct {
		name        string
		creator     Creator
		wantMet     bool
		wantMissing map[AreaKind]float64
	}{
		{
			name: "all goals met",
			creator: Creator{
				AssignedAreas: []AreaKind{AreaPhotos, AreaVideos},
				Goals:         map[AreaKind]float64{AreaPhotos: 5, AreaVideos: 2},
				Progress:      map[AreaKind]float64{AreaPhotos: 5, AreaVideos: 3},
			},
			wantMet:     true,
			wantMissing: map[AreaKind]float64{},
		},
		{
			name: "one area short",
			creator: Creator{
				AssignedAreas: []AreaKind{AreaPhotos},
				Goals:         map[AreaKind]float64{AreaPhotos: 5},
				Progress:      map[AreaKind]float64{AreaPhotos: 4},
			},
			wantMet:     false,
			wantMissing: map[AreaKind]float64{AreaPhotos: 1},
		},
		{
			name: "zero goal is vacuously satisfied",
			creator: Creator{
				AssignedAreas: []AreaKind{AreaPhotos, AreaLive},
				Goals:         map[AreaKind]float64{AreaPhotos: 0, AreaLive: 10},
				Progress:      map[AreaKind]float64{AreaLive: 12.5},
			},
			wantMet:     true,
			wantMissing: map[AreaKind]float64{},
		},
		{
			name: "no assigned areas never passes",
			creator: Creator{
				Progress: map[AreaKind]float64{AreaPhotos: 100},
			},
			wantMet:     false,
			wantMissing: map[AreaKind]float64{},
		},
		{
			name: "missing progress map treated as zero",
			creator: Creator{
				AssignedAreas: []AreaKind{AreaVideos},
				Goals:         map[AreaKind]float64{AreaVideos: 3},
			},
			wantMet:     false,
			wantMissing: map[AreaKind]float64{AreaVideos: 3},
		},
		{
			name: "fractional live hours",
			creator: Creator{
				AssignedAreas: []AreaKind{AreaLive},
				Goals:         map[AreaKind]float64{AreaLive: 10},
				Progress:      map[AreaKind]float64{AreaLive: 9.5},
			},
			wantMet:     false,
			wantMissing: map[AreaKind]float64{AreaLive: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.creator.EvaluateGoals()
			if status.Met != tt.wantMet {
				t.Errorf("met = %v, want %v", status.Met, tt.wantMet)
			}
			if len(status.Missing) != len(tt.wantMissing) {
				t.Fatalf("missing = %v, want %v", status.Missing, tt.wantMissing)
			}
			for area, want := range tt.wantMissing {
				if got := status.Missing[area]; got != want {
					t.Errorf("missing[%s] = %v, want %v", area, got, want)
				}
			}
		})
	}
}

func TestGoalsNotMetError(t *testing.T) {
	err := &GoalsNotMetError{Missing: map[AreaKind]float64{AreaPhotos: 1, AreaVideos: 2}}
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	if !err.Is(ErrGoalsNotMet) {
		t.Error("GoalsNotMetError should match ErrGoalsNotMet")
	}
}
