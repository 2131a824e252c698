package main

import (
	"testing"

	"github.com/talgya/extended-life/internal/world"
)

func TestBuildScheduleKeepsStored(t *testing.T) {
	g, err := world.NewGame("stored", 3, 3)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	g.Schedule = world.Schedule{2: world.Bloom}

	got, err := buildSchedule(NewConfig(), g)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	if got.String() != "2:bloom" {
		t.Fatalf("schedule = %s, want stored 2:bloom", got)
	}
}

func TestBuildScheduleExplicitWins(t *testing.T) {
	g, err := world.NewGame("seasons", 3, 3)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	cfg := NewConfig()
	cfg.Steps = 40
	cfg.Seasons = 2
	cfg.Events = "0:cataclysm,39:famine"

	got, err := buildSchedule(cfg, g)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	if got[0] != world.Cataclysm || got[39] != world.Famine {
		t.Fatalf("explicit events lost: %s", got)
	}
	for step, e := range got {
		if step == 0 || step == 39 {
			continue
		}
		if e != world.Cataclysm && e != world.SeasonAt(step, 2).Event() {
			t.Fatalf("step %d has %s", step, e)
		}
	}
}
