package alert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeConfig(t, `
# decline ladder
tier.0=-1.0
tier.1=-3.0  # inline comment
tier.2=-5.0

role.report=90d
role.alert=1d
`)

	settings, err := LoadSettings(path, logger.Nop())
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	tiers := settings.Ladder.Tiers()
	if len(tiers) != 3 {
		t.Fatalf("got %d tiers, want 3", len(tiers))
	}
	wantCuts := []float64{-1, -3, -5}
	for i, tier := range tiers {
		if tier.Index != i || tier.Cutpoint != wantCuts[i] {
			t.Errorf("tier[%d] = {%d %.2f}, want {%d %.2f}", i, tier.Index, tier.Cutpoint, i, wantCuts[i])
		}
	}
	if !settings.Ladder.Falling() {
		t.Error("Falling() = false, want true for all-negative cutpoints")
	}

	if got := settings.Roles.Resolve(variation.RoleReport); got != "90d" {
		t.Errorf("Resolve(report) = %q, want 90d", got)
	}
	if got := settings.Roles.Resolve(variation.RoleDisplay); got != "1d" {
		t.Errorf("Resolve(display) = %q, want default 1d", got)
	}
}

func TestLoadSettingsSkipsMalformedLines(t *testing.T) {
	path := writeConfig(t, `
tier.0=-1.0
this is not a key value line
tier.x=-2.0
tier.1=not-a-number
unknown.key=5
tier.1=-3.0
`)

	settings, err := LoadSettings(path, logger.Nop())
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got := len(settings.Ladder.Tiers()); got != 2 {
		t.Errorf("got %d tiers, want 2 (malformed lines skipped)", got)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "absent.conf"), logger.Nop()); err == nil {
		t.Error("LoadSettings(absent) error = nil, want error")
	}
}

func TestBuildLadderPolarity(t *testing.T) {
	tests := []struct {
		name      string
		tiers     []Tier
		falling   bool
		wantTiers int
	}{
		{
			name:      "all negative",
			tiers:     []Tier{{0, -1}, {1, -3}},
			falling:   true,
			wantTiers: 2,
		},
		{
			name:      "all positive",
			tiers:     []Tier{{0, 1}, {1, 3}},
			falling:   false,
			wantTiers: 2,
		},
		{
			name:      "minority positive dropped",
			tiers:     []Tier{{0, -1}, {1, -3}, {2, 2}},
			falling:   true,
			wantTiers: 2,
		},
		{
			name:      "zero survives either polarity",
			tiers:     []Tier{{0, 0}, {1, -3}},
			falling:   true,
			wantTiers: 2,
		},
		{
			name:      "empty",
			tiers:     nil,
			falling:   false,
			wantTiers: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ladder := buildLadder(tt.tiers, logger.Nop())
			if ladder.Falling() != tt.falling {
				t.Errorf("Falling() = %t, want %t", ladder.Falling(), tt.falling)
			}
			if got := len(ladder.Tiers()); got != tt.wantTiers {
				t.Errorf("got %d tiers, want %d", got, tt.wantTiers)
			}
		})
	}
}

func TestBuildLadderSortsByIndex(t *testing.T) {
	ladder := buildLadder([]Tier{{2, -5}, {0, -1}, {1, -3}}, logger.Nop())
	for i, tier := range ladder.Tiers() {
		if tier.Index != i {
			t.Errorf("tier at position %d has index %d", i, tier.Index)
		}
	}
}

func TestLadderBreached(t *testing.T) {
	falling := buildLadder([]Tier{{0, -1}, {1, -3}, {2, -5}}, logger.Nop())

	tests := []struct {
		value     float64
		wantIndex int
		wantHit   bool
	}{
		{-0.5, 0, false},
		{-1, 0, true}, // cutpoint itself breaches
		{-2, 0, true},
		{-4, 1, true}, // between tier 1 and tier 2
		{-5, 2, true},
		{-12.3, 2, true},
		{0.8, 0, false},
	}

	for _, tt := range tests {
		tier, hit := falling.Breached(tt.value)
		if hit != tt.wantHit {
			t.Errorf("Breached(%.2f) hit = %t, want %t", tt.value, hit, tt.wantHit)
			continue
		}
		if hit && tier.Index != tt.wantIndex {
			t.Errorf("Breached(%.2f) tier = %d, want %d", tt.value, tier.Index, tt.wantIndex)
		}
	}
}

func TestLadderBreachedRising(t *testing.T) {
	rising := buildLadder([]Tier{{0, 1}, {1, 3}}, logger.Nop())

	if tier, hit := rising.Breached(2); !hit || tier.Index != 0 {
		t.Errorf("Breached(2) = (%d, %t), want (0, true)", tier.Index, hit)
	}
	if tier, hit := rising.Breached(4.5); !hit || tier.Index != 1 {
		t.Errorf("Breached(4.5) = (%d, %t), want (1, true)", tier.Index, hit)
	}
	if _, hit := rising.Breached(-2); hit {
		t.Error("Breached(-2) hit on a rising ladder, want miss")
	}
}

func TestEmptyLadderNeverBreaches(t *testing.T) {
	var empty Ladder
	if _, hit := empty.Breached(-99); hit {
		t.Error("empty ladder reported a breach")
	}
}
