package config

import (
	"strings"
	"testing"
)

func TestDefaultBalanceIsValid(t *testing.T) {
	b := DefaultBalance()
	if err := validateBalance(&b); err != nil {
		t.Fatalf("DefaultBalance() failed validation: %v", err)
	}
	if b.BossPendingWave() != 13 {
		t.Errorf("BossPendingWave: expected 13, got %d", b.BossPendingWave())
	}
}

func TestSectorHPBoostAt(t *testing.T) {
	b := DefaultBalance()

	tests := []struct {
		sector int
		want   float64
	}{
		{0, 1.00},
		{1, 1.15},
		{2, 1.35},
		{3, 1.60},
		{4, 1.90},
		{5, 2.30},
		{6, 1.0},  // 越界回退
		{-1, 1.0}, // 越界回退
	}

	for _, tt := range tests {
		if got := b.SectorHPBoostAt(tt.sector); got != tt.want {
			t.Errorf("SectorHPBoostAt(%d) = %v, want %v", tt.sector, got, tt.want)
		}
	}
}

func TestTierJumpAt(t *testing.T) {
	b := DefaultBalance()

	tests := []struct {
		level int
		want  float64
	}{
		{1, 1.0},
		{5, 1.0},
		{6, 1.6},
		{10, 1.6},
		{11, 2.7},
		{15, 2.7},
		{16, 4.3},
		{20, 4.3},
		{21, 6.0},
		{100, 6.0},
	}

	for _, tt := range tests {
		if got := b.TierJumpAt(tt.level); got != tt.want {
			t.Errorf("TierJumpAt(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestCoresForBoss(t *testing.T) {
	b := DefaultBalance()
	for sector := 0; sector < b.SectorCount; sector++ {
		if got := b.CoresForBoss(sector); got != sector+1 {
			t.Errorf("CoresForBoss(%d) = %d, want %d", sector, got, sector+1)
		}
	}
}

func TestTimeToKillBounds(t *testing.T) {
	b := DefaultBalance()
	lo, hi := b.BossTimeToKill.Bounds(3)
	if lo != 24 || hi != 49 {
		t.Errorf("Bounds(3) = [%v, %v], want [24, 49]", lo, hi)
	}
}

func TestValidateBalanceErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *BalanceConfig)
		wantErr string
	}{
		{"难度底数不大于1", func(b *BalanceConfig) { b.DifficultyBase = 1 }, "difficultyBase"},
		{"生成上限小于基础", func(b *BalanceConfig) { b.SpawnCap = 5 }, "spawnCap"},
		{"阶梯非升序", func(b *BalanceConfig) { b.TierJumps[1].MaxLevel = 5 }, "ascending"},
		{"阶梯倍率下降", func(b *BalanceConfig) { b.TierJumps[2].Multiplier = 1.1 }, "must not decrease"},
		{"溢出倍率过小", func(b *BalanceConfig) { b.TierJumpOverflow = 2 }, "tierJumpOverflow"},
		{"扇区加成非正", func(b *BalanceConfig) { b.SectorHPBoost = []float64{1, 0} }, "sectorHPBoost[1]"},
		{"离线上限为负", func(b *BalanceConfig) { b.MaxOfflineHours = -1 }, "maxOfflineHours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBalance()
			tt.mutate(&b)
			err := validateBalance(&b)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyBalanceDefaultsKeepsExplicitValues(t *testing.T) {
	b := BalanceConfig{DifficultyBase: 1.2, WavesPerSector: 8}
	applyBalanceDefaults(&b)

	if b.DifficultyBase != 1.2 {
		t.Errorf("DifficultyBase overwritten: got %v", b.DifficultyBase)
	}
	if b.WavesPerSector != 8 {
		t.Errorf("WavesPerSector overwritten: got %d", b.WavesPerSector)
	}
	if b.SpawnCap != 45 {
		t.Errorf("SpawnCap default not applied: got %d", b.SpawnCap)
	}
}
