package game

import (
	"math"
	"testing"

	"github.com/decker502/scrapline/pkg/economy"
)

func newTestPlanner(t *testing.T) (*WavePlanner, *SaveStore) {
	t.Helper()
	catalog := loadTestCatalog(t)
	model := economy.NewDifficultyModel(catalog)
	store := NewSaveStore(NewMemoryStorage(), catalog, WithClock(newFakeClock().Now))
	resolver := NewUpgradeResolver(catalog, model, store)
	return NewWavePlanner(catalog, model, store, resolver), store
}

// TestPlanFirstWave 测试第一波
func TestPlanFirstWave(t *testing.T) {
	planner, _ := newTestPlanner(t)
	plan := planner.Plan()

	if plan.Sector != 0 || plan.Wave != 1 || plan.GlobalWave != 1 {
		t.Errorf("cursor: got %d/%d/%d, want 0/1/1", plan.Sector, plan.Wave, plan.GlobalWave)
	}
	if plan.IsBoss || plan.Boss != nil {
		t.Error("first wave must not be a boss wave")
	}
	if plan.SpawnCount != 10 {
		t.Errorf("SpawnCount: got %d, want 10", plan.SpawnCount)
	}
	if plan.FireRateMultiplier != 1 || plan.BulletSpeedMultiplier != 1 {
		t.Errorf("multipliers at g=1: got %v/%v, want 1/1", plan.FireRateMultiplier, plan.BulletSpeedMultiplier)
	}

	if len(plan.Enemies) != 2 {
		t.Fatalf("sector 0 enemies: got %d, want 2", len(plan.Enemies))
	}
	grunt, ok := plan.EnemyByID("grunt")
	if !ok {
		t.Fatal("grunt missing from first wave")
	}
	if grunt.HP != 25 || grunt.Scrap != 3 {
		t.Errorf("grunt: got HP=%d scrap=%v, want 25/3", grunt.HP, grunt.Scrap)
	}
	if _, ok := plan.EnemyByID("tank"); ok {
		t.Error("tank must not appear in sector 0")
	}
}

// TestPlanScalesWithSectorAndUpgrades 测试扇区缩放与废料倍率
func TestPlanScalesWithSectorAndUpgrades(t *testing.T) {
	planner, store := newTestPlanner(t)
	store.Update(SavePatch{Upgrades: map[string]int{"salvage": 1}})

	plan := planner.PlanAt(1, 1)
	if plan.GlobalWave != 13 {
		t.Fatalf("GlobalWave: got %d, want 13", plan.GlobalWave)
	}

	gunner, ok := plan.EnemyByID("gunner")
	if !ok {
		t.Fatal("gunner should unlock in sector 1")
	}
	wantFire := 2.2 / (1 + 0.012*12)
	if math.Abs(gunner.FireInterval-wantFire) > 1e-9 {
		t.Errorf("gunner FireInterval: got %v, want %v", gunner.FireInterval, wantFire)
	}

	grunt, _ := plan.EnemyByID("grunt")
	wantHP := int(math.Round(25 * math.Pow(1.13, 12) * 1.15))
	if grunt.HP != wantHP {
		t.Errorf("grunt HP: got %d, want %d", grunt.HP, wantHP)
	}
	wantScrap := 3 * math.Pow(math.Pow(1.13, 12), 0.75) * 1.1
	if math.Abs(grunt.Scrap-wantScrap) > 1e-9 {
		t.Errorf("grunt scrap: got %v, want %v", grunt.Scrap, wantScrap)
	}
	if grunt.FireInterval != 0 {
		t.Errorf("non-firing enemy FireInterval: got %v, want 0", grunt.FireInterval)
	}
}

// TestPlanBossWave 测试 Boss 波
func TestPlanBossWave(t *testing.T) {
	planner, store := newTestPlanner(t)
	store.Update(SavePatch{CurrentWave: ptr(13)})

	plan := planner.Plan()
	if !plan.IsBoss || plan.Boss == nil {
		t.Fatal("wave 13 should be a boss wave")
	}
	if plan.SpawnCount != 0 {
		t.Errorf("boss wave SpawnCount: got %d, want 0", plan.SpawnCount)
	}

	wantRaw := int(math.Round(35 * 25 * math.Pow(1.13, 12)))
	if plan.Boss.RawHP != wantRaw {
		t.Errorf("RawHP: got %d, want %d", plan.Boss.RawHP, wantRaw)
	}
	// 基础 DPS 40，扇区 0 窗口 [18s, 40s]
	if plan.Boss.HP != 1600 {
		t.Errorf("clamped HP: got %d, want 1600", plan.Boss.HP)
	}
	if plan.Boss.Cores != 1 {
		t.Errorf("Cores: got %d, want 1", plan.Boss.Cores)
	}
	wantScrap := 120 * math.Pow(math.Pow(1.13, 12), 0.65)
	if math.Abs(plan.Boss.Scrap-wantScrap) > 1e-9 {
		t.Errorf("Scrap: got %v, want %v", plan.Boss.Scrap, wantScrap)
	}
}
