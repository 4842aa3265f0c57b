package game

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/decker502/scrapline/pkg/config"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestPurchaseOneShotUnlock 测试一次性解锁的购买流程
func TestPurchaseOneShotUnlock(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.AddScrap(200)

	if !resolver.Purchase("autoFire") {
		t.Fatal("first Purchase(autoFire) should succeed")
	}
	if store.Scrap() != 80 {
		t.Errorf("scrap after purchase: got %v, want 80", store.Scrap())
	}
	if !store.HasUpgrade("autoFire") {
		t.Error("HasUpgrade(autoFire) should be true")
	}

	if resolver.Purchase("autoFire") {
		t.Error("second Purchase(autoFire) should fail")
	}
	if store.Scrap() != 80 {
		t.Errorf("scrap after failed purchase: got %v, want 80", store.Scrap())
	}
	if store.UpgradeLevel("autoFire") != 1 {
		t.Errorf("autoFire level: got %d, want 1", store.UpgradeLevel("autoFire"))
	}
}

// TestCostOf 测试成本计算
func TestCostOf(t *testing.T) {
	resolver, store := newTestResolver(t)

	cost, err := resolver.CostOf("damage")
	if err != nil {
		t.Fatalf("CostOf(damage): %v", err)
	}
	if cost.Scrap != 25 || cost.Cores != 0 {
		t.Errorf("damage level 0 cost: got %+v, want {25 0}", cost)
	}

	store.Update(SavePatch{Upgrades: map[string]int{"damage": 5}})
	cost, _ = resolver.CostOf("damage")
	if want := float64(resolver.model.UpgradeCost(25, 6)); cost.Scrap != want {
		t.Errorf("damage level 5 cost: got %v, want %v", cost.Scrap, want)
	}

	cost, _ = resolver.CostOf("modRail")
	if cost.Scrap != 4000 || cost.Cores != 3 {
		t.Errorf("modRail cost: got %+v, want {4000 3}", cost)
	}

	store.Update(SavePatch{Upgrades: map[string]int{"damage": 25}})
	cost, _ = resolver.CostOf("damage")
	if cost != (Cost{}) {
		t.Errorf("maxed cost: got %+v, want zero", cost)
	}

	if _, err := resolver.CostOf("warpDrive"); !errors.Is(err, config.ErrUnknownUpgrade) {
		t.Errorf("CostOf(unknown): got %v, want ErrUnknownUpgrade", err)
	}
}

// TestIsAvailable 测试可购买状态
func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name          string
		patch         SavePatch
		id            string
		wantAvailable bool
		wantReason    string
	}{
		{"无限制", SavePatch{}, "damage", true, ""},
		{"扇区未达到", SavePatch{}, "critChance", false, "Reach sector 2"},
		{"最高扇区达到", SavePatch{HighestSector: ptr(1)}, "critChance", true, ""},
		{"前置未拥有", SavePatch{HighestSector: ptr(1)}, "critDamage", false, "Requires Targeting Optics"},
		{"前置已拥有", SavePatch{HighestSector: ptr(1), Upgrades: map[string]int{"critChance": 1}}, "critDamage", true, ""},
		{"已满级", SavePatch{Upgrades: map[string]int{"damage": 25}}, "damage", false, "Max level reached"},
		{"已解锁", SavePatch{Upgrades: map[string]int{"autoFire": 1}}, "autoFire", false, "Already unlocked"},
		{"未知升级", SavePatch{}, "warpDrive", false, "Unknown upgrade"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, store := newTestResolver(t)
			store.Update(tt.patch)

			got := resolver.IsAvailable(tt.id)
			if got.Available != tt.wantAvailable {
				t.Errorf("Available: got %v, want %v (reason %q)", got.Available, tt.wantAvailable, got.Reason)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason: got %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

// TestSectorGateUsesHighestSector 测试扇区限制按最高扇区而非当前扇区判断
func TestSectorGateUsesHighestSector(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.Update(SavePatch{CurrentSector: ptr(0), HighestSector: ptr(2)})

	if !resolver.IsAvailable("critChance").Available {
		t.Error("critChance should be available once sector 1 was ever reached")
	}
}

// TestPurchaseRequiresBothCurrencies 测试两种货币的全有或全无扣除
func TestPurchaseRequiresBothCurrencies(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.Update(SavePatch{HighestSector: ptr(1)})
	store.AddScrap(600)

	if resolver.CanAfford("modSpread") {
		t.Error("CanAfford(modSpread) should be false without cores")
	}
	if resolver.Purchase("modSpread") {
		t.Fatal("Purchase(modSpread) should fail without cores")
	}
	if store.Scrap() != 600 || store.UpgradeLevel("modSpread") != 0 {
		t.Errorf("failed purchase changed state: scrap=%v level=%d", store.Scrap(), store.UpgradeLevel("modSpread"))
	}

	store.AddCores(1)
	if !resolver.CanAfford("modSpread") {
		t.Error("CanAfford(modSpread) should be true")
	}
	if !resolver.Purchase("modSpread") {
		t.Fatal("Purchase(modSpread) should succeed")
	}
	if store.Scrap() != 100 || store.Cores() != 0 {
		t.Errorf("after purchase: scrap=%v cores=%d, want 100/0", store.Scrap(), store.Cores())
	}
}

// TestPurchaseRejections 测试各种购买失败
func TestPurchaseRejections(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.AddScrap(10)

	if resolver.Purchase("damage") {
		t.Error("Purchase(damage) with 10 scrap should fail")
	}
	if resolver.Purchase("warpDrive") {
		t.Error("Purchase(unknown) should fail")
	}
	if resolver.CanAfford("warpDrive") {
		t.Error("CanAfford(unknown) should be false")
	}

	store.AddScrap(1000)
	if resolver.Purchase("salvageDrone") {
		t.Error("Purchase(salvageDrone) without salvage should fail")
	}
	if store.Scrap() != 1010 {
		t.Errorf("failed purchases must not spend scrap, got %v", store.Scrap())
	}
}

// TestRepeatedPurchaseRespectsMaxLevel 测试重复购买不超过上限
func TestRepeatedPurchaseRespectsMaxLevel(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.AddScrap(1e12)

	bought := 0
	for i := 0; i < 40; i++ {
		if resolver.Purchase("bulletSpeed") {
			bought++
		}
	}
	if bought != 15 || store.UpgradeLevel("bulletSpeed") != 15 {
		t.Errorf("bought %d, level %d, want 15/15", bought, store.UpgradeLevel("bulletSpeed"))
	}
}

// TestStatValue 测试属性叠加
func TestStatValue(t *testing.T) {
	resolver, store := newTestResolver(t)

	if got := resolver.Damage(); got != 10 {
		t.Errorf("base Damage: got %v, want 10", got)
	}
	if got := resolver.EstimatedDPS(); got != 40 {
		t.Errorf("base EstimatedDPS: got %v, want 40", got)
	}
	if got := resolver.PassiveIncome(); got != 0 {
		t.Errorf("base PassiveIncome: got %v, want 0", got)
	}

	store.Update(SavePatch{Upgrades: map[string]int{
		"damage":       2,
		"fireRate":     1,
		"critChance":   5,
		"critDamage":   2,
		"salvage":      3,
		"salvageDrone": 4,
	}})

	if got, want := resolver.Damage(), 10*1.15*1.15; !approxEqual(got, want) {
		t.Errorf("Damage: got %v, want %v", got, want)
	}
	if got, want := resolver.FireRate(), 4*1.08; !approxEqual(got, want) {
		t.Errorf("FireRate: got %v, want %v", got, want)
	}
	if got, want := resolver.CritChance(), 0.15; !approxEqual(got, want) {
		t.Errorf("CritChance: got %v, want %v", got, want)
	}
	if got, want := resolver.CritMultiplier(), 2.3; !approxEqual(got, want) {
		t.Errorf("CritMultiplier: got %v, want %v", got, want)
	}
	if got, want := resolver.SalvageMultiplier(), math.Pow(1.10, 3); !approxEqual(got, want) {
		t.Errorf("SalvageMultiplier: got %v, want %v", got, want)
	}
	if got, want := resolver.PassiveIncome(), 2.0; !approxEqual(got, want) {
		t.Errorf("PassiveIncome: got %v, want %v", got, want)
	}

	wantDPS := resolver.Damage() * resolver.FireRate() * (1 + 0.15*(2.3-1))
	if got := resolver.EstimatedDPS(); !approxEqual(got, wantDPS) {
		t.Errorf("EstimatedDPS: got %v, want %v", got, wantDPS)
	}
}

// TestCritChanceAtMaxLevel 测试暴击率满级数值
func TestCritChanceAtMaxLevel(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.Update(SavePatch{Upgrades: map[string]int{"critChance": 10}})

	if got := resolver.CritChance(); !approxEqual(got, 0.3) {
		t.Errorf("CritChance at level 10: got %v, want 0.3", got)
	}
}

// TestMaxHPPurchaseSyncsHP 测试生命上限升级同步当前生命
func TestMaxHPPurchaseSyncsHP(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.AddScrap(35)

	if !resolver.Purchase("maxHP") {
		t.Fatal("Purchase(maxHP) should succeed")
	}
	state := store.Current()
	if !approxEqual(state.PlayerMaxHP, 112) || !approxEqual(state.PlayerHP, 112) {
		t.Errorf("HP after maxHP upgrade: got %v/%v, want 112/112", state.PlayerHP, state.PlayerMaxHP)
	}
}

// TestSelections 测试武器模组、行为脚本、索敌模式的切换
func TestSelections(t *testing.T) {
	resolver, store := newTestResolver(t)

	if err := resolver.SelectWeaponMod("plasma"); !errors.Is(err, ErrUnknownSelection) {
		t.Errorf("SelectWeaponMod(unknown): got %v, want ErrUnknownSelection", err)
	}
	if err := resolver.SelectWeaponMod("spread"); !errors.Is(err, ErrSelectionLocked) {
		t.Errorf("SelectWeaponMod(locked): got %v, want ErrSelectionLocked", err)
	}
	if err := resolver.SelectBehaviorScript("kite"); !errors.Is(err, ErrSelectionLocked) {
		t.Errorf("SelectBehaviorScript(locked): got %v, want ErrSelectionLocked", err)
	}
	if err := resolver.SelectTargetMode("sideways"); !errors.Is(err, ErrUnknownSelection) {
		t.Errorf("SelectTargetMode(unknown): got %v, want ErrUnknownSelection", err)
	}
	if store.Current().ActiveWeaponMod != "standard" {
		t.Error("rejected selection must not change state")
	}

	store.Update(SavePatch{Upgrades: map[string]int{"modSpread": 1, "targetingSuite": 1, "scriptKite": 1}})

	if err := resolver.SelectWeaponMod("spread"); err != nil {
		t.Fatalf("SelectWeaponMod(spread): %v", err)
	}
	if err := resolver.SelectBehaviorScript("kite"); err != nil {
		t.Fatalf("SelectBehaviorScript(kite): %v", err)
	}
	if err := resolver.SelectTargetMode("boss"); err != nil {
		t.Fatalf("SelectTargetMode(boss): %v", err)
	}

	state := store.Current()
	if state.ActiveWeaponMod != "spread" || state.ActiveBehaviorScript != "kite" || state.ActiveTargetMode != "boss" {
		t.Errorf("selections: got %s/%s/%s", state.ActiveWeaponMod, state.ActiveBehaviorScript, state.ActiveTargetMode)
	}

	if got := resolver.Damage(); !approxEqual(got, 7) {
		t.Errorf("Damage with spread: got %v, want 7", got)
	}
	if got := resolver.Projectiles(); got != 3 {
		t.Errorf("Projectiles with spread: got %d, want 3", got)
	}
	if got, want := resolver.EstimatedDPS(), 7*3.6*3.0; !approxEqual(got, want) {
		t.Errorf("EstimatedDPS with spread: got %v, want %v", got, want)
	}

	if !resolver.IsWeaponModUnlocked("standard") || resolver.IsWeaponModUnlocked("rail") {
		t.Error("IsWeaponModUnlocked mismatch")
	}
	if !resolver.IsBehaviorScriptUnlocked("kite") || resolver.IsBehaviorScriptUnlocked("berserk") {
		t.Error("IsBehaviorScriptUnlocked mismatch")
	}
	if !resolver.IsTargetModeUnlocked("weakest") || resolver.IsTargetModeUnlocked("random") {
		t.Error("IsTargetModeUnlocked mismatch")
	}
}

// TestConcurrentPurchasesPayEachLevel 测试并发购买时每一级都按自己的价格扣费
func TestConcurrentPurchasesPayEachLevel(t *testing.T) {
	resolver, store := newTestResolver(t)
	store.AddScrap(1e7)

	const buyers = 16
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolver.Purchase("damage")
		}()
	}
	wg.Wait()

	if got := store.UpgradeLevel("damage"); got != buyers {
		t.Fatalf("damage level: got %d, want %d", got, buyers)
	}

	def, err := resolver.catalog.UpgradeDefinition("damage")
	if err != nil {
		t.Fatalf("UpgradeDefinition: %v", err)
	}
	spent := 0.0
	for level := 0; level < buyers; level++ {
		spent += resolver.costOf(def, level).Scrap
	}
	if got := store.Scrap(); got != 1e7-spent {
		t.Errorf("Scrap: got %v, want %v (each level charged once at its own price)", got, 1e7-spent)
	}
}
