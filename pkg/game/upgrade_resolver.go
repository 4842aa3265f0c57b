package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/decker502/scrapline/pkg/config"
	"github.com/decker502/scrapline/pkg/economy"
)

var (
	// ErrUnknownSelection 武器模组/行为脚本/索敌模式ID不存在
	ErrUnknownSelection = errors.New("unknown selection")
	// ErrSelectionLocked 选择项所需的解锁升级尚未购买
	ErrSelectionLocked = errors.New("selection locked")
)

// Cost 升级的购买成本
type Cost struct {
	Scrap float64
	Cores int
}

// Availability 升级的可购买状态
// Available 为 false 时 Reason 是给玩家看的原因
type Availability struct {
	Available bool
	Reason    string
}

// UpgradeResolver 商店逻辑
//
// 组合 EconomyCatalog、DifficultyModel 与 SaveStore 中的等级，回答
// "多少钱""能不能买""买了之后属性是多少"。自身不持有状态。
// 所有否定结果都通过返回值报告。
type UpgradeResolver struct {
	catalog *config.EconomyCatalog
	model   *economy.DifficultyModel
	store   *SaveStore
}

// NewUpgradeResolver 创建商店逻辑
func NewUpgradeResolver(catalog *config.EconomyCatalog, model *economy.DifficultyModel, store *SaveStore) *UpgradeResolver {
	return &UpgradeResolver{
		catalog: catalog,
		model:   model,
		store:   store,
	}
}

// LevelOf 当前等级
func (r *UpgradeResolver) LevelOf(id string) int {
	return r.store.UpgradeLevel(id)
}

// CostOf 计算购买下一级的成本
//
// 已满级时返回零成本（是否满级需通过 IsAvailable 判断）。
// 可重复升级的废料成本为 upgradeCost(baseCost, level+1)，一次性解锁为 baseCost。
//
// 返回：
//   - Cost: 成本
//   - error: 升级ID不存在时返回 config.ErrUnknownUpgrade
func (r *UpgradeResolver) CostOf(id string) (Cost, error) {
	def, err := r.catalog.UpgradeDefinition(id)
	if err != nil {
		return Cost{}, err
	}
	return r.costOf(def, r.store.UpgradeLevel(id)), nil
}

func (r *UpgradeResolver) costOf(def *config.UpgradeDefinition, level int) Cost {
	if level >= def.MaxLevel {
		return Cost{}
	}

	scrap := def.BaseCost
	if !def.IsUnlock {
		scrap = float64(r.model.UpgradeCost(def.BaseCost, level+1))
	}
	return Cost{Scrap: scrap, Cores: def.CoresCost}
}

// IsAvailable 检查升级是否可购买（不考虑货币）
//
// 不可购买的情况：已满级、最高扇区未达到要求、前置升级未拥有。
// 扇区要求按 highestSector 判断，而非当前扇区。
func (r *UpgradeResolver) IsAvailable(id string) Availability {
	def, err := r.catalog.UpgradeDefinition(id)
	if err != nil {
		return Availability{Reason: "Unknown upgrade"}
	}
	return r.availability(def)
}

func (r *UpgradeResolver) availability(def *config.UpgradeDefinition) Availability {
	if r.store.UpgradeLevel(def.ID) >= def.MaxLevel {
		if def.IsUnlock {
			return Availability{Reason: "Already unlocked"}
		}
		return Availability{Reason: "Max level reached"}
	}

	if def.SectorRequired > r.store.HighestSector() {
		return Availability{Reason: fmt.Sprintf("Reach sector %d", def.SectorRequired+1)}
	}

	if def.Prerequisite != "" && !r.store.HasUpgrade(def.Prerequisite) {
		name := def.Prerequisite
		if pre, err := r.catalog.UpgradeDefinition(def.Prerequisite); err == nil {
			name = pre.Name
		}
		return Availability{Reason: fmt.Sprintf("Requires %s", name)}
	}

	return Availability{Available: true}
}

// CanAfford 当前废料与核心是否都足够支付下一级
func (r *UpgradeResolver) CanAfford(id string) bool {
	cost, err := r.CostOf(id)
	if err != nil {
		return false
	}
	return r.store.Scrap() >= cost.Scrap && r.store.Cores() >= cost.Cores
}

// Purchase 购买下一级
//
// 重新检查可购买状态与货币（不信任 UI 的旧结果），
// 然后由 SaveStore 在一次加锁内扣除两种货币并提升等级；任一条件不满足则不做任何修改。
//
// 返回：
//   - bool: 是否购买成功
func (r *UpgradeResolver) Purchase(id string) bool {
	def, err := r.catalog.UpgradeDefinition(id)
	if err != nil {
		return false
	}

	if !r.availability(def).Available {
		return false
	}

	price := func(level int) Cost { return r.costOf(def, level) }
	if !r.store.ApplyPurchase(id, def.MaxLevel, price) {
		return false
	}

	if def.Stat == config.StatMaxHP {
		r.syncMaxHP()
	}
	return true
}

// syncMaxHP 生命上限提升后按比例保留当前生命
func (r *UpgradeResolver) syncMaxHP() {
	state := r.store.Current()
	newMax := r.MaxHP()
	hp := newMax
	if state.PlayerMaxHP > 0 {
		hp = state.PlayerHP / state.PlayerMaxHP * newMax
	}
	r.store.SyncPlayerHP(hp, newMax)
}

// StatValue 计算属性的升级后数值（未含武器模组）
//
// 组合方式：(base + Σ add 效果) × Π multiply 效果。
// add: effect*level；multiply: effect^level。
func (r *UpgradeResolver) StatValue(stat string) float64 {
	additive := r.catalog.Player.Base(stat)
	multiplier := 1.0

	for _, def := range r.catalog.Upgrades() {
		if def.Stat != stat {
			continue
		}
		level := r.store.UpgradeLevel(def.ID)
		if level == 0 {
			continue
		}
		switch def.EffectMode {
		case config.EffectAdd:
			additive += def.Effect * float64(level)
		default:
			multiplier *= math.Pow(def.Effect, float64(level))
		}
	}

	return additive * multiplier
}

// ActiveWeaponMod 当前武器模组，存档中的ID无效时回退到默认模组
func (r *UpgradeResolver) ActiveWeaponMod() config.WeaponMod {
	if mod, ok := r.catalog.WeaponMod(r.store.Current().ActiveWeaponMod); ok {
		return *mod
	}
	mod, _ := r.catalog.WeaponMod(r.catalog.DefaultWeaponMod())
	return *mod
}

// Damage 单发伤害（含武器模组）
func (r *UpgradeResolver) Damage() float64 {
	return r.StatValue(config.StatDamage) * r.ActiveWeaponMod().DamageMultiplier
}

// FireRate 每秒射击次数（含武器模组）
func (r *UpgradeResolver) FireRate() float64 {
	return r.StatValue(config.StatFireRate) * r.ActiveWeaponMod().FireRateMultiplier
}

// Projectiles 每次射击的弹丸数
func (r *UpgradeResolver) Projectiles() int {
	if n := r.ActiveWeaponMod().Projectiles; n > 1 {
		return n
	}
	return 1
}

// BulletSpeed 子弹速度
func (r *UpgradeResolver) BulletSpeed() float64 {
	return r.StatValue(config.StatBulletSpeed)
}

// SalvageMultiplier 废料拾取倍率
func (r *UpgradeResolver) SalvageMultiplier() float64 {
	return r.StatValue(config.StatSalvageMultiplier)
}

// MaxHP 生命上限
func (r *UpgradeResolver) MaxHP() float64 {
	return r.StatValue(config.StatMaxHP)
}

// PassiveIncome 每秒被动废料收入
func (r *UpgradeResolver) PassiveIncome() float64 {
	return r.StatValue(config.StatPassiveIncome)
}

// CritChance 暴击率，限制在 [0, 1]
func (r *UpgradeResolver) CritChance() float64 {
	return math.Max(0, math.Min(1, r.StatValue(config.StatCritChance)))
}

// CritMultiplier 暴击伤害倍率
func (r *UpgradeResolver) CritMultiplier() float64 {
	return r.StatValue(config.StatCritMultiplier)
}

// EstimatedDPS 估算每秒伤害
// damage * fireRate * projectiles * (1 + critChance*(critMultiplier-1))
func (r *UpgradeResolver) EstimatedDPS() float64 {
	crit := 1 + r.CritChance()*(r.CritMultiplier()-1)
	return r.Damage() * r.FireRate() * float64(r.Projectiles()) * crit
}

// isOwned 解锁升级为空或已拥有
func (r *UpgradeResolver) isOwned(unlockUpgrade string) bool {
	return unlockUpgrade == "" || r.store.HasUpgrade(unlockUpgrade)
}

// IsWeaponModUnlocked 武器模组是否可选
func (r *UpgradeResolver) IsWeaponModUnlocked(id string) bool {
	mod, ok := r.catalog.WeaponMod(id)
	return ok && r.isOwned(mod.UnlockUpgrade)
}

// IsBehaviorScriptUnlocked 行为脚本是否可选
func (r *UpgradeResolver) IsBehaviorScriptUnlocked(id string) bool {
	script, ok := r.catalog.BehaviorScript(id)
	return ok && r.isOwned(script.UnlockUpgrade)
}

// IsTargetModeUnlocked 索敌模式是否可选
func (r *UpgradeResolver) IsTargetModeUnlocked(id string) bool {
	mode, ok := r.catalog.TargetMode(id)
	return ok && r.isOwned(mode.UnlockUpgrade)
}

// SelectWeaponMod 切换武器模组
//
// 返回：
//   - error: ID不存在返回 ErrUnknownSelection，未解锁返回 ErrSelectionLocked
func (r *UpgradeResolver) SelectWeaponMod(id string) error {
	mod, ok := r.catalog.WeaponMod(id)
	if !ok {
		return fmt.Errorf("%w: weapon mod %q", ErrUnknownSelection, id)
	}
	if !r.isOwned(mod.UnlockUpgrade) {
		return fmt.Errorf("%w: weapon mod %q requires %q", ErrSelectionLocked, id, mod.UnlockUpgrade)
	}
	r.store.Update(SavePatch{ActiveWeaponMod: &id})
	return nil
}

// SelectBehaviorScript 切换行为脚本
func (r *UpgradeResolver) SelectBehaviorScript(id string) error {
	script, ok := r.catalog.BehaviorScript(id)
	if !ok {
		return fmt.Errorf("%w: behavior script %q", ErrUnknownSelection, id)
	}
	if !r.isOwned(script.UnlockUpgrade) {
		return fmt.Errorf("%w: behavior script %q requires %q", ErrSelectionLocked, id, script.UnlockUpgrade)
	}
	r.store.Update(SavePatch{ActiveBehaviorScript: &id})
	return nil
}

// SelectTargetMode 切换索敌模式
func (r *UpgradeResolver) SelectTargetMode(id string) error {
	mode, ok := r.catalog.TargetMode(id)
	if !ok {
		return fmt.Errorf("%w: target mode %q", ErrUnknownSelection, id)
	}
	if !r.isOwned(mode.UnlockUpgrade) {
		return fmt.Errorf("%w: target mode %q requires %q", ErrSelectionLocked, id, mode.UnlockUpgrade)
	}
	r.store.Update(SavePatch{ActiveTargetMode: &id})
	return nil
}
