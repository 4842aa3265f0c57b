// Package economy 实现难度与经济曲线
//
// 所有函数都是纯函数：输入全部显式传入，没有副作用，也不持有可变状态。
// 唯一的自变量是全局波次 g = sector*wavesPerSector + waveInSector。
package economy

import (
	"math"

	"github.com/decker502/scrapline/pkg/config"
)

// DifficultyModel 难度模型
//
// 只读取 EconomyCatalog（平衡常量 + 敌人表），构建后不可变，可被任意调用方共享。
type DifficultyModel struct {
	catalog *config.EconomyCatalog
	balance config.BalanceConfig
}

// NewDifficultyModel 基于目录创建难度模型
func NewDifficultyModel(catalog *config.EconomyCatalog) *DifficultyModel {
	return &DifficultyModel{
		catalog: catalog,
		balance: catalog.Balance,
	}
}

// Balance 返回模型使用的平衡常量
func (m *DifficultyModel) Balance() config.BalanceConfig {
	return m.balance
}

// GlobalWave 计算全局波次
//
// 参数：
//   - sector: 扇区（从 0 开始）
//   - wave: 扇区内波次（从 1 开始，wavesPerSector+1 表示 Boss 波）
func (m *DifficultyModel) GlobalWave(sector, wave int) int {
	return sector*m.balance.WavesPerSector + wave
}

// DifficultyMultiplier 难度倍率 D(g) = base^(g-1)
// g=1 时恰好为 1.0，无上限
func (m *DifficultyModel) DifficultyMultiplier(globalWave int) float64 {
	return math.Pow(m.balance.DifficultyBase, float64(globalWave-1))
}

// EnemyHP 计算敌人血量
// round(baseHP * D(g) * sectorHPBoost(sector))
//
// 返回：
//   - int: 血量
//   - error: 敌人ID不存在时返回 config.ErrUnknownEnemy
func (m *DifficultyModel) EnemyHP(typeID string, sector, globalWave int) (int, error) {
	def, err := m.catalog.EnemyDefinition(typeID)
	if err != nil {
		return 0, err
	}
	return m.scaledHP(def.BaseHP, sector, globalWave), nil
}

func (m *DifficultyModel) scaledHP(baseHP float64, sector, globalWave int) int {
	return int(math.Round(baseHP * m.DifficultyMultiplier(globalWave) * m.balance.SectorHPBoostAt(sector)))
}

// ScrapDrop 计算敌人废料掉落
// baseScrap * D(g)^scrapExponent，增速低于血量，迫使玩家购买伤害升级
func (m *DifficultyModel) ScrapDrop(typeID string, globalWave int) (float64, error) {
	def, err := m.catalog.EnemyDefinition(typeID)
	if err != nil {
		return 0, err
	}
	return def.BaseScrap * math.Pow(m.DifficultyMultiplier(globalWave), m.balance.ScrapExponent), nil
}

// SpawnCount 计算每波生成数量
// min(cap, base + floor((g-1)/step))
func (m *DifficultyModel) SpawnCount(globalWave int) int {
	if globalWave < 1 {
		globalWave = 1
	}
	n := m.balance.SpawnBase + (globalWave-1)/m.balance.SpawnStep
	if n > m.balance.SpawnCap {
		return m.balance.SpawnCap
	}
	return n
}

// BossHP 计算 Boss 血量
// round(bossHPFactor * baseHP(bossBaseEnemy) * D(g) * sectorHPBoost(sector))
func (m *DifficultyModel) BossHP(sector, globalWave int) int {
	// bossBaseEnemy 在目录构建时已验证存在
	def, _ := m.catalog.EnemyDefinition(m.balance.BossBaseEnemy)
	return m.scaledHP(m.balance.BossHPFactor*def.BaseHP, sector, globalWave)
}

// ClampBossHP 将 Boss 血量限制在击杀时长窗口内
//
// 以玩家当前估算 DPS 计算，保证 Boss 战持续
// [minBase+minPerSector*sector, maxBase+maxPerSector*sector] 秒。
// dps <= 0 时不做调整。
func (m *DifficultyModel) ClampBossHP(hp, sector int, dps float64) int {
	if dps <= 0 || math.IsNaN(dps) || math.IsInf(dps, 0) {
		return hp
	}
	lo, hi := m.balance.BossTimeToKill.Bounds(sector)
	minHP := int(math.Round(dps * lo))
	maxHP := int(math.Round(dps * hi))
	if hp < minHP {
		return minHP
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}

// BossScrap 计算 Boss 废料奖励
// bossScrapBase * D(g)^bossScrapExponent
func (m *DifficultyModel) BossScrap(globalWave int) float64 {
	return m.balance.BossScrapBase * math.Pow(m.DifficultyMultiplier(globalWave), m.balance.BossScrapExponent)
}

// BossCores 返回击败指定扇区 Boss 获得的核心数
func (m *DifficultyModel) BossCores(sector int) int {
	return m.balance.CoresForBoss(sector)
}

// EnemyFireRateMultiplier 敌人射速倍率 1 + k*(g-1)
func (m *DifficultyModel) EnemyFireRateMultiplier(globalWave int) float64 {
	return 1 + m.balance.EnemyFireRatePerWave*float64(globalWave-1)
}

// EnemyBulletSpeedMultiplier 敌人弹速倍率 1 + k*(g-1)
func (m *DifficultyModel) EnemyBulletSpeedMultiplier(globalWave int) float64 {
	return 1 + m.balance.EnemyBulletSpeedPerWave*float64(globalWave-1)
}

// UpgradeCost 计算升级到指定等级的废料成本
// round(baseCost * growth^(level-1) * tierJump(level))
//
// tierJump 是阶梯函数，在 6/11/16/21 级形成明显的成本墙。
func (m *DifficultyModel) UpgradeCost(baseCost float64, level int) int {
	if level < 1 {
		level = 1
	}
	cost := baseCost * math.Pow(m.balance.UpgradeCostGrowth, float64(level-1)) * m.balance.TierJumpAt(level)
	return int(math.Round(cost))
}
