package game

import (
	"log"

	"github.com/decker502/scrapline/pkg/config"
	"github.com/decker502/scrapline/pkg/economy"
)

// EnemyStats 某一波中一种敌人的实际数值
type EnemyStats struct {
	ID           string
	HP           int
	Scrap        float64 // 已乘以玩家废料倍率
	Speed        float64
	Size         float64
	CanFire      bool
	FireInterval float64 // 已除以敌人射速倍率，CanFire 为 false 时为 0
}

// BossStats Boss 波的数值
type BossStats struct {
	HP    int // 已按玩家 DPS 限制到击杀时长窗口
	RawHP int // 未限制的公式血量
	Scrap float64
	Cores int
}

// WavePlan 当前波次的完整数值
type WavePlan struct {
	Sector     int
	Wave       int
	GlobalWave int
	IsBoss     bool

	SpawnCount int
	Enemies    []EnemyStats

	FireRateMultiplier    float64
	BulletSpeedMultiplier float64

	// Boss 仅在 IsBoss 为 true 时非 nil
	Boss *BossStats
}

// WavePlanner 为战斗循环提供当前波次的只读数值
//
// 以 SaveStore 的扇区/波次游标为输入，组合 DifficultyModel 的公式
// 与 UpgradeResolver 的玩家属性。
type WavePlanner struct {
	catalog  *config.EconomyCatalog
	model    *economy.DifficultyModel
	store    *SaveStore
	resolver *UpgradeResolver
}

// NewWavePlanner 创建波次规划器
func NewWavePlanner(catalog *config.EconomyCatalog, model *economy.DifficultyModel, store *SaveStore, resolver *UpgradeResolver) *WavePlanner {
	return &WavePlanner{
		catalog:  catalog,
		model:    model,
		store:    store,
		resolver: resolver,
	}
}

// Plan 计算当前游标所在波次的数值
func (p *WavePlanner) Plan() WavePlan {
	sector, wave := p.store.Cursor()
	return p.PlanAt(sector, wave)
}

// PlanAt 计算指定扇区与波次的数值
//
// wave == wavesPerSector+1 时为 Boss 波：SpawnCount 为 0，Boss 非 nil。
func (p *WavePlanner) PlanAt(sector, wave int) WavePlan {
	g := p.model.GlobalWave(sector, wave)
	balance := p.model.Balance()
	salvage := p.resolver.SalvageMultiplier()

	plan := WavePlan{
		Sector:                sector,
		Wave:                  wave,
		GlobalWave:            g,
		IsBoss:                wave > balance.WavesPerSector,
		FireRateMultiplier:    p.model.EnemyFireRateMultiplier(g),
		BulletSpeedMultiplier: p.model.EnemyBulletSpeedMultiplier(g),
	}

	for _, id := range p.catalog.SectorEnemyUnlocks(sector) {
		stats, err := p.enemyStats(id, sector, g, salvage, plan.FireRateMultiplier)
		if err != nil {
			log.Printf("[WavePlanner] Warning: %v", err)
			continue
		}
		plan.Enemies = append(plan.Enemies, stats)
	}

	if plan.IsBoss {
		rawHP := p.model.BossHP(sector, g)
		plan.Boss = &BossStats{
			HP:    p.model.ClampBossHP(rawHP, sector, p.resolver.EstimatedDPS()),
			RawHP: rawHP,
			Scrap: p.model.BossScrap(g) * salvage,
			Cores: p.model.BossCores(sector),
		}
	} else {
		plan.SpawnCount = p.model.SpawnCount(g)
	}

	return plan
}

func (p *WavePlanner) enemyStats(id string, sector, g int, salvage, fireRateMult float64) (EnemyStats, error) {
	def, err := p.catalog.EnemyDefinition(id)
	if err != nil {
		return EnemyStats{}, err
	}
	hp, err := p.model.EnemyHP(id, sector, g)
	if err != nil {
		return EnemyStats{}, err
	}
	scrap, err := p.model.ScrapDrop(id, g)
	if err != nil {
		return EnemyStats{}, err
	}

	stats := EnemyStats{
		ID:      id,
		HP:      hp,
		Scrap:   scrap * salvage,
		Speed:   def.Speed,
		Size:    def.Size,
		CanFire: def.CanFire,
	}
	if def.CanFire && fireRateMult > 0 {
		stats.FireInterval = def.FireInterval / fireRateMult
	}
	return stats, nil
}

// EnemyByID 在计划中查找敌人数值
func (w WavePlan) EnemyByID(id string) (EnemyStats, bool) {
	for _, e := range w.Enemies {
		if e.ID == id {
			return e, true
		}
	}
	return EnemyStats{}, false
}
