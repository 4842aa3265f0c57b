package config

import "fmt"

// TierJump 升级成本阶梯
// 等级 ≤ MaxLevel 时使用 Multiplier
type TierJump struct {
	MaxLevel   int     `yaml:"maxLevel"`   // 阶梯上限等级（含）
	Multiplier float64 `yaml:"multiplier"` // 阶梯倍率
}

// TimeToKillWindow Boss 击杀时长窗口（秒）
// 窗口为 [MinBase + MinPerSector*sector, MaxBase + MaxPerSector*sector]
type TimeToKillWindow struct {
	MinBase      float64 `yaml:"minBase"`
	MinPerSector float64 `yaml:"minPerSector"`
	MaxBase      float64 `yaml:"maxBase"`
	MaxPerSector float64 `yaml:"maxPerSector"`
}

// Bounds 返回指定扇区的击杀时长窗口
func (w TimeToKillWindow) Bounds(sector int) (lo, hi float64) {
	s := float64(sector)
	return w.MinBase + w.MinPerSector*s, w.MaxBase + w.MaxPerSector*s
}

// CoresReward Boss 核心奖励：Base + PerSector*sector
type CoresReward struct {
	Base      int `yaml:"base"`
	PerSector int `yaml:"perSector"`
}

// BalanceConfig 难度与经济曲线常量
//
// 所有公式常量集中在这里，DifficultyModel 与 SaveStore 只读取，不修改。
type BalanceConfig struct {
	DifficultyBase          float64          `yaml:"difficultyBase"`          // 难度倍率底数 D(g) = base^(g-1)
	ScrapExponent           float64          `yaml:"scrapExponent"`           // 普通敌人废料对难度倍率的指数
	BossScrapBase           float64          `yaml:"bossScrapBase"`           // Boss 基础废料
	BossScrapExponent       float64          `yaml:"bossScrapExponent"`       // Boss 废料对难度倍率的指数
	BossHPFactor            float64          `yaml:"bossHPFactor"`            // Boss 血量 = factor * 基准敌人血量
	BossBaseEnemy           string           `yaml:"bossBaseEnemy"`           // Boss 血量基准敌人ID
	SpawnBase               int              `yaml:"spawnBase"`               // 第1波生成数量
	SpawnStep               int              `yaml:"spawnStep"`               // 每隔多少全局波次 +1
	SpawnCap                int              `yaml:"spawnCap"`                // 生成数量上限
	EnemyFireRatePerWave    float64          `yaml:"enemyFireRatePerWave"`    // 敌人射速每波增幅
	EnemyBulletSpeedPerWave float64          `yaml:"enemyBulletSpeedPerWave"` // 敌人弹速每波增幅
	SectorHPBoost           []float64        `yaml:"sectorHPBoost"`           // 扇区血量加成表，越界按 1.0
	UpgradeCostGrowth       float64          `yaml:"upgradeCostGrowth"`       // 升级成本每级增长
	TierJumps               []TierJump       `yaml:"tierJumps"`               // 成本阶梯（按 MaxLevel 升序）
	TierJumpOverflow        float64          `yaml:"tierJumpOverflow"`        // 超出最后一个阶梯时的倍率
	WavesPerSector          int              `yaml:"wavesPerSector"`          // 每个扇区的普通波次数
	SectorCount             int              `yaml:"sectorCount"`             // 扇区总数
	MaxOfflineHours         float64          `yaml:"maxOfflineHours"`         // 离线收益时长上限（小时）
	OfflineMinSeconds       float64          `yaml:"offlineMinSeconds"`       // 离线收益最短时长（秒）
	BossTimeToKill          TimeToKillWindow `yaml:"bossTimeToKill"`          // Boss 击杀时长窗口
	CoresPerBoss            CoresReward      `yaml:"coresPerBoss"`            // Boss 核心奖励
	AutosaveIntervalSeconds float64          `yaml:"autosaveIntervalSeconds"` // 自动存档间隔（秒）
}

// DefaultBalance 返回默认平衡常量
func DefaultBalance() BalanceConfig {
	return BalanceConfig{
		DifficultyBase:          1.13,
		ScrapExponent:           0.75,
		BossScrapBase:           120,
		BossScrapExponent:       0.65,
		BossHPFactor:            35,
		BossBaseEnemy:           "grunt",
		SpawnBase:               10,
		SpawnStep:               2,
		SpawnCap:                45,
		EnemyFireRatePerWave:    0.012,
		EnemyBulletSpeedPerWave: 0.006,
		SectorHPBoost:           []float64{1.00, 1.15, 1.35, 1.60, 1.90, 2.30},
		UpgradeCostGrowth:       1.18,
		TierJumps: []TierJump{
			{MaxLevel: 5, Multiplier: 1.0},
			{MaxLevel: 10, Multiplier: 1.6},
			{MaxLevel: 15, Multiplier: 2.7},
			{MaxLevel: 20, Multiplier: 4.3},
		},
		TierJumpOverflow:  6.0,
		WavesPerSector:    12,
		SectorCount:       6,
		MaxOfflineHours:   8,
		OfflineMinSeconds: 60,
		BossTimeToKill: TimeToKillWindow{
			MinBase:      18,
			MinPerSector: 2,
			MaxBase:      40,
			MaxPerSector: 3,
		},
		CoresPerBoss:            CoresReward{Base: 1, PerSector: 1},
		AutosaveIntervalSeconds: 30,
	}
}

// applyBalanceDefaults 为缺失（零值）的平衡常量填充默认值
// 旧配置文件缺少新字段时仍可加载
func applyBalanceDefaults(b *BalanceConfig) {
	d := DefaultBalance()

	if b.DifficultyBase == 0 {
		b.DifficultyBase = d.DifficultyBase
	}
	if b.ScrapExponent == 0 {
		b.ScrapExponent = d.ScrapExponent
	}
	if b.BossScrapBase == 0 {
		b.BossScrapBase = d.BossScrapBase
	}
	if b.BossScrapExponent == 0 {
		b.BossScrapExponent = d.BossScrapExponent
	}
	if b.BossHPFactor == 0 {
		b.BossHPFactor = d.BossHPFactor
	}
	if b.BossBaseEnemy == "" {
		b.BossBaseEnemy = d.BossBaseEnemy
	}
	if b.SpawnBase == 0 {
		b.SpawnBase = d.SpawnBase
	}
	if b.SpawnStep == 0 {
		b.SpawnStep = d.SpawnStep
	}
	if b.SpawnCap == 0 {
		b.SpawnCap = d.SpawnCap
	}
	if b.EnemyFireRatePerWave == 0 {
		b.EnemyFireRatePerWave = d.EnemyFireRatePerWave
	}
	if b.EnemyBulletSpeedPerWave == 0 {
		b.EnemyBulletSpeedPerWave = d.EnemyBulletSpeedPerWave
	}
	if len(b.SectorHPBoost) == 0 {
		b.SectorHPBoost = d.SectorHPBoost
	}
	if b.UpgradeCostGrowth == 0 {
		b.UpgradeCostGrowth = d.UpgradeCostGrowth
	}
	if len(b.TierJumps) == 0 {
		b.TierJumps = d.TierJumps
	}
	if b.TierJumpOverflow == 0 {
		b.TierJumpOverflow = d.TierJumpOverflow
	}
	if b.WavesPerSector == 0 {
		b.WavesPerSector = d.WavesPerSector
	}
	if b.SectorCount == 0 {
		b.SectorCount = d.SectorCount
	}
	if b.MaxOfflineHours == 0 {
		b.MaxOfflineHours = d.MaxOfflineHours
	}
	if b.OfflineMinSeconds == 0 {
		b.OfflineMinSeconds = d.OfflineMinSeconds
	}
	if b.BossTimeToKill == (TimeToKillWindow{}) {
		b.BossTimeToKill = d.BossTimeToKill
	}
	if b.CoresPerBoss == (CoresReward{}) {
		b.CoresPerBoss = d.CoresPerBoss
	}
	if b.AutosaveIntervalSeconds == 0 {
		b.AutosaveIntervalSeconds = d.AutosaveIntervalSeconds
	}
}

// validateBalance 验证平衡常量的合法性
func validateBalance(b *BalanceConfig) error {
	if b.DifficultyBase <= 1 {
		return fmt.Errorf("difficultyBase must be greater than 1, got %v", b.DifficultyBase)
	}
	if b.SpawnStep < 1 {
		return fmt.Errorf("spawnStep must be at least 1, got %d", b.SpawnStep)
	}
	if b.SpawnCap < b.SpawnBase {
		return fmt.Errorf("spawnCap (%d) must be >= spawnBase (%d)", b.SpawnCap, b.SpawnBase)
	}
	if b.WavesPerSector < 1 {
		return fmt.Errorf("wavesPerSector must be at least 1, got %d", b.WavesPerSector)
	}
	if b.SectorCount < 1 {
		return fmt.Errorf("sectorCount must be at least 1, got %d", b.SectorCount)
	}
	if b.UpgradeCostGrowth < 1 {
		return fmt.Errorf("upgradeCostGrowth must be >= 1, got %v", b.UpgradeCostGrowth)
	}
	for i, boost := range b.SectorHPBoost {
		if boost <= 0 {
			return fmt.Errorf("sectorHPBoost[%d] must be positive, got %v", i, boost)
		}
	}

	prev := 0
	prevMult := 0.0
	for i, tj := range b.TierJumps {
		if tj.MaxLevel <= prev {
			return fmt.Errorf("tierJumps[%d]: maxLevel must be ascending, got %d after %d", i, tj.MaxLevel, prev)
		}
		if tj.Multiplier < prevMult {
			return fmt.Errorf("tierJumps[%d]: multiplier must not decrease, got %v after %v", i, tj.Multiplier, prevMult)
		}
		prev = tj.MaxLevel
		prevMult = tj.Multiplier
	}
	if b.TierJumpOverflow < prevMult {
		return fmt.Errorf("tierJumpOverflow (%v) must be >= last tier multiplier (%v)", b.TierJumpOverflow, prevMult)
	}

	if b.MaxOfflineHours < 0 {
		return fmt.Errorf("maxOfflineHours cannot be negative, got %v", b.MaxOfflineHours)
	}
	minTTK, maxTTK := b.BossTimeToKill.Bounds(0)
	if minTTK <= 0 || maxTTK < minTTK {
		return fmt.Errorf("bossTimeToKill window invalid: [%v, %v]", minTTK, maxTTK)
	}
	if b.AutosaveIntervalSeconds <= 0 {
		return fmt.Errorf("autosaveIntervalSeconds must be positive, got %v", b.AutosaveIntervalSeconds)
	}

	return nil
}

// SectorHPBoostAt 返回扇区血量加成，越界扇区返回 1.0
func (b *BalanceConfig) SectorHPBoostAt(sector int) float64 {
	if sector < 0 || sector >= len(b.SectorHPBoost) {
		return 1.0
	}
	return b.SectorHPBoost[sector]
}

// TierJumpAt 返回指定等级的成本阶梯倍率
func (b *BalanceConfig) TierJumpAt(level int) float64 {
	for _, tj := range b.TierJumps {
		if level <= tj.MaxLevel {
			return tj.Multiplier
		}
	}
	return b.TierJumpOverflow
}

// BossPendingWave 返回表示"Boss 待战"的波次值（wavesPerSector+1）
func (b *BalanceConfig) BossPendingWave() int {
	return b.WavesPerSector + 1
}

// CoresForBoss 返回击败指定扇区 Boss 获得的核心数
func (b *BalanceConfig) CoresForBoss(sector int) int {
	return b.CoresPerBoss.Base + b.CoresPerBoss.PerSector*sector
}
