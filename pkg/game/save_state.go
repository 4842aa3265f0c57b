package game

import (
	"math"
	"time"

	"github.com/decker502/scrapline/pkg/config"
)

// SaveVersion 存档结构版本
const SaveVersion = 1

// GameStats 累计统计，只增不减
type GameStats struct {
	TotalKills       int64   `json:"totalKills"`
	TotalScrapEarned float64 `json:"totalScrapEarned"`
	TotalDamageDealt float64 `json:"totalDamageDealt"`
	PlayTime         float64 `json:"playTime"` // 秒
	BossesDefeated   int     `json:"bossesDefeated"`
}

// SaveState 经济状态存档
//
// 由 SaveStore 独占持有；对外只提供 Clone 出来的快照。
type SaveState struct {
	Version int `json:"version"`

	// 货币
	Scrap float64 `json:"scrap"`
	Cores int     `json:"cores"`

	// 进度游标，CurrentWave == wavesPerSector+1 表示 Boss 待战
	CurrentSector int `json:"currentSector"`
	CurrentWave   int `json:"currentWave"`
	HighestSector int `json:"highestSector"`

	// 玩家生命快照（由战斗循环同步）
	PlayerHP    float64 `json:"playerHP"`
	PlayerMaxHP float64 `json:"playerMaxHP"`

	// 升级等级，缺失的键视为 0 级
	Upgrades map[string]int `json:"upgrades"`

	ActiveWeaponMod      string `json:"activeWeaponMod"`
	ActiveBehaviorScript string `json:"activeBehaviorScript"`
	ActiveTargetMode     string `json:"activeTargetMode"`

	Stats GameStats `json:"stats"`

	LastSaveTime   int64   `json:"lastSaveTime"` // Unix 毫秒
	ScrapPerSecond float64 `json:"scrapPerSecond"`
}

// DefaultSaveState 返回首次运行的默认存档
//
// 默认升级表包含目录中的全部升级ID（0 级），
// 这样旧存档加载时新增的升级也会出现在表中。
func DefaultSaveState(catalog *config.EconomyCatalog, now time.Time) SaveState {
	upgrades := make(map[string]int)
	for _, id := range catalog.UpgradeIDs() {
		upgrades[id] = 0
	}

	return SaveState{
		Version:              SaveVersion,
		CurrentSector:        0,
		CurrentWave:          1,
		HighestSector:        0,
		PlayerHP:             catalog.Player.MaxHP,
		PlayerMaxHP:          catalog.Player.MaxHP,
		Upgrades:             upgrades,
		ActiveWeaponMod:      catalog.DefaultWeaponMod(),
		ActiveBehaviorScript: catalog.DefaultBehaviorScript(),
		ActiveTargetMode:     catalog.DefaultTargetMode(),
		LastSaveTime:         now.UnixMilli(),
	}
}

// Clone 深拷贝
func (s SaveState) Clone() SaveState {
	out := s
	out.Upgrades = make(map[string]int, len(s.Upgrades))
	for k, v := range s.Upgrades {
		out.Upgrades[k] = v
	}
	return out
}

// Level 返回升级等级，缺失视为 0
func (s SaveState) Level(id string) int {
	return s.Upgrades[id]
}

// IsBossPending 是否处于 Boss 待战状态
func (s SaveState) IsBossPending(wavesPerSector int) bool {
	return s.CurrentWave > wavesPerSector
}

// StatsPatch 统计字段的部分更新
type StatsPatch struct {
	TotalKills       *int64   `json:"totalKills,omitempty"`
	TotalScrapEarned *float64 `json:"totalScrapEarned,omitempty"`
	TotalDamageDealt *float64 `json:"totalDamageDealt,omitempty"`
	PlayTime         *float64 `json:"playTime,omitempty"`
	BossesDefeated   *int     `json:"bossesDefeated,omitempty"`
}

// SavePatch SaveState 的部分更新
//
// nil 字段表示不修改。Upgrades 与 Stats 按键深度合并，其余字段浅合并。
// 持久化的存档 JSON 直接解码为 SavePatch，因此旧存档缺失的字段自动保留默认值。
type SavePatch struct {
	Version              *int           `json:"version,omitempty"`
	Scrap                *float64       `json:"scrap,omitempty"`
	Cores                *int           `json:"cores,omitempty"`
	CurrentSector        *int           `json:"currentSector,omitempty"`
	CurrentWave          *int           `json:"currentWave,omitempty"`
	HighestSector        *int           `json:"highestSector,omitempty"`
	PlayerHP             *float64       `json:"playerHP,omitempty"`
	PlayerMaxHP          *float64       `json:"playerMaxHP,omitempty"`
	Upgrades             map[string]int `json:"upgrades,omitempty"`
	ActiveWeaponMod      *string        `json:"activeWeaponMod,omitempty"`
	ActiveBehaviorScript *string        `json:"activeBehaviorScript,omitempty"`
	ActiveTargetMode     *string        `json:"activeTargetMode,omitempty"`
	Stats                *StatsPatch    `json:"stats,omitempty"`
	LastSaveTime         *int64         `json:"lastSaveTime,omitempty"`
	ScrapPerSecond       *float64       `json:"scrapPerSecond,omitempty"`
}

// mergePatch 将 patch 合并到 state
func mergePatch(state *SaveState, p *SavePatch) {
	if p == nil {
		return
	}

	if p.Version != nil {
		state.Version = *p.Version
	}
	if p.Scrap != nil {
		state.Scrap = *p.Scrap
	}
	if p.Cores != nil {
		state.Cores = *p.Cores
	}
	if p.CurrentSector != nil {
		state.CurrentSector = *p.CurrentSector
	}
	if p.CurrentWave != nil {
		state.CurrentWave = *p.CurrentWave
	}
	if p.HighestSector != nil {
		state.HighestSector = *p.HighestSector
	}
	if p.PlayerHP != nil {
		state.PlayerHP = *p.PlayerHP
	}
	if p.PlayerMaxHP != nil {
		state.PlayerMaxHP = *p.PlayerMaxHP
	}
	if p.ActiveWeaponMod != nil {
		state.ActiveWeaponMod = *p.ActiveWeaponMod
	}
	if p.ActiveBehaviorScript != nil {
		state.ActiveBehaviorScript = *p.ActiveBehaviorScript
	}
	if p.ActiveTargetMode != nil {
		state.ActiveTargetMode = *p.ActiveTargetMode
	}
	if p.LastSaveTime != nil {
		state.LastSaveTime = *p.LastSaveTime
	}
	if p.ScrapPerSecond != nil {
		state.ScrapPerSecond = *p.ScrapPerSecond
	}

	// 升级表按键合并，不删除已有键
	if state.Upgrades == nil {
		state.Upgrades = make(map[string]int, len(p.Upgrades))
	}
	for id, level := range p.Upgrades {
		state.Upgrades[id] = level
	}

	if p.Stats != nil {
		mergeStats(&state.Stats, p.Stats)
	}
}

func mergeStats(stats *GameStats, p *StatsPatch) {
	if p.TotalKills != nil {
		stats.TotalKills = *p.TotalKills
	}
	if p.TotalScrapEarned != nil {
		stats.TotalScrapEarned = *p.TotalScrapEarned
	}
	if p.TotalDamageDealt != nil {
		stats.TotalDamageDealt = *p.TotalDamageDealt
	}
	if p.PlayTime != nil {
		stats.PlayTime = *p.PlayTime
	}
	if p.BossesDefeated != nil {
		stats.BossesDefeated = *p.BossesDefeated
	}
}

// sanitize 将合并后的状态修正到合法范围
//
// 保证 scrap/cores 非负、游标在范围内、升级等级不超过上限、选择项存在于目录中。
func sanitize(state *SaveState, catalog *config.EconomyCatalog) {
	b := catalog.Balance

	state.Scrap = nonNegative(state.Scrap)
	if state.Cores < 0 {
		state.Cores = 0
	}

	state.CurrentSector = clampInt(state.CurrentSector, 0, b.SectorCount-1)
	state.CurrentWave = clampInt(state.CurrentWave, 1, b.BossPendingWave())
	state.HighestSector = clampInt(state.HighestSector, state.CurrentSector, b.SectorCount-1)

	state.PlayerMaxHP = nonNegative(state.PlayerMaxHP)
	if state.PlayerMaxHP == 0 {
		state.PlayerMaxHP = catalog.Player.MaxHP
	}
	state.PlayerHP = math.Min(nonNegative(state.PlayerHP), state.PlayerMaxHP)

	for id, level := range state.Upgrades {
		if level < 0 {
			level = 0
		}
		if def, err := catalog.UpgradeDefinition(id); err == nil && level > def.MaxLevel {
			level = def.MaxLevel
		}
		state.Upgrades[id] = level
	}

	if _, ok := catalog.WeaponMod(state.ActiveWeaponMod); !ok {
		state.ActiveWeaponMod = catalog.DefaultWeaponMod()
	}
	if _, ok := catalog.BehaviorScript(state.ActiveBehaviorScript); !ok {
		state.ActiveBehaviorScript = catalog.DefaultBehaviorScript()
	}
	if _, ok := catalog.TargetMode(state.ActiveTargetMode); !ok {
		state.ActiveTargetMode = catalog.DefaultTargetMode()
	}

	if state.Stats.TotalKills < 0 {
		state.Stats.TotalKills = 0
	}
	if state.Stats.BossesDefeated < 0 {
		state.Stats.BossesDefeated = 0
	}
	state.Stats.TotalScrapEarned = nonNegative(state.Stats.TotalScrapEarned)
	state.Stats.TotalDamageDealt = nonNegative(state.Stats.TotalDamageDealt)
	state.Stats.PlayTime = nonNegative(state.Stats.PlayTime)
	state.ScrapPerSecond = nonNegative(state.ScrapPerSecond)
}

// nonNegative 负数与 NaN 归零
func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
