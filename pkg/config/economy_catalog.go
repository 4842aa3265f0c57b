package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/decker502/scrapline/pkg/embedded"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownEnemy 敌人ID不存在于目录中
	ErrUnknownEnemy = errors.New("unknown enemy type")
	// ErrUnknownUpgrade 升级ID不存在于目录中
	ErrUnknownUpgrade = errors.New("unknown upgrade")
	// ErrPrerequisiteCycle 升级前置关系存在环
	ErrPrerequisiteCycle = errors.New("upgrade prerequisite cycle")
)

// 升级效果叠加方式
const (
	EffectMultiply = "multiply" // base * effect^level
	EffectAdd      = "add"      // base + effect*level
)

// 可被升级影响的玩家属性
const (
	StatDamage            = "damage"
	StatFireRate          = "fireRate"
	StatBulletSpeed       = "bulletSpeed"
	StatCritChance        = "critChance"
	StatCritMultiplier    = "critMultiplier"
	StatMaxHP             = "maxHP"
	StatSalvageMultiplier = "salvageMultiplier"
	StatPassiveIncome     = "passiveIncome"
)

var knownStats = map[string]bool{
	StatDamage:            true,
	StatFireRate:          true,
	StatBulletSpeed:       true,
	StatCritChance:        true,
	StatCritMultiplier:    true,
	StatMaxHP:             true,
	StatSalvageMultiplier: true,
	StatPassiveIncome:     true,
}

// EnemyTypeDefinition 敌人原型定义（只读）
type EnemyTypeDefinition struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	BaseHP       float64 `yaml:"baseHP"`       // 基础血量
	BaseScrap    float64 `yaml:"baseScrap"`    // 基础废料掉落
	Speed        float64 `yaml:"speed"`        // 基础移动速度
	Size         float64 `yaml:"size"`         // 碰撞半径
	CanFire      bool    `yaml:"canFire"`      // 是否会开火
	FireInterval float64 `yaml:"fireInterval"` // 开火间隔（秒），CanFire 为 false 时忽略
	UnlockSector int     `yaml:"unlockSector"` // 从哪个扇区开始出现
}

// UpgradeDefinition 升级定义（只读）
//
// IsUnlock 为 true 表示一次性解锁，此时 MaxLevel 必须为 1。
// SectorRequired 为 0 表示无扇区限制（扇区 0 总是已到达）。
type UpgradeDefinition struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Description    string  `yaml:"description"`
	Category       string  `yaml:"category"`
	BaseCost       float64 `yaml:"baseCost"`
	MaxLevel       int     `yaml:"maxLevel"`
	IsUnlock       bool    `yaml:"isUnlock"`
	CoresCost      int     `yaml:"coresCost"`
	SectorRequired int     `yaml:"sectorRequired"`
	Prerequisite   string  `yaml:"prerequisite"`
	Stat           string  `yaml:"stat"`       // 影响的玩家属性，解锁类升级可为空
	EffectMode     string  `yaml:"effectMode"` // multiply | add
	Effect         float64 `yaml:"effect"`     // 每级效果
}

// WeaponMod 武器模组定义
type WeaponMod struct {
	ID                 string  `yaml:"id"`
	Name               string  `yaml:"name"`
	DamageMultiplier   float64 `yaml:"damageMultiplier"`
	FireRateMultiplier float64 `yaml:"fireRateMultiplier"`
	Projectiles        int     `yaml:"projectiles"`
	Pierce             int     `yaml:"pierce"`
	UnlockUpgrade      string  `yaml:"unlockUpgrade"` // 为空表示默认可用
}

// BehaviorScript 自动行为脚本定义
type BehaviorScript struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	UnlockUpgrade string `yaml:"unlockUpgrade"`
}

// TargetMode 索敌模式定义
type TargetMode struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	UnlockUpgrade string `yaml:"unlockUpgrade"`
}

// PlayerBaseStats 玩家基础属性
type PlayerBaseStats struct {
	Damage            float64 `yaml:"damage"`
	FireRate          float64 `yaml:"fireRate"` // 每秒发射次数
	BulletSpeed       float64 `yaml:"bulletSpeed"`
	CritChance        float64 `yaml:"critChance"`
	CritMultiplier    float64 `yaml:"critMultiplier"`
	MaxHP             float64 `yaml:"maxHP"`
	SalvageMultiplier float64 `yaml:"salvageMultiplier"`
	PassiveIncome     float64 `yaml:"passiveIncome"` // 每秒被动废料
}

// Base 返回指定属性的基础值
func (p PlayerBaseStats) Base(stat string) float64 {
	switch stat {
	case StatDamage:
		return p.Damage
	case StatFireRate:
		return p.FireRate
	case StatBulletSpeed:
		return p.BulletSpeed
	case StatCritChance:
		return p.CritChance
	case StatCritMultiplier:
		return p.CritMultiplier
	case StatMaxHP:
		return p.MaxHP
	case StatSalvageMultiplier:
		return p.SalvageMultiplier
	case StatPassiveIncome:
		return p.PassiveIncome
	}
	return 0
}

// economyFile 配置文件结构
type economyFile struct {
	Balance         BalanceConfig         `yaml:"balance"`
	Player          PlayerBaseStats       `yaml:"player"`
	Enemies         []EnemyTypeDefinition `yaml:"enemies"`
	Upgrades        []UpgradeDefinition   `yaml:"upgrades"`
	WeaponMods      []WeaponMod           `yaml:"weaponMods"`
	BehaviorScripts []BehaviorScript      `yaml:"behaviorScripts"`
	TargetModes     []TargetMode          `yaml:"targetModes"`
}

// EconomyCatalog 经济目录
//
// 构建后不再修改，并发读取无需同步。
// 构建时验证所有引用并确保升级前置关系是有向无环图。
type EconomyCatalog struct {
	Balance BalanceConfig
	Player  PlayerBaseStats

	enemies         []EnemyTypeDefinition
	upgrades        []UpgradeDefinition
	weaponMods      []WeaponMod
	behaviorScripts []BehaviorScript
	targetModes     []TargetMode

	enemyIndex   map[string]int
	upgradeIndex map[string]int
	modIndex     map[string]int
	scriptIndex  map[string]int
	targetIndex  map[string]int

	// prerequisiteOrder 按拓扑序排列的升级ID（前置在前）
	prerequisiteOrder []string
}

// LoadEconomyCatalog 加载经济目录配置
//
// embedded 包已初始化时从嵌入资源读取，否则从文件系统读取。
//
// 参数：
//   - path: 配置文件路径（如 "data/economy.yaml"）
//
// 返回：
//   - *EconomyCatalog: 验证通过的目录
//   - error: 读取、解析或验证失败
func LoadEconomyCatalog(path string) (*EconomyCatalog, error) {
	var (
		data []byte
		err  error
	)
	if embedded.IsInitialized() && embedded.Exists(path) {
		data, err = embedded.ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read economy catalog %s: %w", path, err)
	}

	catalog, err := ParseEconomyCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid economy catalog in %s: %w", path, err)
	}
	return catalog, nil
}

// ParseEconomyCatalog 解析并验证 YAML 格式的经济目录
func ParseEconomyCatalog(data []byte) (*EconomyCatalog, error) {
	var file economyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse economy YAML: %w", err)
	}

	applyBalanceDefaults(&file.Balance)
	applyPlayerDefaults(&file.Player)
	applyCatalogDefaults(&file)

	if err := validateBalance(&file.Balance); err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}

	c := &EconomyCatalog{
		Balance:         file.Balance,
		Player:          file.Player,
		enemies:         file.Enemies,
		upgrades:        file.Upgrades,
		weaponMods:      file.WeaponMods,
		behaviorScripts: file.BehaviorScripts,
		targetModes:     file.TargetModes,
	}

	if err := c.buildIndexes(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	order, err := topologicalUpgradeOrder(c.upgrades, c.upgradeIndex)
	if err != nil {
		return nil, err
	}
	c.prerequisiteOrder = order

	return c, nil
}

func applyPlayerDefaults(p *PlayerBaseStats) {
	if p.CritMultiplier == 0 {
		p.CritMultiplier = 1
	}
	if p.SalvageMultiplier == 0 {
		p.SalvageMultiplier = 1
	}
}

func applyCatalogDefaults(file *economyFile) {
	for i := range file.Upgrades {
		u := &file.Upgrades[i]
		if u.IsUnlock && u.MaxLevel == 0 {
			u.MaxLevel = 1
		}
		if u.Stat != "" && u.EffectMode == "" {
			u.EffectMode = EffectMultiply
		}
	}
	for i := range file.WeaponMods {
		m := &file.WeaponMods[i]
		if m.DamageMultiplier == 0 {
			m.DamageMultiplier = 1
		}
		if m.FireRateMultiplier == 0 {
			m.FireRateMultiplier = 1
		}
		if m.Projectiles == 0 {
			m.Projectiles = 1
		}
	}
}

func (c *EconomyCatalog) buildIndexes() error {
	c.enemyIndex = make(map[string]int, len(c.enemies))
	for i, e := range c.enemies {
		if e.ID == "" {
			return fmt.Errorf("enemies[%d]: id is required", i)
		}
		if _, dup := c.enemyIndex[e.ID]; dup {
			return fmt.Errorf("duplicate enemy id %q", e.ID)
		}
		c.enemyIndex[e.ID] = i
	}

	c.upgradeIndex = make(map[string]int, len(c.upgrades))
	for i, u := range c.upgrades {
		if u.ID == "" {
			return fmt.Errorf("upgrades[%d]: id is required", i)
		}
		if _, dup := c.upgradeIndex[u.ID]; dup {
			return fmt.Errorf("duplicate upgrade id %q", u.ID)
		}
		c.upgradeIndex[u.ID] = i
	}

	c.modIndex = make(map[string]int, len(c.weaponMods))
	for i, m := range c.weaponMods {
		if _, dup := c.modIndex[m.ID]; dup || m.ID == "" {
			return fmt.Errorf("weaponMods[%d]: missing or duplicate id %q", i, m.ID)
		}
		c.modIndex[m.ID] = i
	}

	c.scriptIndex = make(map[string]int, len(c.behaviorScripts))
	for i, s := range c.behaviorScripts {
		if _, dup := c.scriptIndex[s.ID]; dup || s.ID == "" {
			return fmt.Errorf("behaviorScripts[%d]: missing or duplicate id %q", i, s.ID)
		}
		c.scriptIndex[s.ID] = i
	}

	c.targetIndex = make(map[string]int, len(c.targetModes))
	for i, t := range c.targetModes {
		if _, dup := c.targetIndex[t.ID]; dup || t.ID == "" {
			return fmt.Errorf("targetModes[%d]: missing or duplicate id %q", i, t.ID)
		}
		c.targetIndex[t.ID] = i
	}

	return nil
}

// validate 验证目录内容与交叉引用
func (c *EconomyCatalog) validate() error {
	if len(c.enemies) == 0 {
		return fmt.Errorf("at least one enemy type is required")
	}
	if _, ok := c.enemyIndex[c.Balance.BossBaseEnemy]; !ok {
		return fmt.Errorf("bossBaseEnemy %q: %w", c.Balance.BossBaseEnemy, ErrUnknownEnemy)
	}

	hasSectorZeroEnemy := false
	for _, e := range c.enemies {
		if e.BaseHP <= 0 {
			return fmt.Errorf("enemy %s: baseHP must be positive, got %v", e.ID, e.BaseHP)
		}
		if e.BaseScrap < 0 {
			return fmt.Errorf("enemy %s: baseScrap cannot be negative, got %v", e.ID, e.BaseScrap)
		}
		if e.CanFire && e.FireInterval <= 0 {
			return fmt.Errorf("enemy %s: fireInterval must be positive for firing enemies, got %v", e.ID, e.FireInterval)
		}
		if e.UnlockSector < 0 || e.UnlockSector >= c.Balance.SectorCount {
			return fmt.Errorf("enemy %s: unlockSector %d out of range [0, %d)", e.ID, e.UnlockSector, c.Balance.SectorCount)
		}
		if e.UnlockSector == 0 {
			hasSectorZeroEnemy = true
		}
	}
	if !hasSectorZeroEnemy {
		return fmt.Errorf("at least one enemy type must be available in sector 0")
	}

	for _, u := range c.upgrades {
		if u.MaxLevel < 1 {
			return fmt.Errorf("upgrade %s: maxLevel must be at least 1, got %d", u.ID, u.MaxLevel)
		}
		if u.IsUnlock && u.MaxLevel != 1 {
			return fmt.Errorf("upgrade %s: unlock upgrades must have maxLevel 1, got %d", u.ID, u.MaxLevel)
		}
		if u.BaseCost < 0 {
			return fmt.Errorf("upgrade %s: baseCost cannot be negative, got %v", u.ID, u.BaseCost)
		}
		if u.CoresCost < 0 {
			return fmt.Errorf("upgrade %s: coresCost cannot be negative, got %d", u.ID, u.CoresCost)
		}
		if u.SectorRequired < 0 || u.SectorRequired >= c.Balance.SectorCount {
			return fmt.Errorf("upgrade %s: sectorRequired %d out of range [0, %d)", u.ID, u.SectorRequired, c.Balance.SectorCount)
		}
		if u.Prerequisite != "" {
			if u.Prerequisite == u.ID {
				return fmt.Errorf("upgrade %s requires itself: %w", u.ID, ErrPrerequisiteCycle)
			}
			if _, ok := c.upgradeIndex[u.Prerequisite]; !ok {
				return fmt.Errorf("upgrade %s prerequisite %q: %w", u.ID, u.Prerequisite, ErrUnknownUpgrade)
			}
		}
		if u.Stat != "" {
			if !knownStats[u.Stat] {
				return fmt.Errorf("upgrade %s: unknown stat %q", u.ID, u.Stat)
			}
			if u.EffectMode != EffectMultiply && u.EffectMode != EffectAdd {
				return fmt.Errorf("upgrade %s: effectMode must be %q or %q, got %q", u.ID, EffectMultiply, EffectAdd, u.EffectMode)
			}
		}
	}

	if len(c.weaponMods) == 0 || len(c.behaviorScripts) == 0 || len(c.targetModes) == 0 {
		return fmt.Errorf("weaponMods, behaviorScripts and targetModes must each define at least one entry")
	}
	for _, m := range c.weaponMods {
		if err := c.checkUnlockRef("weapon mod "+m.ID, m.UnlockUpgrade); err != nil {
			return err
		}
	}
	for _, s := range c.behaviorScripts {
		if err := c.checkUnlockRef("behavior script "+s.ID, s.UnlockUpgrade); err != nil {
			return err
		}
	}
	for _, t := range c.targetModes {
		if err := c.checkUnlockRef("target mode "+t.ID, t.UnlockUpgrade); err != nil {
			return err
		}
	}
	// 默认选项（第一项）必须无需解锁
	if c.weaponMods[0].UnlockUpgrade != "" || c.behaviorScripts[0].UnlockUpgrade != "" || c.targetModes[0].UnlockUpgrade != "" {
		return fmt.Errorf("the first weapon mod, behavior script and target mode must not require an unlock")
	}

	return nil
}

func (c *EconomyCatalog) checkUnlockRef(owner, upgradeID string) error {
	if upgradeID == "" {
		return nil
	}
	if _, ok := c.upgradeIndex[upgradeID]; !ok {
		return fmt.Errorf("%s unlockUpgrade %q: %w", owner, upgradeID, ErrUnknownUpgrade)
	}
	return nil
}

// topologicalUpgradeOrder 对升级前置关系做拓扑排序，发现环时返回 ErrPrerequisiteCycle
//
// 每个升级最多一个前置，图退化为森林；使用三色 DFS 检测环。
func topologicalUpgradeOrder(upgrades []UpgradeDefinition, index map[string]int) ([]string, error) {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(upgrades))
	order := make([]string, 0, len(upgrades))

	var visit func(i int, path []string) error
	visit = func(i int, path []string) error {
		switch color[i] {
		case black:
			return nil
		case grey:
			return fmt.Errorf("%v -> %s: %w", path, upgrades[i].ID, ErrPrerequisiteCycle)
		}
		color[i] = grey
		if pre := upgrades[i].Prerequisite; pre != "" {
			if err := visit(index[pre], append(path, upgrades[i].ID)); err != nil {
				return err
			}
		}
		color[i] = black
		order = append(order, upgrades[i].ID)
		return nil
	}

	for i := range upgrades {
		if err := visit(i, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// EnemyDefinition 按ID查找敌人定义
func (c *EconomyCatalog) EnemyDefinition(id string) (*EnemyTypeDefinition, error) {
	i, ok := c.enemyIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnemy, id)
	}
	def := c.enemies[i]
	return &def, nil
}

// UpgradeDefinition 按ID查找升级定义
func (c *EconomyCatalog) UpgradeDefinition(id string) (*UpgradeDefinition, error) {
	i, ok := c.upgradeIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUpgrade, id)
	}
	def := c.upgrades[i]
	return &def, nil
}

// HasUpgrade 检查升级ID是否存在
func (c *EconomyCatalog) HasUpgrade(id string) bool {
	_, ok := c.upgradeIndex[id]
	return ok
}

// WeaponMod 按ID查找武器模组
func (c *EconomyCatalog) WeaponMod(id string) (*WeaponMod, bool) {
	i, ok := c.modIndex[id]
	if !ok {
		return nil, false
	}
	m := c.weaponMods[i]
	return &m, true
}

// BehaviorScript 按ID查找行为脚本
func (c *EconomyCatalog) BehaviorScript(id string) (*BehaviorScript, bool) {
	i, ok := c.scriptIndex[id]
	if !ok {
		return nil, false
	}
	s := c.behaviorScripts[i]
	return &s, true
}

// TargetMode 按ID查找索敌模式
func (c *EconomyCatalog) TargetMode(id string) (*TargetMode, bool) {
	i, ok := c.targetIndex[id]
	if !ok {
		return nil, false
	}
	t := c.targetModes[i]
	return &t, true
}

// DefaultWeaponMod 默认武器模组ID（目录第一项）
func (c *EconomyCatalog) DefaultWeaponMod() string { return c.weaponMods[0].ID }

// DefaultBehaviorScript 默认行为脚本ID（目录第一项）
func (c *EconomyCatalog) DefaultBehaviorScript() string { return c.behaviorScripts[0].ID }

// DefaultTargetMode 默认索敌模式ID（目录第一项）
func (c *EconomyCatalog) DefaultTargetMode() string { return c.targetModes[0].ID }

// SectorEnemyUnlocks 返回到指定扇区为止累计可出现的敌人ID（目录声明顺序）
func (c *EconomyCatalog) SectorEnemyUnlocks(sector int) []string {
	ids := make([]string, 0, len(c.enemies))
	for _, e := range c.enemies {
		if e.UnlockSector <= sector {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Enemies 返回所有敌人定义的副本
func (c *EconomyCatalog) Enemies() []EnemyTypeDefinition {
	out := make([]EnemyTypeDefinition, len(c.enemies))
	copy(out, c.enemies)
	return out
}

// Upgrades 返回所有升级定义的副本（声明顺序）
func (c *EconomyCatalog) Upgrades() []UpgradeDefinition {
	out := make([]UpgradeDefinition, len(c.upgrades))
	copy(out, c.upgrades)
	return out
}

// UpgradeIDs 返回所有升级ID（声明顺序）
func (c *EconomyCatalog) UpgradeIDs() []string {
	ids := make([]string, len(c.upgrades))
	for i, u := range c.upgrades {
		ids[i] = u.ID
	}
	return ids
}

// UpgradesByCategory 按分类分组升级定义，分类名按字母排序
func (c *EconomyCatalog) UpgradesByCategory() ([]string, map[string][]UpgradeDefinition) {
	groups := make(map[string][]UpgradeDefinition)
	for _, u := range c.upgrades {
		groups[u.Category] = append(groups[u.Category], u)
	}
	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories, groups
}

// PrerequisiteOrder 返回拓扑序的升级ID，任何升级都排在其前置之后
func (c *EconomyCatalog) PrerequisiteOrder() []string {
	out := make([]string, len(c.prerequisiteOrder))
	copy(out, c.prerequisiteOrder)
	return out
}

// PrerequisiteChain 返回升级的完整前置链（最近的前置在前）
func (c *EconomyCatalog) PrerequisiteChain(id string) ([]string, error) {
	if _, ok := c.upgradeIndex[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUpgrade, id)
	}
	var chain []string
	for cur := c.upgrades[c.upgradeIndex[id]].Prerequisite; cur != ""; cur = c.upgrades[c.upgradeIndex[cur]].Prerequisite {
		chain = append(chain, cur)
	}
	return chain, nil
}

// WeaponMods 返回所有武器模组的副本
func (c *EconomyCatalog) WeaponMods() []WeaponMod {
	out := make([]WeaponMod, len(c.weaponMods))
	copy(out, c.weaponMods)
	return out
}

// BehaviorScripts 返回所有行为脚本的副本
func (c *EconomyCatalog) BehaviorScripts() []BehaviorScript {
	out := make([]BehaviorScript, len(c.behaviorScripts))
	copy(out, c.behaviorScripts)
	return out
}

// TargetModes 返回所有索敌模式的副本
func (c *EconomyCatalog) TargetModes() []TargetMode {
	out := make([]TargetMode, len(c.targetModes))
	copy(out, c.targetModes)
	return out
}
