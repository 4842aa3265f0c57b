package game

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/decker502/scrapline/pkg/config"
)

// ErrInvalidImport 导入字符串无法解码或未通过验证
var ErrInvalidImport = errors.New("invalid save import")

// SaveStore 存档管理器
//
// 职责：
//   - 持有唯一的 SaveState 并负责它的全部状态转换
//   - 加载、保存、重置、导出、导入
//   - 货币、升级、统计、进度游标的读写
//   - 会话开始时计算离线收益
//
// 架构说明：
//   - 显式创建的实例，由调用方传递给协作者，没有全局变量
//   - 对外只返回快照，所有修改都经过本类型的方法
//   - 方法内部加锁，先检查后修改的操作（扣费、购买、导入）都是原子的
type SaveStore struct {
	mu      sync.Mutex
	storage Storage
	catalog *config.EconomyCatalog
	balance config.BalanceConfig
	now     func() time.Time
	state   SaveState
}

// SaveStoreOption 配置 SaveStore
type SaveStoreOption func(*SaveStore)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) SaveStoreOption {
	return func(s *SaveStore) {
		s.now = now
	}
}

// NewSaveStore 创建存档管理器
//
// 创建后内存中是默认状态，需要调用 Load() 读取持久化存档。
//
// 参数：
//   - storage: 持久化存储
//   - catalog: 经济目录，用于默认值与合法性修正
func NewSaveStore(storage Storage, catalog *config.EconomyCatalog, opts ...SaveStoreOption) *SaveStore {
	s := &SaveStore{
		storage: storage,
		catalog: catalog,
		balance: catalog.Balance,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = DefaultSaveState(catalog, s.now())
	return s
}

// HasSave 检查是否存在持久化存档
func (s *SaveStore) HasSave() bool {
	return s.storage.Exists(saveKey)
}

// Load 读取持久化存档并替换内存状态
//
// 存档不存在或损坏时静默回退到默认状态（只记录日志）。
// 存在时在默认状态上合并：普通字段浅合并，upgrades 与 stats 按键深度合并。
//
// 返回：
//   - SaveState: 加载后的状态快照
func (s *SaveStore) Load() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.loadLocked()
	return s.state.Clone()
}

func (s *SaveStore) loadLocked() SaveState {
	defaults := DefaultSaveState(s.catalog, s.now())

	if !s.storage.Exists(saveKey) {
		log.Printf("[SaveStore] No save found, starting fresh")
		return defaults
	}

	data, err := s.storage.Load(saveKey)
	if err != nil {
		log.Printf("[SaveStore] Warning: Failed to read save: %v (using defaults)", err)
		return defaults
	}

	var patch SavePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		log.Printf("[SaveStore] Warning: Corrupt save record: %v (using defaults)", err)
		return defaults
	}

	state := defaults
	mergePatch(&state, &patch)
	sanitize(&state, s.catalog)
	return state
}

// Save 合并部分更新、记录保存时间并写入持久化存储
//
// I/O 失败只记录日志，不返回错误：内存状态仍然正确，下次自动保存会重试。
//
// 参数：
//   - patch: 部分更新，可为 nil
func (s *SaveStore) Save(patch *SavePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyLocked(patch)
	s.persistLocked()
}

// Update 合并部分更新，仅修改内存
func (s *SaveStore) Update(patch SavePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyLocked(&patch)
}

// applyLocked 合并部分更新
// highestSector 只增不减，补丁中更小的值被忽略
func (s *SaveStore) applyLocked(patch *SavePatch) {
	if patch == nil {
		return
	}
	highest := s.state.HighestSector
	mergePatch(&s.state, patch)
	sanitize(&s.state, s.catalog)
	if s.state.HighestSector < highest {
		s.state.HighestSector = highest
	}
}

// persistLocked 记录保存时间并写入完整快照
func (s *SaveStore) persistLocked() {
	s.state.LastSaveTime = s.now().UnixMilli()

	data, err := json.Marshal(s.state)
	if err != nil {
		log.Printf("[SaveStore] Warning: Failed to marshal save: %v", err)
		return
	}
	if err := s.storage.Save(saveKey, data); err != nil {
		log.Printf("[SaveStore] Warning: Failed to write save: %v (in-memory state kept)", err)
	}
}

// Current 返回当前状态快照
func (s *SaveStore) Current() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Reset 用默认状态替换当前状态并立即写入存储
//
// 破坏性操作，调用方（UI）负责二次确认。
func (s *SaveStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = DefaultSaveState(s.catalog, s.now())
	s.persistLocked()
	log.Printf("[SaveStore] Save reset to defaults")
}

// ExportSave 将当前状态导出为 base64(JSON) 文本
func (s *SaveStore) ExportSave() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal save: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ImportSave 从 ExportSave 生成的文本导入存档
//
// 任何解码、解析或验证失败都返回 ErrInvalidImport，且不修改现有状态。
// 成功时在默认状态上合并（与 Load 相同规则）并立即持久化。
func (s *SaveStore) ImportSave(text string) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("%w: invalid base64: %v", ErrInvalidImport, err)
	}

	if err := validateImport(data); err != nil {
		return err
	}

	var patch SavePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := DefaultSaveState(s.catalog, s.now())
	mergePatch(&state, &patch)
	sanitize(&state, s.catalog)

	s.state = state
	s.persistLocked()
	log.Printf("[SaveStore] Save imported: sector=%d wave=%d scrap=%.0f", state.CurrentSector, state.CurrentWave, state.Scrap)
	return nil
}

// validateImport 最小结构验证：scrap 与 currentWave 必须是数字，scrap 不能为负
func validateImport(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidImport, err)
	}

	scrap, ok := fields["scrap"].(float64)
	if !ok {
		return fmt.Errorf("%w: scrap must be a number", ErrInvalidImport)
	}
	if scrap < 0 {
		return fmt.Errorf("%w: scrap cannot be negative", ErrInvalidImport)
	}
	if _, ok := fields["currentWave"].(float64); !ok {
		return fmt.Errorf("%w: currentWave must be a number", ErrInvalidImport)
	}
	return nil
}

// CalculateOfflineProgress 计算并发放离线收益
//
// elapsed = max(0, now - lastSaveTime)。离线不足 offlineMinSeconds 或
// 缓存的每秒收益 <= 0 时返回 0；否则 elapsed 上限为 maxOfflineHours，
// 收益 = scrapPerSecond * elapsed，计入 scrap 并立即持久化。
//
// 返回：
//   - float64: 发放的废料数量
func (s *SaveStore) CalculateOfflineProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := float64(s.now().UnixMilli()-s.state.LastSaveTime) / 1000
	// 系统时钟回拨时 lastSaveTime 可能在未来
	if elapsed < 0 {
		elapsed = 0
	}

	rate := s.state.ScrapPerSecond
	if elapsed < s.balance.OfflineMinSeconds || rate <= 0 {
		return 0
	}

	elapsed = math.Min(elapsed, s.balance.MaxOfflineHours*3600)
	earned := rate * elapsed

	s.addScrapLocked(earned)
	s.persistLocked()

	log.Printf("[SaveStore] Offline progress: %.0fs away, +%.1f scrap", elapsed, earned)
	return earned
}

// Scrap 当前废料
func (s *SaveStore) Scrap() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Scrap
}

// Cores 当前核心
func (s *SaveStore) Cores() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Cores
}

// AddScrap 增加废料，同时累计 totalScrapEarned
// 非正数与 NaN 被忽略
func (s *SaveStore) AddScrap(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addScrapLocked(amount)
}

func (s *SaveStore) addScrapLocked(amount float64) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return
	}
	s.state.Scrap += amount
	s.state.Stats.TotalScrapEarned += amount
}

// SpendScrap 扣除废料
// 余额不足或数量非法时返回 false，不做部分扣除
func (s *SaveStore) SpendScrap(amount float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 0 || math.IsNaN(amount) || amount > s.state.Scrap {
		return false
	}
	s.state.Scrap -= amount
	return true
}

// AddCores 增加核心，非正数被忽略
func (s *SaveStore) AddCores(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.state.Cores += n
	}
}

// SpendCores 扣除核心
// 余额不足或数量为负时返回 false
func (s *SaveStore) SpendCores(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 || n > s.state.Cores {
		return false
	}
	s.state.Cores -= n
	return true
}

// UpgradeLevel 返回升级等级，未购买为 0
func (s *SaveStore) UpgradeLevel(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Upgrades[id]
}

// HasUpgrade 等级 > 0
func (s *SaveStore) HasUpgrade(id string) bool {
	return s.UpgradeLevel(id) > 0
}

// AddUpgradeLevel 升级等级 +1
// 等级上限由调用方（UpgradeResolver）事先检查
func (s *SaveStore) AddUpgradeLevel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Upgrades[id]++
}

// ApplyPurchase 原子地扣除两种货币并提升升级等级
//
// 价格在锁内按当前等级计算，并发购买不会按过期的等级计价。
// 任一货币不足或等级已达上限时不做任何修改并返回 false。
//
// 参数：
//   - id: 升级ID
//   - maxLevel: 等级上限
//   - price: 由当前等级计算下一级的价格，在持锁期间调用，不能回调 SaveStore
func (s *SaveStore) ApplyPurchase(id string, maxLevel int, price func(level int) Cost) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	level := s.state.Upgrades[id]
	if level >= maxLevel {
		return false
	}
	cost := price(level)
	if cost.Scrap < 0 || cost.Cores < 0 || cost.Scrap > s.state.Scrap || cost.Cores > s.state.Cores {
		return false
	}

	s.state.Scrap -= cost.Scrap
	s.state.Cores -= cost.Cores
	s.state.Upgrades[id]++
	return true
}

// RecordKill 击杀数 +1
func (s *SaveStore) RecordKill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Stats.TotalKills++
}

// RecordDamage 累计造成的伤害
func (s *SaveStore) RecordDamage(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount > 0 && !math.IsInf(amount, 0) {
		s.state.Stats.TotalDamageDealt += amount
	}
}

// RecordBossDefeat 击败 Boss 数 +1
func (s *SaveStore) RecordBossDefeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Stats.BossesDefeated++
}

// AddPlayTime 累计游戏时长（秒）
func (s *SaveStore) AddPlayTime(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds > 0 && !math.IsInf(seconds, 0) {
		s.state.Stats.PlayTime += seconds
	}
}

// SetScrapPerSecond 缓存每秒收益，供下次会话计算离线收益
func (s *SaveStore) SetScrapPerSecond(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ScrapPerSecond = nonNegative(rate)
}

// SyncPlayerHP 同步玩家生命快照
func (s *SaveStore) SyncPlayerHP(hp, maxHP float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PlayerMaxHP = nonNegative(maxHP)
	s.state.PlayerHP = math.Min(nonNegative(hp), s.state.PlayerMaxHP)
}

// Cursor 返回当前扇区与扇区内波次
func (s *SaveStore) Cursor() (sector, wave int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentSector, s.state.CurrentWave
}

// GlobalWave 由当前游标计算全局波次
func (s *SaveStore) GlobalWave() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentSector*s.balance.WavesPerSector + s.state.CurrentWave
}

// HighestSector 历史最高扇区
func (s *SaveStore) HighestSector() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HighestSector
}

// IsBossPending 当前扇区的普通波次已全部完成
func (s *SaveStore) IsBossPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsBossPending(s.balance.WavesPerSector)
}

// CompleteWave 完成一个普通波次，游标前进一波
//
// 最后一个普通波次完成后 CurrentWave 变为 wavesPerSector+1（Boss 待战）。
// Boss 待战时调用无效并返回 false。
func (s *SaveStore) CompleteWave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsBossPending(s.balance.WavesPerSector) {
		return false
	}
	s.state.CurrentWave++
	return true
}

// DefeatBoss 击败扇区 Boss
//
// 发放奖励，游标进入下一扇区第 1 波，并更新 highestSector。
// 最后一个扇区的 Boss 被击败后停留在最后一个扇区。
// 不处于 Boss 待战状态时不做任何修改并返回 false。
//
// 参数：
//   - scrap: Boss 废料奖励
//   - cores: Boss 核心奖励
func (s *SaveStore) DefeatBoss(scrap float64, cores int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsBossPending(s.balance.WavesPerSector) {
		return false
	}

	s.addScrapLocked(scrap)
	if cores > 0 {
		s.state.Cores += cores
	}
	s.state.Stats.BossesDefeated++

	s.state.CurrentWave = 1
	if s.state.CurrentSector < s.balance.SectorCount-1 {
		s.state.CurrentSector++
	}
	if s.state.CurrentSector > s.state.HighestSector {
		s.state.HighestSector = s.state.CurrentSector
	}

	log.Printf("[SaveStore] Boss defeated: sector=%d highest=%d (+%.0f scrap, +%d cores)",
		s.state.CurrentSector, s.state.HighestSector, scrap, cores)
	return true
}

// RetreatToSectorStart 玩家阵亡后回到当前扇区第 1 波
// highestSector 与已获得的升级不受影响
func (s *SaveStore) RetreatToSectorStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentWave = 1
	s.state.PlayerHP = s.state.PlayerMaxHP
}
