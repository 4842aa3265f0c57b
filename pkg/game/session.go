package game

import (
	"log"

	"github.com/decker502/scrapline/pkg/config"
	"github.com/decker502/scrapline/pkg/economy"
)

// incomeWindowSeconds HUD 收入统计窗口
const incomeWindowSeconds = 10

// Session 一次游戏会话
//
// 持有经济核心的全部组件并把战斗循环的事件转换为 SaveStore 的状态转换：
//   - Start: 加载存档并发放离线收益
//   - Tick: 游戏时长、被动收入、自动存档
//   - OnEnemyKilled / OnWaveCleared / OnBossDefeated / OnPlayerDeath: 战斗事件
//
// 所有组件都是显式创建的实例，由 Session 传递给彼此。
type Session struct {
	Catalog  *config.EconomyCatalog
	Model    *economy.DifficultyModel
	Store    *SaveStore
	Resolver *UpgradeResolver
	Planner  *WavePlanner
	Settings *SettingsManager
	Income   *IncomeMeter

	autosaveTimer float64
	offlineEarned float64
}

// NewSession 创建会话并装配全部组件
//
// 参数：
//   - catalog: 已验证的经济目录
//   - storage: 存档与设置共用的持久化存储
//   - opts: 传递给 SaveStore 的选项
func NewSession(catalog *config.EconomyCatalog, storage Storage, opts ...SaveStoreOption) *Session {
	model := economy.NewDifficultyModel(catalog)
	store := NewSaveStore(storage, catalog, opts...)
	resolver := NewUpgradeResolver(catalog, model, store)

	return &Session{
		Catalog:  catalog,
		Model:    model,
		Store:    store,
		Resolver: resolver,
		Planner:  NewWavePlanner(catalog, model, store, resolver),
		Settings: NewSettingsManager(storage),
		Income:   NewIncomeMeter(incomeWindowSeconds),
	}
}

// Start 开始会话：加载存档并计算离线收益
//
// 返回：
//   - float64: 离线收益（没有时为 0）
func (s *Session) Start() float64 {
	if s.Store.HasSave() {
		log.Printf("[Session] Resuming saved game")
	}
	s.Store.Load()

	s.offlineEarned = s.Store.CalculateOfflineProgress()
	s.autosaveTimer = 0
	s.Income.Reset()
	return s.offlineEarned
}

// OfflineEarned 本次会话开始时发放的离线收益
func (s *Session) OfflineEarned() float64 {
	return s.offlineEarned
}

// Tick 推进一帧
//
// 参数：
//   - dt: 帧时长（秒）
func (s *Session) Tick(dt float64) {
	if !(dt > 0) {
		return
	}

	s.Store.AddPlayTime(dt)

	if passive := s.Resolver.PassiveIncome(); passive > 0 {
		earned := passive * dt
		s.Store.AddScrap(earned)
		s.Income.Record(earned)
	}
	s.Income.Advance(dt)

	s.autosaveTimer += dt
	if s.autosaveTimer >= s.Model.Balance().AutosaveIntervalSeconds {
		s.autosaveTimer = 0
		s.Persist()
	}
}

// Persist 缓存离线收益速率并保存
// 离线收益只按被动收入计算，击杀收入不计入
func (s *Session) Persist() {
	s.Store.SetScrapPerSecond(s.Resolver.PassiveIncome())
	s.Store.Save(nil)
}

// OnEnemyKilled 敌人被击杀
//
// 返回：
//   - float64: 获得的废料
func (s *Session) OnEnemyKilled(enemy EnemyStats) float64 {
	s.Store.RecordKill()
	s.Store.AddScrap(enemy.Scrap)
	s.Income.Record(enemy.Scrap)
	return enemy.Scrap
}

// OnDamageDealt 记录玩家造成的伤害
func (s *Session) OnDamageDealt(amount float64) {
	s.Store.RecordDamage(amount)
}

// OnWaveCleared 普通波次清空，游标前进并保存
func (s *Session) OnWaveCleared() bool {
	if !s.Store.CompleteWave() {
		return false
	}
	s.Persist()
	return true
}

// OnBossDefeated Boss 被击败，发放奖励、进入下一扇区并保存
//
// 返回：
//   - *BossStats: 本次 Boss 的数值与奖励，不处于 Boss 波时为 nil
func (s *Session) OnBossDefeated() *BossStats {
	plan := s.Planner.Plan()
	if plan.Boss == nil {
		return nil
	}
	if !s.Store.DefeatBoss(plan.Boss.Scrap, plan.Boss.Cores) {
		return nil
	}
	s.Income.Record(plan.Boss.Scrap)
	s.Persist()
	return plan.Boss
}

// OnPlayerDeath 玩家阵亡，回到扇区第 1 波并保存
func (s *Session) OnPlayerDeath() {
	s.Store.RetreatToSectorStart()
	s.Persist()
}

// Purchase 购买升级，成功后立即保存
func (s *Session) Purchase(id string) bool {
	if !s.Resolver.Purchase(id) {
		return false
	}
	s.Persist()
	return true
}

// ImportSave 导入存档文本，成功后重新开始收入统计与自动存档计时
//
// 失败时返回包装 ErrInvalidImport 的错误，会话状态不变。
func (s *Session) ImportSave(text string) error {
	if err := s.Store.ImportSave(text); err != nil {
		return err
	}
	s.restart()
	return nil
}

// ResetProgress 清空进度并保存默认存档，设置不受影响
func (s *Session) ResetProgress() {
	s.Store.Reset()
	s.restart()
}

func (s *Session) restart() {
	s.offlineEarned = 0
	s.autosaveTimer = 0
	s.Income.Reset()
}
