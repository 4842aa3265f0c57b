package app

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/decker502/scrapline/pkg/game"
)

// 自动战斗参数
const (
	// enemyContactDPS 每个交战中的敌人每秒对玩家造成的伤害（乘以敌人射速倍率）
	enemyContactDPS = 0.6
	// frontSize 同时与玩家交战的普通敌人数
	frontSize = 5
	// bossThreat Boss 相当于几个普通敌人的威胁
	bossThreat = 2
	// waveClearHeal 清空波次后回复的生命比例
	waveClearHeal = 0.25
)

// foe 队列中的一个敌人
type foe struct {
	stats  game.EnemyStats
	hp     float64
	isBoss bool
}

// Skirmish 自动战斗模拟
//
// 把 WavePlan 展开为敌人队列，按玩家估算 DPS 逐个击杀，
// 并把击杀、清波、Boss、阵亡事件交给 Session。
type Skirmish struct {
	session *game.Session
	rng     *rand.Rand

	plan  game.WavePlan
	queue []foe

	// lastEvent HUD 显示的最近事件
	lastEvent string
	// onCue 事件音效回调，可为 nil
	onCue func(Cue)
}

// NewSkirmish 创建自动战斗并生成当前波次
func NewSkirmish(session *game.Session, seed int64) *Skirmish {
	s := &Skirmish{
		session: session,
		rng:     rand.New(rand.NewSource(seed)),
	}
	s.startWave()
	return s
}

// startWave 按当前游标生成敌人队列
func (s *Skirmish) startWave() {
	s.plan = s.session.Planner.Plan()
	s.queue = s.queue[:0]

	if s.plan.IsBoss {
		s.queue = append(s.queue, foe{
			stats:  game.EnemyStats{ID: "boss", HP: s.plan.Boss.HP},
			hp:     float64(s.plan.Boss.HP),
			isBoss: true,
		})
		return
	}

	if len(s.plan.Enemies) == 0 {
		return
	}
	for i := 0; i < s.plan.SpawnCount; i++ {
		stats := s.plan.Enemies[s.rng.Intn(len(s.plan.Enemies))]
		s.queue = append(s.queue, foe{stats: stats, hp: float64(stats.HP)})
	}
}

// SetCueHandler 设置事件音效回调
func (s *Skirmish) SetCueHandler(fn func(Cue)) {
	s.onCue = fn
}

func (s *Skirmish) cue(c Cue) {
	if s.onCue != nil {
		s.onCue(c)
	}
}

// Restart 放弃当前波次并按最新游标重新生成（导入/重置存档后调用）
func (s *Skirmish) Restart() {
	s.startWave()
}

// Update 推进一帧
//
// 参数：
//   - dt: 帧时长（秒）
func (s *Skirmish) Update(dt float64) {
	if !(dt > 0) {
		return
	}
	s.session.Tick(dt)

	if len(s.queue) == 0 {
		s.startWave()
		return
	}

	s.dealDamage(s.session.Resolver.EstimatedDPS() * dt)
	s.takeDamage(dt)
}

func (s *Skirmish) dealDamage(damage float64) {
	target := &s.queue[0]
	s.session.OnDamageDealt(math.Min(damage, target.hp))
	target.hp -= damage
	if target.hp > 0 {
		return
	}

	if target.isBoss {
		if boss := s.session.OnBossDefeated(); boss != nil {
			s.lastEvent = fmt.Sprintf("Boss down! +%.0f scrap, +%d cores", boss.Scrap, boss.Cores)
			s.cue(CueBossDefeated)
		}
		s.startWave()
		return
	}

	s.session.OnEnemyKilled(target.stats)
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.session.OnWaveCleared()
		s.heal(waveClearHeal)
		s.lastEvent = fmt.Sprintf("Wave %d cleared", s.plan.Wave)
		s.cue(CueWaveCleared)
		s.startWave()
	}
}

func (s *Skirmish) takeDamage(dt float64) {
	threat := len(s.queue)
	if threat > frontSize {
		threat = frontSize
	}
	if len(s.queue) > 0 && s.queue[0].isBoss {
		threat = bossThreat
	}

	incoming := enemyContactDPS * float64(threat) * s.plan.FireRateMultiplier * dt
	state := s.session.Store.Current()
	hp := state.PlayerHP - incoming
	if hp > 0 {
		s.session.Store.SyncPlayerHP(hp, state.PlayerMaxHP)
		return
	}

	s.session.OnPlayerDeath()
	s.lastEvent = fmt.Sprintf("Hull breached, retreating to sector %d start", state.CurrentSector+1)
	s.cue(CueHullBreached)
	s.startWave()
}

func (s *Skirmish) heal(fraction float64) {
	state := s.session.Store.Current()
	s.session.Store.SyncPlayerHP(state.PlayerHP+state.PlayerMaxHP*fraction, state.PlayerMaxHP)
}

// Remaining 当前波次剩余敌人数
func (s *Skirmish) Remaining() int {
	return len(s.queue)
}

// Plan 当前波次的数值
func (s *Skirmish) Plan() game.WavePlan {
	return s.plan
}

// LastEvent 最近事件描述
func (s *Skirmish) LastEvent() string {
	return s.lastEvent
}
