package app

import (
	"encoding/binary"
	"log"
	"math"

	"github.com/decker502/scrapline/pkg/game"
	"github.com/hajimehoshi/ebiten/v2/audio"
)

// sampleRate 音频采样率
const sampleRate = 48000

// Cue 界面音效
type Cue int

const (
	CuePurchase Cue = iota
	CueDenied
	CueWaveCleared
	CueBossDefeated
	CueHullBreached
)

// tone 音效中的一段单音
type tone struct {
	freq     float64 // 频率 (Hz)，0 表示静音
	duration float64 // 秒
}

// cueTones 每个音效的音符序列
var cueTones = map[Cue][]tone{
	CuePurchase:     {{880, 0.06}, {1320, 0.08}},
	CueDenied:       {{220, 0.12}},
	CueWaveCleared:  {{660, 0.07}, {0, 0.02}, {990, 0.1}},
	CueBossDefeated: {{523, 0.1}, {659, 0.1}, {784, 0.1}, {1047, 0.2}},
	CueHullBreached: {{330, 0.15}, {196, 0.3}},
}

// AudioManager 音效管理器
// 音效在启动时合成为 PCM 并缓存，音量与开关从 SettingsManager 读取
type AudioManager struct {
	context  *audio.Context
	settings *game.SettingsManager
	players  map[Cue]*audio.Player
}

// NewAudioManager 创建音效管理器并预合成所有音效
//
// 参数：
//   - settings: 设置管理器（可为 nil，此时使用默认设置）
func NewAudioManager(settings *game.SettingsManager) *AudioManager {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(sampleRate)
	}

	am := &AudioManager{
		context:  ctx,
		settings: settings,
		players:  make(map[Cue]*audio.Player, len(cueTones)),
	}
	for cue, tones := range cueTones {
		am.players[cue] = ctx.NewPlayerFromBytes(synthesize(tones, ctx.SampleRate()))
	}
	log.Printf("[AudioManager] Synthesized %d cues at %d Hz", len(am.players), ctx.SampleRate())
	return am
}

// Play 播放音效，nil 管理器静默忽略
//
// 返回：
//   - bool: 是否实际播放（音效关闭或音量为 0 时返回 false）
func (am *AudioManager) Play(cue Cue) bool {
	if am == nil {
		return false
	}
	settings := game.DefaultSettings()
	if am.settings != nil {
		settings = am.settings.GetSettings()
	}
	if !settings.SoundEnabled || settings.Volume <= 0 {
		return false
	}

	player, ok := am.players[cue]
	if !ok {
		log.Printf("[AudioManager] Warning: Unknown cue %d", cue)
		return false
	}

	player.SetVolume(settings.Volume)
	if err := player.Rewind(); err != nil {
		log.Printf("[AudioManager] Warning: Failed to rewind cue %d: %v", cue, err)
	}
	player.Play()
	return true
}

// synthesize 把音符序列合成为 16 位小端立体声 PCM
// 每个音符使用正弦波并带指数衰减包络，避免爆音
func synthesize(tones []tone, rate int) []byte {
	total := 0
	for _, t := range tones {
		total += int(t.duration * float64(rate))
	}

	buf := make([]byte, 0, total*4)
	for _, t := range tones {
		n := int(t.duration * float64(rate))
		for i := 0; i < n; i++ {
			var v float64
			if t.freq > 0 {
				phase := 2 * math.Pi * t.freq * float64(i) / float64(rate)
				envelope := math.Exp(-4 * float64(i) / float64(n))
				v = 0.3 * math.Sin(phase) * envelope
			}
			s := uint16(int16(v * math.MaxInt16))
			buf = binary.LittleEndian.AppendUint16(buf, s)
			buf = binary.LittleEndian.AppendUint16(buf, s)
		}
	}
	return buf
}
