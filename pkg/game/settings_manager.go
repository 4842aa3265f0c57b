package game

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
)

// GameSettings 全局设置，与存档分开保存
type GameSettings struct {
	SoundEnabled  bool    `json:"soundEnabled"`
	Volume        float64 `json:"volume"` // 0.0 ~ 1.0
	ReducedMotion bool    `json:"reducedMotion"`
	UIScale       float64 `json:"uiScale"` // 0.5 ~ 2.0
}

// UI 缩放范围
const (
	minUIScale = 0.5
	maxUIScale = 2.0
)

// DefaultSettings 返回默认设置
func DefaultSettings() GameSettings {
	return GameSettings{
		SoundEnabled:  true,
		Volume:        0.7,
		ReducedMotion: false,
		UIScale:       1.0,
	}
}

// SettingsPatch GameSettings 的部分更新，nil 字段不修改
type SettingsPatch struct {
	SoundEnabled  *bool
	Volume        *float64
	ReducedMotion *bool
	UIScale       *float64
}

// SettingsManager 设置管理器
// 负责设置的加载、保存和内存管理
type SettingsManager struct {
	mu       sync.Mutex
	storage  Storage
	settings GameSettings
}

// NewSettingsManager 创建设置管理器并加载已保存的设置
//
// 参数：
//   - storage: 持久化存储，与 SaveStore 共用，使用独立的键
func NewSettingsManager(storage Storage) *SettingsManager {
	sm := &SettingsManager{
		storage:  storage,
		settings: DefaultSettings(),
	}

	if err := sm.Load(); err != nil {
		// 加载失败不是致命错误，使用默认设置
		log.Printf("[SettingsManager] Warning: Failed to load settings: %v (using defaults)", err)
	}

	return sm
}

// Load 从存储加载设置
//
// 已保存的字段浅合并到默认值之上，缺失的字段保留默认值。
// 记录不存在时使用默认设置并返回 nil。
//
// 返回：
//   - error: 读取或反序列化失败时返回错误（此时内存中为默认设置）
func (sm *SettingsManager) Load() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.settings = DefaultSettings()

	if !sm.storage.Exists(settingsKey) {
		return nil
	}

	data, err := sm.storage.Load(settingsKey)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	loaded.Volume = clampVolume(loaded.Volume)
	loaded.UIScale = clampUIScale(loaded.UIScale)
	sm.settings = loaded
	log.Printf("[SettingsManager] Settings loaded successfully")
	return nil
}

// Save 保存当前设置
func (sm *SettingsManager) Save() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.saveLocked()
}

func (sm *SettingsManager) saveLocked() error {
	data, err := json.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := sm.storage.Save(settingsKey, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetSettings 返回当前设置的副本
func (sm *SettingsManager) GetSettings() GameSettings {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.settings
}

// SaveSettings 合并部分更新并立即保存
//
// 保存失败只记录日志，内存中的设置仍然生效。
func (sm *SettingsManager) SaveSettings(patch SettingsPatch) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if patch.SoundEnabled != nil {
		sm.settings.SoundEnabled = *patch.SoundEnabled
	}
	if patch.Volume != nil {
		sm.settings.Volume = clampVolume(*patch.Volume)
	}
	if patch.ReducedMotion != nil {
		sm.settings.ReducedMotion = *patch.ReducedMotion
	}
	if patch.UIScale != nil {
		sm.settings.UIScale = clampUIScale(*patch.UIScale)
	}

	if err := sm.saveLocked(); err != nil {
		log.Printf("[SettingsManager] Warning: %v", err)
	}
}

// ToggleSound 切换音效开关并立即保存
//
// 返回：
//   - GameSettings: 切换后的设置
func (sm *SettingsManager) ToggleSound() GameSettings {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.settings.SoundEnabled = !sm.settings.SoundEnabled
	if err := sm.saveLocked(); err != nil {
		log.Printf("[SettingsManager] Warning: %v", err)
	}
	return sm.settings
}

// AdjustVolume 按增量调整音量并立即保存，结果限制在 0.0 ~ 1.0
//
// 返回：
//   - GameSettings: 调整后的设置
func (sm *SettingsManager) AdjustVolume(delta float64) GameSettings {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	// 四舍五入到 0.01，避免反复加减 0.1 累积浮点误差
	volume := math.Round((sm.settings.Volume+delta)*100) / 100
	sm.settings.Volume = clampVolume(volume)
	if err := sm.saveLocked(); err != nil {
		log.Printf("[SettingsManager] Warning: %v", err)
	}
	return sm.settings
}

// SetVolume 设置音量，限制在 0.0 ~ 1.0
// 仅修改内存，需调用 Save() 持久化
func (sm *SettingsManager) SetVolume(volume float64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.settings.Volume = clampVolume(volume)
}

// SetSoundEnabled 设置音效开关
func (sm *SettingsManager) SetSoundEnabled(enabled bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.settings.SoundEnabled = enabled
}

// SetReducedMotion 设置减弱动态效果
func (sm *SettingsManager) SetReducedMotion(enabled bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.settings.ReducedMotion = enabled
}

// SetUIScale 设置 UI 缩放，限制在 0.5 ~ 2.0
func (sm *SettingsManager) SetUIScale(scale float64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.settings.UIScale = clampUIScale(scale)
}

// clampVolume 将音量值限制在 0.0 ~ 1.0 范围内
func clampVolume(volume float64) float64 {
	if volume < 0.0 || volume != volume {
		return 0.0
	}
	if volume > 1.0 {
		return 1.0
	}
	return volume
}

func clampUIScale(scale float64) float64 {
	if scale < minUIScale || scale != scale {
		return minUIScale
	}
	if scale > maxUIScale {
		return maxUIScale
	}
	return scale
}
