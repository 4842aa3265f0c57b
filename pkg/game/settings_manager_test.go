package game

import (
	"os"
	"testing"

	"github.com/quasilyte/gdata/v2"
)

// TestDefaultSettings 测试 DefaultSettings() 返回正确的默认值
func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	if !settings.SoundEnabled {
		t.Error("SoundEnabled: got false, want true")
	}
	if settings.Volume != 0.7 {
		t.Errorf("Volume: got %v, want 0.7", settings.Volume)
	}
	if settings.ReducedMotion {
		t.Error("ReducedMotion: got true, want false")
	}
	if settings.UIScale != 1.0 {
		t.Errorf("UIScale: got %v, want 1.0", settings.UIScale)
	}
}

// TestSettingsSaveAndLoad 测试设置的保存与加载
func TestSettingsSaveAndLoad(t *testing.T) {
	storage := NewMemoryStorage()

	sm := NewSettingsManager(storage)
	sm.SetVolume(0.3)
	sm.SetSoundEnabled(false)
	sm.SetReducedMotion(true)
	sm.SetUIScale(1.5)
	if err := sm.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded := NewSettingsManager(storage).GetSettings()
	want := GameSettings{SoundEnabled: false, Volume: 0.3, ReducedMotion: true, UIScale: 1.5}
	if loaded != want {
		t.Errorf("loaded settings: got %+v, want %+v", loaded, want)
	}
}

// TestSettingsMergeOverDefaults 测试旧记录缺失的字段取默认值
func TestSettingsMergeOverDefaults(t *testing.T) {
	storage := NewMemoryStorage()
	if err := storage.Save(settingsKey, []byte(`{"volume": 0.2}`)); err != nil {
		t.Fatalf("storage.Save: %v", err)
	}

	settings := NewSettingsManager(storage).GetSettings()
	if settings.Volume != 0.2 {
		t.Errorf("Volume: got %v, want 0.2", settings.Volume)
	}
	if !settings.SoundEnabled || settings.UIScale != 1.0 {
		t.Errorf("missing fields should use defaults, got %+v", settings)
	}
}

// TestSettingsCorruptRecord 测试损坏的设置记录回退到默认值
func TestSettingsCorruptRecord(t *testing.T) {
	storage := NewMemoryStorage()
	if err := storage.Save(settingsKey, []byte("volume: loud")); err != nil {
		t.Fatalf("storage.Save: %v", err)
	}

	sm := NewSettingsManager(storage)
	if sm.GetSettings() != DefaultSettings() {
		t.Errorf("corrupt record should load defaults, got %+v", sm.GetSettings())
	}
	if err := sm.Load(); err == nil {
		t.Error("Load() should report the unmarshal error")
	}
}

// TestSettingsIndependentOfSave 测试设置与存档使用不同的键
func TestSettingsIndependentOfSave(t *testing.T) {
	storage := NewMemoryStorage()
	catalog := loadTestCatalog(t)

	store := NewSaveStore(storage, catalog)
	sm := NewSettingsManager(storage)
	sm.SaveSettings(SettingsPatch{Volume: ptr(0.1)})
	store.Reset()

	if got := NewSettingsManager(storage).GetSettings().Volume; got != 0.1 {
		t.Errorf("Reset must not touch settings, volume=%v", got)
	}
	if !store.HasSave() {
		t.Error("Reset should write the save record")
	}
}

// TestSaveSettingsPatch 测试部分更新
func TestSaveSettingsPatch(t *testing.T) {
	storage := NewMemoryStorage()
	sm := NewSettingsManager(storage)

	sm.SaveSettings(SettingsPatch{ReducedMotion: ptr(true), UIScale: ptr(9.0)})

	settings := sm.GetSettings()
	if !settings.ReducedMotion {
		t.Error("ReducedMotion should be true")
	}
	if settings.UIScale != 2.0 {
		t.Errorf("UIScale should clamp to 2.0, got %v", settings.UIScale)
	}
	if settings.Volume != 0.7 || !settings.SoundEnabled {
		t.Errorf("untouched fields changed: %+v", settings)
	}
	if !storage.Exists(settingsKey) {
		t.Error("SaveSettings should persist immediately")
	}
}

// TestSoundControlsPersist 测试音效开关与音量调整会写入存储并在重新加载后保留
func TestSoundControlsPersist(t *testing.T) {
	storage := NewMemoryStorage()
	sm := NewSettingsManager(storage)

	if got := sm.ToggleSound(); got.SoundEnabled {
		t.Error("ToggleSound should disable sound")
	}
	for i := 0; i < 5; i++ {
		sm.AdjustVolume(-0.1)
	}
	if !storage.Exists(settingsKey) {
		t.Fatal("sound controls should write the settings record")
	}

	reloaded := NewSettingsManager(storage).GetSettings()
	if reloaded.SoundEnabled {
		t.Error("reloaded SoundEnabled: got true, want false")
	}
	if reloaded.Volume != 0.2 {
		t.Errorf("reloaded Volume: got %v, want 0.2", reloaded.Volume)
	}
}

// TestAdjustVolumeClamp 测试音量调整的边界
func TestAdjustVolumeClamp(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		times int
		want  float64
	}{
		{"降到 0", -0.1, 10, 0},
		{"升到 1", 0.1, 10, 1},
		{"单步增加", 0.1, 1, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSettingsManager(NewMemoryStorage())
			var got GameSettings
			for i := 0; i < tt.times; i++ {
				got = sm.AdjustVolume(tt.delta)
			}
			if got.Volume != tt.want {
				t.Errorf("Volume: got %v, want %v", got.Volume, tt.want)
			}
		})
	}
}

// TestSaveSettingsStorageFailure 测试保存失败不影响内存中的设置
func TestSaveSettingsStorageFailure(t *testing.T) {
	sm := NewSettingsManager(&failingStorage{})

	sm.SaveSettings(SettingsPatch{SoundEnabled: ptr(false)})
	if sm.GetSettings().SoundEnabled {
		t.Error("in-memory setting should apply even when saving fails")
	}
	if err := sm.Save(); err == nil {
		t.Error("Save() should return the storage error")
	}
}

// TestSetVolumeClamp 测试 SetVolume 范围校验
func TestSetVolumeClamp(t *testing.T) {
	sm := NewSettingsManager(NewMemoryStorage())

	tests := []struct {
		input    float64
		expected float64
	}{
		{0.5, 0.5},
		{0.0, 0.0},
		{1.0, 1.0},
		{-0.5, 0.0},
		{1.5, 1.0},
		{-100, 0.0},
		{100, 1.0},
	}

	for _, tt := range tests {
		sm.SetVolume(tt.input)
		if sm.GetSettings().Volume != tt.expected {
			t.Errorf("SetVolume(%v): got %v, want %v",
				tt.input, sm.GetSettings().Volume, tt.expected)
		}
	}
}

// TestSetUIScaleClamp 测试 SetUIScale 范围校验
func TestSetUIScaleClamp(t *testing.T) {
	sm := NewSettingsManager(NewMemoryStorage())

	tests := []struct {
		input    float64
		expected float64
	}{
		{1.25, 1.25},
		{0.1, 0.5},
		{3, 2.0},
	}

	for _, tt := range tests {
		sm.SetUIScale(tt.input)
		if sm.GetSettings().UIScale != tt.expected {
			t.Errorf("SetUIScale(%v): got %v, want %v",
				tt.input, sm.GetSettings().UIScale, tt.expected)
		}
	}
}

// TestSettingsWithGdata 测试 gdata 存储下的设置持久化
func TestSettingsWithGdata(t *testing.T) {
	tempDir := t.TempDir()
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", originalHome)

	gdataManager, err := gdata.Open(gdata.Config{
		AppName: "scrapline_settings_test",
	})
	if err != nil {
		t.Fatalf("Failed to create gdata manager: %v", err)
	}

	storage := NewGdataStorage(gdataManager, storageObject)
	NewSettingsManager(storage).SaveSettings(SettingsPatch{Volume: ptr(0.4)})

	if got := NewSettingsManager(storage).GetSettings().Volume; got != 0.4 {
		t.Errorf("Volume after reload: got %v, want 0.4", got)
	}
}
