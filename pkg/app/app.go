// Package app 提供游戏应用的核心包装器
//
// 该包将游戏初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/decker502/scrapline/pkg/config"
	"github.com/decker502/scrapline/pkg/game"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// 逻辑屏幕尺寸
const (
	ScreenWidth  = 640
	ScreenHeight = 480
)

// catalogPath 经济目录路径
const catalogPath = "data/economy.yaml"

// resetConfirmSeconds 重置存档需要在此时间内再次按下 F9
const resetConfirmSeconds = 3.0

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// AppName gdata 应用名，决定存档目录
	AppName string
	// Seed 自动战斗的随机种子，0 表示使用当前时间
	Seed int64
	// TransferPath F6 导出与 F7 导入使用的文本文件
	TransferPath string
	// ImportPath 启动时导入的存档文本文件，为空表示不导入
	ImportPath string
}

// App 是游戏应用的核心包装器，实现 ebiten.Game 接口
type App struct {
	session  *game.Session
	skirmish *Skirmish
	audio    *AudioManager
	verbose  bool

	// 商店光标（升级目录下标）
	cursor   int
	upgrades []config.UpgradeDefinition

	// transferPath 导出/导入文件
	transferPath string
	// resetArmed 重置确认剩余时间（秒），0 表示未待确认
	resetArmed float64

	// message 底部提示
	message string
}

// NewApp 创建并初始化游戏应用
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入数据。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	catalog, err := config.LoadEconomyCatalog(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("经济目录加载失败: %w", err)
	}
	log.Printf("[Config] 加载经济目录: %d 种敌人, %d 项升级", len(catalog.Enemies()), len(catalog.Upgrades()))

	if cfg.AppName == "" {
		cfg.AppName = "scrapline"
	}
	if cfg.TransferPath == "" {
		cfg.TransferPath = "scrapline_save.txt"
	}
	storage := game.OpenStorage(cfg.AppName)

	session := game.NewSession(catalog, storage)
	offline := session.Start()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	a := &App{
		session:  session,
		skirmish: NewSkirmish(session, seed),
		audio:    NewAudioManager(session.Settings),
		verbose:  cfg.Verbose,
		upgrades: catalog.Upgrades(),

		transferPath: cfg.TransferPath,
	}
	a.skirmish.SetCueHandler(func(c Cue) { a.audio.Play(c) })
	if offline > 0 {
		a.message = fmt.Sprintf("Welcome back! Drones salvaged %.0f scrap while you were away", offline)
	}
	if cfg.ImportPath != "" {
		a.importSave(cfg.ImportPath)
	}

	log.Printf("[App] Session started at sector %d", session.Store.Current().CurrentSector+1)
	return a, nil
}

// Update 更新游戏逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	if ebiten.IsWindowBeingClosed() {
		a.session.Persist()
		log.Printf("[App] Saved on exit")
		return ebiten.Termination
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	deltaTime := 1.0 / float64(ebiten.TPS())
	a.tickResetConfirm(deltaTime)

	a.handleShopInput()
	a.handleLoadoutInput()
	a.handleSaveInput()
	a.handleSoundInput()

	a.skirmish.Update(deltaTime)
	return nil
}

func (a *App) handleShopInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		a.cursor = (a.cursor + 1) % len(a.upgrades)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		a.cursor = (a.cursor - 1 + len(a.upgrades)) % len(a.upgrades)
	}
	if !inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		return
	}

	def := a.upgrades[a.cursor]
	if avail := a.session.Resolver.IsAvailable(def.ID); !avail.Available {
		a.message = fmt.Sprintf("%s: %s", def.Name, avail.Reason)
		a.audio.Play(CueDenied)
		return
	}
	if !a.session.Purchase(def.ID) {
		a.message = fmt.Sprintf("%s: not enough scrap or cores", def.Name)
		a.audio.Play(CueDenied)
		return
	}
	a.audio.Play(CuePurchase)
	a.message = fmt.Sprintf("Purchased %s (level %d)", def.Name, a.session.Resolver.LevelOf(def.ID))
}

func (a *App) handleLoadoutInput() {
	catalog := a.session.Catalog
	resolver := a.session.Resolver
	state := a.session.Store.Current()

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		ids := make([]string, 0)
		for _, m := range catalog.WeaponMods() {
			ids = append(ids, m.ID)
		}
		a.cycle(ids, state.ActiveWeaponMod, resolver.SelectWeaponMod)
	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		ids := make([]string, 0)
		for _, s := range catalog.BehaviorScripts() {
			ids = append(ids, s.ID)
		}
		a.cycle(ids, state.ActiveBehaviorScript, resolver.SelectBehaviorScript)
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		ids := make([]string, 0)
		for _, t := range catalog.TargetModes() {
			ids = append(ids, t.ID)
		}
		a.cycle(ids, state.ActiveTargetMode, resolver.SelectTargetMode)
	}
}

// cycle 切换到下一个已解锁的选项
func (a *App) cycle(ids []string, current string, selectFn func(string) error) {
	start := 0
	for i, id := range ids {
		if id == current {
			start = i
		}
	}
	for step := 1; step <= len(ids); step++ {
		next := ids[(start+step)%len(ids)]
		err := selectFn(next)
		if err == nil {
			a.message = fmt.Sprintf("Selected %s", next)
			return
		}
		if !errors.Is(err, game.ErrSelectionLocked) {
			a.message = err.Error()
			return
		}
	}
}

func (a *App) handleSaveInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		a.session.Persist()
		a.message = "Game saved"
	case inpututil.IsKeyJustPressed(ebiten.KeyF6):
		a.exportSave()
	case inpututil.IsKeyJustPressed(ebiten.KeyF7):
		a.importSave(a.transferPath)
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		a.requestReset()
	}
}

// exportSave 导出存档文本到标准输出与传输文件
func (a *App) exportSave() {
	text, err := a.session.Store.ExportSave()
	if err != nil {
		a.message = fmt.Sprintf("Export failed: %v", err)
		return
	}
	fmt.Println(text)
	if err := os.WriteFile(a.transferPath, []byte(text+"\n"), 0o644); err != nil {
		log.Printf("[App] Warning: Failed to write %s: %v", a.transferPath, err)
		a.message = "Save exported to stdout"
		return
	}
	a.message = fmt.Sprintf("Save exported to %s", a.transferPath)
}

// importSave 从文件导入存档，成功后按新游标重新开始波次
// 导入被拒绝时保留当前进度并在 HUD 提示
func (a *App) importSave(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		a.message = fmt.Sprintf("Import failed: %v", err)
		a.audio.Play(CueDenied)
		return
	}

	if err := a.session.ImportSave(string(data)); err != nil {
		log.Printf("[App] Import rejected: %v", err)
		a.message = "Import rejected: not a valid save, progress unchanged"
		a.audio.Play(CueDenied)
		return
	}

	a.skirmish.Restart()
	a.resetArmed = 0
	a.message = fmt.Sprintf("Save imported from %s", path)
	a.audio.Play(CuePurchase)
}

// requestReset 第一次按下时进入确认状态，确认时间内再次按下才清空进度
func (a *App) requestReset() {
	if a.resetArmed <= 0 {
		a.resetArmed = resetConfirmSeconds
		a.message = "Press F9 again to wipe all progress"
		return
	}

	a.resetArmed = 0
	a.session.ResetProgress()
	a.skirmish.Restart()
	a.message = "Progress wiped"
	a.audio.Play(CueHullBreached)
}

// tickResetConfirm 推进重置确认倒计时
func (a *App) tickResetConfirm(dt float64) {
	if a.resetArmed <= 0 {
		return
	}
	a.resetArmed -= dt
	if a.resetArmed <= 0 {
		a.resetArmed = 0
		a.message = ""
	}
}

// handleSoundInput S 开关音效，-/= 调整音量
func (a *App) handleSoundInput() {
	settings := a.session.Settings

	var updated game.GameSettings
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		updated = settings.ToggleSound()
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		updated = settings.AdjustVolume(-0.1)
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		updated = settings.AdjustVolume(0.1)
	default:
		return
	}

	a.message = fmt.Sprintf("Sound %s, volume %.0f%%", onOff(updated.SoundEnabled), updated.Volume*100)
	a.audio.Play(CuePurchase)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Draw 绘制游戏画面
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 20, B: 28, A: 255})
	ebitenutil.DebugPrint(screen, a.hudText())
}

// hudText 组装调试 HUD 文本
func (a *App) hudText() string {
	state := a.session.Store.Current()
	resolver := a.session.Resolver
	plan := a.skirmish.Plan()

	var b strings.Builder
	wave := fmt.Sprintf("Wave %d", plan.Wave)
	if plan.IsBoss {
		wave = "BOSS"
	}
	fmt.Fprintf(&b, "Sector %d  %s  (global %d)  enemies left: %d\n",
		plan.Sector+1, wave, plan.GlobalWave, a.skirmish.Remaining())
	fmt.Fprintf(&b, "Scrap %.0f (+%.1f/s)  Cores %d  Hull %.0f/%.0f\n",
		state.Scrap, a.session.Income.Rate(), state.Cores, state.PlayerHP, state.PlayerMaxHP)
	fmt.Fprintf(&b, "DPS %.1f  Mod [M] %s  Script [B] %s  Target [T] %s\n\n",
		resolver.EstimatedDPS(), state.ActiveWeaponMod, state.ActiveBehaviorScript, state.ActiveTargetMode)

	b.WriteString("Shop (Up/Down, Enter)\n")
	for i, def := range a.upgrades {
		marker := "  "
		if i == a.cursor {
			marker = "> "
		}
		level := resolver.LevelOf(def.ID)
		price := "MAX"
		if level < def.MaxLevel {
			cost, _ := resolver.CostOf(def.ID)
			price = fmt.Sprintf("%.0f", cost.Scrap)
			if cost.Cores > 0 {
				price += fmt.Sprintf(" +%dc", cost.Cores)
			}
		}
		lock := ""
		if avail := resolver.IsAvailable(def.ID); !avail.Available && level < def.MaxLevel {
			lock = " (" + avail.Reason + ")"
		}
		fmt.Fprintf(&b, "%s%-22s %2d/%-2d %s%s\n", marker, def.Name, level, def.MaxLevel, price, lock)
	}

	b.WriteString("\nF5 save  F6 export  F7 import  F9 reset  F11 fullscreen  S sound  -/= volume\n")
	if a.message != "" {
		b.WriteString(a.message + "\n")
	}
	if ev := a.skirmish.LastEvent(); ev != "" {
		b.WriteString(ev + "\n")
	}
	return b.String()
}

// Layout 返回游戏的逻辑屏幕尺寸
// 此尺寸独立于实际窗口大小，Ebitengine 会自动处理缩放
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Session 返回游戏会话
func (a *App) Session() *game.Session {
	return a.session
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
