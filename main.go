package main

import (
	"flag"
	"log"

	"github.com/decker502/scrapline/pkg/app"
	"github.com/decker502/scrapline/pkg/embedded"
	"github.com/hajimehoshi/ebiten/v2"
)

var (
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	appName = flag.String("app", "scrapline", "Save data application name")
	seed    = flag.Int64("seed", 0, "Skirmish random seed (0 = time based)")
	save    = flag.String("save-file", "scrapline_save.txt", "Text file used by F6 export and F7 import")
	imports = flag.String("import", "", "Import an exported save text file at start-up")
)

func main() {
	flag.Parse()

	// 初始化嵌入数据，必须在加载任何配置之前
	embedded.Init(dataFS)

	gameApp, err := app.NewApp(app.Config{
		Verbose: *verbose,
		AppName: *appName,
		Seed:    *seed,

		TransferPath: *save,
		ImportPath:   *imports,
	})
	if err != nil {
		log.Fatalf("游戏初始化失败: %v", err)
	}

	ebiten.SetWindowSize(app.ScreenWidth*2, app.ScreenHeight*2)
	ebiten.SetWindowTitle("Scrapline")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	// 关闭窗口时先保存
	ebiten.SetWindowClosingHandled(true)

	if err := ebiten.RunGame(gameApp); err != nil && err != ebiten.Termination {
		log.Fatal(err)
	}
}
