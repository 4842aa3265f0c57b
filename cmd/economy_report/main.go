// economy_report 打印难度曲线与升级成本曲线，用于数值平衡
//
// 用法：
//
//	go run ./cmd/economy_report
//	go run ./cmd/economy_report -enemy tank -sectors 3
//	go run ./cmd/economy_report -upgrade fireRate
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/decker502/scrapline/pkg/config"
	"github.com/decker502/scrapline/pkg/economy"
)

var (
	catalogPath = flag.String("catalog", "data/economy.yaml", "Economy catalog YAML")
	enemyID     = flag.String("enemy", "grunt", "Enemy type for the wave table")
	sectors     = flag.Int("sectors", 0, "Number of sectors to print (0 = all)")
	upgradeID   = flag.String("upgrade", "", "Print the cost curve of this upgrade (empty = all repeatable upgrades, summary only)")
	dps         = flag.Float64("dps", 40, "Player DPS used for boss time-to-kill clamping")
)

func main() {
	flag.Parse()

	catalog, err := config.LoadEconomyCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("❌ FATAL: Failed to load catalog: %v", err)
	}
	model := economy.NewDifficultyModel(catalog)

	if *upgradeID != "" {
		if err := printUpgradeCurve(catalog, model, *upgradeID); err != nil {
			log.Fatalf("❌ FATAL: %v", err)
		}
		return
	}

	if err := printWaveTable(model); err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}
	fmt.Println()
	printUpgradeSummary(catalog, model)
}

func printWaveTable(model *economy.DifficultyModel) error {
	balance := model.Balance()
	count := balance.SectorCount
	if *sectors > 0 && *sectors < count {
		count = *sectors
	}

	fmt.Printf("=== Wave table (%s, boss clamp at %.0f DPS) ===\n", *enemyID, *dps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "sector\twave\tglobal\tD(g)\tspawn\tHP\tscrap\tfire x\tbullet x\t")

	for sector := 0; sector < count; sector++ {
		for wave := 1; wave <= balance.BossPendingWave(); wave++ {
			g := model.GlobalWave(sector, wave)
			if wave == balance.BossPendingWave() {
				raw := model.BossHP(sector, g)
				fmt.Fprintf(w, "%d\tBOSS\t%d\t%.2f\t1\t%d (%d)\t%.1f +%dc\t%.3f\t%.3f\t\n",
					sector+1, g, model.DifficultyMultiplier(g), model.ClampBossHP(raw, sector, *dps), raw,
					model.BossScrap(g), model.BossCores(sector),
					model.EnemyFireRateMultiplier(g), model.EnemyBulletSpeedMultiplier(g))
				continue
			}

			hp, err := model.EnemyHP(*enemyID, sector, g)
			if err != nil {
				return err
			}
			scrap, err := model.ScrapDrop(*enemyID, g)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%.2f\t%d\t%d\t%.1f\t%.3f\t%.3f\t\n",
				sector+1, wave, g, model.DifficultyMultiplier(g), model.SpawnCount(g), hp, scrap,
				model.EnemyFireRateMultiplier(g), model.EnemyBulletSpeedMultiplier(g))
		}
	}
	return w.Flush()
}

func printUpgradeCurve(catalog *config.EconomyCatalog, model *economy.DifficultyModel, id string) error {
	def, err := catalog.UpgradeDefinition(id)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s (%s) ===\n", def.Name, def.ID)
	if def.IsUnlock {
		fmt.Printf("One-shot unlock: %.0f scrap, %d cores\n", def.BaseCost, def.CoresCost)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "level\tcost\tstep\ttotal\t")
	total, prev := 0, 0
	for level := 1; level <= def.MaxLevel; level++ {
		cost := model.UpgradeCost(def.BaseCost, level)
		total += cost
		step := "-"
		if prev > 0 {
			step = fmt.Sprintf("x%.2f", float64(cost)/float64(prev))
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t\n", level, cost, step, total)
		prev = cost
	}
	return w.Flush()
}

func printUpgradeSummary(catalog *config.EconomyCatalog, model *economy.DifficultyModel) {
	fmt.Println("=== Upgrade summary ===")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "id\tcategory\tmax\tfirst\tlast\ttotal\t")

	categories, groups := catalog.UpgradesByCategory()
	for _, cat := range categories {
		for _, def := range groups[cat] {
			if def.IsUnlock {
				fmt.Fprintf(w, "%s\t%s\t1\t%.0f\t%.0f\t%.0f\t\n", def.ID, cat, def.BaseCost, def.BaseCost, def.BaseCost)
				continue
			}
			total := 0
			for level := 1; level <= def.MaxLevel; level++ {
				total += model.UpgradeCost(def.BaseCost, level)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t\n", def.ID, cat, def.MaxLevel,
				model.UpgradeCost(def.BaseCost, 1), model.UpgradeCost(def.BaseCost, def.MaxLevel), total)
		}
	}
	w.Flush()
}
