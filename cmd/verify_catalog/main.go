// verify_catalog 验证经济目录 YAML 并打印摘要
//
// 用法：
//
//	go run ./cmd/verify_catalog
//	go run ./cmd/verify_catalog -catalog path/to/economy.yaml
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/decker502/scrapline/pkg/config"
)

var catalogPath = flag.String("catalog", "data/economy.yaml", "Economy catalog YAML")

func main() {
	flag.Parse()

	catalog, err := config.LoadEconomyCatalog(*catalogPath)
	if err != nil {
		fmt.Printf("❌ 目录验证失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ YAML 格式正确，所有引用有效，前置关系无环\n")
	fmt.Printf("✅ 敌人: %d, 升级: %d, 武器模组: %d, 行为脚本: %d, 索敌模式: %d\n",
		len(catalog.Enemies()), len(catalog.Upgrades()), len(catalog.WeaponMods()),
		len(catalog.BehaviorScripts()), len(catalog.TargetModes()))

	fmt.Println("\n扇区敌人解锁:")
	for sector := 0; sector < catalog.Balance.SectorCount; sector++ {
		fmt.Printf("  扇区 %d: %s\n", sector+1, strings.Join(catalog.SectorEnemyUnlocks(sector), ", "))
	}

	fmt.Println("\n升级前置链:")
	for _, id := range catalog.PrerequisiteOrder() {
		chain, _ := catalog.PrerequisiteChain(id)
		if len(chain) == 0 {
			continue
		}
		fmt.Printf("  %s <- %s\n", id, strings.Join(chain, " <- "))
	}

	warnings := 0
	for _, def := range catalog.Upgrades() {
		if def.SectorRequired >= catalog.Balance.SectorCount {
			fmt.Printf("⚠️  WARNING: %s requires sector %d, campaign has %d\n", def.ID, def.SectorRequired+1, catalog.Balance.SectorCount)
			warnings++
		}
		if !def.IsUnlock && def.Stat == "" {
			fmt.Printf("⚠️  WARNING: repeatable upgrade %s has no stat\n", def.ID)
			warnings++
		}
	}

	if warnings > 0 {
		fmt.Printf("\n⚠️  %d 个警告\n", warnings)
		return
	}
	fmt.Printf("\n✅ 无警告\n")
}
