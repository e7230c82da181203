package main

import (
	"github.com/landfund/impactportal/config"
	"github.com/landfund/impactportal/models"
	"github.com/landfund/impactportal/routes"
	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Tier{},
		&models.CreditTransaction{},
		&models.PurchaseTransaction{},
		&models.RewardCompletion{},
		&models.ReferralEdge{},
		&models.RewardAction{},
		&models.PioneerMetric{},
	)

	if err := services.SeedDefaults(db); err != nil {
		utils.Sugar.Fatalf("failed to seed defaults: %v", err)
	}

	ledger := services.NewLedger(db, utils.Sugar)
	tiers := services.NewTierResolver(db)
	if err := tiers.ValidateCatalog(); err != nil {
		utils.Sugar.Warnf("tier catalog validation: %v", err)
	}
	graph := services.NewReferralGraph(db)
	distributor := services.NewDistributor(ledger, graph, utils.Sugar)
	engine := services.NewEngine(
		db,
		ledger,
		services.NewActionCatalog(db),
		tiers,
		distributor,
		&services.LogNotifier{Log: utils.Sugar},
		&services.LogBus{Log: utils.Sugar},
		utils.Sugar,
	)
	vesting := services.NewVestingCalculator(db, ledger)
	balance := services.NewBalanceService(db, ledger, engine, utils.Sugar)

	r := routes.SetupRouter(db, routes.Services{
		Ledger:      ledger,
		Engine:      engine,
		Tiers:       tiers,
		Vesting:     vesting,
		Balance:     balance,
		Distributor: distributor,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
