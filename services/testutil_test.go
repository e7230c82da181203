package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/landfund/impactportal/models"
)

// newTestDB opens an isolated in-memory database migrated with the full
// schema. A single pooled connection keeps the shared-cache memory database
// alive and serializes writers the way production row locks do.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Tier{},
		&models.CreditTransaction{},
		&models.PurchaseTransaction{},
		&models.RewardCompletion{},
		&models.ReferralEdge{},
		&models.RewardAction{},
		&models.PioneerMetric{},
	))
	return db
}

type fixture struct {
	db          *gorm.DB
	ledger      *Ledger
	tiers       *TierResolver
	graph       *DBReferralGraph
	distributor *Distributor
	engine      *Engine
	vesting     *VestingCalculator
	balance     *BalanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	require.NoError(t, SeedDefaults(db))

	log := zap.NewNop().Sugar()
	ledger := NewLedger(db, log)
	tiers := NewTierResolver(db)
	graph := NewReferralGraph(db)
	distributor := NewDistributor(ledger, graph, log)
	engine := NewEngine(db, ledger, NewActionCatalog(db), tiers, distributor, NopNotifier{}, NopBus{}, log)
	vesting := NewVestingCalculator(db, ledger)
	balance := NewBalanceService(db, ledger, engine, log)

	return &fixture{
		db:          db,
		ledger:      ledger,
		tiers:       tiers,
		graph:       graph,
		distributor: distributor,
		engine:      engine,
		vesting:     vesting,
		balance:     balance,
	}
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{Username: name, ReferralCode: strings.ToUpper(name)}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createAction(t *testing.T, db *gorm.DB, action models.RewardAction) *models.RewardAction {
	t.Helper()
	require.NoError(t, db.Create(&action).Error)
	return &action
}

func refer(t *testing.T, db *gorm.DB, userID, referrerID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.ReferralEdge{UserID: userID, ReferrerID: referrerID}).Error)
}

func creditCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}
