package repository

import (
	"testing"

	"github.com/nimasrn/policy-desk/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens an in-memory sqlite database with the full schema. The
// pool is pinned to one connection because every new connection to
// ":memory:" would see an empty database.
func SetupTestDB(t testing.TB) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(&PolicyEntity{}, &ReminderLogEntity{}, &ReminderSettingsEntity{})
	require.NoError(t, err)

	return pg.Wrap(db, db)
}
