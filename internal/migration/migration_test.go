package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAutoMigrateCreatesEveryTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migration_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"orders", "order_items", "production_order_items", "production_processes", "slites", "invoices", "customers"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

// Every table AutoMigrate knows about is also created by the postgres
// migrations.
func TestEmbeddedMigrationsCoverModels(t *testing.T) {
	up, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init.up.sql")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open("file:migration_names?mode=memory"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(model))
		assert.True(t, strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS "+stmt.Schema.Table+" ("), stmt.Schema.Table)
	}
}
