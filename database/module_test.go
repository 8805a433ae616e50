package database

import (
	"testing"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func TestModule(t *testing.T) {
	var db *gorm.DB

	app := fx.New(
		Module,
		fx.Supply(&config.Config{Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", AutoMigrate: true}}),
		fx.Provide(func() *logging.Service { return nil }),
		fx.Supply(WithModels(&TestModel{})),
		fx.NopLogger,
		fx.Populate(&db),
	)

	assert.NoError(t, app.Err())
	assert.NotNil(t, db)
	assert.True(t, db.Migrator().HasTable(&TestModel{}))
}
