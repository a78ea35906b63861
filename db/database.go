package db

import (
	"github.com/certsync/certsync/settings"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Open() error {
	settingsDict := settings.LoadSettings()

	var dialector gorm.Dialector
	switch settingsDict.DatabaseType {
	case "sqlite":
		dialector = sqlite.Open(settingsDict.ConnectionString)
	case "postgres", "":
		dialector = postgres.Open(settingsDict.ConnectionString)
	default:
		return errors.Errorf("unsupported database_type %q", settingsDict.DatabaseType)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return errors.Wrap(err, "open database")
	}

	return nil
}

func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
