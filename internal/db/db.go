package db

import (
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MakeDB(config *config.Config) (db *gorm.DB, err error) {
	dialector, err := dialectorFor(config.Persistence.Database)
	if err != nil {
		return nil, err
	}

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	if config.HTTP.Tracing.Enabled {
		if err = db.Use(otelgorm.NewPlugin()); err != nil {
			return db, fmt.Errorf("failed to trace database: %w", err)
		}
	}

	err = Migrate(db)
	if err != nil {
		return db, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	const connsPerCPU = 10
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	const maxIdleTime = 10 * time.Minute
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Waypoint{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(database config.Database) (gorm.Dialector, error) {
	switch database.Driver {
	case config.DatabaseDriverSQLite:
		return sqlite.Open(database.Database + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), nil
	case config.DatabaseDriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			database.Username,
			database.Password,
			net.JoinHostPort(database.Host, strconv.FormatUint(uint64(orDefault(database.Port, 3306)), 10)),
			database.Database)
		if database.ExtraParameters != "" {
			dsn += "&" + strings.TrimPrefix(database.ExtraParameters, "&")
		}
		return mysql.Open(dsn), nil
	case config.DatabaseDriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			database.Host,
			orDefault(database.Port, 5432),
			database.Username,
			database.Password,
			database.Database)
		if database.ExtraParameters != "" {
			dsn += " " + database.ExtraParameters
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", database.Driver)
	}
}

func orDefault(port, def uint16) uint16 {
	if port == 0 {
		return def
	}
	return port
}
