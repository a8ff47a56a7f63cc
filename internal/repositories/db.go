package repositories

import (
	"log"

	"github.com/cloudreel/cloudreel/internal/config"
	"github.com/cloudreel/cloudreel/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ConnectDatabase opens the Postgres pool and runs migrations. The pool is
// shared; per-request scoping happens through WithContext sessions, which
// guarantees handles are returned on every exit path.
func ConnectDatabase() *gorm.DB {
	dsn := config.Envs.DB_URL
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Video{},
	)
	if err != nil {
		log.Fatal("Migration failed:", err)
	}
	DB = db
	log.Println("Successfully connected to database")
	return db
}
