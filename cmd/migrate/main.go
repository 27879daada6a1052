package main

import (
	"errors"
	"flag"
	"log"

	"hobby_forum/internal/pkg/config"
	"hobby_forum/pkg/database"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("path", "migrations", "migrations directory")
	down := flag.Bool("down", false, "roll back the latest migration")
	force := flag.Int("force", -1, "force the schema version before migrating, for clearing a dirty state")
	flag.Parse()

	config.LoadConfig()

	m, err := migrate.New("file://"+*dir, database.MigrateURL(config.GlobalConfig.Database))
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if *force >= 0 {
		log.Printf("Forcing schema version %d...", *force)
		if err := m.Force(*force); err != nil {
			log.Fatal("Failed to force version:", err)
		}
	}

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Fatalf("Database is dirty at version %d, fix it and rerun with -force=%d", dirty.Version, dirty.Version-1)
		}
		log.Fatal(err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal(err)
	}
	log.Printf("Migration successful, version=%d dirty=%v", version, dirty)
}
