package database

import (
	"testing"

	"hobby_forum/internal/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		User:     "forum",
		Password: "secret",
		DBName:   "hobby_forum",
		Port:     "5432",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	assert.Equal(t, "host=db user=forum password=secret dbname=hobby_forum port=5432 sslmode=disable TimeZone=UTC", DSN(cfg))
	assert.Equal(t, "postgres://forum:secret@db:5432/hobby_forum?sslmode=disable", MigrateURL(cfg))
}
