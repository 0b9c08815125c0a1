package database

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    appconfig "github.com/GTDGit/gradeshop_api/internal/config"
)

func TestDSN(t *testing.T) {
    dsn := DSN(&appconfig.DatabaseConfig{
        Host:     "db",
        Port:     "5432",
        User:     "loja",
        Password: "p@ss/word",
        Name:     "catalogo",
        SSLMode:  "disable",
    })
    assert.Equal(t, "postgres://loja:p%40ss%2Fword@db:5432/catalogo?sslmode=disable", dsn)
}

func TestConnect_NilConfig(t *testing.T) {
    _, err := Connect(nil)
    require.Error(t, err)
}
