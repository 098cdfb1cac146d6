package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/simulacro-api/pkg/config"
)

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	dsn := postgresDSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "ranker",
		Password: "p@ss word'",
		Name:     "simulacros",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/simulacros", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word'", password)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, applicationName, u.Query().Get("application_name"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "unsupported database driver")
}
