package data

import (
	"os"
	"testing"

	"GuardLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test NewData - both backends optional, accessors reflect what was wired
func TestNewDataWithNilClients(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)

	d, cleanup, err := NewData(&conf.Data{}, logger, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Nil(t, d.GetRedisClient())
	assert.Nil(t, d.GetDB())
	cleanup()
}

// Test NewData - a wired Redis client is exposed to the stores
func TestNewDataWithRedis(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	defer rdb.Close()
	logger := log.NewStdLogger(os.Stdout)

	d, cleanup, err := NewData(&conf.Data{}, logger, rdb, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, rdb, d.GetRedisClient())
}

// Test NewMySQLClient - no source means journal runs log-only
func TestNewMySQLClientNoSource(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)

	db, cleanup, err := NewMySQLClient(nil, logger)
	assert.NoError(t, err)
	assert.Nil(t, db)
	require.NotNil(t, cleanup)
	cleanup()

	db, cleanup, err = NewMySQLClient(&conf.Data{Database: &conf.Database{Source: ""}}, logger)
	assert.NoError(t, err)
	assert.Nil(t, db)
	cleanup()
}
