package db

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New(`duplicate key value violates unique constraint "idx_tx_tenant_order"`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062 (23000): Duplicate entry")))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: transactions.tenant_id")))
}

func TestIsDuplicateKeyErr_LiveConstraint(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	type row struct {
		ID   int64  `gorm:"primaryKey"`
		Code string `gorm:"uniqueIndex"`
	}
	require.NoError(t, conn.AutoMigrate(&row{}))

	require.NoError(t, conn.Create(&row{ID: 1, Code: "x"}).Error)
	err = conn.Create(&row{ID: 2, Code: "x"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyErr(err))
}

func TestDialect_Unsupported(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestDialect_Supported(t *testing.T) {
	for _, dbType := range []string{"postgres", "mysql", "sqlite"} {
		dialector, err := Dialect(Config{Type: dbType, Name: "app"})
		require.NoError(t, err, dbType)
		assert.NotNil(t, dialector, dbType)
	}
}
