package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Wikid82/ipguard/internal/database"
	"github.com/Wikid82/ipguard/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

// setupFileDB opens a WAL file database the way the server does.
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "ipguard.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// startAuditWriters keeps n goroutines appending audit entries until the
// returned stop function is called.
func startAuditWriters(t *testing.T, db *gorm.DB, n int) (stop func()) {
	t.Helper()
	audit := NewAuditService(db)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("198.51.100.%d", i+1)
			for {
				select {
				case <-done:
					return
				default:
				}
				_ = audit.Record(context.Background(), &models.AuditEntry{Address: addr, Path: "/", ObservedAt: time.Now()})
			}
		}(i)
	}
	return func() {
		close(done)
		wg.Wait()
	}
}
