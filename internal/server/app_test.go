package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/dmitrijs2005/evidencevault/internal/server/config"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = config.MemoryDSN
	c.StorageRoot = t.TempDir()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.SweepSchedule = ""
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	assert.Nil(t, app.db)
	assert.NoError(t, app.health(context.Background()))
	app.Close()
}

func TestNewApp_MemorySeedsCases(t *testing.T) {
	c := memoryConfig(t)
	c.MemorySeedCases = []string{"Burglary 2025-114", "Fraud 2025-007"}
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	caller := auth.Identity{UserID: "u-1", Roles: []auth.Role{auth.RoleInvestigator}}
	for _, caseID := range []int64{1, 2} {
		res, err := app.evidence.Upload(context.Background(), caller, &models.UploadCommand{
			CaseID:   caseID,
			Title:    "Photo",
			FileName: "scene.jpg",
			Content:  []byte("jpeg"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.VersionNumber)
	}

	_, err = app.evidence.Upload(context.Background(), caller, &models.UploadCommand{
		CaseID: 3, Title: "Photo", FileName: "scene.jpg", Content: []byte("jpeg"),
	})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := memoryConfig(t)
	c.EncryptionKey = "short"
	_, err := NewApp(context.Background(), c)
	require.Error(t, err)

	c = memoryConfig(t)
	c.StorageBackend = "tape"
	_, err = NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestNewApp_DatabaseUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		return db, nil
	}
	t.Cleanup(func() { sqlOpen = orig })

	c := memoryConfig(t)
	c.DatabaseDSN = "postgres://nowhere/evidence"
	_, err = NewApp(context.Background(), c)
	require.ErrorContains(t, err, "db init error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}
