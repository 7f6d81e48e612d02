package cases

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`^INSERT INTO cases \(title\) VALUES \(\$1\) RETURNING id, created_at$`).
		WithArgs("Burglary on 5th").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	c := &models.Case{Title: "Burglary on 5th"}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, now, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		err  error
		want bool
	}{
		{name: "present", rows: sqlmock.NewRows([]string{"exists"}).AddRow(true), want: true},
		{name: "absent", rows: sqlmock.NewRows([]string{"exists"}).AddRow(false), want: false},
		{name: "db error", err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM cases WHERE id=\$1\)`).WithArgs(int64(9))
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			got, err := repo.Exists(context.Background(), 9)
			if tt.err != nil {
				require.ErrorContains(t, err, "failed to check case")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
