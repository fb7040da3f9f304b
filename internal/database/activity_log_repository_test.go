package database_test

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/deskindex/deskindex/internal/database"
	"github.com/deskindex/deskindex/internal/models"
)

var activityColumns = []string{"id", "timestamp", "activity_type", "source", "actor", "message", "details"}

type jsonArg struct {
	want map[string]any
}

func (a jsonArg) Match(v driver.Value) bool {
	raw, ok := v.([]byte)
	if !ok {
		return false
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	if len(got) != len(a.want) {
		return false
	}
	for k, w := range a.want {
		if got[k] != w {
			return false
		}
	}
	return true
}

func TestActivityLogRepository_Log(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	repo := database.NewActivityLogRepository(db)
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO activity_logs").
		WithArgs("c1f0", ts, models.ActivityTypeConnectorCreated, models.DocumentSourceZendesk, "admin",
			"Zendesk connector created", jsonArg{want: map[string]any{"connector_id": float64(7)}}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Log(context.Background(), models.ActivityLog{
		ID:           "c1f0",
		Timestamp:    ts,
		ActivityType: models.ActivityTypeConnectorCreated,
		Source:       models.DocumentSourceZendesk,
		Actor:        "admin",
		Message:      "Zendesk connector created",
		Details:      map[string]any{"connector_id": 7},
	})
	if err != nil {
		t.Fatalf("Log() returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestActivityLogRepository_LogFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO activity_logs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.ActivityTypeCredentialDeleted, models.DocumentSource(""), "",
			"deleted", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := database.NewActivityLogRepository(db)
	if err := repo.Log(context.Background(), models.ActivityLog{
		ActivityType: models.ActivityTypeCredentialDeleted,
		Message:      "deleted",
	}); err != nil {
		t.Fatalf("Log() returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestActivityLogRepository_LogPropagatesErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO activity_logs").WillReturnError(boom)

	repo := database.NewActivityLogRepository(db)
	err = repo.Log(context.Background(), models.ActivityLog{Message: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestActivityLogRepository_List(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		filter    database.ActivityFilter
		wantQuery string
		wantArgs  []driver.Value
	}{
		{
			name:      "defaults to 100 entries",
			filter:    database.ActivityFilter{},
			wantQuery: `ORDER BY timestamp DESC LIMIT \$1`,
			wantArgs:  []driver.Value{int64(100)},
		},
		{
			name:      "caps the limit",
			filter:    database.ActivityFilter{Limit: 5000},
			wantQuery: `LIMIT \$1`,
			wantArgs:  []driver.Value{int64(1000)},
		},
		{
			name: "filters by type and source",
			filter: database.ActivityFilter{
				Limit:        10,
				ActivityType: models.ActivityTypeCredentialDeleteBlocked,
				Source:       models.DocumentSourceZendesk,
			},
			wantQuery: `AND activity_type = \$1 AND source = \$2 ORDER BY timestamp DESC LIMIT \$3`,
			wantArgs:  []driver.Value{"credential_delete_blocked", "zendesk", int64(10)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create sqlmock: %v", err)
			}
			defer db.Close()

			rows := sqlmock.NewRows(activityColumns).
				AddRow("a", ts, "credential_delete_blocked", "zendesk", "admin", "Must delete all connectors before deleting credentials", []byte(`{"connector_count":1}`)).
				AddRow("b", ts.Add(-time.Minute), "credential_created", "zendesk", "", "Zendesk credential created", nil)
			mock.ExpectQuery(tc.wantQuery).WithArgs(tc.wantArgs...).WillReturnRows(rows)

			repo := database.NewActivityLogRepository(db)
			logs, err := repo.List(context.Background(), tc.filter)
			if err != nil {
				t.Fatalf("List() returned error: %v", err)
			}

			if len(logs) != 2 {
				t.Fatalf("expected 2 logs, got %d", len(logs))
			}
			if logs[0].ActivityType != models.ActivityTypeCredentialDeleteBlocked {
				t.Errorf("unexpected activity type %q", logs[0].ActivityType)
			}
			if logs[0].Details["connector_count"] != float64(1) {
				t.Errorf("unexpected details %v", logs[0].Details)
			}
			if logs[1].Details != nil {
				t.Errorf("expected nil details, got %v", logs[1].Details)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestActivityLogRepository_ListEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM activity_logs").WillReturnRows(sqlmock.NewRows(activityColumns))

	logs, err := database.NewActivityLogRepository(db).List(context.Background(), database.ActivityFilter{})
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	if logs == nil || len(logs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", logs)
	}
}

func TestActivityLogRepository_DeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM activity_logs WHERE timestamp < ").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := database.NewActivityLogRepository(db).DeleteOlderThan(context.Background(), 90*24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan() returned error: %v", err)
	}
	if n != 12 {
		t.Errorf("expected 12 rows, got %d", n)
	}
}
