package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"cleaning-calculator/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOptionsService_GetReadThroughCache(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	redisClient, mr := newTestRedis(t)
	service := NewOptionsService(db, redisClient, newTestLogger(), time.Hour)

	mock.ExpectQuery("SELECT value FROM hcc_options").
		WithArgs("greeting").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"text":"hello"}`)))

	for i := 0; i < 2; i++ {
		var dest map[string]string
		found, err := service.Get(context.Background(), "greeting", &dest)
		if err != nil || !found || dest["text"] != "hello" {
			t.Fatalf("call %d: unexpected result found=%v dest=%v err=%v", i, found, dest, err)
		}
	}

	if !mr.Exists(redis.GenerateKey(redis.KeyPrefixOption, "greeting")) {
		t.Fatalf("expected option to be cached")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected single DB read: %v", err)
	}
}

func TestOptionsService_GetMissing(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewOptionsService(db, nil, newTestLogger(), 0)

	mock.ExpectQuery("SELECT value FROM hcc_options").
		WillReturnError(sql.ErrNoRows)

	var dest []string
	found, err := service.Get(context.Background(), "missing", &dest)
	if err != nil || found {
		t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
	}
}

func TestOptionsService_SetInvalidatesCache(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	redisClient, mr := newTestRedis(t)
	service := NewOptionsService(db, redisClient, newTestLogger(), time.Hour)
	key := redis.GenerateKey(redis.KeyPrefixOption, "greeting")
	if err := mr.Set(key, `{"text":"old"}`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	mock.ExpectExec("INSERT INTO hcc_options").
		WithArgs("greeting", `{"text":"new"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := service.Set(context.Background(), "greeting", map[string]string{"text": "new"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected cache invalidation")
	}

	mock.ExpectExec("DELETE FROM hcc_options").
		WithArgs("greeting").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := service.Delete(context.Background(), "greeting"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
