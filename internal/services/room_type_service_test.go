package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestRoomTypeService(t *testing.T) (*RoomTypeService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	t.Cleanup(func() { _ = db.Close() })

	log := newTestLogger()
	return NewRoomTypeService(NewOptionsService(db, nil, log, 0), nil, log), mock
}

func expectRoomTypes(t *testing.T, mock sqlmock.Sqlmock, list []models.RoomType) {
	t.Helper()
	data, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("marshal room types: %v", err)
	}
	mock.ExpectQuery("SELECT value FROM hcc_options").
		WithArgs(OptionRoomTypes).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(data))
}

func TestRoomTypeService_ListSortedAndFiltered(t *testing.T) {
	service, mock := newTestRoomTypeService(t)

	expectRoomTypes(t, mock, []models.RoomType{
		{ID: "kitchen", Name: "Kitchen", PricePerM2: dec("7"), Active: true, Order: 2},
		{ID: "attic", Name: "Attic", PricePerM2: dec("3"), Active: false, Order: 1},
		{ID: "bedroom", Name: "Bedroom", PricePerM2: dec("5"), Active: true, Order: 2},
	})

	list, err := service.ListRoomTypes(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "bedroom" || list[1].ID != "kitchen" {
		t.Fatalf("expected active types sorted by order then name, got %+v", list)
	}
}

func TestRoomTypeService_Lookup(t *testing.T) {
	service, mock := newTestRoomTypeService(t)

	expectRoomTypes(t, mock, DefaultRoomTypes())
	rt, err := service.LookupRoomType(context.Background(), "bathroom")
	if err != nil || !rt.PricePerM2.Equal(dec("8")) {
		t.Fatalf("unexpected lookup result %+v err=%v", rt, err)
	}

	expectRoomTypes(t, mock, DefaultRoomTypes())
	if _, err := service.LookupRoomType(context.Background(), "garage"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRoomTypeService_SaveValidation(t *testing.T) {
	service, mock := newTestRoomTypeService(t)

	_, err := service.SaveRoomTypes(context.Background(), []models.RoomType{
		{ID: "bedroom", Name: "Bedroom", PricePerM2: dec("5")},
		{ID: "bedroom", Name: "Second", PricePerM2: dec("5")},
		{ID: "Bad ID", Name: "", PricePerM2: dec("-1")},
	})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	fields := apperror.FieldsOf(err)
	for _, key := range []string{"room_types[1].id", "room_types[2].id", "room_types[2].name", "room_types[2].price_per_m2"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected field %s in %v", key, fields)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("nothing must be written: %v", err)
	}
}

func TestRoomTypeService_SaveAndDelete(t *testing.T) {
	service, mock := newTestRoomTypeService(t)
	list := []models.RoomType{{ID: "office", Name: " Office ", PricePerM2: dec("6.25"), Active: true}}

	mock.ExpectExec("INSERT INTO hcc_options").WillReturnResult(sqlmock.NewResult(1, 1))
	expectRoomTypes(t, mock, []models.RoomType{{ID: "office", Name: "Office", PricePerM2: dec("6.25"), Active: true}})

	saved, err := service.SaveRoomTypes(context.Background(), list)
	if err != nil || len(saved) != 1 || saved[0].Name != "Office" {
		t.Fatalf("unexpected save result %+v err=%v", saved, err)
	}

	expectRoomTypes(t, mock, saved)
	if err := service.DeleteRoomType(context.Background(), "missing"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	expectRoomTypes(t, mock, saved)
	mock.ExpectExec("INSERT INTO hcc_options").
		WithArgs(OptionRoomTypes, "[]", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := service.DeleteRoomType(context.Background(), "office"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoomTypeService_SeedDefaults(t *testing.T) {
	service, mock := newTestRoomTypeService(t)

	mock.ExpectQuery("SELECT value FROM hcc_options").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO hcc_options").WillReturnResult(sqlmock.NewResult(1, 1))
	if err := service.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	expectRoomTypes(t, mock, DefaultRoomTypes())
	if err := service.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("seed must not overwrite existing list: %v", err)
	}
}
