package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func createUserRequest(t *testing.T, body CreateUserRequest) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(payload))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("guard@guardpost.io").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	req := createUserRequest(t, CreateUserRequest{
		Email:    "guard@guardpost.io",
		Password: "guard123",
		Name:     "Sam Reynolds",
		Role:     "guard",
	})
	rec := httptest.NewRecorder()
	CreateUser(db)(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateUserExistenceCheckFailure(t *testing.T) {
	db, mock := newMockDB(t)
	// A transient store failure must not fall through to the insert path.
	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("guard@guardpost.io").
		WillReturnError(fmt.Errorf("connection reset by peer"))

	req := createUserRequest(t, CreateUserRequest{
		Email:    "guard@guardpost.io",
		Password: "guard123",
		Name:     "Sam Reynolds",
		Role:     "guard",
	})
	rec := httptest.NewRecorder()
	CreateUser(db)(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("an insert was attempted after a failed existence check: %v", err)
	}
}

func TestCreateUserSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("newguard@guardpost.io").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := createUserRequest(t, CreateUserRequest{
		Email:    "newguard@guardpost.io",
		Password: "guard123",
		Name:     "Priya Nair",
		Role:     "guard",
	})
	rec := httptest.NewRecorder()
	CreateUser(db)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp CreateUserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.User == nil || resp.User.Email != "newguard@guardpost.io" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	db, _ := newMockDB(t)

	req := createUserRequest(t, CreateUserRequest{
		Email:    "admin@guardpost.io",
		Password: "secret",
		Name:     "Admin",
		Role:     "admin",
	})
	rec := httptest.NewRecorder()
	CreateUser(db)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
