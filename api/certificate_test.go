package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/certsync/certsync/db"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	mockDb, mockSpy, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDb.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDb}), &gorm.Config{})
	require.NoError(t, err)
	db.DB = gormDB

	return mockSpy
}

func mappedRequest(id, body string) *http.Request {
	req := httptest.NewRequest("PATCH", "/certificates/"+id+"/mapped", strings.NewReader(body))
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestUpdateCertificateMapped(t *testing.T) {
	mockSpy := setupMockDB(t)

	mockSpy.ExpectQuery(`SELECT \* FROM "certificates"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "mapped_to_inventory", "page_range"}).
			AddRow(42, false, "0-99"))
	mockSpy.ExpectBegin()
	mockSpy.ExpectExec(`UPDATE "certificates" SET "mapped_to_inventory"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockSpy.ExpectCommit()

	recorder := httptest.NewRecorder()
	UpdateCertificateMappedHandler(recorder, mappedRequest("42", `{"mapped_to_inventory": true}`))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"mapped_to_inventory": true`)

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestUpdateCertificateMapped_NotFound(t *testing.T) {
	mockSpy := setupMockDB(t)

	mockSpy.ExpectQuery(`SELECT \* FROM "certificates"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	recorder := httptest.NewRecorder()
	UpdateCertificateMappedHandler(recorder, mappedRequest("999", `{"mapped_to_inventory": false}`))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUpdateCertificateMapped_BadRequests(t *testing.T) {
	setupMockDB(t)

	tests := []struct {
		name string
		id   string
		body string
	}{
		{"missing field", "42", `{}`},
		{"non-boolean value", "42", `{"mapped_to_inventory": "yes"}`},
		{"empty body", "42", ``},
		{"non-numeric id", "abc", `{"mapped_to_inventory": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			UpdateCertificateMappedHandler(recorder, mappedRequest(tt.id, tt.body))
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestCertificatesHandlerFilters(t *testing.T) {
	mockSpy := setupMockDB(t)

	mockSpy.ExpectQuery(`SELECT \* FROM "certificates" WHERE cert_type LIKE .+ AND mapped_to_inventory =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cert_type", "mapped_to_inventory", "page_range"}).
			AddRow(1, "Root", true, "0-99"))

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/certificates?type=Root&mapped=true", nil)
	CertificatesHandler(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"Root"`)

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestExportCertificatesCSV(t *testing.T) {
	mockSpy := setupMockDB(t)

	mockSpy.ExpectQuery(`SELECT \* FROM "certificates"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cert_hash", "cert_type", "mapped_to_inventory", "page_range"}).
			AddRow(5, "ab:cd", "Root", true, "0-99"))

	recorder := httptest.NewRecorder()
	ExportCertificatesCSV(recorder, httptest.NewRequest("GET", "/certificates/export.csv", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/csv", recorder.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,certhash,serial_number"))
	assert.Contains(t, lines[1], "ab:cd")
	assert.Contains(t, lines[1], "true")
}

func TestPagination(t *testing.T) {
	page, perPage := pagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, perPage)

	page, perPage = pagination("3", "25")
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, perPage)

	page, perPage = pagination("-1", "0")
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, perPage)
}
