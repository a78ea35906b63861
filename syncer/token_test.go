package syncer

import (
	intErrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDb, mockSpy, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDb.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDb}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mockSpy
}

func newTestTokenStore(t *testing.T, server *httptest.Server) (*TokenStore, sqlmock.Sqlmock) {
	t.Helper()

	gormDB, mockSpy := newMockGorm(t)
	store := NewTokenStore(gormDB, server.URL+"/auth", "apiuser", "hunter2", 5*time.Second)
	store.Client = server.Client()
	store.Now = func() time.Time {
		return time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return store, mockSpy
}

func authTokenColumns() []string {
	return []string{"id", "token_value", "created_at", "expires_at", "valid", "auth_url", "status_code", "error_message"}
}

func expectTokenRefresh(mockSpy sqlmock.Sqlmock) {
	mockSpy.ExpectBegin()
	mockSpy.ExpectExec(`UPDATE "auth_tokens" SET "valid"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockSpy.ExpectQuery(`INSERT INTO "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mockSpy.ExpectCommit()
}

func TestGetValidToken_RefreshesWhenNoneStored(t *testing.T) {
	var gotContentType string
	var gotForm map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "fresh-token"}`))
	}))
	defer server.Close()

	store, mockSpy := newTestTokenStore(t, server)

	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()))
	expectTokenRefresh(mockSpy)

	token, err := store.GetValidToken()
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "apiuser", gotForm["username"][0])
	assert.Equal(t, "hunter2", gotForm["password"][0])
	assert.Equal(t, "true", gotForm["token"][0])
	assert.Equal(t, "true", gotForm["permissions"][0])

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestGetValidToken_ServesStoredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("auth gateway should not be called while a valid token is stored")
	}))
	defer server.Close()

	store, mockSpy := newTestTokenStore(t, server)
	now := store.Now()

	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()).
			AddRow(7, "stored-token", now.Add(-time.Hour), now.Add(time.Hour), true, store.AuthURL, nil, nil))

	token, err := store.GetValidToken()
	require.NoError(t, err)
	assert.Equal(t, "stored-token", token)

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestGetValidToken_LazilyInvalidatesExpiredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "renewed-token"}`))
	}))
	defer server.Close()

	store, mockSpy := newTestTokenStore(t, server)
	now := store.Now()

	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()).
			AddRow(7, "stale-token", now.Add(-5*time.Hour), now.Add(-time.Hour), true, store.AuthURL, nil, nil))

	// The stale row is flipped invalid before the refresh happens.
	mockSpy.ExpectBegin()
	mockSpy.ExpectExec(`UPDATE "auth_tokens" SET "valid"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockSpy.ExpectCommit()

	expectTokenRefresh(mockSpy)

	token, err := store.GetValidToken()
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", token)

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestGetValidToken_AuthFailureIsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad credentials"))
	}))
	defer server.Close()

	store, mockSpy := newTestTokenStore(t, server)

	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()))

	// Failed attempt gets its own audit row with Valid false.
	mockSpy.ExpectBegin()
	mockSpy.ExpectQuery(`INSERT INTO "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mockSpy.ExpectCommit()

	_, err := store.GetValidToken()
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, intErrors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, authErr.Msg, "bad credentials")

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestGetValidToken_MissingCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("auth gateway should not be called without credentials")
	}))
	defer server.Close()

	store, mockSpy := newTestTokenStore(t, server)
	store.Username = ""

	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()))

	_, err := store.GetValidToken()
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, intErrors.As(err, &authErr))
}

func TestGetValidToken_SingleFlight(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"token": "shared-token"}`))
	}))
	defer server.Close()

	store, mockSpy := newTestTokenStore(t, server)
	now := store.Now()

	// First caller finds nothing and refreshes; whoever arrives second
	// sees the row the refresh committed.
	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()))
	expectTokenRefresh(mockSpy)
	mockSpy.ExpectQuery(`SELECT \* FROM "auth_tokens"`).
		WillReturnRows(sqlmock.NewRows(authTokenColumns()).
			AddRow(1, "shared-token", now, now.Add(TokenLifetime), true, store.AuthURL, nil, nil))

	var wg sync.WaitGroup
	tokens := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := store.GetValidToken()
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "shared-token", tokens[0])
	assert.Equal(t, "shared-token", tokens[1])

	if err := mockSpy.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %s", err)
	}
}

func TestParseTokenFromResponse(t *testing.T) {
	jwt := strings.Repeat("a", 30) + "." + strings.Repeat("b", 30) + "." + strings.Repeat("c", 10)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"token field", `{"token": "t1"}`, "t1"},
		{"access_token field", `{"access_token": "t2"}`, "t2"},
		{"jwt field", `{"jwt": "t3"}`, "t3"},
		{"nested data.token", `{"data": {"token": "t4"}}`, "t4"},
		{"bare jwt body", jwt, jwt},
		{"token wins over access_token", `{"access_token": "t2", "token": "t1"}`, "t1"},
		{"short bare body rejected", "a.b.c", ""},
		{"wrong dot count rejected", strings.Repeat("x", 60), ""},
		{"unparsable json", `{"status": "ok"}`, ""},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTokenFromResponse([]byte(tt.body)))
		})
	}
}

func TestTruncateBody(t *testing.T) {
	long := strings.Repeat("z", maxErrorBodyLen+500)
	assert.Len(t, truncateBody([]byte(long)), maxErrorBodyLen)
	assert.Equal(t, "short", truncateBody([]byte("short")))
}
