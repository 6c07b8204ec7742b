package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Togather-Foundation/nko-directory/internal/api/middleware"
	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/sessions"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type testEnv struct {
	repo     *memory.Repository
	listings *nko.Service
	events   *events.Service
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	repo := memory.NewRepository()

	usersService := users.NewService(repo.Users(), audit.Nop(), logger, users.WithBcryptCost(bcrypt.MinCost))
	sessionsService := sessions.NewService(repo.Sessions(), logger)
	listingService := nko.NewService(repo.Listings(), audit.Nop(), logger)
	eventsService := events.NewService(repo.Events(), logger)

	authHandler := NewAuthHandler(usersService, sessionsService, "test")
	nkoHandler := NewNKOHandler(listingService, "test")
	eventsHandler := NewEventsHandler(eventsService, "test")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("GET /api/nko", nkoHandler.List)
	mux.HandleFunc("POST /api/nko", nkoHandler.Submit)
	mux.HandleFunc("GET /api/events", eventsHandler.List)

	return &testEnv{
		repo:     repo,
		listings: listingService,
		events:   eventsService,
		handler:  http.MaxBytesHandler(middleware.Session(sessionsService, "test")(mux), 4096),
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	default:
		var err error
		payload, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) (users.PublicUser, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Анна", "email": email, "password": password, "accountType": "nko",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.User, resp.Token
}

type errorBody struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterTokenResolvesToSameUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Анна", "email": "  Anna@Example.org ", "password": "secret", "accountType": "nko",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")

	var created authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "anna@example.org", created.User.Email)
	require.Equal(t, users.AccountNKO, created.User.AccountType)

	me := env.do(t, http.MethodGet, "/api/auth/me", created.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	require.NotContains(t, me.Body.String(), "password")

	var resolved meResponse
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &resolved))
	require.Equal(t, created.User, resolved.User)
}

func TestRegisterDuplicateEmailIgnoresCaseAndSpace(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "anna@example.org", "secret")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": " ANNA@example.org", "password": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgEmailTaken, decodeError(t, rec).Message)
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "anna@example.org"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, msgAuthFieldsRequired, body.Message)
	require.Equal(t, []string{"password"}, body.Errors["missing"])
}

func TestMalformedBodyIsTreatedAsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgAuthFieldsRequired, decodeError(t, rec).Message)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	env := newTestEnv(t)

	big := `{"email":"` + strings.Repeat("a", 8192) + `"}`
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "anna@example.org", "secret")

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "anna@example.org", "password": "nope",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.org", "password": "secret",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	a, b := decodeError(t, wrongPassword), decodeError(t, unknownEmail)
	require.Equal(t, msgInvalidCredentials, a.Message)
	require.Equal(t, a, b)
}

func TestLoginSucceedsWithNormalizedEmail(t *testing.T) {
	env := newTestEnv(t)
	registered, _ := env.register(t, "anna@example.org", "secret")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": " Anna@Example.ORG ", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, registered, resp.User)
	require.NotEmpty(t, resp.Token)
}

func TestLoginMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgAuthFieldsRequired, decodeError(t, rec).Message)
}

func TestMeRequiresValidToken(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "not-a-real-token"} {
		rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, msgNotAuthorized, decodeError(t, rec).Message)
	}
}

func TestSubmitWithoutTokenInsertsNothing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/nko", "", map[string]string{
		"name": "Фонд", "category": "Экология", "description": "Помогаем", "city": "Глазов",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, msgAuthRequired, decodeError(t, rec).Message)

	pending, err := env.listings.ListPending(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSubmittedListingIsNeverPublic(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "anna@example.org", "secret")

	rec := env.do(t, http.MethodPost, "/api/nko", token, map[string]any{
		"name": "Фонд", "category": "Экология", "description": "Помогаем", "city": "Глазов",
		"status": "approved", "lat": "58,14", "lng": nil,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Positive(t, resp.ID)
	require.Equal(t, msgListingSubmitted, resp.Message)

	list := env.do(t, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	require.JSONEq(t, `[]`, list.Body.String())

	pending, err := env.listings.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, nko.StatusPending, pending[0].Status)
	require.InDelta(t, 58.14, pending[0].Lat.Value, 1e-9)
	require.False(t, pending[0].Lng.Valid)
}

func TestSubmitMissingFieldsNamesThem(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "anna@example.org", "secret")

	rec := env.do(t, http.MethodPost, "/api/nko", token, map[string]string{
		"name": "Фонд", "category": "Экология", "description": "Помогаем",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, msgListingFieldsRequired, body.Message)
	require.Equal(t, []string{"city"}, body.Errors["missing"])
}

func TestListSortsCaseInsensitively(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.listings.Import(context.Background(), []nko.ImportRow{
		{Name: "banana"}, {Name: "Apple"}, {Name: "cherry"},
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	names := []any{list[0]["name"], list[1]["name"], list[2]["name"]}
	require.Equal(t, []any{"Apple", "banana", "cherry"}, names)
	require.Nil(t, list[0]["lat"])
	require.Equal(t, "approved", list[0]["status"])
}

func TestListSurvivesNonFiniteImportedCoordinates(t *testing.T) {
	env := newTestEnv(t)
	var rows []nko.ImportRow
	require.NoError(t, yaml.Unmarshal([]byte(`
- name: Good
  lat: 58.14
- name: Bad
  lat: .nan
- name: Bad2
  lng: "Inf"
`), &rows))
	result, err := env.listings.Import(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 3, result.Inserted)

	rec := env.do(t, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	byName := make(map[any]map[string]any, len(list))
	for _, item := range list {
		byName[item["name"]] = item
	}
	require.Equal(t, 58.14, byName["Good"]["lat"])
	require.Nil(t, byName["Bad"]["lat"])
	require.Nil(t, byName["Bad2"]["lng"])
}

func TestWriteJSONEncodeFailureIsServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/nko", nil)

	writeJSON(rec, req, http.StatusOK, map[string]float64{"lat": math.NaN()})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, msgServerError, decodeError(t, rec).Message)
}

func TestListStoreFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)
	env.repo.FailWith("list_listings", errors.New("connection reset"))

	rec := env.do(t, http.MethodGet, "/api/nko", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, msgServerError, decodeError(t, rec).Message)
}

func TestSessionStoreFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)
	env.repo.FailWith("resolve_session", errors.New("connection reset"))

	rec := env.do(t, http.MethodGet, "/api/auth/me", "some-token", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEventsListOrderedByDateText(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.events.Seed(context.Background(), []events.EventInput{
		{Title: "Ярмарка", City: "Ижевск", Date: "30 ноября"},
		{Title: "Субботник", City: "Глазов", Date: "23 ноября", Time: "11:00–14:00"},
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []events.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	require.Equal(t, "Субботник", list[0].Title)
	require.Equal(t, "11:00–14:00", list[0].Time)

	env.repo.FailWith("list_events", errors.New("boom"))
	rec = env.do(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEventsListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}
