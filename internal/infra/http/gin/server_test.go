package ginserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayengine/internal/app/dto"
	"stayengine/internal/app/engine"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/money"
	"stayengine/internal/infra/obs"
	"stayengine/internal/infra/storage/memory"
)

type testServer struct {
	router *gin.Engine
	auth   Authenticator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog := memory.NewCatalog()
	require.NoError(t, catalog.Put(listings.Property{
		ID:        "villa-1",
		Host:      "host-1",
		MaxGuests: 3,
		Pricing: listings.PricingConfig{
			BasePricePerNight: money.Must(20000, "USD"),
			CleaningFee:       money.Must(5000, "USD"),
			MinStayNights:     2,
		},
	}))
	eng := engine.New(engine.Deps{
		Catalog:     catalog,
		Calendars:   memory.NewCalendarRepository(),
		Outbox:      memory.NewOutbox(),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Clock:       func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	auth := Authenticator{Secret: []byte("test-secret")}
	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: eng.Commands, Queries: eng.Queries},
		Availability:   AvailabilityHandler{Commands: eng.Commands, Queries: eng.Queries},
		AuthMiddleware: auth.Handle,
	})
	return &testServer{router: router, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, subject string, role domainbooking.Role, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		token, err := s.auth.Issue(subject, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/livez", "", "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", "", nil, nil).Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	create := map[string]any{"property_id": "villa-1", "check_in": "2025-06-10", "check_out": "2025-06-13", "guests": 2}

	w := s.do(t, http.MethodPost, "/api/v1/bookings", "", "", create, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", domainbooking.RoleGuest, create, map[string]string{idempotencyHeader: "k1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[dto.Booking](t, w)
	assert.Equal(t, "PENDING", booking.Status)
	assert.Equal(t, int64(65000), booking.Total.Amount)

	w = s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", domainbooking.RoleGuest, create, map[string]string{idempotencyHeader: "k1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, booking.ID, decode[dto.Booking](t, w).ID)

	w = s.do(t, http.MethodPost, "/api/v1/bookings", "guest-2", domainbooking.RoleGuest,
		map[string]any{"property_id": "villa-1", "check_in": "2025-06-12", "check_out": "2025-06-15", "guests": 1}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "date_conflict", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/bookings/"+booking.ID, "guest-2", domainbooking.RoleGuest, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", "guest-1", domainbooking.RoleGuest, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", "host-1", domainbooking.RoleHost, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CONFIRMED", decode[dto.Booking](t, w).Status)

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", "host-1", domainbooking.RoleHost, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "guest-1", domainbooking.RoleGuest, map[string]string{"reason": "sick"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decode[dto.Booking](t, w).Status)

	w = s.do(t, http.MethodGet, "/api/v1/bookings/missing", "guest-1", domainbooking.RoleGuest, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

func TestAvailabilityErrorsCarryCodes(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		query string
		code  string
		state int
	}{
		{"check_in=2025-05-01&check_out=2025-05-04", "past_date", http.StatusUnprocessableEntity},
		{"check_in=2025-06-10&check_out=2025-06-11", "stay_length", http.StatusUnprocessableEntity},
		{"check_in=2025-06-10&check_out=2025-06-13&guests=4", "capacity", http.StatusUnprocessableEntity},
		{"check_in=2025-06-13&check_out=2025-06-10", "invalid_request", http.StatusBadRequest},
		{"check_in=june", "invalid_request", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := s.do(t, http.MethodGet, "/api/v1/properties/villa-1/availability?"+tc.query, "", "", nil, nil)
		assert.Equal(t, tc.state, w.Code, tc.query)
		assert.Equal(t, tc.code, errorCode(t, w), tc.query)
	}

	w := s.do(t, http.MethodGet, "/api/v1/properties/villa-1/availability?check_in=2025-06-10&check_out=2025-06-13&guests=2", "", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.Availability](t, w).Available)

	w = s.do(t, http.MethodGet, "/api/v1/properties/nowhere/availability?check_in=2025-06-10&check_out=2025-06-13", "", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHostBlocksAndCalendar(t *testing.T) {
	s := newTestServer(t)
	block := map[string]string{"start": "2025-06-20", "end": "2025-06-25", "reason": "maintenance"}

	w := s.do(t, http.MethodPost, "/api/v1/properties/villa-1/blocks", "guest-1", domainbooking.RoleGuest, block, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/properties/villa-1/blocks", "host-2", domainbooking.RoleHost, block, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/properties/villa-1/blocks", "host-1", domainbooking.RoleHost, block, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/properties/villa-1/availability?check_in=2025-06-24&check_out=2025-06-27", "", "", nil, nil)
	assert.Equal(t, "date_blocked", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/properties/villa-1/calendar?year=2025&month=6", "", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	month := decode[dto.CalendarMonth](t, w)
	assert.Len(t, month.Days, 42)
	assert.Len(t, month.Blocks, 1)

	w = s.do(t, http.MethodDelete, "/api/v1/properties/villa-1/blocks?start=2025-06-21&end=2025-06-22", "host-1", domainbooking.RoleHost, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"start":"2025-06-22"`)

	w = s.do(t, http.MethodGet, "/api/v1/properties/villa-1/stats?year=2025&month=6", "host-1", domainbooking.RoleHost, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, decode[dto.MonthlyStats](t, w).DaysInMonth)

	w = s.do(t, http.MethodGet, "/api/v1/properties/villa-1/quote?check_in=2025-06-10&check_out=2025-06-12", "", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(45000), decode[dto.Quote](t, w).Breakdown.Total.Amount)
}

func TestCalendarShowsGuestsOnlyToTheHost(t *testing.T) {
	s := newTestServer(t)
	create := map[string]any{"property_id": "villa-1", "check_in": "2025-06-10", "check_out": "2025-06-13", "guests": 2}
	w := s.do(t, http.MethodPost, "/api/v1/bookings", "guest-1", domainbooking.RoleGuest, create, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[dto.Booking](t, w)
	w = s.do(t, http.MethodPost, "/api/v1/properties/villa-1/blocks", "host-1", domainbooking.RoleHost,
		map[string]string{"start": "2025-06-20", "end": "2025-06-22", "reason": "maintenance"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	dayOf := func(month dto.CalendarMonth, date string) dto.CalendarDay {
		for _, d := range month.Days {
			if d.Date == date {
				return d
			}
		}
		t.Fatalf("day %s missing from grid", date)
		return dto.CalendarDay{}
	}

	const path = "/api/v1/properties/villa-1/calendar?year=2025&month=6"
	viewers := []struct {
		name    string
		subject string
		role    domainbooking.Role
	}{
		{"anonymous", "", ""},
		{"guest", "guest-1", domainbooking.RoleGuest},
		{"other host", "host-2", domainbooking.RoleHost},
	}
	for _, v := range viewers {
		w = s.do(t, http.MethodGet, path, v.subject, v.role, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, v.name)
		assert.NotContains(t, w.Body.String(), "guest-1", v.name)
		assert.NotContains(t, w.Body.String(), booking.ID, v.name)
		assert.NotContains(t, w.Body.String(), "host-1", v.name)
		day := dayOf(decode[dto.CalendarMonth](t, w), "2025-06-11")
		assert.Equal(t, "pending", day.Status, v.name)
		assert.False(t, day.IsAvailable, v.name)
	}

	w = s.do(t, http.MethodGet, path, "host-1", domainbooking.RoleHost, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	month := decode[dto.CalendarMonth](t, w)
	day := dayOf(month, "2025-06-11")
	assert.Equal(t, booking.ID, day.BookingID)
	assert.Equal(t, "guest-1", day.GuestLabel)
	assert.Equal(t, "pending", day.Status)
	require.Len(t, month.Blocks, 1)
	assert.Equal(t, "host-1", month.Blocks[0].CreatedBy)
	free := dayOf(month, "2025-06-15")
	assert.Equal(t, int64(20000), free.Price.Amount)
}

func TestAuthenticatorRejectsForeignTokens(t *testing.T) {
	good := Authenticator{Secret: []byte("a")}
	other := Authenticator{Secret: []byte("b")}
	token, err := other.Issue("u1", domainbooking.RoleGuest, time.Hour)
	require.NoError(t, err)
	_, err = good.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := good.Issue("u1", domainbooking.RoleGuest, -time.Minute)
	require.NoError(t, err)
	_, err = good.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err = good.Issue("u1", domainbooking.RoleHost, time.Hour)
	require.NoError(t, err)
	p, err := good.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.Actor{ID: "u1", Role: domainbooking.RoleHost}, p.Actor())
}
