package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickfix_backend/internal/booking"
	"quickfix_backend/internal/common"
	"quickfix_backend/internal/notification"
	"quickfix_backend/internal/provider"
)

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, "success", envelope.Status, "unexpected response body: %s", rr.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestBookingAPI_FullLifecycle(t *testing.T) {
	router, ids := setupTestServer(t)

	providerToken := ids.MintToken("prov-uid", "rahim@test.com", "Rahim")
	customerToken := ids.MintToken("cust-uid", "anika@test.com", "Anika")

	// The provider registers a profile.
	rr := doJSON(t, router, "POST", "/api/v1/providers", providerToken, provider.RegisterProviderRequest{
		Name:            "Rahim Electric",
		Phone:           "+8801234567",
		Category:        "Electrician",
		Location:        "Dhaka",
		ExperienceYears: 8,
		Description:     "Residential wiring and fan repair",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var profile provider.Profile
	decodeData(t, rr, &profile)
	require.NotEmpty(t, profile.ID)

	// Registering twice is a conflict.
	rr = doJSON(t, router, "POST", "/api/v1/providers", providerToken, provider.RegisterProviderRequest{
		Name: "Rahim Again", Phone: "+880111", Category: "Electrician",
		Location: "Dhaka", ExperienceYears: 8, Description: "dup",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// The public directory lists the profile.
	rr = doJSON(t, router, "GET", "/api/v1/providers?category=electrician", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var directory struct {
		Data []provider.Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &directory))
	require.Len(t, directory.Data, 1)

	// The customer books the provider.
	rr = doJSON(t, router, "POST", "/api/v1/bookings", customerToken, booking.CreateBookingRequest{
		ProviderID:       profile.ID,
		ServiceDate:      "2024-05-01",
		PreferredTime:    "10:00",
		IssueDescription: "fan not working",
		ContactNumber:    "+8801234567",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created booking.Booking
	decodeData(t, rr, &created)
	assert.Equal(t, booking.StatusPending, created.Status)
	assert.Equal(t, "Rahim Electric", created.ProviderName)
	assert.Equal(t, "Anika", created.UserName)

	// The customer dashboard shows the booking with the customer role.
	var dashboard struct {
		Role     string            `json:"role"`
		Bookings []booking.Booking `json:"bookings"`
	}
	rr = doJSON(t, router, "GET", "/api/v1/bookings", customerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeData(t, rr, &dashboard)
	assert.Equal(t, "customer", dashboard.Role)
	require.Len(t, dashboard.Bookings, 1)

	// The provider dashboard shows the same booking with the provider role.
	rr = doJSON(t, router, "GET", "/api/v1/bookings", providerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeData(t, rr, &dashboard)
	assert.Equal(t, "provider", dashboard.Role)
	require.Len(t, dashboard.Bookings, 1)

	transitionPath := fmt.Sprintf("/api/v1/bookings/%s/status", created.ID)

	// A customer cannot advance the lifecycle.
	rr = doJSON(t, router, "PATCH", transitionPath, customerToken, booking.TransitionRequest{Status: booking.StatusAccepted})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Skipping a step is rejected.
	rr = doJSON(t, router, "PATCH", transitionPath, providerToken, booking.TransitionRequest{Status: booking.StatusCompleted})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// The provider accepts, then completes.
	rr = doJSON(t, router, "PATCH", transitionPath, providerToken, booking.TransitionRequest{Status: booking.StatusAccepted})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated booking.Booking
	decodeData(t, rr, &updated)
	assert.Equal(t, booking.StatusAccepted, updated.Status)

	rr = doJSON(t, router, "PATCH", transitionPath, providerToken, booking.TransitionRequest{Status: booking.StatusCompleted})
	require.Equal(t, http.StatusOK, rr.Code)

	// Completed is terminal.
	rr = doJSON(t, router, "PATCH", transitionPath, providerToken, booking.TransitionRequest{Status: booking.StatusAccepted})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// The customer was notified about both transitions.
	rr = doJSON(t, router, "GET", "/api/v1/notifications", customerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var customerNotifs struct {
		Data []notification.NotificationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &customerNotifs))
	types := make(map[string]bool)
	for _, n := range customerNotifs.Data {
		types[n.Type] = true
		assert.Equal(t, created.ID, n.BookingID)
	}
	assert.True(t, types[notification.TypeBookingAccepted])
	assert.True(t, types[notification.TypeBookingCompleted])

	// The provider was notified about the new booking, and can mark it read.
	rr = doJSON(t, router, "GET", "/api/v1/notifications", providerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var providerNotifs struct {
		Data []notification.NotificationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &providerNotifs))
	require.NotEmpty(t, providerNotifs.Data)
	assert.Equal(t, notification.TypeBookingCreated, providerNotifs.Data[0].Type)
	assert.False(t, providerNotifs.Data[0].IsRead)

	rr = doJSON(t, router, "POST", fmt.Sprintf("/api/v1/notifications/%s/read", providerNotifs.Data[0].ID), providerToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBookingAPI_RequiresAuthentication(t *testing.T) {
	router, _ := setupTestServer(t)

	rr := doJSON(t, router, "GET", "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, router, "POST", "/api/v1/bookings", "garbage-token", booking.CreateBookingRequest{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBookingAPI_ValidatesPayload(t *testing.T) {
	router, ids := setupTestServer(t)
	token := ids.MintToken("cust-uid", "anika@test.com", "Anika")

	// Malformed date and missing fields fail validation before any store access.
	rr := doJSON(t, router, "POST", "/api/v1/bookings", token, map[string]string{
		"provider_id":  "some-provider",
		"service_date": "01-05-2024",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var errBody common.APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errBody))
	assert.Equal(t, "VALIDATION_ERROR", errBody.Code)
}

func TestAuthAPI_RegisterLoginMe(t *testing.T) {
	router, _ := setupTestServer(t)

	rr := doJSON(t, router, "POST", "/api/v1/auth/register", "", map[string]string{
		"email":        "new@test.com",
		"password":     "secret123",
		"display_name": "New User",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "new@test.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var session struct {
		IDToken string `json:"id_token"`
	}
	decodeData(t, rr, &session)
	require.NotEmpty(t, session.IDToken)

	rr = doJSON(t, router, "GET", "/api/v1/auth/me", session.IDToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		Principal struct {
			Email string `json:"email"`
		} `json:"principal"`
	}
	decodeData(t, rr, &me)
	assert.Equal(t, "new@test.com", me.Principal.Email)

	rr = doJSON(t, router, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "new@test.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
