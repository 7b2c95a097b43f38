package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	s := newTestServer(t)
	s.remote.Put(member("user_a", 64))

	rr := serve(s.user.GetProfile, authed(httptest.NewRequest(http.MethodGet, "/api/v1/user", nil), "user_a"))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "user_a", body["id"])
	assert.Equal(t, 64.0, body["ladderScore"])
}

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"nickname":"kim","height":181,"age":31}`, http.StatusOK},
		{"malformed json", `{"nickname":`, http.StatusBadRequest},
		{"age out of range", `{"age":200}`, http.StatusBadRequest},
		{"negative weight", `{"weight":-3}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/user", strings.NewReader(tt.body)), "user_a")
			rr := serve(s.user.UpdateProfile, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestUpdateProfile_ReturnsRecord(t *testing.T) {
	s := newTestServer(t)
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/v1/user", strings.NewReader(`{"nickname":"kim","city":"Seoul"}`)), "user_a")

	rr := serve(s.user.UpdateProfile, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "kim", body["nickname"])
	assert.Equal(t, "Seoul", body["city"])
}
