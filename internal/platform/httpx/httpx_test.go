package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{NotFound("PRESET_NOT_FOUND"), http.StatusNotFound, "PRESET_NOT_FOUND"},
		{Conflict("PARTNER_DISABLED", ""), http.StatusConflict, "PARTNER_DISABLED"},
		{Validation("AMOUNT_INVALID", "amount"), http.StatusBadRequest, "AMOUNT_INVALID"},
		{Forbidden("FORBIDDEN_ROLE"), http.StatusForbidden, "FORBIDDEN_ROLE"},
		{fmt.Errorf("wrapped: %w", ErrUnauthorized), http.StatusUnauthorized, ""},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code)

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Code)
		require.Equal(t, tc.status, body.Status)
	}
}

func TestInternalErrorsDoNotLeakDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: relation movements does not exist"))
	require.NotContains(t, rr.Body.String(), "movements")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Date string `json:"date"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"date":"2024-01-01","extra":1}`))
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "BAD_REQUEST", CodeOf(err))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)
}

func TestValidateNamesFields(t *testing.T) {
	type payload struct {
		Mode string `validate:"required,oneof=week month"`
	}
	err := Validate(payload{Mode: "year"})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "Mode oneof")
	require.NoError(t, Validate(payload{Mode: "week"}))
}
