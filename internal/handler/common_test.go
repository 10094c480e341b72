package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/venue-checkin/internal/checkin"
	"github.com/iliyamo/venue-checkin/internal/repository"
)

func TestRespondErrorMapping(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", fmt.Errorf("guest 3: %w", repository.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{"already in", checkin.ErrAlreadyCheckedIn, http.StatusConflict, `{"error":"invalid state transition: already checked in","code":"already_checked_in"}`},
		{"not yet in", checkin.ErrNotYetCheckedIn, http.StatusConflict, `{"error":"invalid state transition: not yet checked in","code":"not_yet_checked_in"}`},
		{"unknown kind", repository.ErrUnknownKind, http.StatusBadRequest, ""},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			assert.NoError(t, respondError(c, quiet, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }

type upDB struct{}

func (upDB) PingContext(context.Context) error { return nil }

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		db     Pinger
		status int
	}{{upDB{}, http.StatusOK}, {downDB{}, http.StatusServiceUnavailable}} {
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
		assert.NoError(t, Health(tc.db)(c))
		assert.Equal(t, tc.status, rec.Code)
	}
}

func TestParseID(t *testing.T) {
	e := echo.New()
	for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "x": false, "": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, err := parseID(c, "id")
		assert.Equal(t, ok, err == nil, raw)
	}
}
