package strategy_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/router"
	"github.com/iaconlabs/switchyard/strategy"
)

func returning(v any, err error) router.Controller {
	return router.ControllerFunc(func(*http.Request) (any, error) { return v, err })
}

func TestApplication_InvokeRoute(t *testing.T) {
	t.Parallel()

	s := strategy.NewApplication(nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	own := router.NewResponse(http.StatusAccepted)

	tests := []struct {
		name        string
		value       any
		status      int
		body        string
		contentType string
	}{
		{"response passthrough", own, http.StatusAccepted, "", ""},
		{"string", "hello", http.StatusOK, "hello", ""},
		{"bytes", []byte("raw"), http.StatusOK, "raw", ""},
		{"nil", nil, http.StatusNoContent, "", ""},
		{"map", map[string]int{"n": 1}, http.StatusOK, `{"n":1}`, router.ContentTypeJSON},
		{"slice", []string{"a"}, http.StatusOK, `["a"]`, router.ContentTypeJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.InvokeRoute(returning(tt.value, nil), req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.body, string(resp.Body))
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
		})
	}

	resp, err := s.InvokeRoute(returning(own, nil), req)
	require.NoError(t, err)
	assert.Same(t, own, resp)
}

func TestApplication_ErrorsPassThrough(t *testing.T) {
	t.Parallel()

	s := strategy.NewApplication(nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	boom := errors.New("boom")

	_, err := s.InvokeRoute(returning(nil, boom), req)
	assert.ErrorIs(t, err, boom)

	notFound := httperr.NotFound()
	_, err = s.NotFoundDecorator(notFound).Process(req, nil)
	assert.Same(t, notFound, err)

	mna := httperr.MethodNotAllowed([]string{http.MethodGet})
	_, err = s.MethodNotAllowedDecorator(mna).Process(req, nil)
	assert.Same(t, mna, err)

	_, err = s.ThrowableHandler().Process(req, router.HandlerFunc(func(*http.Request) (*router.Response, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestJSON_RendersEverything(t *testing.T) {
	t.Parallel()

	s := strategy.NewJSON(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	resp, err := s.InvokeRoute(returning("plain", nil), req)
	require.NoError(t, err)
	assert.JSONEq(t, `"plain"`, string(resp.Body))
	assert.Equal(t, router.ContentTypeJSON, resp.Header.Get("Content-Type"))

	resp, err = s.MethodNotAllowedDecorator(httperr.MethodNotAllowed([]string{"GET", "POST"})).Process(req, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
	assert.Equal(t, "GET, POST", resp.Header.Get("Allow"))

	var body httperr.Body
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	assert.Equal(t, httperr.SlugMethodNotAllowed, body.Error)
}

func TestJSON_ThrowableHandlerHidesInternalsOutsideDebug(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	failing := router.HandlerFunc(func(*http.Request) (*router.Response, error) {
		return nil, errors.New("db password leaked")
	})

	for _, debug := range []bool{false, true} {
		resp, err := strategy.NewJSON(nil, debug).ThrowableHandler().Process(req, failing)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)

		var body httperr.Body
		require.NoError(t, json.Unmarshal(resp.Body, &body))
		if debug {
			assert.Equal(t, "db password leaked", body.Description)
		} else {
			assert.Empty(t, body.Description)
		}
	}
}
