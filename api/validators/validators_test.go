package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
)

type samplePayload struct {
	ItemName string `json:"item_name" validate:"required"`
	Qty      int    `json:"qty" validate:"gt=0"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_name":"","qty":0}`))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["item_name"])
	assert.Equal(t, "must be greater than 0", details["qty"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_name":"Helmet","qty":1,"extra":true}`))
	var payload samplePayload
	assert.True(t, pkgerrors.HasCode(DecodeJSONBody(req, &payload), pkgerrors.CodeValidation))
}

func TestParsePathID(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("reqId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	id, err := ParsePathID(withParam("42"), "reqId")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := ParsePathID(withParam(bad), "reqId")
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), bad)
	}
}

func TestParseQueryDate(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseQueryDate(httptest.NewRequest(http.MethodGet, "/?date=2026-03-01", nil), "date", fallback)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", got.Format(time.DateOnly))

	got, err = ParseQueryDate(httptest.NewRequest(http.MethodGet, "/", nil), "date", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	_, err = ParseQueryDate(httptest.NewRequest(http.MethodGet, "/?date=03/01/2026", nil), "date", fallback)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
