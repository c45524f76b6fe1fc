package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"woo_console_v1_202610/internal/service"
	"woo_console_v1_202610/pkg/woo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func status(code int) *int { return &code }

func TestEnvelopeStatus(t *testing.T) {
	cases := []struct {
		name string
		env  woo.Envelope
		want int
	}{
		{"success", woo.Envelope{Success: true, StatusCode: status(201)}, http.StatusOK},
		{"permission", woo.Envelope{ErrorCode: woo.CodePermissionDenied}, http.StatusForbidden},
		{"rate limit", woo.Envelope{ErrorCode: woo.CodeRateLimitExceeded}, http.StatusTooManyRequests},
		{"invalid argument", woo.Envelope{ErrorCode: woo.CodeInvalidArgument}, http.StatusBadRequest},
		{"missing field", woo.Envelope{ErrorCode: woo.CodeMissingRequiredField}, http.StatusBadRequest},
		{"batch", woo.Envelope{ErrorCode: woo.CodeInvalidBatchPayload}, http.StatusBadRequest},
		{"report", woo.Envelope{ErrorCode: woo.CodeUnsupportedReportType}, http.StatusBadRequest},
		{"not configured", woo.Envelope{ErrorCode: woo.CodeNotConfigured}, http.StatusConflict},
		{"remote 404", woo.Envelope{ErrorCode: "woocommerce_rest_product_invalid_id", StatusCode: status(404)}, http.StatusNotFound},
		{"remote 500", woo.Envelope{ErrorCode: "http_500", StatusCode: status(500)}, http.StatusBadGateway},
		{"transport", woo.Envelope{ErrorCode: woo.CodeTransportError}, http.StatusBadGateway},
		{"json error", woo.Envelope{ErrorCode: woo.CodeJSONError, StatusCode: status(200)}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, envelopeStatus(&tc.env))
		})
	}
}

func TestWriteEnvelope_Pagination(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	env := &woo.Envelope{
		Success:    true,
		StatusCode: status(200),
		Data:       json.RawMessage(`[{"id":1}]`),
		Headers:    woo.ParseHeaderBlock([]byte("HTTP/1.1 200 OK\r\nX-WP-Total: 42\r\nX-WP-TotalPages: 5\r\n")),
	}
	writeEnvelope(c, env)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Header().Get("X-Total"))
	assert.Equal(t, "5", w.Header().Get("X-Total-Pages"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 1)
	assert.Equal(t, map[string]any{"total": float64(42), "total_pages": float64(5)}, body["pagination"])
}

func TestWriteEnvelope_Failure(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeEnvelope(c, &woo.Envelope{
		ErrorCode:  "woocommerce_rest_cannot_view",
		Error:      "Sorry, you cannot list resources.",
		ErrorData:  json.RawMessage(`{"status":401}`),
		StatusCode: status(401),
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "woocommerce_rest_cannot_view", body["error_code"])
	assert.Equal(t, map[string]any{"status": float64(401)}, body["error_data"])
	assert.NotContains(t, body, "data")
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{woo.ErrStoreNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: manage_settings required", woo.ErrAccessDenied), http.StatusForbidden},
		{fmt.Errorf("add member: %w", service.ErrMemberExists), http.StatusConflict},
		{validation.Errors{"url": errors.New("must be a valid URL")}, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestQueryParams(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x?per_page=10&status=processing&status=completed", nil)

	p := queryParams(c)
	assert.Equal(t, "10", p["per_page"])
	assert.Equal(t, []string{"processing", "completed"}, p["status"])

	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.Nil(t, queryParams(c))
}
