package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestJSONEnvelope(t *testing.T) {
	c, rec := newContext()

	JSON(c, http.StatusOK, []string{"a"}, &models.Pagination{Page: 1, PageSize: 24, TotalCount: 1}, map[string]interface{}{"cache_hit": true})

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []interface{}{"a"}, body["data"])
	assert.Equal(t, float64(24), body["pagination"].(map[string]interface{})["page_size"])
	assert.Equal(t, true, body["meta"].(map[string]interface{})["cache_hit"])
	assert.NotContains(t, body, "error")
}

func TestErrorEnvelope(t *testing.T) {
	c, rec := newContext()

	Error(c, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"hallTicket": "is required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "is required", body.Error.Fields["hallTicket"])
	assert.Nil(t, body.Data)
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()

	Attachment(c, "alumni-directory-20240101.csv", "text/csv; charset=utf-8", []byte("Full Name\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="alumni-directory-20240101.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Full Name\n", rec.Body.String())
}
