package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
	"github.com/noah-isme/course-scheduler-api/pkg/middleware/requestid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorRecordsServerCauseAndRequestID(t *testing.T) {
	router := gin.New()
	router.Use(requestid.Middleware())
	var recorded []*gin.Error
	router.GET("/boom", func(c *gin.Context) {
		Error(c, errors.New("backend unreachable"))
		recorded = c.Errors
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestid.HeaderKey, "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, recorded, 1)
	assert.EqualError(t, recorded[0].Err, "backend unreachable")

	var body struct {
		Error *appErrors.Error       `json:"error"`
		Meta  map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrInternal.Code, body.Error.Code)
	assert.Equal(t, "req-7", body.Meta["request_id"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorDoesNotRecordClientErrors(t *testing.T) {
	router := gin.New()
	var recorded int
	router.GET("/nope", func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrNotFound, "session not found"))
		recorded = len(c.Errors)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, recorded)
	assert.NotContains(t, w.Body.String(), "request_id")
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	router := gin.New()
	router.GET("/ok", func(c *gin.Context) {
		JSON(c, http.StatusOK, gin.H{"ready": true}, map[string]interface{}{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"ready":true}}`, w.Body.String())
}

func TestAttachmentQuotesFilenamesWhenNeeded(t *testing.T) {
	router := gin.New()
	router.GET("/file", func(c *gin.Context) {
		Attachment(c, "term schedule.csv", "text/csv", []byte("a,b\n"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/file", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="term schedule.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
