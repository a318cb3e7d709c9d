package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJSONWithPagination(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, []string{"a"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total_count"])
}

func TestErrorUsesTypedStatus(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "student not found", body.Error.Message)
}

func TestAttachment(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "backup.json", "application/json", []byte(`{}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="backup.json"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "{}", w.Body.String())
}
