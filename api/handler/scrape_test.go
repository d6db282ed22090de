package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joblens/harvester/models"
)

func recordError(t *testing.T, err error) (*httptest.ResponseRecorder, models.ScrapeResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, err, models.TimingInfo{})

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return w, resp
}

func TestRespondError_UnwrapsWrappedScrapeError(t *testing.T) {
	inner := models.NewScrapeError(models.ErrCodeNavTimeout, "page load deadline exceeded", nil)
	w, resp := recordError(t, fmt.Errorf("run task: %w", inner))

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d", w.Code, http.StatusGatewayTimeout)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeNavTimeout {
		t.Errorf("error detail = %+v, want code %s", resp.Error, models.ErrCodeNavTimeout)
	}
}

func TestRespondError_PlainErrorMapsToInternal(t *testing.T) {
	w, resp := recordError(t, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeInternal {
		t.Errorf("error detail = %+v, want code %s", resp.Error, models.ErrCodeInternal)
	}
}
