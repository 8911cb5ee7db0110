package problem

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, http.StatusNotFound, "Not Found", "order not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"about:blank","title":"Not Found","status":404,"detail":"order not found"}`, rec.Body.String())
}

func TestRenderWithExtension(t *testing.T) {
	body := struct {
		Problem
		Quotation map[string]string `json:"quotation"`
	}{
		Problem:   New(http.StatusUnauthorized, "Unauthorized", "sign in to save"),
		Quotation: map[string]string{"premium": "500"},
	}
	rec := httptest.NewRecorder()
	Render(rec, http.StatusUnauthorized, body)

	assert.JSONEq(t, `{"type":"about:blank","title":"Unauthorized","status":401,"detail":"sign in to save","quotation":{"premium":"500"}}`, rec.Body.String())
}
