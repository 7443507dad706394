package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// A malformed :id can never name a resource, so it must be indistinguishable
// from an ID that does not exist.
func TestPathIDMalformedIsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/things/:id", func(c *gin.Context) {
		if _, ok := pathID(c); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		id   string
		want int
	}{
		{"not-a-uuid", http.StatusNotFound},
		{"1234", http.StatusNotFound},
		{uuid.New().String(), http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/things/"+tc.id, nil)
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("id %q: status = %d, want %d", tc.id, w.Code, tc.want)
		}
	}
}
