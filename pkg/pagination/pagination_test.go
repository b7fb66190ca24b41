package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		limit, offset int
		want          Params
	}{
		{0, 0, Params{Limit: 50, Offset: 0}},
		{-3, -1, Params{Limit: 50, Offset: 0}},
		{1, 10, Params{Limit: 1, Offset: 10}},
		{200, 0, Params{Limit: 200, Offset: 0}},
		{500, 5, Params{Limit: 200, Offset: 5}},
	}
	for _, tc := range cases {
		if got := Clamp(tc.limit, tc.offset); got != tc.want {
			t.Errorf("Clamp(%d, %d) = %+v, want %+v", tc.limit, tc.offset, got, tc.want)
		}
	}
}

func TestParseQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/v1/trips?limit=999&offset=20", nil)

	if got := Parse(c); got.Limit != MaxLimit || got.Offset != 20 {
		t.Fatalf("Parse = %+v", got)
	}

	c.Request = httptest.NewRequest("GET", "/v1/trips?limit=abc", nil)
	if got := Parse(c); got.Limit != DefaultLimit {
		t.Fatalf("non-numeric limit should default, got %+v", got)
	}
}
