package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_IssueAndParse(t *testing.T) {
	s := NewSigner("test-signing-key", "centre")
	tok, err := s.IssuePass(3.5, time.Minute)
	require.NoError(t, err)

	claims, err := s.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, RoleCheckin, claims.Role)
	assert.Equal(t, 3.5, claims.Distance)
	assert.Equal(t, "centre", claims.Issuer)
}

func TestSigner_RejectsExpiredAndForeign(t *testing.T) {
	s := NewSigner("test-signing-key", "centre")
	tok, err := s.IssueAdmin(time.Minute)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Parse(tok.Value)
	assert.Error(t, err)

	other := NewSigner("test-signing-key", "elsewhere")
	tok, err = other.IssueAdmin(time.Minute)
	require.NoError(t, err)
	_, err = NewSigner("test-signing-key", "centre").Parse(tok.Value)
	assert.Error(t, err)

	_, err = NewSigner("another-key-entirely", "elsewhere").Parse(tok.Value)
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewSigner("test-signing-key", "centre")
	r := gin.New()
	r.GET("/admin", RequireRole(s, RoleAdmin), func(c *gin.Context) {
		claims := c.MustGet(ClaimsKey).(Claims)
		c.String(http.StatusOK, claims.Role)
	})

	admin, err := s.IssueAdmin(time.Minute)
	require.NoError(t, err)
	pass, err := s.IssuePass(1, time.Minute)
	require.NoError(t, err)

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nonsense", http.StatusUnauthorized},
		{"Bearer " + pass.Value, http.StatusForbidden},
		{"bearer " + admin.Value, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "header %q", tc.header)
	}
}
