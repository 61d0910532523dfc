package auth_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/common"
)

const testSecret = "counter-secret-with-enough-entropy-123"

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.Config{Secret: testSecret, Issuer: "apotek-auth", Audience: "apotek-api", ClockSkew: time.Second})
	require.NoError(t, err)
	return v
}

func TestSignAndParseRoundTrip(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Sign(common.Principal{StaffID: "staff-9", Role: common.RoleOwner, SessionID: "s1"}, time.Minute)
	require.NoError(t, err)

	p, err := v.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "staff-9", p.StaffID)
	require.Equal(t, common.RoleOwner, p.Role)
	require.Equal(t, "staff-9:s1", p.CartSession())
}

func TestParseRejectsForeignAndUnsignedTokens(t *testing.T) {
	v := newVerifier(t)
	other, err := auth.NewVerifier(auth.Config{Secret: "another-secret-entirely-0000000000", Issuer: "apotek-auth", Audience: "apotek-api"})
	require.NoError(t, err)
	foreign, err := other.Sign(common.Principal{StaffID: "x", Role: common.RoleStaff}, time.Minute)
	require.NoError(t, err)
	_, err = v.ParseAccessToken(foreign)
	require.Error(t, err)

	enc := base64.RawURLEncoding
	unsigned := enc.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"x","role":"owner"}`)) + "."
	_, err = v.ParseAccessToken(unsigned)
	require.Error(t, err)

	_, err = v.ParseAccessToken("   ")
	require.Error(t, err)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Sign(common.Principal{StaffID: "staff-1", Role: "admin"}, time.Minute)
	require.NoError(t, err)
	_, err = v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	v := newVerifier(t)
	v.WithNow(func() time.Time { return time.Now().Add(-time.Hour) })
	token, err := v.Sign(common.Principal{StaffID: "staff-1", Role: common.RoleStaff}, time.Minute)
	require.NoError(t, err)
	v.WithNow(time.Now)
	_, err = v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := auth.NewVerifier(auth.Config{})
	require.Error(t, err)
}

func TestMiddlewareRoles(t *testing.T) {
	v := newVerifier(t)
	mw := auth.Middleware{Verifier: v}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := common.PrincipalFrom(r.Context())
		_, _ = w.Write([]byte(p.StaffID))
	})
	ownerOnly := mw.RequireAuth(auth.RequireRole(common.RoleOwner)(ok))

	do := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, do(ownerOnly, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(ownerOnly, "garbage").Code)

	staff, err := v.Sign(common.Principal{StaffID: "staff-1", Role: common.RoleStaff}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, do(ownerOnly, staff).Code)

	rec := do(mw.RequireAuth(ok), staff)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "staff-1", rec.Body.String())

	owner, err := v.Sign(common.Principal{StaffID: "owner-1", Role: common.RoleOwner}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, do(ownerOnly, owner).Code)
}
