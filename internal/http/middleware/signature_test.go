package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newSignatureRouter(secret string) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.POST("/webhook", VerifySignature(secret), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		seen = string(b)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func postSigned(r *gin.Engine, body, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if sig != "" {
		req.Header.Set("X-Hub-Signature-256", sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifySignature_ValidSignaturePassesBodyThrough(t *testing.T) {
	const secret = "app-secret"
	const body = `{"object":"whatsapp_business_account"}`
	r, seen := newSignatureRouter(secret)

	w := postSigned(r, body, signBody(secret, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if *seen != body {
		t.Fatalf("handler saw %q, want untouched body", *seen)
	}
}

func TestVerifySignature_RejectsMismatch(t *testing.T) {
	r, _ := newSignatureRouter("app-secret")

	w := postSigned(r, `{"a":1}`, signBody("other-secret", `{"a":1}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestVerifySignature_RejectsMissingOrMalformedHeader(t *testing.T) {
	r, _ := newSignatureRouter("app-secret")

	for _, sig := range []string{"", "sha256=", "md5=abc", "deadbeef"} {
		w := postSigned(r, `{}`, sig)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("sig %q: status = %d, want 401", sig, w.Code)
		}
	}
}

func TestVerifySignature_DisabledWithoutSecret(t *testing.T) {
	r, seen := newSignatureRouter("")

	w := postSigned(r, `{"a":1}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want check disabled", w.Code)
	}
	if *seen != `{"a":1}` {
		t.Fatalf("handler saw %q", *seen)
	}
}
