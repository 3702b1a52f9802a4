package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kasunw/whatsapp-relay/internal/domain"
)

type stubSender struct {
	err  error
	to   string
	last *domain.Reply
}

func (s *stubSender) Send(_ context.Context, recipient string, reply *domain.Reply) error {
	s.to = recipient
	s.last = reply
	return s.err
}

func newSendRouter(s ReplySender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/send", SendMessage(s))
	return r
}

func postSend(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessage_DeliversText(t *testing.T) {
	sender := &stubSender{}
	w := postSend(newSendRouter(sender), `{"to":" 15550001111 ","text":" hello operator "}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if sender.to != "15550001111" {
		t.Fatalf("recipient = %q, want trimmed number", sender.to)
	}
	if sender.last == nil || sender.last.Text != "hello operator" || len(sender.last.Images) != 0 {
		t.Fatalf("reply = %+v", sender.last)
	}
}

func TestSendMessage_RejectsMissingFields(t *testing.T) {
	sender := &stubSender{}
	r := newSendRouter(sender)

	for _, body := range []string{
		`{}`,
		`{"to":"15550001111"}`,
		`{"text":"hi"}`,
		`{"to":"   ","text":"hi"}`,
		`not json`,
	} {
		w := postSend(r, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
	if sender.last != nil {
		t.Fatal("invalid requests must not reach the sender")
	}
}

func TestSendMessage_DeliveryFailure502(t *testing.T) {
	sender := &stubSender{err: errors.New("provider down")}
	w := postSend(newSendRouter(sender), `{"to":"15550001111","text":"hi"}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), ErrCodeSendFailed) {
		t.Fatalf("body = %s, want code %s", w.Body.String(), ErrCodeSendFailed)
	}
}
