package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/ops-dashboard/internal/transport/http/handler"
	"github.com/ErlanBelekov/ops-dashboard/internal/usecase"
	"github.com/gin-gonic/gin"
)

type fakeUserStatuser struct {
	users []usecase.UserStatus
}

func (f *fakeUserStatuser) UserStatus(_ context.Context) []usecase.UserStatus { return f.users }

func TestUsersStatus(t *testing.T) {
	h := handler.NewUsersHandler(&fakeUserStatuser{users: []usecase.UserStatus{
		{Email: "a@x.com"},
		{Email: "b@x.com", Active: true},
	}})
	r := gin.New()
	r.GET("/api/users/status", h.Status)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/status", nil))

	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(body, `{"email":"a@x.com","active":false}`) ||
		!strings.Contains(body, `{"email":"b@x.com","active":true}`) {
		t.Errorf("body = %s", body)
	}
}
