package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWrapClassifies(t *testing.T) {
	if Wrap(nil, 1, "x") != nil {
		t.Fatal("nil should stay nil")
	}
	nf := NotFound(40401, "post not found")
	if got := Wrap(fmt.Errorf("load: %w", nf), 1, "x"); KindOf(got) != KindNotFound {
		t.Fatalf("wrapped AppError lost its kind: %v", got)
	}
	if got := Wrap(fmt.Errorf("query: %w", context.DeadlineExceeded), 1, "x"); KindOf(got) != KindTimeout {
		t.Fatalf("deadline not classified as timeout: %v", got)
	}
	got := Wrap(errors.New("boom"), 50099, "failed")
	var appErr *AppError
	if !errors.As(got, &appErr) || appErr.Kind != KindInternal || appErr.Code != 50099 {
		t.Fatalf("unexpected internal wrap: %#v", got)
	}
}

func TestFailWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   int
		msg    string
	}{
		{Forbidden(40300, "nope"), http.StatusForbidden, 40300, "nope"},
		{NotFound(40401, "post not found"), http.StatusNotFound, 40401, "post not found"},
		{errors.New("dsn password leaked"), http.StatusInternalServerError, 50000, "internal server error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, 50400, "request timed out"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		ctx.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
		Fail(ctx, tc.err)

		if w.Code != tc.status {
			t.Fatalf("%v: status %d want %d", tc.err, w.Code, tc.status)
		}
		var body JSONResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Code != tc.code || body.Message != tc.msg {
			t.Fatalf("%v: got %+v", tc.err, body)
		}
	}
}
