package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/utils"
)

func newAuthEngine(tokens *utils.TokenManager, blacklist utils.TokenBlacklist) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(tokens, blacklist), func(ctx *gin.Context) {
		actor := ActorFrom(ctx)
		token, exp := TokenFrom(ctx)
		ctx.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role, "hasToken": token != "", "hasExp": !exp.IsZero()})
	})
	r.GET("/maybe", OptionalAuth(tokens, blacklist), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"anonymous": ActorFrom(ctx) == nil})
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredRejectsWithGenericMessage(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	blacklist := utils.NewTokenBlacklist()
	revoked, exp, _ := tokens.Generate("u1", "alice", "regular")
	blacklist.Revoke(context.Background(), revoked, exp)
	foreign, _, _ := utils.NewTokenManager("other", time.Hour).Generate("u1", "alice", "admin")

	r := newAuthEngine(tokens, blacklist)
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"empty token":    "Bearer ",
		"bad token":      "Bearer not.a.token",
		"foreign secret": "Bearer " + foreign,
		"revoked":        "Bearer " + revoked,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := get(r, "/me", header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status %d want 401", w.Code)
			}
			var body utils.JSONResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Message != "authentication required" {
				t.Fatalf("message %q leaks detail", body.Message)
			}
		})
	}
}

func TestAuthRequiredSetsActor(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Generate("u1", "alice", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	w := get(newAuthEngine(tokens, utils.NewTokenBlacklist()), "/me", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		ID       string `json:"id"`
		Role     string `json:"role"`
		HasToken bool   `json:"hasToken"`
		HasExp   bool   `json:"hasExp"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "u1" || body.Role != "admin" || !body.HasToken || !body.HasExp {
		t.Fatalf("unexpected actor: %+v", body)
	}
}

func TestOptionalAuth(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	r := newAuthEngine(tokens, utils.NewTokenBlacklist())
	token, _, _ := tokens.Generate("u1", "alice", "regular")

	for header, anonymous := range map[string]bool{
		"":                 true,
		"Bearer garbage":   true,
		"Bearer " + token: false,
	} {
		w := get(r, "/maybe", header)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status %d", header, w.Code)
		}
		var body struct {
			Anonymous bool `json:"anonymous"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Anonymous != anonymous {
			t.Fatalf("%q: anonymous=%v want %v", header, body.Anonymous, anonymous)
		}
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	var limited bool
	for i := 0; i < 5; i++ {
		if get(r, "/x", "").Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("burst was never limited")
	}
}

func TestTimeoutWritesGatewayTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/slow", Timeout(10*time.Millisecond), func(ctx *gin.Context) {
		<-ctx.Request.Context().Done()
	})
	w := get(r, "/slow", "")
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status %d want 504", w.Code)
	}
}
