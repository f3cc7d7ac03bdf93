package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/utils"
)

func decodePatch(body string, immutable ...string) (bool, *httptest.ResponseRecorder, models.PostPatch) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPut, "/api/course/1", strings.NewReader(body))
	var patch models.PostPatch
	ok := decodeStrict(ctx, &patch, immutable...)
	return ok, w, patch
}

func TestDecodeStrictAcceptsAllowlistedFields(t *testing.T) {
	ok, _, patch := decodePatch("{\"title\": \"new\", \"tags\": [\"go\"]}\n", immutablePostFields...)
	if !ok {
		t.Fatal("valid patch rejected")
	}
	if patch.Title == nil || *patch.Title != "new" || patch.Tags == nil || len(*patch.Tags) != 1 {
		t.Fatalf("unexpected patch: %+v", patch)
	}
}

func TestDecodeStrictRejects(t *testing.T) {
	cases := map[string]struct {
		body      string
		immutable []string
		code      int
	}{
		"empty":                    {"", nil, 40022},
		"unknown field":            {`{"title":"x","votes":3}`, immutablePostFields, 40022},
		"immutable":                {`{"creator":"someone"}`, immutablePostFields, 40021},
		"trailing text":            {`{"title":"x"} trailing`, nil, 40024},
		"second object":            {`{"title":"x"}{"title":"y"}`, nil, 40024},
		"trailing with immutables": {`{"title":"x"} trailing`, immutablePostFields, 40020},
		"not an object":            {`["title"]`, immutablePostFields, 40020},
		"malformed json":           {`{"title":`, immutablePostFields, 40020},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ok, w, _ := decodePatch(tc.body, tc.immutable...)
			if ok {
				t.Fatal("payload accepted")
			}
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status %d want 400", w.Code)
			}
			var body utils.JSONResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("code %d want %d (%s)", body.Code, tc.code, body.Message)
			}
		})
	}
}
