package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/utils"
)

const maxBodyBytes = 1 << 20

// decodeStrict decodes the JSON body into dst, rejecting unknown fields and any field
// listed in immutable. It writes the 400 response itself and reports false on failure.
func decodeStrict(ctx *gin.Context, dst interface{}, immutable ...string) bool {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxBodyBytes))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return false
	}

	if len(immutable) > 0 {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return false
		}
		for _, field := range immutable {
			if _, ok := raw[field]; ok {
				utils.Error(ctx, http.StatusBadRequest, 40021, fmt.Sprintf("field %q cannot be changed", field))
				return false
			}
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid request payload"
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			msg = "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
		} else if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		utils.Error(ctx, http.StatusBadRequest, 40022, msg)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, 40024, "request body must be a single JSON object")
		return false
	}
	return true
}

// bindJSON decodes a create payload leniently, as gin's ShouldBindJSON does.
func bindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return false
	}
	return true
}
