package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

var errEmptyBody = errors.New("empty request body")

// BindNestedOrFlat binds the JSON request body to obj.
// The first of keys present in a top-level object is unwrapped
// (e.g. {"vouchers": [...]}); otherwise the whole body is bound, which also
// covers a bare array.
func BindNestedOrFlat(c *gin.Context, obj interface{}, keys ...string) error {
	var bodyBytes []byte
	if c.Request.Body != nil {
		var err error
		if bodyBytes, err = io.ReadAll(c.Request.Body); err != nil {
			return err
		}
	}
	// Restore body for future binding or subsequent reads
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return errEmptyBody
	}

	var nestedMap map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &nestedMap); err == nil {
		for _, key := range keys {
			if val, ok := nestedMap[key]; ok {
				return json.Unmarshal(val, obj)
			}
		}
	}

	return json.Unmarshal(bodyBytes, obj)
}
