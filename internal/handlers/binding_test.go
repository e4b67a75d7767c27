package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sjperalta/advance-portal/internal/services"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		body        string
		expected    []services.EmployeeRow
		expectError bool
	}{
		{
			name:     "Entity key",
			body:     `{"employees": [{"id": "E1", "name": "Ana"}]}`,
			expected: []services.EmployeeRow{{ID: "E1", Name: "Ana"}},
		},
		{
			name:     "Rows key",
			body:     `{"rows": [{"id": 7, "name": "Bea"}]}`,
			expected: []services.EmployeeRow{{ID: "7", Name: "Bea"}},
		},
		{
			name:     "Bare array",
			body:     `[{"id": "E3", "name": " Cris "}]`,
			expected: []services.EmployeeRow{{ID: "E3", Name: "Cris"}},
		},
		{
			name:        "Object without a known key",
			body:        `{"data": [{"id": "E1"}]}`,
			expectError: true,
		},
		{
			name:        "Known key with wrong shape",
			body:        `{"employees": "E1"}`,
			expectError: true,
		},
		{
			name:        "Empty body",
			body:        "  ",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result []services.EmployeeRow
			err := BindNestedOrFlat(c, &result, "employees", "rows")

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}
