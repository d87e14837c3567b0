package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/application/returns"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBindingValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, RegisterValidations(v))
	return v
}

func TestRegisterValidations(t *testing.T) {
	v := newBindingValidator(t)

	valid := returns.CreateReturnRequest{
		SaleID: uuid.New(),
		Items: []returns.CreateReturnItemInput{
			{SaleItemID: uuid.New(), Quantity: 1, Condition: "good"},
		},
		RefundType: "cash",
	}
	assert.NoError(t, v.Struct(valid))

	t.Run("unknown condition inside items", func(t *testing.T) {
		req := valid
		req.Items = []returns.CreateReturnItemInput{
			{SaleItemID: uuid.New(), Quantity: 1, Condition: "good"},
			{SaleItemID: uuid.New(), Quantity: 1, Condition: "smashed"},
		}

		details := FormatValidationErrors(v.Struct(req))

		require.Len(t, details, 1)
		assert.Equal(t, "items[1].condition", details[0].Field)
		assert.Equal(t, "Must be one of: good damaged defective", details[0].Message)
	})

	t.Run("empty items and unknown refund type", func(t *testing.T) {
		req := valid
		req.Items = nil
		req.RefundType = "voucher"

		details := FormatValidationErrors(v.Struct(req))

		fields := make(map[string]string, len(details))
		for _, d := range details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["items"])
		assert.Equal(t, "Must be one of: cash card adjustment credit", fields["refund_type"])
	})

	t.Run("status update", func(t *testing.T) {
		assert.NoError(t, v.Struct(returns.UpdateStatusRequest{Status: "approved"}))

		details := FormatValidationErrors(v.Struct(returns.UpdateStatusRequest{Status: "archived"}))
		require.Len(t, details, 1)
		assert.Equal(t, "status", details[0].Field)
	})
}

func TestFormatValidationErrors_NotValidatorError(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(assert.AnError))
}

func TestHandleValidationError(t *testing.T) {
	require.NoError(t, SetupValidator())

	router := gin.New()
	router.Use(RequestID())
	router.POST("/api/v1/returns", func(c *gin.Context) {
		var req returns.CreateReturnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/returns", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("malformed json", func(t *testing.T) {
		w := post(`{"sale_id":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w).Code)
	})

	t.Run("field details", func(t *testing.T) {
		w := post(`{"sale_id":"` + uuid.NewString() + `","items":[],"refund_type":"cash"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body struct {
			Error struct {
				Code    string                 `json:"code"`
				Details []dto.ValidationDetail `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, dto.ErrCodeValidation, body.Error.Code)
		require.Len(t, body.Error.Details, 1)
		assert.Equal(t, "items", body.Error.Details[0].Field)
		assert.Equal(t, "Must be at least 1", body.Error.Details[0].Message)
	})
}
