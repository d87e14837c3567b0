package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/auth"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestGetRequestID(t *testing.T) {
	t.Run("context takes precedence over header", func(t *testing.T) {
		c, _ := newTestContext()
		c.Set(middleware.RequestIDKey, "ctx-id")
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")

		assert.Equal(t, "ctx-id", getRequestID(c))
	})

	t.Run("header when context empty", func(t *testing.T) {
		c, _ := newTestContext()
		c.Request.Header.Set(middleware.RequestIDHeader, "header-id")

		assert.Equal(t, "header-id", getRequestID(c))
	})
}

func TestGetActor(t *testing.T) {
	c, _ := newTestContext()
	_, _, err := getActor(c)
	assert.ErrorIs(t, err, errNoActor)

	userID, storeID := uuid.New(), uuid.New()
	c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: userID.String(), StoreID: storeID.String()})
	gotUser, gotStore, err := getActor(c)
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, storeID, gotStore)

	c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: "not-a-uuid", StoreID: storeID.String()})
	_, _, err = getActor(c)
	assert.Error(t, err)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantDetails bool
	}{
		{"legacy concurrency code", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeStaleStatus, false},
		{"wrapped domain error", fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound, false},
		{"details kept", shared.NewDomainError("INVALID_TRANSITION", "no").WithDetails(map[string]string{"from": "completed"}),
			http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition, true},
		{"unknown code", shared.NewDomainError("SOMETHING_NEW", "x"), http.StatusInternalServerError, "SOMETHING_NEW", false},
		{"plain error", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()
			c.Set(middleware.RequestIDKey, "req-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
			assert.Equal(t, tt.wantDetails, resp.Error.Details != nil)
			assert.Equal(t, tt.wantCode, c.GetString(middleware.ErrorCodeKey))
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newTestContext()
		(&BaseHandler{}).HandleError(c, nil)
		assert.False(t, c.Writer.Written())
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"a"}, 41, 3, 0)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.Page)
	assert.Equal(t, dto.DefaultPageSize, resp.Meta.PageSize)
}
