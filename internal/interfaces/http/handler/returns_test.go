package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	returnsapp "github.com/retailpos/backoffice/internal/application/returns"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/auth"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// MockReturnService implements ReturnService for testing
type MockReturnService struct {
	mock.Mock
}

func (m *MockReturnService) ListReturns(ctx context.Context, filter returnsapp.ReturnListFilter) ([]returnsapp.ReturnListItemResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]returnsapp.ReturnListItemResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockReturnService) GetReturn(ctx context.Context, returnID uuid.UUID) (*returnsapp.ReturnResponse, error) {
	args := m.Called(ctx, returnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsapp.ReturnResponse), args.Error(1)
}

func (m *MockReturnService) GetReturnableLines(ctx context.Context, saleID uuid.UUID) (*returnsapp.ReturnableLinesResponse, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsapp.ReturnableLinesResponse), args.Error(1)
}

func (m *MockReturnService) CreateReturn(ctx context.Context, actorID uuid.UUID, req returnsapp.CreateReturnRequest) (*returnsapp.ReturnResponse, error) {
	args := m.Called(ctx, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsapp.ReturnResponse), args.Error(1)
}

func (m *MockReturnService) UpdateReturnStatus(ctx context.Context, returnID, actorID uuid.UUID, req returnsapp.UpdateStatusRequest) (*returnsapp.ReturnResponse, error) {
	args := m.Called(ctx, returnID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsapp.ReturnResponse), args.Error(1)
}

func (m *MockReturnService) DeleteReturn(ctx context.Context, returnID, actorID uuid.UUID) error {
	return m.Called(ctx, returnID, actorID).Error(0)
}

func (m *MockReturnService) GetStatusSummary(ctx context.Context, storeID *uuid.UUID) (*returnsapp.StatusSummaryResponse, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsapp.StatusSummaryResponse), args.Error(1)
}

func (m *MockReturnService) GetReceiptURL(ctx context.Context, returnID uuid.UUID) (*returnsapp.ReceiptURLResponse, error) {
	args := m.Called(ctx, returnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returnsapp.ReceiptURLResponse), args.Error(1)
}

// testCaller is the authenticated user of a test request
type testCaller struct {
	userID  uuid.UUID
	storeID uuid.UUID
	perms   []string
}

func newCaller(perms ...string) testCaller {
	return testCaller{userID: uuid.New(), storeID: uuid.New(), perms: perms}
}

// setupReturnRouter mounts the handler the way the API does, with claims
// injected in place of the JWT middleware
func setupReturnRouter(svc ReturnService, caller *testCaller) *gin.Engine {
	h := NewReturnHandler(svc)
	r := gin.New()
	r.Use(middleware.RequestID())
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.JWTClaimsKey, &auth.Claims{
				UserID:      caller.userID.String(),
				StoreID:     caller.storeID.String(),
				Permissions: caller.perms,
				TokenType:   auth.TokenTypeAccess,
			})
			c.Next()
		})
	}
	r.GET("/api/v1/returns", h.List)
	r.GET("/api/v1/returns/stats/summary", h.GetStatusSummary)
	r.GET("/api/v1/returns/:id", h.GetByID)
	r.GET("/api/v1/returns/:id/receipt", h.GetReceipt)
	r.POST("/api/v1/returns", h.Create)
	r.PATCH("/api/v1/returns/:id/status", h.UpdateStatus)
	r.DELETE("/api/v1/returns/:id", h.Delete)
	r.GET("/api/v1/sales/:id/returnable-lines", h.GetReturnableLines)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"request_id"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *dto.Meta `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestReturnHandler_Create(t *testing.T) {
	caller := newCaller(auth.PermissionReturnsCreate)
	saleID := uuid.New()
	itemID := uuid.New()
	body := map[string]any{
		"sale_id":     saleID,
		"refund_type": "cash",
		"items": []map[string]any{
			{"sale_item_id": itemID, "quantity": 2, "condition": "good", "restock": true},
		},
	}

	t.Run("creates a pending return scoped to the caller's store", func(t *testing.T) {
		svc := new(MockReturnService)
		returnID := uuid.New()
		svc.On("CreateReturn", mock.Anything, caller.userID, mock.MatchedBy(func(req returnsapp.CreateReturnRequest) bool {
			return req.SaleID == saleID && req.StoreID == caller.storeID &&
				len(req.Items) == 1 && req.Items[0].Quantity == 2 && req.Items[0].Restock
		})).Return(&returnsapp.ReturnResponse{
			ID:           returnID,
			Status:       "pending",
			RefundAmount: decimal.RequireFromString("21.99"),
		}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodPost, "/api/v1/returns", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decode(t, w)
		assert.True(t, env.Success)
		var got returnsapp.ReturnResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, returnID, got.ID)
		assert.Equal(t, "21.99", got.RefundAmount.String())
		svc.AssertExpectations(t)
	})

	t.Run("over-return reports every rejected line", func(t *testing.T) {
		svc := new(MockReturnService)
		violations := returns.ValidationErrors{{
			Code:       returns.ViolationQuantityExceedsEligible,
			ItemIndex:  0,
			SaleItemID: itemID,
			Requested:  2,
			Returnable: 1,
			Message:    "only 1 left to return",
		}}
		svc.On("CreateReturn", mock.Anything, caller.userID, mock.Anything).
			Return(nil, returns.NewValidationFailedError(violations))

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodPost, "/api/v1/returns", body)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decode(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeReturnValidation, env.Error.Code)
		assert.NotEmpty(t, env.Error.RequestID)
		var details returns.ValidationErrors
		require.NoError(t, json.Unmarshal(env.Error.Details, &details))
		require.Len(t, details, 1)
		assert.Equal(t, returns.ViolationQuantityExceedsEligible, details[0].Code)
		assert.Equal(t, 1, details[0].Returnable)
	})

	t.Run("binding failure never reaches the service", func(t *testing.T) {
		svc := new(MockReturnService)
		bad := map[string]any{"sale_id": saleID, "refund_type": "voucher", "items": []any{}}

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodPost, "/api/v1/returns", bad)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)
		svc.AssertNotCalled(t, "CreateReturn", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires an authenticated caller", func(t *testing.T) {
		svc := new(MockReturnService)

		w := doJSON(t, setupReturnRouter(svc, nil), http.MethodPost, "/api/v1/returns", body)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestReturnHandler_UpdateStatus(t *testing.T) {
	caller := newCaller(auth.PermissionReturnsManage)
	returnID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"approved", nil, http.StatusOK, ""},
		{"stale", returns.ErrStaleStatus, http.StatusConflict, dto.ErrCodeStaleStatus},
		{"invalid transition", returns.NewInvalidTransitionError(returns.ReturnStatusCompleted, returns.ReturnStatusApproved),
			http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition},
		{"inventory down", returns.NewCollaboratorFailure("restock", errors.New("connection refused")),
			http.StatusBadGateway, dto.ErrCodeCollaboratorFailed},
		{"not found", returns.ErrReturnNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReturnService)
			req := returnsapp.UpdateStatusRequest{Status: "approved", Comment: "receipt checked"}
			if tt.err == nil {
				svc.On("UpdateReturnStatus", mock.Anything, returnID, caller.userID, req).
					Return(&returnsapp.ReturnResponse{ID: returnID, Status: "approved"}, nil)
			} else {
				svc.On("UpdateReturnStatus", mock.Anything, returnID, caller.userID, req).Return(nil, tt.err)
			}

			w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodPatch,
				"/api/v1/returns/"+returnID.String()+"/status", req)

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decode(t, w)
			if tt.wantCode == "" {
				assert.True(t, env.Success)
				return
			}
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}

	t.Run("unknown status is a binding error", func(t *testing.T) {
		svc := new(MockReturnService)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodPatch,
			"/api/v1/returns/"+returnID.String()+"/status", map[string]string{"status": "archived"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockReturnService)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodPatch,
			"/api/v1/returns/42/status", map[string]string{"status": "approved"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decode(t, w).Error.Code)
	})
}

func TestReturnHandler_Delete(t *testing.T) {
	caller := newCaller(auth.PermissionReturnsManage)
	returnID := uuid.New()

	t.Run("pending return", func(t *testing.T) {
		svc := new(MockReturnService)
		svc.On("DeleteReturn", mock.Anything, returnID, caller.userID).Return(nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodDelete, "/api/v1/returns/"+returnID.String(), nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("approved return cannot be deleted", func(t *testing.T) {
		svc := new(MockReturnService)
		svc.On("DeleteReturn", mock.Anything, returnID, caller.userID).
			Return(returns.NewInvalidTransitionError(returns.ReturnStatusApproved, returns.ReturnStatusPending))

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodDelete, "/api/v1/returns/"+returnID.String(), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestReturnHandler_List(t *testing.T) {
	t.Run("defaults to the caller's store", func(t *testing.T) {
		caller := newCaller(auth.PermissionReturnsCreate)
		svc := new(MockReturnService)
		svc.On("ListReturns", mock.Anything, mock.MatchedBy(func(f returnsapp.ReturnListFilter) bool {
			return f.StoreID != nil && *f.StoreID == caller.storeID && f.Status == "pending" && f.Page == 2
		})).Return([]returnsapp.ReturnListItemResponse{{ID: uuid.New()}}, int64(21), nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns?status=pending&page=2", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(21), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.Page)
		assert.Equal(t, dto.DefaultPageSize, env.Meta.PageSize)
		svc.AssertExpectations(t)
	})

	t.Run("other store needs returns:manage", func(t *testing.T) {
		caller := newCaller(auth.PermissionReturnsCreate)
		svc := new(MockReturnService)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns?store_id="+uuid.NewString(), nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		svc.AssertNotCalled(t, "ListReturns", mock.Anything, mock.Anything)
	})

	t.Run("manager may read another store", func(t *testing.T) {
		caller := newCaller(auth.PermissionReturnsManage)
		other := uuid.New()
		svc := new(MockReturnService)
		svc.On("ListReturns", mock.Anything, mock.MatchedBy(func(f returnsapp.ReturnListFilter) bool {
			return f.StoreID != nil && *f.StoreID == other
		})).Return([]returnsapp.ReturnListItemResponse{}, int64(0), nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns?store_id="+other.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("page size above the maximum", func(t *testing.T) {
		caller := newCaller()
		svc := new(MockReturnService)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns?page_size=500", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReturnHandler_Reads(t *testing.T) {
	caller := newCaller()
	returnID := uuid.New()
	saleID := uuid.New()

	t.Run("get by id", func(t *testing.T) {
		svc := new(MockReturnService)
		svc.On("GetReturn", mock.Anything, returnID).Return(&returnsapp.ReturnResponse{ID: returnID, StoreID: caller.storeID}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns/"+returnID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("returnable lines", func(t *testing.T) {
		svc := new(MockReturnService)
		svc.On("GetReturnableLines", mock.Anything, saleID).Return(&returnsapp.ReturnableLinesResponse{
			SaleID:     saleID,
			StoreID:    caller.storeID,
			Returnable: true,
			Lines: []returns.EligibleLine{{
				SaleItemID:         uuid.New(),
				OrderedQuantity:    3,
				ReturnedQuantity:   1,
				ReturnableQuantity: 2,
			}},
		}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/sales/"+saleID.String()+"/returnable-lines", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got returnsapp.ReturnableLinesResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		require.Len(t, got.Lines, 1)
		assert.Equal(t, 2, got.Lines[0].ReturnableQuantity)
	})

	t.Run("summary for own store", func(t *testing.T) {
		svc := new(MockReturnService)
		svc.On("GetStatusSummary", mock.Anything, &caller.storeID).
			Return(&returnsapp.StatusSummaryResponse{Pending: 3, Total: 3}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns/stats/summary", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("receipt archive disabled", func(t *testing.T) {
		svc := new(MockReturnService)
		svc.On("GetReturn", mock.Anything, returnID).Return(&returnsapp.ReturnResponse{ID: returnID, StoreID: caller.storeID}, nil)
		svc.On("GetReceiptURL", mock.Anything, returnID).
			Return(nil, fmt.Errorf("receipt link: %w", shared.NewDomainError("RECEIPTS_DISABLED", "Receipt archive is not configured")))

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns/"+returnID.String()+"/receipt", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeReceiptsDisabled, decode(t, w).Error.Code)
	})
}

func TestReturnHandler_StoreScoping(t *testing.T) {
	returnID := uuid.New()
	saleID := uuid.New()
	otherStore := uuid.New()

	t.Run("return of another store is not found", func(t *testing.T) {
		caller := newCaller(auth.PermissionReturnsCreate)
		svc := new(MockReturnService)
		svc.On("GetReturn", mock.Anything, returnID).Return(&returnsapp.ReturnResponse{ID: returnID, StoreID: otherStore}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns/"+returnID.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decode(t, w).Error.Code)
	})

	t.Run("returnable lines of another store's sale are not found", func(t *testing.T) {
		caller := newCaller()
		svc := new(MockReturnService)
		svc.On("GetReturnableLines", mock.Anything, saleID).
			Return(&returnsapp.ReturnableLinesResponse{SaleID: saleID, StoreID: otherStore}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/sales/"+saleID.String()+"/returnable-lines", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("receipt of another store is never presigned", func(t *testing.T) {
		caller := newCaller()
		svc := new(MockReturnService)
		svc.On("GetReturn", mock.Anything, returnID).Return(&returnsapp.ReturnResponse{ID: returnID, StoreID: otherStore}, nil)

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns/"+returnID.String()+"/receipt", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		svc.AssertNotCalled(t, "GetReceiptURL", mock.Anything, mock.Anything)
	})

	t.Run("changes to another store's return are refused without returns:manage", func(t *testing.T) {
		caller := newCaller(auth.PermissionReturnsCreate)
		svc := new(MockReturnService)
		svc.On("GetReturn", mock.Anything, returnID).Return(&returnsapp.ReturnResponse{ID: returnID, StoreID: otherStore}, nil)
		router := setupReturnRouter(svc, &caller)

		w := doJSON(t, router, http.MethodPatch, "/api/v1/returns/"+returnID.String()+"/status",
			returnsapp.UpdateStatusRequest{Status: "approved"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doJSON(t, router, http.MethodDelete, "/api/v1/returns/"+returnID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		svc.AssertNotCalled(t, "UpdateReturnStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		svc.AssertNotCalled(t, "DeleteReturn", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("manager reads any store without a lookup", func(t *testing.T) {
		caller := newCaller(auth.PermissionReturnsManage)
		svc := new(MockReturnService)
		svc.On("GetReturn", mock.Anything, returnID).Return(&returnsapp.ReturnResponse{ID: returnID, StoreID: otherStore}, nil).Once()

		w := doJSON(t, setupReturnRouter(svc, &caller), http.MethodGet, "/api/v1/returns/"+returnID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}
