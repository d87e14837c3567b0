package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	returnsapp "github.com/retailpos/backoffice/internal/application/returns"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/infrastructure/auth"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
)

// ReturnService is the part of the returns application service the HTTP
// layer calls
type ReturnService interface {
	ListReturns(ctx context.Context, filter returnsapp.ReturnListFilter) ([]returnsapp.ReturnListItemResponse, int64, error)
	GetReturn(ctx context.Context, returnID uuid.UUID) (*returnsapp.ReturnResponse, error)
	GetReturnableLines(ctx context.Context, saleID uuid.UUID) (*returnsapp.ReturnableLinesResponse, error)
	CreateReturn(ctx context.Context, actorID uuid.UUID, req returnsapp.CreateReturnRequest) (*returnsapp.ReturnResponse, error)
	UpdateReturnStatus(ctx context.Context, returnID, actorID uuid.UUID, req returnsapp.UpdateStatusRequest) (*returnsapp.ReturnResponse, error)
	DeleteReturn(ctx context.Context, returnID, actorID uuid.UUID) error
	GetStatusSummary(ctx context.Context, storeID *uuid.UUID) (*returnsapp.StatusSummaryResponse, error)
	GetReceiptURL(ctx context.Context, returnID uuid.UUID) (*returnsapp.ReceiptURLResponse, error)
}

// ReturnHandler handles product return API endpoints
type ReturnHandler struct {
	BaseHandler
	returnService ReturnService
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(returnService ReturnService) *ReturnHandler {
	return &ReturnHandler{
		returnService: returnService,
	}
}

// List godoc
//
//	@ID				listReturns
//	@Summary		List returns
//	@Description	Paginated list of returns. Defaults to the caller's store; other stores need returns:manage.
//	@Tags			returns
//	@Produce		json
//	@Param			search		query		string	false	"Return number or notes"
//	@Param			status		query		string	false	"Status"	Enums(pending, approved, rejected, completed)
//	@Param			store_id	query		string	false	"Store ID"	format(uuid)
//	@Param			sale_id		query		string	false	"Sale ID"	format(uuid)
//	@Param			from		query		string	false	"Return date from (YYYY-MM-DD)"
//	@Param			to			query		string	false	"Return date to (YYYY-MM-DD)"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(return_date)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)	default(desc)
//	@Success		200			{object}	APIResponse[[]returnsapp.ReturnListItemResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns [get]
func (h *ReturnHandler) List(c *gin.Context) {
	var filter returnsapp.ReturnListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	storeID, ok := h.scopedStore(c, filter.StoreID)
	if !ok {
		return
	}
	filter.StoreID = storeID

	list, total, err := h.returnService.ListReturns(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, list, total, max(filter.Page, 1), filter.PageSize)
}

// GetByID godoc
//
//	@ID				getReturnById
//	@Summary		Get return by ID
//	@Description	Retrieve a return with its items and refunds
//	@Tags			returns
//	@Produce		json
//	@Param			id	path		string	true	"Return ID"	format(uuid)
//	@Success		200	{object}	APIResponse[returnsapp.ReturnResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns/{id} [get]
func (h *ReturnHandler) GetByID(c *gin.Context) {
	returnID, ok := h.pathID(c, "id", "Invalid return ID format")
	if !ok {
		return
	}

	r, err := h.returnService.GetReturn(c.Request.Context(), returnID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.visible(c, r.StoreID, returns.ErrReturnNotFound) {
		return
	}

	h.Success(c, r)
}

// GetReturnableLines godoc
//
//	@ID				getReturnableLines
//	@Summary		Returnable lines of a sale
//	@Description	Per sale line: quantity sold, already returned and still returnable
//	@Tags			returns
//	@Produce		json
//	@Param			id	path		string	true	"Sale ID"	format(uuid)
//	@Success		200	{object}	APIResponse[returnsapp.ReturnableLinesResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/sales/{id}/returnable-lines [get]
func (h *ReturnHandler) GetReturnableLines(c *gin.Context) {
	saleID, ok := h.pathID(c, "id", "Invalid sale ID format")
	if !ok {
		return
	}

	lines, err := h.returnService.GetReturnableLines(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.visible(c, lines.StoreID, returns.ErrSaleNotFound) {
		return
	}

	h.Success(c, lines)
}

// Create godoc
//
//	@ID				createReturn
//	@Summary		Create a return
//	@Description	Validate the requested lines against what is still returnable and store the return as pending
//	@Tags			returns
//	@Accept			json
//	@Produce		json
//	@Param			request	body		returnsapp.CreateReturnRequest	true	"Return request"
//	@Success		201		{object}	APIResponse[returnsapp.ReturnResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns [post]
func (h *ReturnHandler) Create(c *gin.Context) {
	actorID, storeID, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	var req returnsapp.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	// The sale must belong to the store the token was issued for
	req.StoreID = storeID

	r, err := h.returnService.CreateReturn(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, r)
}

// UpdateStatus godoc
//
//	@ID				updateReturnStatus
//	@Summary		Change the status of a return
//	@Description	Approve (restocks items), reject, or complete (issues the refund) a return
//	@Tags			returns
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Return ID"	format(uuid)
//	@Param			request	body		returnsapp.UpdateStatusRequest	true	"Target status"
//	@Success		200		{object}	APIResponse[returnsapp.ReturnResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns/{id}/status [patch]
func (h *ReturnHandler) UpdateStatus(c *gin.Context) {
	actorID, _, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	returnID, ok := h.pathID(c, "id", "Invalid return ID format")
	if !ok {
		return
	}

	var req returnsapp.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if !h.guardReturn(c, returnID) {
		return
	}

	r, err := h.returnService.UpdateReturnStatus(c.Request.Context(), returnID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, r)
}

// Delete godoc
//
//	@ID				deleteReturn
//	@Summary		Delete a pending return
//	@Tags			returns
//	@Param			id	path	string	true	"Return ID"	format(uuid)
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns/{id} [delete]
func (h *ReturnHandler) Delete(c *gin.Context) {
	actorID, _, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	returnID, ok := h.pathID(c, "id", "Invalid return ID format")
	if !ok {
		return
	}

	if !h.guardReturn(c, returnID) {
		return
	}

	if err := h.returnService.DeleteReturn(c.Request.Context(), returnID, actorID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetStatusSummary godoc
//
//	@ID				getReturnStatusSummary
//	@Summary		Return counts per status
//	@Description	Counts and amounts per status. Defaults to the caller's store; other stores need returns:manage.
//	@Tags			returns
//	@Produce		json
//	@Param			store_id	query		string	false	"Store ID"	format(uuid)
//	@Success		200			{object}	APIResponse[returnsapp.StatusSummaryResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns/stats/summary [get]
func (h *ReturnHandler) GetStatusSummary(c *gin.Context) {
	var requested *uuid.UUID
	if raw := c.Query("store_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid store ID format")
			return
		}
		requested = &id
	}

	storeID, ok := h.scopedStore(c, requested)
	if !ok {
		return
	}

	summary, err := h.returnService.GetStatusSummary(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// GetReceipt godoc
//
//	@ID				getReturnReceipt
//	@Summary		Receipt download link
//	@Description	Short-lived link to the archived receipt of a completed return
//	@Tags			returns
//	@Produce		json
//	@Param			id	path		string	true	"Return ID"	format(uuid)
//	@Success		200	{object}	APIResponse[returnsapp.ReceiptURLResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/returns/{id}/receipt [get]
func (h *ReturnHandler) GetReceipt(c *gin.Context) {
	returnID, ok := h.pathID(c, "id", "Invalid return ID format")
	if !ok {
		return
	}

	if !h.guardReturn(c, returnID) {
		return
	}

	receipt, err := h.returnService.GetReceiptURL(c.Request.Context(), returnID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, receipt)
}

// pathID parses a UUID path parameter, answering 400 when it is malformed
func (h *ReturnHandler) pathID(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// scopedStore resolves which store a read is limited to. Without a request
// the caller's own store is used; another store needs returns:manage.
func (h *ReturnHandler) scopedStore(c *gin.Context, requested *uuid.UUID) (*uuid.UUID, bool) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return requested, true
	}
	_, own, err := claims.Actor()
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return nil, false
	}
	if requested == nil {
		return &own, true
	}
	if *requested != own && !claims.HasPermission(auth.PermissionReturnsManage) {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access to another store's returns requires returns:manage")
		return nil, false
	}
	return requested, true
}

// crossStore reports whether the caller reaches every store: requests
// without claims and holders of returns:manage
func crossStore(c *gin.Context) bool {
	claims := middleware.GetJWTClaims(c)
	return claims == nil || claims.HasPermission(auth.PermissionReturnsManage)
}

// visible reports whether a record of storeID may be shown to the caller.
// Records of other stores answer notFound so their existence stays hidden.
func (h *ReturnHandler) visible(c *gin.Context, storeID uuid.UUID, notFound error) bool {
	if crossStore(c) {
		return true
	}
	_, own, err := middleware.GetJWTClaims(c).Actor()
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return false
	}
	if storeID != own {
		h.HandleError(c, notFound)
		return false
	}
	return true
}

// guardReturn checks the store of a return before it is acted on by ID
func (h *ReturnHandler) guardReturn(c *gin.Context, returnID uuid.UUID) bool {
	if crossStore(c) {
		return true
	}
	r, err := h.returnService.GetReturn(c.Request.Context(), returnID)
	if err != nil {
		h.HandleError(c, err)
		return false
	}
	return h.visible(c, r.StoreID, returns.ErrReturnNotFound)
}
