package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReturnMetrics records business metrics for returns
type ReturnMetrics interface {
	RecordReturnCreated(ctx context.Context, storeID uuid.UUID, refundType string, amount decimal.Decimal)
	RecordStatusChange(ctx context.Context, storeID uuid.UUID, status string)
	RecordRefundIssued(ctx context.Context, storeID uuid.UUID, method string, amount decimal.Decimal)
	RecordIntegrityWarnings(ctx context.Context, storeID uuid.UUID, count int)
}

// ServiceConfig holds tunables of the return service
type ServiceConfig struct {
	// ReceiptURLTTL is how long a presigned receipt link stays valid. Default: 15 minutes
	ReceiptURLTTL time.Duration
}

// ReturnService handles product return and refund operations
type ReturnService struct {
	repo      returns.ReturnRepository
	sales     returns.SaleSnapshotProvider
	restocker returns.InventoryRestocker
	issuer    returns.RefundIssuer
	logger    *zap.Logger
	cfg       ServiceConfig

	eventPublisher shared.EventPublisher
	metrics        ReturnMetrics
	receipts       ReceiptStore
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	repo returns.ReturnRepository,
	sales returns.SaleSnapshotProvider,
	restocker returns.InventoryRestocker,
	issuer returns.RefundIssuer,
	logger *zap.Logger,
	cfg ServiceConfig,
) *ReturnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReceiptURLTTL <= 0 {
		cfg.ReceiptURLTTL = 15 * time.Minute
	}
	return &ReturnService{
		repo:      repo,
		sales:     sales,
		restocker: restocker,
		issuer:    issuer,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ReturnService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the business metrics recorder
func (s *ReturnService) SetMetrics(metrics ReturnMetrics) {
	s.metrics = metrics
}

// SetReceiptStore enables receipt downloads
func (s *ReturnService) SetReceiptStore(store ReceiptStore) {
	s.receipts = store
}

// ListReturns retrieves returns with filtering and pagination
func (s *ReturnService) ListReturns(ctx context.Context, filter ReturnListFilter) ([]ReturnListItemResponse, int64, error) {
	domainFilter := returns.DefaultReturnFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = strings.TrimSpace(filter.Search)
	domainFilter.Normalize()

	if filter.Status != "" {
		status, err := returns.ParseReturnStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Status = &status
	}
	domainFilter.StoreID = filter.StoreID
	domainFilter.SaleID = filter.SaleID
	domainFilter.From = filter.From
	if filter.To != nil {
		// to is a calendar day and includes all of it
		y, m, d := filter.To.Date()
		end := time.Date(y, m, d+1, 0, 0, 0, 0, filter.To.Location())
		domainFilter.To = &end
	}

	list, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToReturnListItemResponses(list), total, nil
}

// GetReturn retrieves a return by ID
func (s *ReturnService) GetReturn(ctx context.Context, returnID uuid.UUID) (*ReturnResponse, error) {
	r, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	response := ToReturnResponse(r)
	return &response, nil
}

// GetReturnableLines reports, for every line of a sale, what can still be
// returned given the returns already raised against it.
func (s *ReturnService) GetReturnableLines(ctx context.Context, saleID uuid.UUID) (*ReturnableLinesResponse, error) {
	sale, prior, err := s.loadSaleAndHistory(ctx, saleID)
	if err != nil {
		return nil, err
	}

	eligibility := returns.ComputeEligibility(sale, prior)
	s.reportIntegrityWarnings(ctx, sale, eligibility.Warnings)

	return &ReturnableLinesResponse{
		SaleID:        sale.SaleID,
		StoreID:       sale.StoreID,
		InvoiceNumber: sale.InvoiceNumber,
		SaleStatus:    string(sale.Status),
		Returnable:    sale.IsReturnable(),
		TaxRate:       sale.TaxRate,
		Lines:         eligibility.Lines,
		Warnings:      toWarningDTOs(eligibility.Warnings),
	}, nil
}

// CreateReturn validates a return request against the current eligibility
// of the sale and stores it as pending. The store re-validates against the
// prior lines it reads inside its own transaction, so a concurrent return
// for the same sale that committed first makes this one fail validation.
func (s *ReturnService) CreateReturn(ctx context.Context, actorID uuid.UUID, req CreateReturnRequest) (*ReturnResponse, error) {
	sale, prior, err := s.loadSaleAndHistory(ctx, req.SaleID)
	if err != nil {
		return nil, err
	}

	if !sale.IsReturnable() {
		return nil, shared.NewDomainError(returns.CodeSaleNotReturnable,
			fmt.Sprintf("Sale %s is %s and cannot be returned", sale.InvoiceNumber, sale.Status))
	}
	if req.StoreID != uuid.Nil && req.StoreID != sale.StoreID {
		return nil, shared.NewDomainError("FORBIDDEN", "Sale belongs to another store")
	}

	domainReq := toDomainRequest(req, sale.StoreID, actorID)

	eligibility := returns.ComputeEligibility(sale, prior)
	s.reportIntegrityWarnings(ctx, sale, eligibility.Warnings)

	validated, err := returns.ValidateRequest(domainReq, eligibility.Lines)
	if err != nil {
		return nil, err
	}

	r, err := returns.NewReturn(validated, sale.TaxRate)
	if err != nil {
		return nil, err
	}

	guard := func(fresh []returns.PriorReturnLine) error {
		_, err := returns.ValidateRequest(domainReq, returns.ComputeEligibility(sale, fresh).Lines)
		return err
	}
	if err := s.repo.CreateGuarded(ctx, r, guard); err != nil {
		return nil, err
	}

	r.MarkCreated()
	s.publishEvents(ctx, r)

	s.logger.Info("return created",
		zap.String("return_id", r.ID.String()),
		zap.String("return_number", r.ReturnNumber),
		zap.String("sale_id", r.SaleID.String()),
		zap.String("refund_amount", r.RefundAmount.StringFixed(returns.MoneyScale)),
		zap.Int("items_count", r.ItemCount()),
	)

	response := ToReturnResponse(r)
	return &response, nil
}

// UpdateReturnStatus moves a return to the requested status. Approving
// sends restock requests and completing pays out the refund; both happen
// while the stored return is locked, and a collaborator failure leaves the
// return unchanged.
func (s *ReturnService) UpdateReturnStatus(ctx context.Context, returnID, actorID uuid.UUID, req UpdateStatusRequest) (*ReturnResponse, error) {
	target, err := returns.ParseReturnStatus(req.Status)
	if err != nil {
		return nil, err
	}

	r, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	switch target {
	case returns.ReturnStatusApproved:
		err = s.approve(ctx, r, actorID, req.Comment)
	case returns.ReturnStatusRejected:
		err = s.reject(ctx, r, actorID, req.Comment)
	case returns.ReturnStatusCompleted:
		err = s.complete(ctx, r, actorID, req.Refunds)
	default:
		err = r.CheckTransition(target)
	}
	if err != nil {
		if returns.IsStaleStatus(err) {
			s.logger.Info("return transition lost a concurrent update",
				zap.String("return_id", returnID.String()),
				zap.String("target", string(target)),
			)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStatusChange(ctx, r.StoreID, string(r.Status))
	}
	s.publishEvents(ctx, r)

	response := ToReturnResponse(r)
	return &response, nil
}

func (s *ReturnService) approve(ctx context.Context, r *returns.Return, actorID uuid.UUID, note string) error {
	if err := r.Approve(actorID, note); err != nil {
		return err
	}

	requests := r.RestockRequests()
	return s.repo.SaveWithLock(ctx, r, func(ctx context.Context, _ *returns.Return) error {
		if len(requests) == 0 {
			return nil
		}
		if err := s.restocker.RestockInventory(ctx, requests...); err != nil {
			s.logger.Error("restock failed, approval aborted",
				zap.String("return_id", r.ID.String()),
				zap.Int("restock_lines", len(requests)),
				zap.Error(err),
			)
			return returns.NewCollaboratorFailure("restock inventory", err)
		}
		return nil
	})
}

func (s *ReturnService) reject(ctx context.Context, r *returns.Return, actorID uuid.UUID, comment string) error {
	if err := r.Reject(actorID, comment); err != nil {
		return err
	}
	return s.repo.SaveWithLock(ctx, r, nil)
}

func (s *ReturnService) complete(ctx context.Context, r *returns.Return, actorID uuid.UUID, inputs []RefundSplitInput) error {
	if err := r.CheckTransition(returns.ReturnStatusCompleted); err != nil {
		return err
	}
	if actorID == uuid.Nil {
		return shared.NewDomainError(returns.CodeInvalidActor, "Processor ID cannot be empty")
	}

	splits := make([]returns.RefundSplit, len(inputs))
	for i, in := range inputs {
		splits[i] = returns.RefundSplit{Method: returns.RefundType(strings.ToLower(in.Method)), Amount: in.Amount}
	}
	plan, err := r.PlanRefunds(splits)
	if err != nil {
		return err
	}

	return s.repo.SaveWithLock(ctx, r, func(ctx context.Context, r *returns.Return) error {
		settled, err := s.issuer.ListByReturn(ctx, r.ID)
		if err != nil {
			return returns.NewCollaboratorFailure("read refund settlements", err)
		}
		if err := r.CheckSettled(plan, settled); err != nil {
			s.logger.Warn("completion refused, earlier payouts do not match the split",
				zap.String("return_id", r.ID.String()),
				zap.Int("settled", len(settled)),
			)
			return err
		}

		refunds := make([]returns.ReturnRefund, 0, len(plan))
		for i, split := range plan {
			refund := returns.ReturnRefund{
				Amount:      split.Amount,
				Method:      split.Method,
				Reference:   r.RefundReference(i),
				ProcessedBy: actorID,
				ProcessedAt: time.Now(),
				Status:      returns.ReturnRefundStatusCompleted,
			}
			// nothing to pay out
			if split.Amount.IsZero() {
				refunds = append(refunds, refund)
				continue
			}

			instr := returns.RefundInstruction{
				Reference: refund.Reference,
				ReturnID:  r.ID,
				StoreID:   r.StoreID,
				Amount:    split.Amount,
				Method:    split.Method,
				ActorID:   actorID,
			}
			issued, err := s.issuer.IssueRefund(ctx, instr)
			if err != nil {
				s.logger.Error("refund issuance failed, completion aborted",
					zap.String("return_id", r.ID.String()),
					zap.String("reference", instr.Reference),
					zap.String("method", string(split.Method)),
					zap.Error(err),
				)
				var refused *shared.DomainError
				if errors.As(err, &refused) {
					return err
				}
				return returns.NewCollaboratorFailure("issue refund", err)
			}
			refund.TransactionID = issued.TransactionID
			refund.ProcessedAt = issued.ProcessedAt
			refunds = append(refunds, refund)
		}
		return r.Complete(actorID, refunds)
	})
}

// DeleteReturn removes a pending return
func (s *ReturnService) DeleteReturn(ctx context.Context, returnID, actorID uuid.UUID) error {
	r, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		return err
	}

	if err := r.CheckDeletable(); err != nil {
		return err
	}

	if err := s.repo.DeletePending(ctx, returnID, r.Version); err != nil {
		return err
	}

	r.MarkDeleted(actorID)
	s.publishEvents(ctx, r)
	return nil
}

// GetStatusSummary counts returns per status, optionally for one store
func (s *ReturnService) GetStatusSummary(ctx context.Context, storeID *uuid.UUID) (*StatusSummaryResponse, error) {
	summary, err := s.repo.Summary(ctx, storeID)
	if err != nil {
		return nil, err
	}
	response := toStatusSummaryResponse(summary)
	return &response, nil
}

// GetReceiptURL returns a short-lived download link for the receipt of a
// completed return.
func (s *ReturnService) GetReceiptURL(ctx context.Context, returnID uuid.UUID) (*ReceiptURLResponse, error) {
	if s.receipts == nil {
		return nil, shared.NewDomainError("RECEIPTS_DISABLED", "Receipt archive is not configured")
	}

	r, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !r.IsCompleted() {
		return nil, shared.NewDomainError("INVALID_STATE", "Receipts exist only for completed returns")
	}

	url, err := s.receipts.PresignReceipt(ctx, ReceiptKey(r.StoreID, r.ReturnNumber), s.cfg.ReceiptURLTTL)
	if err != nil {
		return nil, err
	}

	return &ReceiptURLResponse{
		ReturnID:  r.ID,
		URL:       url,
		ExpiresAt: time.Now().Add(s.cfg.ReceiptURLTTL),
	}, nil
}

// loadSaleAndHistory reads the sale snapshot and the lines of its prior
// returns concurrently.
func (s *ReturnService) loadSaleAndHistory(ctx context.Context, saleID uuid.UUID) (*returns.SaleSnapshot, []returns.PriorReturnLine, error) {
	var (
		sale  *returns.SaleSnapshot
		prior []returns.PriorReturnLine
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sale, err = s.sales.GetSaleSnapshot(gctx, saleID)
		if err != nil {
			if errors.Is(err, returns.ErrSaleNotFound) {
				return err
			}
			return returns.NewCollaboratorFailure("read sale snapshot", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prior, err = s.repo.FindPriorLinesBySale(gctx, saleID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return sale, prior, nil
}

func (s *ReturnService) reportIntegrityWarnings(ctx context.Context, sale *returns.SaleSnapshot, warnings []returns.DataIntegrityWarning) {
	if len(warnings) == 0 {
		return
	}
	for _, w := range warnings {
		s.logger.Warn("data integrity warning",
			zap.String("sale_id", sale.SaleID.String()),
			zap.String("sale_item_id", w.SaleItemID.String()),
			zap.Int("ordered_quantity", w.OrderedQuantity),
			zap.Int("returned_quantity", w.ReturnedQuantity),
			zap.String("detail", w.Message),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordIntegrityWarnings(ctx, sale.StoreID, len(warnings))
	}
}

// publishEvents publishes and clears the pending events of r. Publishing
// failures are logged and do not fail the operation.
func (s *ReturnService) publishEvents(ctx context.Context, r *returns.Return) {
	events := r.PullEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish return events",
			zap.String("return_id", r.ID.String()),
			zap.Error(err),
		)
	}
}

func toDomainRequest(req CreateReturnRequest, storeID, actorID uuid.UUID) returns.ReturnRequest {
	items := make([]returns.ReturnItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = returns.ReturnItemInput{
			SaleItemID:   item.SaleItemID,
			Quantity:     item.Quantity,
			Condition:    returns.ItemCondition(strings.ToLower(item.Condition)),
			ReturnReason: item.ReturnReason,
			Restock:      item.Restock,
			Notes:        item.Notes,
		}
	}
	return returns.ReturnRequest{
		SaleID:     req.SaleID,
		StoreID:    storeID,
		UserID:     actorID,
		Items:      items,
		RefundType: returns.RefundType(strings.ToLower(req.RefundType)),
		Notes:      req.Notes,
	}
}
