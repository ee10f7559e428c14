// Package requests runs the supply request state machine:
// Pending -> Approved -> Issued -> Received, or Pending -> Rejected.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/internal/localinventory"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/metrics"
)

const (
	auditModule = "requests"

	defaultRejectReason     = "Rejected by Manager"
	defaultBulkRejectReason = "No reason provided"
)

var issuable = []enums.RequestStatus{enums.RequestStatusPending, enums.RequestStatusApproved}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type viewInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service exposes the request lifecycle.
type Service interface {
	Create(ctx context.Context, actor *access.Actor, input CreateInput) (*models.SupplyRequest, error)
	CreateBulk(ctx context.Context, actor *access.Actor, input BulkCreateInput) ([]models.SupplyRequest, error)
	Approve(ctx context.Context, actor *access.Actor, id uint64) (*models.SupplyRequest, error)
	ApproveBulk(ctx context.Context, actor *access.Actor, ids []uint64) (*BulkResult, error)
	Reject(ctx context.Context, actor *access.Actor, id uint64, reason string) (*models.SupplyRequest, error)
	RejectBulk(ctx context.Context, actor *access.Actor, ids []uint64, reason string) (*BulkResult, error)
	Issue(ctx context.Context, actor *access.Actor, line IssueLine) (*models.SupplyRequest, error)
	IssueBulk(ctx context.Context, actor *access.Actor, lines []IssueLine) ([]models.SupplyRequest, error)
	ConfirmReceipt(ctx context.Context, actor *access.Actor, id uint64) (*models.SupplyRequest, error)
	ConfirmReceiptBulk(ctx context.Context, actor *access.Actor, ids []uint64) ([]models.SupplyRequest, error)
	Update(ctx context.Context, actor *access.Actor, id uint64, input UpdateInput) (*models.SupplyRequest, error)
	Delete(ctx context.Context, actor *access.Actor, id uint64) error
	Get(ctx context.Context, id uint64) (*models.SupplyRequest, error)
	List(ctx context.Context, filter Filter) ([]models.SupplyRequest, error)
}

// CreateInput raises one request on behalf of the actor.
type CreateInput struct {
	Region   string
	ItemName string
	Category string
	Qty      int
	Unit     string
	Notes    string
}

// BulkCreateInput raises one request per line for a single region.
type BulkCreateInput struct {
	Region string
	Notes  string
	Lines  []Line
}

// Line is one requested item in a bulk create.
type Line struct {
	ItemName string
	Category string
	Qty      int
	Unit     string
}

// IssueLine issues a request. A nil Qty issues the requested quantity.
type IssueLine struct {
	ReqID uint64
	Qty   *int
}

// UpdateInput overwrites request fields regardless of status.
type UpdateInput struct {
	ItemName *string
	Category *string
	Qty      *int
	Unit     *string
	Notes    *string
}

// BulkResult reports how many of the requested rows actually changed, and
// every requested row as it stands afterwards.
type BulkResult struct {
	Requested int                    `json:"requested"`
	Changed   int64                  `json:"changed"`
	Status    string                 `json:"status"`
	Requests  []models.SupplyRequest `json:"requests"`
}

// ServiceParams bundles the dependencies required to build the request service.
type ServiceParams struct {
	Tx           txRunner
	Requests     Repository
	Items        inventory.Repository
	StockLogs    stocklog.Repository
	Local        localinventory.Repository
	Audit        audit.Recorder
	Views        viewInvalidator
	Metrics      *metrics.WorkflowMetrics
	Logger       *logger.Logger
	HubLocation  string
	MaxBatchSize int
	Now          func() time.Time
}

type service struct {
	tx       txRunner
	requests Repository
	items    inventory.Repository
	logs     stocklog.Repository
	local    localinventory.Repository
	audit    audit.Recorder
	views    viewInvalidator
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
	hub      string
	maxBatch int
	now      func() time.Time
}

// NewService wires the request lifecycle manager.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Requests == nil:
		return nil, fmt.Errorf("request repository required")
	case params.Items == nil:
		return nil, fmt.Errorf("inventory repository required")
	case params.StockLogs == nil:
		return nil, fmt.Errorf("stock log repository required")
	case params.Local == nil:
		return nil, fmt.Errorf("local inventory repository required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case strings.TrimSpace(params.HubLocation) == "":
		return nil, fmt.Errorf("hub location required")
	case params.MaxBatchSize <= 0:
		return nil, fmt.Errorf("max batch size must be positive")
	}
	svc := &service{
		tx:       params.Tx,
		requests: params.Requests,
		items:    params.Items,
		logs:     params.StockLogs,
		local:    params.Local,
		audit:    params.Audit,
		views:    params.Views,
		metrics:  params.Metrics,
		logg:     params.Logger,
		hub:      strings.TrimSpace(params.HubLocation),
		maxBatch: params.MaxBatchSize,
		now:      params.Now,
	}
	if svc.audit == nil {
		svc.audit = audit.Nop{}
	}
	if svc.views == nil {
		svc.views = nopInvalidator{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) {}

func (s *service) Create(ctx context.Context, actor *access.Actor, input CreateInput) (req *models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestCreate), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestCreate); err != nil {
		return nil, err
	}

	region := strings.TrimSpace(input.Region)
	line := Line{ItemName: input.ItemName, Category: input.Category, Qty: input.Qty, Unit: input.Unit}
	switch {
	case region == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	case strings.TrimSpace(line.ItemName) == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	case line.Qty <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := inventory.CheckQty("qty", line.Qty); err != nil {
		return nil, err
	}

	req = s.newRequest(actor, region, line, input.Notes, s.now())
	if err := s.requests.CreateBatch(ctx, []*models.SupplyRequest{req}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create request")
	}

	s.afterCommit(ctx, actor, "Create Request", fmt.Sprintf("#%d %d %s for %s", req.ReqID, line.Qty, deref(req.ItemName), region))
	return req, nil
}

func (s *service) CreateBulk(ctx context.Context, actor *access.Actor, input BulkCreateInput) (created []models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestCreate)+".bulk", time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestCreate); err != nil {
		return nil, err
	}

	region := strings.TrimSpace(input.Region)
	if region == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	}
	if err := s.checkBatch(len(input.Lines)); err != nil {
		return nil, err
	}

	now := s.now()
	rows := make([]*models.SupplyRequest, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Qty <= 0 || strings.TrimSpace(line.ItemName) == "" {
			continue
		}
		if err := inventory.CheckQty("qty", line.Qty); err != nil {
			return nil, err
		}
		rows = append(rows, s.newRequest(actor, region, line, input.Notes, now))
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No valid items to request").
			WithDetails(map[string]any{"reason": "NoValidItems"})
	}

	if err := s.requests.CreateBatch(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create requests")
	}

	created = make([]models.SupplyRequest, 0, len(rows))
	for _, row := range rows {
		created = append(created, *row)
	}
	s.afterCommit(ctx, actor, "Create Bulk Request", fmt.Sprintf("%d items for %s", len(rows), region))
	return created, nil
}

func (s *service) newRequest(actor *access.Actor, region string, line Line, notes string, now time.Time) *models.SupplyRequest {
	qty := line.Qty
	return &models.SupplyRequest{
		SupervisorName: actor.Name,
		Region:         optional(region),
		ItemName:       optional(line.ItemName),
		Category:       strings.TrimSpace(line.Category),
		Qty:            &qty,
		Unit:           strings.TrimSpace(line.Unit),
		Status:         enums.RequestStatusPending,
		Shift:          enums.ShiftAt(now),
		Notes:          optional(notes),
		RequestDate:    now.UTC(),
	}
}

func (s *service) Approve(ctx context.Context, actor *access.Actor, id uint64) (req *models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestApprove), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestApprove); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		requests := s.requests.WithTx(tx)
		if err := s.transitionOne(ctx, requests, id, []enums.RequestStatus{enums.RequestStatusPending}, s.approveFields(actor)); err != nil {
			return err
		}
		req, err = requests.FindByID(ctx, id)
		return requestLookupError(err, id)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Approve Request", fmt.Sprintf("#%d", id))
	return req, nil
}

func (s *service) ApproveBulk(ctx context.Context, actor *access.Actor, ids []uint64) (result *BulkResult, err error) {
	defer s.metrics.Track(string(access.OpRequestApprove)+".bulk", time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestApprove); err != nil {
		return nil, err
	}
	return s.bulkTransition(ctx, actor, ids, enums.RequestStatusApproved, s.approveFields(actor), "Bulk Approve")
}

func (s *service) approveFields(actor *access.Actor) map[string]any {
	return map[string]any{
		"status":      enums.RequestStatusApproved,
		"approved_by": actor.Name,
		"approved_at": s.now().UTC(),
	}
}

func (s *service) Reject(ctx context.Context, actor *access.Actor, id uint64, reason string) (req *models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestReject), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestReject); err != nil {
		return nil, err
	}

	reason = withDefault(reason, defaultRejectReason)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		requests := s.requests.WithTx(tx)
		if err := s.transitionOne(ctx, requests, id, []enums.RequestStatus{enums.RequestStatusPending}, s.rejectFields(actor, reason)); err != nil {
			return err
		}
		req, err = requests.FindByID(ctx, id)
		return requestLookupError(err, id)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Reject Request", fmt.Sprintf("#%d: %s", id, reason))
	return req, nil
}

func (s *service) RejectBulk(ctx context.Context, actor *access.Actor, ids []uint64, reason string) (result *BulkResult, err error) {
	defer s.metrics.Track(string(access.OpRequestReject)+".bulk", time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestReject); err != nil {
		return nil, err
	}
	reason = withDefault(reason, defaultBulkRejectReason)
	return s.bulkTransition(ctx, actor, ids, enums.RequestStatusRejected, s.rejectFields(actor, reason), "Bulk Reject")
}

func (s *service) rejectFields(actor *access.Actor, reason string) map[string]any {
	return map[string]any{
		"status":      enums.RequestStatusRejected,
		"approved_by": actor.Name,
		"approved_at": s.now().UTC(),
		"notes":       reason,
	}
}

// bulkTransition moves every still-Pending id in one statement. Rows already
// past Pending are skipped without error.
func (s *service) bulkTransition(ctx context.Context, actor *access.Actor, ids []uint64, to enums.RequestStatus, fields map[string]any, action string) (*BulkResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one request id is required")
	}
	if err := s.checkBatch(len(ids)); err != nil {
		return nil, err
	}

	changed, err := s.requests.Transition(ctx, ids, []enums.RequestStatus{enums.RequestStatusPending}, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update requests")
	}

	rows, err := s.requests.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load requests")
	}

	result := &BulkResult{Requested: len(ids), Changed: changed, Status: string(to), Requests: rows}
	if changed > 0 {
		s.afterCommit(ctx, actor, action, fmt.Sprintf("%d of %d requests %s", changed, len(ids), strings.ToLower(string(to))))
	}
	return result, nil
}

func (s *service) Issue(ctx context.Context, actor *access.Actor, line IssueLine) (req *models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestIssue), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestIssue); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		req, err = s.issueOne(ctx, tx, actor, line, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Issue Request", fmt.Sprintf("#%d %d %s to %s", req.ReqID, deref(req.Qty), deref(req.ItemName), deref(req.Region)))
	return req, nil
}

// IssueBulk issues every line in one transaction. Any failure rolls back the
// whole batch.
func (s *service) IssueBulk(ctx context.Context, actor *access.Actor, lines []IssueLine) (issued []models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestIssue)+".bulk", time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestIssue); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one request is required")
	}
	if err := s.checkBatch(len(lines)); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		issued = make([]models.SupplyRequest, 0, len(lines))
		for _, line := range lines {
			req, err := s.issueOne(ctx, tx, actor, line, now)
			if err != nil {
				return err
			}
			issued = append(issued, *req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Bulk Issue", fmt.Sprintf("%d requests issued", len(issued)))
	return issued, nil
}

// issueOne flips the request to Issued under a status guard, then draws the
// stock from the hub. The flip comes first so a concurrent issue of the same
// request blocks on the row and then sees zero affected rows.
func (s *service) issueOne(ctx context.Context, tx *gorm.DB, actor *access.Actor, line IssueLine, now time.Time) (*models.SupplyRequest, error) {
	requests := s.requests.WithTx(tx)
	items := s.items.WithTx(tx)

	current, err := requests.FindByID(ctx, line.ReqID)
	if err != nil {
		return nil, requestLookupError(err, line.ReqID)
	}
	if !isIssuable(current.Status) {
		return nil, alreadyProcessed(line.ReqID, current.Status)
	}
	if current.ItemName == nil || strings.TrimSpace(*current.ItemName) == "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Request #%d has no item", line.ReqID)
	}
	qty := deref(current.Qty)
	if line.Qty != nil {
		qty = *line.Qty
	}
	if qty <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Request #%d needs a positive issue quantity", line.ReqID)
	}
	if err := inventory.CheckQty("qty", qty); err != nil {
		return nil, err
	}

	if err := s.transitionOne(ctx, requests, line.ReqID, issuable, map[string]any{
		"status":    enums.RequestStatusIssued,
		"issued_by": actor.Name,
		"issued_at": now,
		"qty":       qty,
	}); err != nil {
		return nil, err
	}

	item, err := items.FindByNameAndLocation(ctx, *current.ItemName, s.hub)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, inventory.NotFound(*current.ItemName, s.hub)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup hub item")
	}
	remaining, err := inventory.Withdraw(ctx, items, item, qty, now)
	if err != nil {
		return nil, err
	}

	unit := current.Unit
	if unit == "" {
		unit = item.Unit
	}
	entry := &models.StockLog{
		ItemName:     item.NameEn,
		Location:     item.Location,
		ChangeAmount: -qty,
		NewQty:       remaining,
		ActionBy:     actor.Name,
		ActionType:   stocklog.Issued(deref(current.Region)),
		Unit:         unit,
		LogDate:      now,
	}
	if err := s.logs.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append stock log")
	}

	updated, err := requests.FindByID(ctx, line.ReqID)
	if err != nil {
		return nil, requestLookupError(err, line.ReqID)
	}
	return updated, nil
}

func (s *service) ConfirmReceipt(ctx context.Context, actor *access.Actor, id uint64) (req *models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestReceive), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestReceive); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		req, err = s.receiveOne(ctx, tx, actor, id, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Confirm Receipt", fmt.Sprintf("#%d %d %s at %s", id, deref(req.Qty), deref(req.ItemName), deref(req.Region)))
	return req, nil
}

// ConfirmReceiptBulk confirms every distinct id in one transaction.
func (s *service) ConfirmReceiptBulk(ctx context.Context, actor *access.Actor, ids []uint64) (received []models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestReceive)+".bulk", time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestReceive); err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one request id is required")
	}
	if err := s.checkBatch(len(ids)); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		received = make([]models.SupplyRequest, 0, len(ids))
		for _, id := range ids {
			req, err := s.receiveOne(ctx, tx, actor, id, now)
			if err != nil {
				return err
			}
			received = append(received, *req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, "Bulk Confirm Receipt", fmt.Sprintf("%d requests received", len(received)))
	return received, nil
}

func (s *service) receiveOne(ctx context.Context, tx *gorm.DB, actor *access.Actor, id uint64, now time.Time) (*models.SupplyRequest, error) {
	requests := s.requests.WithTx(tx)

	changed, err := requests.Transition(ctx, []uint64{id}, []enums.RequestStatus{enums.RequestStatusIssued}, map[string]any{
		"status":      enums.RequestStatusReceived,
		"received_by": actor.Name,
		"received_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update request")
	}
	req, err := requests.FindByID(ctx, id)
	if err != nil {
		return nil, requestLookupError(err, id)
	}
	if changed == 0 {
		if req.Status == enums.RequestStatusReceived {
			return nil, pkgerrors.Newf(pkgerrors.CodeAlreadyReceived, "Request #%d has already been received", id)
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "Request #%d is %s and cannot be received", id, req.Status)
	}

	region, item, qty := deref(req.Region), deref(req.ItemName), deref(req.Qty)
	if region == "" || item == "" || qty <= 0 {
		s.logg.Warn(s.logg.WithField(ctx, "req_id", id), "receipt confirmed without local inventory credit")
		return req, nil
	}
	if err := s.local.WithTx(tx).Increment(ctx, region, item, qty, actor.Name, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit local inventory")
	}
	return req, nil
}

func (s *service) Update(ctx context.Context, actor *access.Actor, id uint64, input UpdateInput) (req *models.SupplyRequest, err error) {
	defer s.metrics.Track(string(access.OpRequestUpdate), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestUpdate); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.ItemName != nil {
		name := strings.TrimSpace(*input.ItemName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name must not be blank")
		}
		fields["item_name"] = name
	}
	if input.Category != nil {
		fields["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Qty != nil {
		if *input.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if err := inventory.CheckQty("qty", *input.Qty); err != nil {
			return nil, err
		}
		fields["qty"] = *input.Qty
	}
	if input.Unit != nil {
		fields["unit"] = strings.TrimSpace(*input.Unit)
	}
	if input.Notes != nil {
		fields["notes"] = strings.TrimSpace(*input.Notes)
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.requests.UpdateFields(ctx, id, fields); err != nil {
		return nil, requestLookupError(err, id)
	}
	req, err = s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, requestLookupError(err, id)
	}

	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"req_id": id, "status": req.Status}), "request fields overwritten")
	s.afterCommit(ctx, actor, "Update Request", fmt.Sprintf("#%d (%s)", id, req.Status))
	return req, nil
}

func (s *service) Delete(ctx context.Context, actor *access.Actor, id uint64) (err error) {
	defer s.metrics.Track(string(access.OpRequestDelete), time.Now(), &err)
	if err := access.Authorize(actor, access.OpRequestDelete); err != nil {
		return err
	}

	ok, err := s.requests.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete request")
	}
	if !ok {
		return requestLookupError(ErrNotFound, id)
	}

	s.afterCommit(ctx, actor, "Delete Request", fmt.Sprintf("#%d", id))
	return nil
}

func (s *service) Get(ctx context.Context, id uint64) (*models.SupplyRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, requestLookupError(err, id)
	}
	return req, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]models.SupplyRequest, error) {
	rows, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list requests")
	}
	return rows, nil
}

// transitionOne applies a guarded single-row transition and classifies a miss.
func (s *service) transitionOne(ctx context.Context, requests Repository, id uint64, from []enums.RequestStatus, fields map[string]any) error {
	changed, err := requests.Transition(ctx, []uint64{id}, from, fields)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update request")
	}
	if changed == 1 {
		return nil
	}
	current, err := requests.FindByID(ctx, id)
	if err != nil {
		return requestLookupError(err, id)
	}
	return alreadyProcessed(id, current.Status)
}

func (s *service) checkBatch(n int) error {
	if n > s.maxBatch {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "batch of %d exceeds the limit of %d", n, s.maxBatch).
			WithDetails(map[string]any{"size": n, "max": s.maxBatch})
	}
	return nil
}

func (s *service) afterCommit(ctx context.Context, actor *access.Actor, action, detail string) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"action": action, "detail": detail}), "request updated")
	s.audit.Record(ctx, audit.NewEvent(actor, auditModule, action, detail))
	s.views.Invalidate(ctx)
}

func isIssuable(status enums.RequestStatus) bool {
	for _, s := range issuable {
		if s == status {
			return true
		}
	}
	return false
}

func alreadyProcessed(id uint64, status enums.RequestStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeAlreadyProcessed, "Request #%d is already %s", id, status).
		WithDetails(map[string]any{"req_id": id, "status": status})
}

func requestLookupError(err error, id uint64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "Request #%d not found", id)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load request")
	}
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func withDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
