package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/synergydash/synergy-backend/app/dto"
	"github.com/synergydash/synergy-backend/models"
	"github.com/synergydash/synergy-backend/repository"
	"github.com/synergydash/synergy-backend/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// SynergyEventFlow serves the audit log read side: paginated listing for the
// dashboard and a spreadsheet export for operators.
type SynergyEventFlow interface {
	ListEvents(ctx context.Context, req *dto.ListSynergyEventsRequest) (*dto.ListSynergyEventsResponse, error)
	ExportEvents(ctx context.Context, req *dto.ListSynergyEventsRequest) (string, []byte, error)
}

const (
	// DefaultEventsLimit applies when a listing request omits the limit.
	DefaultEventsLimit = 100

	// MaxEventsLimit caps a single listing page.
	MaxEventsLimit = 500

	// exportEventsLimit caps one export so a runaway audit log cannot
	// exhaust memory building the workbook.
	exportEventsLimit = 10000
)

// SynergyEventFlowImpl implements SynergyEventFlow
type SynergyEventFlowImpl struct {
	eventRepo repository.SynergyIDEventRepository
}

// NewSynergyEventFlow creates a new audit event flow
func NewSynergyEventFlow(eventRepo repository.SynergyIDEventRepository) SynergyEventFlow {
	return &SynergyEventFlowImpl{eventRepo: eventRepo}
}

// ListEvents returns audit events newest first, optionally filtered
func (f *SynergyEventFlowImpl) ListEvents(ctx context.Context, req *dto.ListSynergyEventsRequest) (*dto.ListSynergyEventsResponse, error) {
	if req == nil {
		req = &dto.ListSynergyEventsRequest{}
	}

	limit := req.Limit
	if limit == 0 {
		limit = DefaultEventsLimit
	}
	if limit < 1 || limit > MaxEventsLimit {
		return nil, NewBusinessError("INVALID_LIMIT", "Invalid limit", ErrInvalidLimit)
	}
	if req.Offset < 0 {
		return nil, NewBusinessError("INVALID_OFFSET", "Invalid offset", ErrInvalidOffset)
	}

	rows, err := f.eventRepo.List(ctx, models.SynergyIDEventFilter{
		Prefix: req.Prefix,
		Code:   req.Code,
		POID:   req.POID,
	}, limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("LIST_EVENTS_FAILED", "Failed to list synergy events", err)
	}

	items := make([]dto.SynergyEventDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSynergyEventDTO(row))
	}
	return &dto.ListSynergyEventsResponse{Items: items}, nil
}

// ExportEvents builds an xlsx workbook of the audit trail for offline review
func (f *SynergyEventFlowImpl) ExportEvents(ctx context.Context, req *dto.ListSynergyEventsRequest) (string, []byte, error) {
	if req == nil {
		req = &dto.ListSynergyEventsRequest{}
	}

	rows, err := f.eventRepo.List(ctx, models.SynergyIDEventFilter{
		Prefix: req.Prefix,
		Code:   req.Code,
		POID:   req.POID,
	}, exportEventsLimit, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_EVENTS_FAILED", "Failed to fetch synergy events", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "synergy_id_events"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "created_at", "event_type", "prefix", "code", "seq", "actor_name", "po_number", "po_id", "po_line_id", "inventory_id", "meta"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, row := range rows {
		record := []string{
			row.ID.String(),
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.EventType,
			row.Prefix,
			row.Code,
			strconv.FormatInt(row.Seq, 10),
			derefOrEmpty(row.ActorName),
			derefOrEmpty(row.PONumber),
			uuidOrEmpty(row.POID),
			uuidOrEmpty(row.POLineID),
			uuidOrEmpty(row.InventoryID),
			string(row.Meta),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("synergy_id_events_%s.xlsx", utils.UTCNowFormat("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func toSynergyEventDTO(row *repository.SynergyIDEventWithPO) dto.SynergyEventDTO {
	item := dto.SynergyEventDTO{
		ID:        row.ID.String(),
		CreatedAt: row.CreatedAt,
		ActorName: row.ActorName,
		Prefix:    row.Prefix,
		Code:      row.Code,
		Seq:       row.Seq,
		EventType: row.EventType,
		Meta:      row.Meta,
		PONumber:  row.PONumber,
	}
	if row.POID != nil {
		item.POID = utils.ToPtr(row.POID.String())
	}
	if row.POLineID != nil {
		item.POLineID = utils.ToPtr(row.POLineID.String())
	}
	if row.InventoryID != nil {
		item.InventoryID = utils.ToPtr(row.InventoryID.String())
	}
	return item
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
