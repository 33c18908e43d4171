package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// InventoryHandler exposes stock and requisition endpoints.
type InventoryHandler struct {
	inventory    *service.InventoryService
	requisitions *service.RequisitionService
}

// NewInventoryHandler constructs handler.
func NewInventoryHandler(inventory *service.InventoryService, requisitions *service.RequisitionService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, requisitions: requisitions}
}

// ListItems GET /inventory.
func (h *InventoryHandler) ListItems(c *fiber.Ctx) error {
	limit, offset := pagination(c, 50)
	items, err := h.inventory.ListItems(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": pageMeta(limit, offset)})
}

// GetItem GET /inventory/:id.
func (h *InventoryHandler) GetItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.inventory.GetItem(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
}

// CreateItem POST /inventory.
func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var req dto.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.inventory.CreateItem(c.UserContext(), service.InventoryCreateInput{
		Name:         req.Name,
		SKU:          req.SKU,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		Location:     req.Location,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewItemResponse(item)})
}

// AdjustStock POST /inventory/:id/adjust.
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AdjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.inventory.AdjustStock(c.UserContext(), id, req.Delta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
}

// ListRequisitions GET /requisitions.
func (h *InventoryHandler) ListRequisitions(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c, 20)
	filter := service.RequisitionListFilter{Limit: limit, Offset: offset}
	if status := domain.RequisitionStatus(c.Query("status")); status != "" {
		filter.Status = &status
	}
	reqs, err := h.requisitions.List(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	out := make([]dto.RequisitionResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, dto.NewRequisitionResponse(&reqs[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": pageMeta(limit, offset)})
}

// SubmitRequisition POST /requisitions.
func (h *InventoryHandler) SubmitRequisition(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequisitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.requisitions.Submit(c.UserContext(), user, req.ItemID, req.Quantity, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequisitionResponse(created)})
}

// DecideRequisition POST /requisitions/:id/decision.
func (h *InventoryHandler) DecideRequisition(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	decided, err := h.requisitions.Decide(c.UserContext(), user, id, req.Approve, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequisitionResponse(decided)})
}

// FulfilRequisition POST /requisitions/:id/fulfil.
func (h *InventoryHandler) FulfilRequisition(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req, item, err := h.requisitions.Fulfil(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"requisition": dto.NewRequisitionResponse(req),
		"item":        dto.NewItemResponse(item),
	}})
}
