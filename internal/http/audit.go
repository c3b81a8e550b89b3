package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/pagination"
)

const (
	defaultAuditLimit = 25
	maxAuditLimit     = 100
)

// AuditController lets librarians browse the audit log.
type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// ListEvents returns paginated audit events as JSON, newest first.
// GET /api/audit?page=&limit=&type=&user_id=&entity_type=&entity_id=
func (ac *AuditController) ListEvents(c *gin.Context) {
	page := pagination.ParsePage(c.Query("page"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditLimit)))
	if err != nil || limit < 1 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}

	eventType := entities.AuditEventType(c.Query("type"))
	if eventType != "" && !validEventType(eventType) {
		respondBadRequest(c, "unknown event type: "+string(eventType))
		return
	}

	filter := dbaudit.Filter{
		UserID:     parseOptionalQueryID(c, "user_id"),
		EventType:  eventType,
		EntityType: c.Query("entity_type"),
		EntityID:   parseOptionalQueryID(c, "entity_id"),
	}

	events, total, err := ac.auditService.GetEvents(c.Request.Context(), filter, limit, (page-1)*limit)
	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
		"event_types":  getEventTypes(),
	})
}

func validEventType(t entities.AuditEventType) bool {
	for _, opt := range getEventTypes() {
		if opt.Value != "" && opt.Value == string(t) {
			return true
		}
	}
	return false
}

func getEventTypes() []EventTypeOption {
	return []EventTypeOption{
		{Value: "", Label: "All Events"},
		{Value: string(entities.AuditEventLoan), Label: "Loans"},
		{Value: string(entities.AuditEventReview), Label: "Reviews"},
		{Value: string(entities.AuditEventAuth), Label: "Authentication"},
		{Value: string(entities.AuditEventProfile), Label: "Profile"},
		{Value: string(entities.AuditEventOverdue), Label: "Overdue"},
		{Value: string(entities.AuditEventCatalog), Label: "Catalog"},
	}
}

type EventTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
