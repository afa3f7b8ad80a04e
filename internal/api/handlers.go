package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch-service/internal/logging"
	"dispatch-service/internal/models"
	"dispatch-service/internal/registry"
)

// ResponseLister reads the response history of one alert.
type ResponseLister interface {
	ResponsesForAlert(ctx context.Context, alertID string) ([]models.AlertResponse, error)
}

type Handler struct {
	registry  *registry.Registry
	responses ResponseLister
	logger    *logging.Logger
}

// NewHandler builds the HTTP handlers. responses may be nil, in which case the
// history endpoint reports 501.
func NewHandler(reg *registry.Registry, responses ResponseLister, logger *logging.Logger) *Handler {
	return &Handler{registry: reg, responses: responses, logger: logger}
}

type connectedUser struct {
	UserID   string      `json:"userId"`
	Role     models.Role `json:"role"`
	Category string      `json:"category"`
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "online",
		"connectedUsers": h.registry.Len(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Status(c *gin.Context) {
	parties := h.registry.Snapshot()
	users := make([]connectedUser, 0, len(parties))
	for _, p := range parties {
		users = append(users, connectedUser{UserID: p.ID, Role: p.Role, Category: p.Category})
	}
	c.JSON(http.StatusOK, gin.H{
		"connectedUsers": len(users),
		"users":          users,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetAlertResponses(c *gin.Context) {
	if h.responses == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Response history is not available"})
		return
	}
	id := c.Param("id")
	responses, err := h.responses.ResponsesForAlert(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Get responses for alert %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load responses"})
		return
	}
	if responses == nil {
		responses = []models.AlertResponse{}
	}
	h.logger.Debugf("Retrieved %d responses for alert %s", len(responses), id)
	c.JSON(http.StatusOK, responses)
}
