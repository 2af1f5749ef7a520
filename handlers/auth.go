package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-desk/services"
)

type AuthHandler struct {
	gate *services.SessionGate
}

func NewAuthHandler(gate *services.SessionGate) *AuthHandler {
	return &AuthHandler{gate: gate}
}

type VerifyRequest struct {
	Password string `json:"password"`
}

// Verify exchanges the shared password for a session token. The new token
// replaces any previous session.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(services.ValidationError(err))
		return
	}

	token, err := h.gate.Verify(c.Request.Context(), req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// Session reports that the caller's session is still the active one. The
// session middleware has already rejected anything else.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"valid": true})
}
