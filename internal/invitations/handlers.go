package invitations

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/promise/internal/apperr"
)

type inviteRequest struct {
	PartnerEmail string `json:"partnerEmail" binding:"required"`
	Promise      string `json:"promise"`
}

// InviteHandler creates an invitation and emails the partner
func InviteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req inviteRequest
		if !apperr.BindJSON(c, &req) {
			return
		}

		inv, err := svc.Create(c.Request.Context(), userID, req.PartnerEmail, req.Promise)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "invitation": inv})
	}
}

// ListHandler lists the invitations a user has sent
func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		invitations, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invitations": invitations})
	}
}

// ViewHandler shows an invitation with the actions still available on it
func ViewHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		view, err := svc.View(c.Request.Context(), id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// AcceptHandler accepts a pending invitation
func AcceptHandler(svc *Service) gin.HandlerFunc {
	return resolveHandler(svc.Accept)
}

// DeclineHandler declines a pending invitation
func DeclineHandler(svc *Service) gin.HandlerFunc {
	return resolveHandler(svc.Decline)
}

func resolveHandler(resolve func(ctx context.Context, id uuid.UUID) (*View, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		view, err := resolve(c.Request.Context(), id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"status":     view.Invitation.Status,
			"invitation": view,
		})
	}
}

// PartnersHandler lists a user's accepted accountability partners
func PartnersHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		partners, err := svc.Partners(c.Request.Context(), userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"partners": partners})
	}
}

type partnerRequest struct {
	Email string `json:"email" binding:"required"`
}

// AddPartnerHandler invites a partner for the user's current promise
func AddPartnerHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req partnerRequest
		if !apperr.BindJSON(c, &req) {
			return
		}
		inv, err := svc.AddPartner(c.Request.Context(), userID, req.Email)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "invitation": inv})
	}
}

// RemovePartnerHandler removes a partner and their invitations
func RemovePartnerHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req partnerRequest
		if !apperr.BindJSON(c, &req) {
			return
		}
		if err := svc.RemovePartner(c.Request.Context(), userID, req.Email); err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// RegisterRoutes mounts the invitation and accountability endpoints on r
func RegisterRoutes(r gin.IRouter, svc *Service) {
	user := r.Group("/user/:id")
	user.GET("/invite-partner", ListHandler(svc))
	user.POST("/invite-partner", InviteHandler(svc))
	user.GET("/accountability", PartnersHandler(svc))
	user.POST("/accountability", AddPartnerHandler(svc))
	user.DELETE("/accountability", RemovePartnerHandler(svc))

	inv := r.Group("/invitation/:id")
	inv.GET("", ViewHandler(svc))
	inv.GET("/accept", ViewHandler(svc))
	inv.POST("/accept", AcceptHandler(svc))
	inv.GET("/decline", ViewHandler(svc))
	inv.POST("/decline", DeclineHandler(svc))
}
