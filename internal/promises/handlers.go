package promises

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/promise/internal/apperr"
)

type subscribeRequest struct {
	UserID        *uuid.UUID `json:"userId"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Promise       string     `json:"promise" binding:"required"`
	IsEcoFriendly bool       `json:"isEcoFriendly"`
	ReminderTime  string     `json:"reminderTime"`
}

// SubscribeHandler signs up a new user, or adds a promise when userId is given
func SubscribeHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if !apperr.BindJSON(c, &req) {
			return
		}

		res, err := svc.Subscribe(c.Request.Context(), SubscribeInput{
			UserID:        req.UserID,
			Name:          req.Name,
			Email:         req.Email,
			Promise:       req.Promise,
			IsEcoFriendly: req.IsEcoFriendly,
			ReminderTime:  req.ReminderTime,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		message := "New promise created"
		if res.NewUser {
			message = "Subscription successful"
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"userId":    res.UserID,
			"promiseId": res.PromiseID,
			"message":   message,
		})
	}
}

type loginRequest struct {
	Email string `json:"email" binding:"required"`
}

// LoginHandler resolves an email to a user id
func LoginHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !apperr.BindJSON(c, &req) {
			return
		}

		user, err := svc.Login(c.Request.Context(), req.Email)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "userId": user.ID, "name": user.Name})
	}
}

// GetUserHandler returns the dashboard state of a user
func GetUserHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}

		state, err := svc.State(c.Request.Context(), userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

type createRequest struct {
	PromiseText   string `json:"promise_text" binding:"required"`
	TargetDate    string `json:"target_date"`
	IsEcoFriendly bool   `json:"is_eco_friendly"`
	WitnessEmail  string `json:"witness_email"`
	Visibility    string `json:"visibility"`
}

// CreatePromiseHandler creates a new promise for an existing user
func CreatePromiseHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req createRequest
		if !apperr.BindJSON(c, &req) {
			return
		}

		p, err := svc.CreateForUser(c.Request.Context(), userID, CreateInput{
			Text:          req.PromiseText,
			TargetDate:    req.TargetDate,
			IsEcoFriendly: req.IsEcoFriendly,
			WitnessEmail:  req.WitnessEmail,
			Visibility:    req.Visibility,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "promise": p})
	}
}

type updateRequest struct {
	ReminderTime  *string `json:"reminder_time"`
	PromiseText   *string `json:"promise_text"`
	TargetDate    *string `json:"target_date"`
	IsEcoFriendly *bool   `json:"is_eco_friendly"`
	WitnessEmail  *string `json:"witness_email"`
	Visibility    *string `json:"visibility"`
	Completed     *bool   `json:"completed"`
}

// UpdateUserHandler applies a partial update to the user and their open promise
func UpdateUserHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req updateRequest
		if !apperr.BindJSON(c, &req) {
			return
		}

		res, err := svc.Update(c.Request.Context(), userID, UpdateInput{
			ReminderTime:  req.ReminderTime,
			Text:          req.PromiseText,
			TargetDate:    req.TargetDate,
			IsEcoFriendly: req.IsEcoFriendly,
			WitnessEmail:  req.WitnessEmail,
			Visibility:    req.Visibility,
			Completed:     req.Completed,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		body := gin.H{"success": true, "promisesUpdated": res.PromisesUpdated}
		if res.Completion != nil {
			body["changed"] = res.Completion.Changed
		}
		c.JSON(http.StatusOK, body)
	}
}

type completeRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// CompleteCurrentHandler completes the user's open promise
func CompleteCurrentHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req completeRequest
		if !apperr.BindJSON(c, &req) {
			return
		}
		if !*req.Completed {
			apperr.Respond(c, apperr.Validation("a completed promise cannot be reopened"))
			return
		}

		res, err := svc.Complete(c.Request.Context(), userID, nil)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, completionBody(res))
	}
}

type notifyCompletionRequest struct {
	PromiseID *uuid.UUID `json:"promise_id" binding:"required"`
}

// NotifyCompletionHandler completes a promise by id and notifies witness and partners
func NotifyCompletionHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req notifyCompletionRequest
		if !apperr.BindJSON(c, &req) {
			return
		}

		res, err := svc.Complete(c.Request.Context(), userID, req.PromiseID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, completionBody(res))
	}
}

func completionBody(res *CompleteResult) gin.H {
	notified := res.Notified
	if notified == nil {
		notified = []string{}
	}
	body := gin.H{
		"success":       true,
		"changed":       res.Changed,
		"notifications": notified,
		"message":       fmt.Sprintf("Sent %d notification(s)", len(notified)),
	}
	if res.PromiseID != uuid.Nil {
		body["promiseId"] = res.PromiseID
	}
	return body
}

// DeleteUserHandler deletes the account
func DeleteUserHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), userID); err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// HistoryHandler lists the user's promises, newest first
func HistoryHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		entries, err := svc.History(c.Request.Context(), userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"promises": entries})
	}
}

// GetWitnessHandler returns the witness of the current promise
func GetWitnessHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		witness, err := svc.Witness(c.Request.Context(), userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		var value any
		if witness != "" {
			value = witness
		}
		c.JSON(http.StatusOK, gin.H{"witnessEmail": value})
	}
}

type witnessRequest struct {
	Email string `json:"email" binding:"required"`
}

// SetWitnessHandler sets the witness of the open promise. Clearing goes
// through PATCH with an empty witness_email.
func SetWitnessHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req witnessRequest
		if !apperr.BindJSON(c, &req) {
			return
		}
		witness, err := svc.SetWitness(c.Request.Context(), userID, req.Email)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "witnessEmail": witness})
	}
}

// GetVisibilityHandler returns the visibility of the current promise
func GetVisibilityHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		v, err := svc.Visibility(c.Request.Context(), userID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"visibility": v})
	}
}

type visibilityRequest struct {
	Visibility string `json:"visibility" binding:"required"`
}

// SetVisibilityHandler sets the visibility of the open promise
func SetVisibilityHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := apperr.ParamUUID(c, "id")
		if !ok {
			return
		}
		var req visibilityRequest
		if !apperr.BindJSON(c, &req) {
			return
		}
		v, err := svc.SetVisibility(c.Request.Context(), userID, req.Visibility)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "visibility": v})
	}
}

type sendReminderRequest struct {
	UserID       *uuid.UUID `json:"userId" binding:"required"`
	ReminderType string     `json:"reminderType" binding:"required"`
}

// SendReminderHandler sends a gentle or completion reminder
func SendReminderHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendReminderRequest
		if !apperr.BindJSON(c, &req) {
			return
		}
		message, err := svc.SendReminder(c.Request.Context(), *req.UserID, req.ReminderType)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
	}
}

// RegisterRoutes mounts the promise endpoints on r
func RegisterRoutes(r gin.IRouter, svc *Service) {
	r.POST("/subscribe", SubscribeHandler(svc))
	r.POST("/login", LoginHandler(svc))
	r.POST("/send-reminder", SendReminderHandler(svc))

	user := r.Group("/user/:id")
	user.GET("", GetUserHandler(svc))
	user.POST("", CreatePromiseHandler(svc))
	user.PATCH("", UpdateUserHandler(svc))
	user.PUT("", CompleteCurrentHandler(svc))
	user.DELETE("", DeleteUserHandler(svc))
	user.GET("/history", HistoryHandler(svc))
	user.POST("/notify-completion", NotifyCompletionHandler(svc))
	user.GET("/witness", GetWitnessHandler(svc))
	user.POST("/witness", SetWitnessHandler(svc))
	user.GET("/visibility", GetVisibilityHandler(svc))
	user.POST("/visibility", SetVisibilityHandler(svc))
}
