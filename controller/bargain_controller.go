package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bargain-backend/model"
	"bargain-backend/usecase"
)

type Negotiator interface {
	EvaluateOffer(ctx context.Context, in usecase.TurnInput) (*model.Decision, error)
	GetTranscript(ctx context.Context, productID, userID string) (*model.Transcript, error)
}

type AgentTrainer interface {
	TrainAgent(ctx context.Context) (string, error)
}

type BargainController struct {
	negotiator Negotiator
	trainer    AgentTrainer
	logger     *zap.Logger
}

func NewBargainController(negotiator Negotiator, trainer AgentTrainer, logger *zap.Logger) *BargainController {
	return &BargainController{negotiator: negotiator, trainer: trainer, logger: logger}
}

type bargainRequest struct {
	ProductID     string          `json:"product_id"`
	UserID        string          `json:"user_id"`
	Message       string          `json:"message"`
	ProposedPrice json.RawMessage `json:"proposed_price"`
}

// anonymousUserID identifies a buyer that did not send a user id.
func anonymousUserID() string {
	return "anon-" + uuid.NewString()
}

// Bargain serves POST /api/products/bargain.
func (c *BargainController) Bargain(ctx *gin.Context) {
	// An unreadable body leaves the request empty and is answered with the invalid-request decision.
	var req bargainRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Debug("malformed bargain request", zap.Error(err))
		req = bargainRequest{}
	}
	if req.UserID == "" {
		req.UserID = anonymousUserID()
	}

	d, err := c.negotiator.EvaluateOffer(ctx.Request.Context(), usecase.TurnInput{
		ProductID:     req.ProductID,
		UserID:        req.UserID,
		Message:       req.Message,
		ProposedPrice: lenientPrice(req.ProposedPrice),
	})
	switch {
	case errors.Is(err, usecase.ErrProductNotFound):
		ctx.JSON(http.StatusNotFound, d)
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case req.ProductID == "":
		ctx.JSON(http.StatusBadRequest, d)
	default:
		ctx.JSON(http.StatusOK, d)
	}
}

// Train serves POST /api/products/bargain/train and answers with a plain-text summary.
func (c *BargainController) Train(ctx *gin.Context) {
	msg, err := c.trainer.TrainAgent(ctx.Request.Context())
	if err != nil {
		c.logger.Error("training failed", zap.Error(err))
		ctx.String(http.StatusInternalServerError, "Training failed: %v", err)
		return
	}
	ctx.String(http.StatusOK, msg)
}

// Transcript serves GET /api/products/bargain/sessions?product_id=&user_id=.
func (c *BargainController) Transcript(ctx *gin.Context) {
	productID, userID := ctx.Query("product_id"), ctx.Query("user_id")
	if productID == "" || userID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "product_id and user_id are required"})
		return
	}

	t, err := c.negotiator.GetTranscript(ctx.Request.Context(), productID, userID)
	if err != nil {
		c.logger.Error("failed to load transcript", zap.String("product_id", productID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, t)
}
