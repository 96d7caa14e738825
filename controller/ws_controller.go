package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bargain-backend/model"
	"bargain-backend/usecase"
)

const writeWait = 10 * time.Second

type TurnHandler interface {
	HandleTurn(ctx context.Context, in usecase.TurnInput) error
}

// Subscriber hands out the per-user outbound decision channel.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan model.Decision, func())
}

type WSController struct {
	turns    TurnHandler
	sub      Subscriber
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSController(turns TurnHandler, sub Subscriber, logger *zap.Logger) *WSController {
	return &WSController{
		turns: turns,
		sub:   sub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Negotiate serves GET /ws/bargain/:productId/:userId.
// Inbound frames are buyer turns; decisions for the user are written back as JSON frames.
// Malformed frames still produce a turn, so the buyer always gets an answer.
func (c *WSController) Negotiate(ctx *gin.Context) {
	productID, userID := ctx.Param("productId"), ctx.Param("userId")

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	reqCtx, cancelReq := context.WithCancel(context.Background())
	defer cancelReq()

	decisions, unsubscribe := c.sub.Subscribe(reqCtx, userID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range decisions {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(d); err != nil {
				c.logger.Debug("websocket write failed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	}()

	c.logger.Info("negotiation socket opened", zap.String("product_id", productID), zap.String("user_id", userID))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				c.logger.Debug("websocket read ended", zap.String("user_id", userID), zap.Error(err))
			}
			break
		}
		msg, price := decodeFrame(payload)
		in := usecase.TurnInput{ProductID: productID, UserID: userID, Message: msg, ProposedPrice: price}
		if err := c.turns.HandleTurn(reqCtx, in); err != nil {
			c.logger.Warn("turn not delivered", zap.String("user_id", userID), zap.Error(err))
		}
	}

	unsubscribe()
	cancelReq()
	<-done
}
