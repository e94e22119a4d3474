package public

import (
	"net/http"
	"time"

	"github.com/vmq-next/internal/constants"
	"github.com/vmq-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 25 * time.Second
)

var orderStatusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 支付页与后端可能不同源
	},
}

// orderStatusMessage 推送给支付页的状态消息
type orderStatusMessage struct {
	Type    string               `json:"type"`
	Message string               `json:"msg"`
	Data    *service.CheckResult `json:"data"`
}

// OrderStatusStream 支付页订单状态实时推送
// 连接建立后先推送一次当前状态，之后每次状态变更重新查询并推送，终态或到期后关闭。
func (h *Handler) OrderStatusStream(c *gin.Context) {
	orderID := orderIDFromRequest(c)
	initial, err := h.OrderService.CheckOrder(orderID)
	if err != nil {
		respondMappedError(c, err, orderQueryErrorRules)
		return
	}

	events, cancel := h.OrderEvents.Subscribe(orderID)
	defer cancel()

	conn, err := orderStatusUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		requestLog(c).Warnw("order_ws_upgrade_failed", "order_id", orderID, "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					requestLog(c).Debugw("order_ws_read_closed", "order_id", orderID, "error", err)
				}
				return
			}
		}
	}()

	if !writeOrderStatus(conn, initial) || initial.State != constants.OrderStatePending {
		return
	}

	deadline := time.NewTimer(time.Duration(initial.RemainingSeconds)*time.Second + time.Second)
	defer deadline.Stop()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline.C:
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		// 事件只作为触发信号，状态以重新查询为准
		result, err := h.OrderService.CheckOrder(orderID)
		if err != nil {
			requestLog(c).Warnw("order_ws_check_failed", "order_id", orderID, "error", err)
			return
		}
		if !writeOrderStatus(conn, result) || result.State != constants.OrderStatePending {
			return
		}
		deadline.Reset(time.Duration(result.RemainingSeconds)*time.Second + time.Second)
	}
}

func writeOrderStatus(conn *websocket.Conn, result *service.CheckResult) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := conn.WriteJSON(orderStatusMessage{
		Type:    "order_status",
		Message: result.Message,
		Data:    result,
	})
	return err == nil
}
