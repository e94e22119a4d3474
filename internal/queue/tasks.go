package queue

import (
	"encoding/json"
	"strings"

	"github.com/vmq-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderExpire 订单到期关闭任务
	TaskOrderExpire = constants.TaskOrderExpire
)

// OrderExpirePayload 订单到期关闭任务载荷
type OrderExpirePayload struct {
	OrderID string `json:"order_id"`
}

// NewOrderExpireTask 创建订单到期关闭任务
func NewOrderExpireTask(payload OrderExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderExpire, body), nil
}

// ParseOrderExpirePayload 解析订单到期关闭任务载荷
func ParseOrderExpirePayload(body []byte) (OrderExpirePayload, error) {
	var payload OrderExpirePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	payload.OrderID = strings.TrimSpace(payload.OrderID)
	return payload, nil
}
