package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// Client — 门户财务服务客户端
// 采购审批通过后向资本账发起扣减，服务间用共享token认证
// =============================================================================

// Client 财务服务客户端
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// NewClient 创建财务服务客户端实例
func NewClient(baseURL, serviceToken string) *Client {
	return &Client{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type spendCapitalReq struct {
	Amount  float64 `json:"amount"`
	Memo    string  `json:"memo"`
	RefID   string  `json:"ref_id"`
	RefType string  `json:"ref_type"`
	UserID  string  `json:"user_id"`
}

type spendCapitalResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SpendCapital 资本账扣减。调用方按尽力而为处理返回的错误。
func (c *Client) SpendCapital(ctx context.Context, amount float64, memo, refID, refType, userID string) error {
	body, _ := json.Marshal(spendCapitalReq{
		Amount:  amount,
		Memo:    memo,
		RefID:   refID,
		RefType: refType,
		UserID:  userID,
	})

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.baseURL+"/api/v1/finance/capital/spend",
		bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建扣减请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求财务服务失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("财务服务返回 %d: %s", resp.StatusCode, string(respBody))
	}

	var result spendCapitalResp
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析财务服务响应失败: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("资本账扣减被拒绝: %s", result.Message)
	}
	return nil
}
