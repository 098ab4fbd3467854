package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/bitfantasy/garo/internal/ims/service"
	"github.com/bitfantasy/garo/internal/ims/testutil"
)

func setupPartHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	stockSvc := service.NewStockService(repos.Part, repos.UsageLog, repos.AuditLog)
	partSvc := service.NewPartService(repos.Part, repos.UsageLog, repos.AuditLog)
	h := NewPartHandler(partSvc, stockSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/ims")
	api.GET("/parts", h.ListParts)
	api.POST("/parts", h.CreatePart)
	api.GET("/parts/:id", h.GetPart)
	api.PUT("/parts/:id", h.UpdatePart)
	api.DELETE("/parts/:id", h.DeactivatePart)
	api.POST("/parts/:id/restore", h.RestorePart)
	api.POST("/parts/:id/reserve", h.ReserveStock)
	api.POST("/parts/:id/consume", h.ConsumeStock)
	api.POST("/parts/:id/replenish", h.ReplenishStock)
	api.GET("/usage", h.ListUsage)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestStockOperationsOverHTTP drives reserve/consume/replenish through the API
func TestStockOperationsOverHTTP(t *testing.T) {
	env := setupPartHandlerTest(t)
	token := testutil.AdminToken()
	testutil.SeedPart(t, env.DB, "part-sh-001", "CLUTCH-KIT-V2", 10, 0, 3)

	// 预留4
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts/part-sh-001/reserve",
		map[string]interface{}{"quantity": 4}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("reserve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	stock := data["stock"].(map[string]interface{})
	if stock["on_hand"].(float64) != 10 || stock["reserved"].(float64) != 4 {
		t.Fatalf("after reserve: %v", stock)
	}

	// 领用3，挂到工单
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts/part-sh-001/consume",
		map[string]interface{}{"quantity": 3, "job_id": "job-778", "note": "刹车保养"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("consume: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	stock = data["stock"].(map[string]interface{})
	if stock["on_hand"].(float64) != 7 || stock["reserved"].(float64) != 1 {
		t.Fatalf("after consume: %v", stock)
	}

	// 入库5
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts/part-sh-001/replenish",
		map[string]interface{}{"quantity": 5, "source": "manual"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("replenish: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	stock = data["stock"].(map[string]interface{})
	if stock["on_hand"].(float64) != 12 {
		t.Fatalf("after replenish: %v", stock)
	}

	// 领用记录按工单可查
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/ims/usage?job_id=job-778", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("usage: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	listData := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if items := listData["items"].([]interface{}); len(items) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(items))
	}
}

// TestReserveInsufficientOverHTTP expects 409 with the stock-specific code
func TestReserveInsufficientOverHTTP(t *testing.T) {
	env := setupPartHandlerTest(t)
	token := testutil.AdminToken()
	testutil.SeedPart(t, env.DB, "part-sh-002", "HEADLAMP-H7", 5, 4, 2)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts/part-sh-002/reserve",
		map[string]interface{}{"quantity": 2}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if code := testutil.ParseResponse(w)["code"].(float64); code != 40901 {
		t.Fatalf("expected code 40901, got %v", code)
	}

	// 状态不变
	var part entity.Part
	env.DB.First(&part, "id = ?", "part-sh-002")
	if part.Stock.OnHand != 5 || part.Stock.Reserved != 4 {
		t.Fatalf("state changed after failed reserve: %+v", part.Stock)
	}

	// 数量非法由binding挡下
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts/part-sh-002/reserve",
		map[string]interface{}{"quantity": -1}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative qty: expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

// TestPartCRUDOverHTTP covers create, duplicate code, deactivate and restore
func TestPartCRUDOverHTTP(t *testing.T) {
	env := setupPartHandlerTest(t)
	token := testutil.GenerateTestToken("u-inv-001", "库管", "inventory_manager")

	body := map[string]interface{}{
		"part_code":     "  atf-oil-dx6 ",
		"name":          "自动变速箱油DX6",
		"category":      "consumable",
		"unit":          "L",
		"unit_price":    85.5,
		"on_hand":       10,
		"reorder_level": 4,
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	// 编码规范化为大写去空白
	if data["part_code"] != "ATF-OIL-DX6" {
		t.Fatalf("expected normalized code, got %v", data["part_code"])
	}
	partID := data["id"].(string)

	// 编码冲突
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate code: expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// 停用后默认列表不可见
	if w := testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/ims/parts/"+partID, nil, token); w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", w.Code)
	}
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/ims/parts", nil, token)
	listData := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if items := listData["items"].([]interface{}); len(items) != 0 {
		t.Fatalf("deactivated part still listed: %d items", len(items))
	}
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/ims/parts?include_inactive=true", nil, token)
	listData = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if items := listData["items"].([]interface{}); len(items) != 1 {
		t.Fatalf("expected 1 part with include_inactive, got %d", len(items))
	}

	// 恢复
	if w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/ims/parts/"+partID+"/restore", nil, token); w.Code != http.StatusOK {
		t.Fatalf("restore: expected 200, got %d", w.Code)
	}
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/ims/parts/"+partID, nil, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["is_active"] != true {
		t.Fatalf("expected active after restore, got %v", data["is_active"])
	}
}

// TestLowStockListFilter verifies ?low_stock=true only returns parts at or below reorder level
func TestLowStockListFilter(t *testing.T) {
	env := setupPartHandlerTest(t)
	token := testutil.AdminToken()
	testutil.SeedPart(t, env.DB, "part-sh-010", "LOW-ONE", 2, 1, 5)
	testutil.SeedPart(t, env.DB, "part-sh-011", "FINE-ONE", 50, 0, 5)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/ims/parts?low_stock=true", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	listData := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := listData["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 low-stock part, got %d", len(items))
	}
	if items[0].(map[string]interface{})["part_code"] != "LOW-ONE" {
		t.Fatalf("wrong part flagged: %v", items[0])
	}
}
