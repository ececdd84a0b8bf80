package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finboard/internal/api/handlers"
	"finboard/internal/dto"
	"finboard/internal/repository"
	"finboard/internal/service"
	"finboard/internal/view"
	"finboard/pkg/auth"
	"finboard/pkg/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type testServer struct {
	app   *fiber.App
	jwt   *auth.JWTManager
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	svc := service.NewTransactionService(
		repository.NewMemoryTransactionStore(),
		nil,
		view.Nop{},
		service.NewValidator(nil),
		&config.ListingConfig{PageSize: 10, MaxPageSize: 100},
		time.Second,
		log,
	)
	app := SetupRouter(
		handlers.NewTransactionHandler(svc, log),
		handlers.NewDashboardHandler(svc, log),
		handlers.NewCategoryHandler(),
		jwtManager,
		&config.ServerConfig{},
		log,
	)

	token, err := jwtManager.GenerateToken("alice", "alice", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	return &testServer{app: app, jwt: jwtManager, token: token}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func today() string {
	return time.Now().UTC().Format(dto.DateLayout)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, "GET", "/health", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, body := s.do(t, "GET", "/api/v1/categories", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("categories status = %d", resp.StatusCode)
	}
	cats := decode[[]dto.CategoryResponse](t, body)
	if len(cats) != 8 || cats[3].Value != "food" || cats[3].Label != "Food & Dining" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/dashboard", "/api/v1/transactions", "/api/v1/transactions/abc"} {
		if resp, _ := s.do(t, "GET", path, "", ""); resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("GET %s without token = %d", path, resp.StatusCode)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, "POST", "/api/v1/transactions", s.token,
		`{"amount": 42.5, "category": "groceries", "description": "Weekly shop", "date": "`+today()+`"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d body=%s", resp.StatusCode, body)
	}
	created := decode[dto.MutationResponse](t, body)
	if !created.Success || created.ID == "" {
		t.Fatalf("create response = %+v", created)
	}
	if strings.Join(created.Invalidated, ",") != "dashboard,transactions" {
		t.Errorf("invalidated = %v", created.Invalidated)
	}

	resp, body = s.do(t, "GET", "/api/v1/transactions/"+created.ID, s.token, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	tx := decode[dto.TransactionResponse](t, body)
	if tx.Amount != "42.50" || tx.CategoryLabel != "Groceries" {
		t.Errorf("transaction = %+v", tx)
	}

	resp, body = s.do(t, "PUT", "/api/v1/transactions/"+created.ID, s.token,
		`{"amount": "60", "category": "food", "description": "Dinner out", "date": "`+today()+`"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("update status = %d body=%s", resp.StatusCode, body)
	}
	updated := decode[dto.MutationResponse](t, body)
	if len(updated.Invalidated) != 3 || updated.Invalidated[2] != "transaction:"+created.ID {
		t.Errorf("invalidated = %v", updated.Invalidated)
	}

	resp, body = s.do(t, "GET", "/api/v1/dashboard", s.token, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	dash := decode[dto.DashboardResponse](t, body)
	if dash.TotalExpenses != "60.00" || dash.TransactionCount != 1 || len(dash.CategoryTotals) != 1 || dash.CategoryTotals[0].Label != "Food & Dining" {
		t.Errorf("dashboard = %+v", dash)
	}

	resp, _ = s.do(t, "DELETE", "/api/v1/transactions/"+created.ID, s.token, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, body = s.do(t, "DELETE", "/api/v1/transactions/"+created.ID, s.token, "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, body)["error"]; got != "Transaction not found." {
		t.Errorf("not found message = %q", got)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, "POST", "/api/v1/transactions", s.token,
		`{"amount": -1, "category": "groceries", "description": "x", "date": "`+today()+`"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errResp := decode[dto.ErrorResponse](t, body)
	if errResp.Fields["amount"] != "Amount must be a positive number." {
		t.Errorf("amount message = %q", errResp.Fields["amount"])
	}
	if errResp.Fields["description"] != "Description must be at least 2 characters." {
		t.Errorf("description message = %q", errResp.Fields["description"])
	}

	resp, body = s.do(t, "POST", "/api/v1/transactions", s.token,
		`{"amount": 0.001, "category": "groceries", "description": "Gum", "date": "`+today()+`"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("sub-cent amount status = %d", resp.StatusCode)
	}
	if got := decode[dto.ErrorResponse](t, body).Fields["amount"]; got != "Amount must have at most 2 decimal places." {
		t.Errorf("sub-cent amount message = %q", got)
	}

	resp, _ = s.do(t, "POST", "/api/v1/transactions", s.token, `{"amount":`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("malformed body status = %d", resp.StatusCode)
	}

	// Nothing was written.
	_, body = s.do(t, "GET", "/api/v1/transactions", s.token, "")
	if page := decode[dto.TransactionPageResponse](t, body); page.Total != 0 {
		t.Errorf("total = %d after rejected creates", page.Total)
	}
}

func TestListTransactions(t *testing.T) {
	s := newTestServer(t)
	for _, amount := range []string{"5", "30", "12"} {
		resp, body := s.do(t, "POST", "/api/v1/transactions", s.token,
			`{"amount": `+amount+`, "category": "other", "description": "item `+amount+`", "date": "`+today()+`"}`)
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("seed status = %d body=%s", resp.StatusCode, body)
		}
	}

	resp, body := s.do(t, "GET", "/api/v1/transactions?sort=amount&order=desc&page=0&page_size=2", s.token, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decode[dto.TransactionPageResponse](t, body)
	if page.Total != 3 || page.TotalPages != 2 || !page.HasNext || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].Amount != "30.00" || page.Items[1].Amount != "12.00" {
		t.Errorf("order = %s, %s", page.Items[0].Amount, page.Items[1].Amount)
	}

	_, body = s.do(t, "GET", "/api/v1/transactions?sort=amount&page=9&page_size=2", s.token, "")
	if beyond := decode[dto.TransactionPageResponse](t, body); len(beyond.Items) != 0 || beyond.Items == nil {
		t.Errorf("page beyond data = %+v", beyond)
	}

	_, body = s.do(t, "GET", "/api/v1/transactions?page=9223372036854775807", s.token, "")
	if last := decode[dto.TransactionPageResponse](t, body); last.HasNext || len(last.Items) != 0 || last.TotalPages != 1 {
		t.Errorf("maximum page index = %+v", last)
	}

	if resp, _ := s.do(t, "GET", "/api/v1/transactions?sort=category", s.token, ""); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("unknown sort key status = %d", resp.StatusCode)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := newTestServer(t)
	_, body := s.do(t, "POST", "/api/v1/transactions", s.token,
		`{"amount": 10, "category": "health", "description": "Pharmacy", "date": "`+today()+`"}`)
	created := decode[dto.MutationResponse](t, body)

	bob, err := s.jwt.GenerateToken("bob", "bob", "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if resp, _ := s.do(t, "GET", "/api/v1/transactions/"+created.ID, bob, ""); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("bob read alice's transaction: %d", resp.StatusCode)
	}
	_, body = s.do(t, "GET", "/api/v1/dashboard", bob, "")
	if dash := decode[dto.DashboardResponse](t, body); dash.TransactionCount != 0 || dash.TotalExpenses != "0.00" {
		t.Errorf("bob's dashboard = %+v", dash)
	}
}
