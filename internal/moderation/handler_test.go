package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"anilog/internal/auth"
	"anilog/internal/catalog"
	"anilog/pkg/models"
)

type apiFixture struct {
	router  *gin.Engine
	queue   *Queue
	catalog *catalog.Repo
	tokens  auth.TokenService
	admin   string // bearer token for the seeded admin
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := openTestDB(t)
	zl := zap.NewNop()

	tokens := auth.TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "anilog-test",
		Duration: time.Hour,
	}
	authRepo := auth.NewRepo(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	adminAcc := auth.Admin{ID: uuid.NewString(), Username: "admin", PasswordHash: string(hash)}
	if err := authRepo.UpsertAdmin(context.Background(), adminAcc); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	adminToken, _, err := tokens.Sign(&adminAcc)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	catalogRepo := catalog.NewRepo(db)
	queue := NewQueue(db)
	engine := NewEngine(db, zl)

	router := gin.New()
	api := router.Group("/api")

	requireAdmin := []gin.HandlerFunc{
		auth.Middleware(tokens, authRepo),
		auth.RequireAdmin(),
	}

	catalogHandler := catalog.NewHandler(catalogRepo, zl)
	catalogHandler.RegisterRoutes(
		api.Group("/animations"),
		api.Group("/animations", requireAdmin...),
	)

	handler := NewHandler(queue, engine, catalogRepo, nil, zl)
	handler.RegisterRoutes(
		api.Group("/requests", auth.OptionalMiddleware(tokens, authRepo)),
		api.Group("/requests", requireAdmin...),
	)

	return &apiFixture{
		router:  router,
		queue:   queue,
		catalog: catalogRepo,
		tokens:  tokens,
		admin:   adminToken,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAnonymousAddIsQueuedNotApplied(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/requests", "", map[string]any{
		"request_type": "ADD",
		"request_data": map[string]any{
			"title": "X", "year": 2024, "season": "1분기", "contributor": "Bob",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	pending, err := f.queue.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}
	if pending[0].RequestType != models.RequestAdd || pending[0].Contributor != "Bob" {
		t.Fatalf("unexpected request: %+v", pending[0])
	}

	items, err := f.catalog.List(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	if len(items) != 0 {
		t.Fatal("nothing may reach the catalog before approval")
	}
}

func TestAdminAddBypassesQueue(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/requests", f.admin, map[string]any{
		"request_type": "ADD",
		"request_data": map[string]any{
			"title": "X", "year": 2024, "season": "1분기", "contributor": "ignored",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	pending, err := f.queue.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("admin add must not be queued, got %d", len(pending))
	}

	items, err := f.catalog.List(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list catalog: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 record, got %d", len(items))
	}
	// contributor comes from the admin's identity, not the form value
	if items[0].Contributor != "admin" {
		t.Fatalf("expected contributor %q, got %q", "admin", items[0].Contributor)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	f := newAPIFixture(t)

	cases := []map[string]any{
		{"request_type": "ADD", "request_data": map[string]any{"year": 2024}},
		{"request_type": "EDIT", "request_data": map[string]any{"title": "x", "year": 2024, "season": "1분기", "contributor": "b"}}, // no item_id
		{"request_type": "DELETE"}, // no item_id
		{"request_type": "OTT_UPDATE", "item_id": 1, "request_data": map[string]any{}}, // no ott_urls
		{"request_type": "RENAME"},  // unknown type
		{"request_data": map[string]any{"title": "x"}}, // no type
	}

	for i, body := range cases {
		w := f.do(t, http.MethodPost, "/api/requests", "", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	pending, err := f.queue.ListPending(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("invalid submissions must not be queued, got %d", len(pending))
	}
}

func TestListPendingRequiresAdmin(t *testing.T) {
	f := newAPIFixture(t)

	// no token
	w := f.do(t, http.MethodGet, "/api/requests", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// valid signature but non-admin role
	claims := auth.Claims{
		AdminID:  "someone",
		Username: "someone",
		Role:     "contributor",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(f.tokens.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w = f.do(t, http.MethodGet, "/api/requests", signed, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	// the admin sees the queue
	w = f.do(t, http.MethodGet, "/api/requests", f.admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}

func TestSubmitApproveFlow(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/requests", "", map[string]any{
		"request_type": "ADD",
		"request_data": map[string]any{
			"title": "X", "year": 2024, "season": "1분기", "contributor": "Bob",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", w.Code)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/process", created.ID), f.admin,
		map[string]string{"action": "approve"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	items, err := f.catalog.List(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "X" || items[0].Year != 2024 || items[0].Season != "1분기" {
		t.Fatalf("unexpected catalog state: %+v", items)
	}

	// processing the same id again is a 404, never a double apply
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/process", created.ID), f.admin,
		map[string]string{"action": "approve"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on re-approve, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/process", created.ID), f.admin,
		map[string]string{"action": "reject"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on reject-after-approve, got %d", w.Code)
	}
}

func TestProcessInvalidAction(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/requests/1/process", f.admin,
		map[string]string{"action": "defer"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestOttUpdateFlow(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	animID, err := f.catalog.Create(ctx, models.AnimationFields{
		Title: "linked", Year: 2024, Season: "2분기", Contributor: "Alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := f.do(t, http.MethodPost, "/api/requests", "", map[string]any{
		"request_type": "OTT_UPDATE",
		"animation_id": animID,
		"request_data": map[string]any{
			"ott_urls": []map[string]any{{"provider_id": 1, "url": "https://a"}},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/process", created.ID), f.admin,
		map[string]string{"action": "approve"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/animations/%d?type=ott-links", animID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get links: expected 200, got %d", w.Code)
	}
	var links []models.OttLink
	if err := json.Unmarshal(w.Body.Bytes(), &links); err != nil {
		t.Fatalf("decode links: %v", err)
	}
	if len(links) != 1 || links[0].ProviderID != 1 || links[0].URL != "https://a" {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestAdminDeleteViaGateway(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	animID, err := f.catalog.Create(ctx, models.AnimationFields{
		Title: "doomed", Year: 2024, Season: "1분기", Contributor: "Alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := f.do(t, http.MethodPost, "/api/requests", f.admin, map[string]any{
		"request_type": "DELETE",
		"item_id":      animID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	a, err := f.catalog.GetByID(ctx, animID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a != nil {
		t.Fatal("admin delete must apply immediately")
	}

	pending, err := f.queue.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("admin delete must not be queued, got %d", len(pending))
	}
}

func TestGetItemDetail(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	animID, err := f.catalog.Create(ctx, models.AnimationFields{
		Title: "detail", Year: 2024, Season: "3분기", Contributor: "Alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/animations/%d", animID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/animations/9999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing id, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/animations/%d?type=bogus", animID), "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad type, got %d", w.Code)
	}
}
