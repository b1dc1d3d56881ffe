package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lotshoppr_backend/internal/events"
	"lotshoppr_backend/internal/leads/management"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/leads/transport"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/platform/httpkit"
	"lotshoppr_backend/platform/logger"
	"lotshoppr_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return testSecret }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := negotiation.NewEngine(negotiation.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	log := logger.Discard()
	bus := events.NewInMemoryBus(log)
	svc := management.New(repository.NewMemoryStore(), engine, bus, log, management.Options{DuplicateWindow: 10 * time.Minute})
	h := New(svc, validator.New())

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1.Group("/leads"))
	admin := v1.Group("/admin")
	admin.Use(httpkit.AdminRequired(jwtConfig{}))
	h.RegisterAdminRoutes(admin.Group("/leads"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func validCreateRequest() transport.CreateLeadRequest {
	return transport.CreateLeadRequest{
		FirstName: "Ana",
		LastName:  "Diaz",
		Email:     "ana@example.com",
		Zip:       "94107",
		Make:      "Toyota",
		Model:     "RAV4",
		DealType:  "Pay Cash",
		CashMax:   "$25,000",
	}
}

func TestCreateAndNegotiateOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/leads", validCreateRequest(), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var lead transport.LeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	if lead.Status != "new" || lead.MatchType != nil {
		t.Fatalf("unexpected new lead %+v", lead)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/dealer-reply", transport.DealerReplyRequest{
		Text: "We can do it for $24,500 out the door.",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dealer reply: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var directive transport.DirectiveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &directive); err != nil {
		t.Fatalf("decode directive: %v", err)
	}
	if directive.Action != "ACCEPT_AND_NOTIFY" || directive.MatchType == nil || *directive.MatchType != "exact" {
		t.Fatalf("unexpected directive %+v", directive)
	}
	if directive.LeadStatus != "won" || directive.Body == nil {
		t.Fatalf("expected won lead with a body, got %+v", directive)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/leads/"+lead.ID.String(), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	if len(lead.Conversation) != 2 {
		t.Fatalf("expected 2 conversation entries, got %d", len(lead.Conversation))
	}
}

func TestCreateValidation(t *testing.T) {
	r := newTestRouter(t)
	req := validCreateRequest()
	req.DealType = "Barter"
	req.Email = "not-an-email"

	rec := doJSON(t, r, http.MethodPost, "/api/v1/leads", req, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp httpkit.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	details, _ := resp.Details.(map[string]any)
	if details["dealType"] != "dealtype" || details["email"] != "email" {
		t.Fatalf("expected field errors, got %#v", resp.Details)
	}
}

func TestUnknownAndInvalidLeadIDs(t *testing.T) {
	r := newTestRouter(t)

	if rec := doJSON(t, r, http.MethodGet, "/api/v1/leads/"+uuid.NewString(), nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown lead, got %d", rec.Code)
	}
	bad := doJSON(t, r, http.MethodGet, "/api/v1/leads/not-a-uuid", nil, "")
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", bad.Code)
	}
	var badResp httpkit.ErrorResponse
	_ = json.Unmarshal(bad.Body.Bytes(), &badResp)
	details, _ := badResp.Details.(map[string]any)
	if badResp.Error != "invalid lead id" || details["id"] != "not-a-uuid" {
		t.Fatalf("unexpected malformed id response %#v", badResp)
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/leads/"+uuid.NewString()+"/dealer-reply", transport.DealerReplyRequest{Text: "hi"}, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for reply to unknown lead, got %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/leads", validCreateRequest(), "")
	var lead transport.LeadResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &lead)

	if rec := doJSON(t, r, http.MethodGet, "/api/v1/admin/leads", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := httpkit.IssueAdminToken(testSecret, "ops@lotshoppr.com", time.Minute)
	if err != nil {
		t.Fatalf("IssueAdminToken: %v", err)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/admin/leads?status=new", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var list transport.LeadListResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Items) != 1 {
		t.Fatalf("expected one lead, got %d", len(list.Items))
	}

	if rec := doJSON(t, r, http.MethodGet, "/api/v1/admin/leads?status=closed", nil, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status filter, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/admin/leads/"+lead.ID.String()+"/abandon", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("abandon: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &lead)
	if lead.Status != "lost" {
		t.Fatalf("expected lost, got %s", lead.Status)
	}
}
