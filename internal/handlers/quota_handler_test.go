package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/services"
)

type stubQuotaService struct {
	initResult    *models.PlanQuota
	initErr       error
	detailResult  *models.QuotaDetail
	detailErr     error
	deactivated   int
	lastStudentID int64
	lastKind      models.PlanKind
	lastBulkIDs   []int64
}

func (s *stubQuotaService) Initialize(_ context.Context, studentID int64, kind models.PlanKind) (*models.PlanQuota, error) {
	s.lastStudentID = studentID
	s.lastKind = kind
	return s.initResult, s.initErr
}

func (s *stubQuotaService) GetDetail(_ context.Context, studentID int64) (*models.QuotaDetail, error) {
	s.lastStudentID = studentID
	return s.detailResult, s.detailErr
}

func (s *stubQuotaService) BulkDeactivateStudents(_ context.Context, studentIDs []int64) int {
	s.lastBulkIDs = studentIDs
	return s.deactivated
}

func newQuotaTestApp(handler *QuotaHandler, userID, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	})
	app.Get("/api/v1/quota", handler.GetMyQuota)
	app.Get("/api/v1/admin/students/:id/quota", handler.GetStudentQuota)
	app.Post("/api/v1/admin/plans", handler.AssignPlan)
	app.Post("/api/v1/admin/students/deactivate", handler.BulkDeactivate)
	return app
}

func TestGetMyQuotaReturnsDetail(t *testing.T) {
	service := &stubQuotaService{
		detailResult: &models.QuotaDetail{
			PlanQuota: models.PlanQuota{
				ID:             3,
				StudentID:      42,
				PlanKind:       models.PlanPro,
				TotalClasses:   12,
				UsedClasses:    5,
				ClassesPerWeek: 3,
				Active:         true,
				ExpiryDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			},
			RemainingClasses: 7,
		},
	}
	handler := &QuotaHandler{quotas: service}
	app := newQuotaTestApp(handler, "42", models.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastStudentID != 42 {
		t.Fatalf("expected student 42, got %d", service.lastStudentID)
	}

	var payload struct {
		Quota struct {
			Remaining int `json:"remaining_classes"`
		} `json:"quota"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Quota.Remaining != 7 {
		t.Fatalf("expected 7 remaining, got %d", payload.Quota.Remaining)
	}
}

func TestGetMyQuotaProfessionalForbidden(t *testing.T) {
	handler := &QuotaHandler{quotas: &stubQuotaService{}}
	app := newQuotaTestApp(handler, "7", models.RoleProfessional)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetMyQuotaNoPlanReturns404(t *testing.T) {
	handler := &QuotaHandler{quotas: &stubQuotaService{detailErr: services.ErrNoPlan}}
	app := newQuotaTestApp(handler, "42", models.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAssignPlanReturnsCreated(t *testing.T) {
	service := &stubQuotaService{
		initResult: &models.PlanQuota{ID: 9, StudentID: 42, PlanKind: models.PlanBasic, TotalClasses: 8, ClassesPerWeek: 2, Active: true},
	}
	handler := &QuotaHandler{quotas: service}
	app := newQuotaTestApp(handler, "1", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/plans", strings.NewReader(`{
		"student_id": 42,
		"plan_kind": "basic"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastStudentID != 42 || service.lastKind != models.PlanBasic {
		t.Fatalf("unexpected assign input: %d %q", service.lastStudentID, service.lastKind)
	}
}

func TestAssignPlanRejectsUnknownKind(t *testing.T) {
	handler := &QuotaHandler{quotas: &stubQuotaService{}}
	app := newQuotaTestApp(handler, "1", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/plans", strings.NewReader(`{
		"student_id": 42,
		"plan_kind": "platinum"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBulkDeactivateReportsPartialSuccess(t *testing.T) {
	service := &stubQuotaService{deactivated: 2}
	handler := &QuotaHandler{quotas: service}
	app := newQuotaTestApp(handler, "1", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/students/deactivate", strings.NewReader(`{
		"student_ids": [42, 43, 44]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		Requested   int `json:"requested"`
		Deactivated int `json:"deactivated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Requested != 3 || payload.Deactivated != 2 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if len(service.lastBulkIDs) != 3 {
		t.Fatalf("expected 3 ids forwarded, got %d", len(service.lastBulkIDs))
	}
}

func TestBulkDeactivateRejectsEmptyList(t *testing.T) {
	handler := &QuotaHandler{quotas: &stubQuotaService{}}
	app := newQuotaTestApp(handler, "1", models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/students/deactivate", strings.NewReader(`{"student_ids": []}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
