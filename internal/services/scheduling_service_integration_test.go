package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
	"go.uber.org/zap"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestSchedulingBookAndCompleteFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, studentID, professionalID) })

	assignTestPlan(t, ctx, pool, studentID, models.PlanBasic)

	startsAt := WeekStart(time.Now().UTC()).Add(10 * time.Hour)
	appointment, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: professionalID,
		Kind:           models.KindPersonalTraining,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Hour),
		CreatedBy:      studentID,
	})
	if err != nil {
		t.Fatalf("BookAppointment: %v", err)
	}
	if appointment.Status != models.StatusScheduled {
		t.Fatalf("expected scheduled appointment, got %q", appointment.Status)
	}
	if !appointment.DeductsFromQuota {
		t.Fatalf("expected personal training to deduct from quota")
	}
	if appointment.DurationMinutes != 60 {
		t.Fatalf("expected 60 minute duration, got %d", appointment.DurationMinutes)
	}

	quotaRepo := repository.NewQuotaRepository(pool)
	entry, err := quotaRepo.GetLedgerByAppointmentID(ctx, appointment.ID)
	if err != nil {
		t.Fatalf("expected ledger entry for booking: %v", err)
	}
	if entry.Status != models.StatusScheduled {
		t.Fatalf("expected scheduled ledger entry, got %q", entry.Status)
	}

	if _, err := service.CompleteAppointment(ctx, appointment.ID); err != nil {
		t.Fatalf("CompleteAppointment: %v", err)
	}

	quota, err := quotaRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetActiveByStudentID: %v", err)
	}
	if quota.UsedClasses != 1 {
		t.Fatalf("expected 1 used class after completion, got %d", quota.UsedClasses)
	}
	if quota.RemainingClasses() != quota.TotalClasses-1 {
		t.Fatalf("expected remaining %d, got %d", quota.TotalClasses-1, quota.RemainingClasses())
	}

	// Completing again is a no-op.
	if _, err := service.CompleteAppointment(ctx, appointment.ID); err != nil {
		t.Fatalf("second CompleteAppointment: %v", err)
	}
	quota, err = quotaRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetActiveByStudentID: %v", err)
	}
	if quota.UsedClasses != 1 {
		t.Fatalf("expected used classes unchanged on repeat completion, got %d", quota.UsedClasses)
	}
}

func TestSchedulingEnforcesWeeklyCap(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, studentID, professionalID) })

	// basic: 8 classes over 4 weeks, cap 2 per week.
	assignTestPlan(t, ctx, pool, studentID, models.PlanBasic)

	weekStart := WeekStart(time.Now().UTC())
	for i := 0; i < 2; i++ {
		startsAt := weekStart.Add(time.Duration(9+2*i) * time.Hour)
		if _, err := service.BookAppointment(ctx, BookAppointmentInput{
			StudentID:      studentID,
			ProfessionalID: professionalID,
			Kind:           models.KindGroupClass,
			StartsAt:       startsAt,
			EndsAt:         startsAt.Add(time.Hour),
			CreatedBy:      studentID,
		}); err != nil {
			t.Fatalf("booking %d: %v", i+1, err)
		}
	}

	startsAt := weekStart.Add(15 * time.Hour)
	_, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: professionalID,
		Kind:           models.KindGroupClass,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Hour),
		CreatedBy:      studentID,
	})
	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) || quotaErr.Reason != QuotaReasonWeeklyCap {
		t.Fatalf("expected weekly-cap rejection, got %v", err)
	}
}

func TestSchedulingCancelFreesTheWeeklySlot(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, studentID, professionalID) })

	assignTestPlan(t, ctx, pool, studentID, models.PlanTrial)

	weekStart := WeekStart(time.Now().UTC())
	startsAt := weekStart.Add(9 * time.Hour)
	booked, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: professionalID,
		Kind:           models.KindGroupClass,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Hour),
		CreatedBy:      studentID,
	})
	if err != nil {
		t.Fatalf("BookAppointment: %v", err)
	}

	if _, err := service.CancelAppointment(ctx, booked.ID, "schedule change"); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}

	retryAt := weekStart.Add(12 * time.Hour)
	if _, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: professionalID,
		Kind:           models.KindGroupClass,
		StartsAt:       retryAt,
		EndsAt:         retryAt.Add(time.Hour),
		CreatedBy:      studentID,
	}); err != nil {
		t.Fatalf("expected rebooking after cancellation, got %v", err)
	}
}

func TestSchedulingRejectsBlackedOutSlot(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, studentID, professionalID) })

	assignTestPlan(t, ctx, pool, studentID, models.PlanBasic)

	blackoutService := NewBlackoutService(repository.NewBlackoutRepository(pool), zap.NewNop())
	date := time.Date(2031, 3, 10, 0, 0, 0, 0, time.UTC)
	window, err := blackoutService.Create(ctx, CreateBlackoutInput{
		Scope:     models.ScopeGlobal,
		Date:      date,
		Reason:    "facility closed",
		CreatedBy: studentID,
	})
	if err != nil {
		t.Fatalf("create blackout: %v", err)
	}
	t.Cleanup(func() {
		if _, err := pool.Exec(ctx, "DELETE FROM blackout_windows WHERE id = $1", window.ID); err != nil {
			t.Fatalf("cleanup blackout: %v", err)
		}
	})

	_, err = service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: professionalID,
		Kind:           models.KindGroupClass,
		StartsAt:       date.Add(10 * time.Hour),
		EndsAt:         date.Add(11 * time.Hour),
		CreatedBy:      studentID,
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	appointmentRepo := repository.NewAppointmentRepository(pool)
	appointments, err := appointmentRepo.List(ctx, repository.AppointmentListFilter{
		ActorID: studentID,
		Role:    models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(appointments) != 0 {
		t.Fatalf("expected no appointment after blocked booking, got %d", len(appointments))
	}
}

func TestSchedulingRejectsOverlappingProfessionalBookings(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	firstStudentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	secondStudentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, firstStudentID, secondStudentID, professionalID) })

	assignTestPlan(t, ctx, pool, firstStudentID, models.PlanBasic)
	assignTestPlan(t, ctx, pool, secondStudentID, models.PlanBasic)

	startsAt := WeekStart(time.Now().UTC()).Add(16 * time.Hour)
	if _, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      firstStudentID,
		ProfessionalID: professionalID,
		Kind:           models.KindPersonalTraining,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Hour),
		CreatedBy:      firstStudentID,
	}); err != nil {
		t.Fatalf("first BookAppointment: %v", err)
	}

	_, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      secondStudentID,
		ProfessionalID: professionalID,
		Kind:           models.KindPersonalTraining,
		StartsAt:       startsAt.Add(30 * time.Minute),
		EndsAt:         startsAt.Add(90 * time.Minute),
		CreatedBy:      secondStudentID,
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable for overlap, got %v", err)
	}
}

func TestSchedulingSerializesConcurrentBookingsPerProfessional(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	firstStudentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	secondStudentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, firstStudentID, secondStudentID, professionalID) })

	assignTestPlan(t, ctx, pool, firstStudentID, models.PlanBasic)
	assignTestPlan(t, ctx, pool, secondStudentID, models.PlanBasic)

	startsAt := WeekStart(time.Now().UTC()).Add(20 * time.Hour)
	errs := make(chan error, 2)
	for _, studentID := range []int64{firstStudentID, secondStudentID} {
		go func(studentID int64) {
			_, err := service.BookAppointment(ctx, BookAppointmentInput{
				StudentID:      studentID,
				ProfessionalID: professionalID,
				Kind:           models.KindPersonalTraining,
				StartsAt:       startsAt,
				EndsAt:         startsAt.Add(time.Hour),
				CreatedBy:      studentID,
			})
			errs <- err
		}(studentID)
	}

	var booked, rejected int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			booked++
		case errors.Is(err, ErrSlotUnavailable):
			rejected++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if booked != 1 || rejected != 1 {
		t.Fatalf("expected exactly one booking to win the slot, got %d booked and %d rejected", booked, rejected)
	}

	appointments, err := repository.NewAppointmentRepository(pool).List(ctx, repository.AppointmentListFilter{
		ActorID: professionalID,
		Role:    models.RoleProfessional,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(appointments) != 1 {
		t.Fatalf("expected a single appointment on the professional's calendar, got %d", len(appointments))
	}
}

func TestSchedulingAdminCorrectionReversesCompletion(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationSchedulingService(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent, "")
	professionalID := createTestAccount(t, ctx, pool, models.RoleProfessional, models.SpecialtyTeacher)
	t.Cleanup(func() { cleanupTestData(t, ctx, pool, studentID, professionalID) })

	assignTestPlan(t, ctx, pool, studentID, models.PlanBasic)

	startsAt := WeekStart(time.Now().UTC()).Add(18 * time.Hour)
	booked, err := service.BookAppointment(ctx, BookAppointmentInput{
		StudentID:      studentID,
		ProfessionalID: professionalID,
		Kind:           models.KindGroupClass,
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(time.Hour),
		CreatedBy:      studentID,
	})
	if err != nil {
		t.Fatalf("BookAppointment: %v", err)
	}
	if _, err := service.CompleteAppointment(ctx, booked.ID); err != nil {
		t.Fatalf("CompleteAppointment: %v", err)
	}

	// A non-admin transition away from a terminal state is rejected.
	if _, err := service.CancelAppointment(ctx, booked.ID, "oops"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	if _, err := service.CorrectStatus(ctx, booked.ID, models.StatusScheduled); err != nil {
		t.Fatalf("CorrectStatus: %v", err)
	}

	quotaRepo := repository.NewQuotaRepository(pool)
	quota, err := quotaRepo.GetActiveByStudentID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetActiveByStudentID: %v", err)
	}
	if quota.UsedClasses != 0 {
		t.Fatalf("expected used classes back to 0 after correction, got %d", quota.UsedClasses)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationSchedulingService(pool *pgxpool.Pool) *SchedulingService {
	return NewSchedulingService(
		pool,
		repository.NewAppointmentRepository(pool),
		repository.NewQuotaRepository(pool),
		repository.NewProfessionalRepository(pool),
		NewBlackoutService(repository.NewBlackoutRepository(pool), zap.NewNop()),
		zap.NewNop(),
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string, specialty string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("scheduling-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	if role != models.RoleProfessional {
		return user.ID
	}

	professionalRepo := repository.NewProfessionalRepository(pool)
	if err := professionalRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty professional profile: %v", err)
	}
	fullName := "Test Professional"
	if _, err := professionalRepo.Update(ctx, user.ID, repository.UpdateProfessionalInput{
		FullName:  &fullName,
		Specialty: &specialty,
	}); err != nil {
		t.Fatalf("Update professional profile: %v", err)
	}

	return user.ID
}

func assignTestPlan(t *testing.T, ctx context.Context, pool *pgxpool.Pool, studentID int64, kind models.PlanKind) {
	t.Helper()

	quota, err := NewPlanQuota(studentID, kind, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewPlanQuota: %v", err)
	}
	if err := repository.NewQuotaRepository(pool).Create(ctx, quota); err != nil {
		t.Fatalf("Create quota: %v", err)
	}
}

func cleanupTestData(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM appointment_evaluations WHERE appointment_id IN (SELECT id FROM appointments WHERE student_id = ANY($1) OR professional_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup evaluations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM quota_ledger WHERE quota_id IN (SELECT id FROM plan_quotas WHERE student_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup ledger: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM appointments WHERE student_id = ANY($1) OR professional_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup appointments: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM plan_quotas WHERE student_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup quotas: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM professional_profiles WHERE user_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup professional profiles: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
