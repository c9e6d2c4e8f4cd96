package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
)

type ProfessionalHandler struct {
	professionalRepo *repository.ProfessionalRepository
}

func NewProfessionalHandler(professionalRepo *repository.ProfessionalRepository) *ProfessionalHandler {
	return &ProfessionalHandler{professionalRepo: professionalRepo}
}

type updateProfessionalRequest struct {
	FullName  *string `json:"full_name"`
	Specialty *string `json:"specialty" validate:"omitempty,oneof=teacher nutritionist psychologist"`
	Title     *string `json:"title"`
	Bio       *string `json:"bio"`
}

// List returns the professional directory, optionally filtered by specialty.
func (h *ProfessionalHandler) List(c *fiber.Ctx) error {
	specialty := strings.TrimSpace(c.Query("specialty"))
	if specialty != "" && !models.ValidSpecialty(specialty) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid specialty"})
	}

	page, limit := parsePagination(c)

	profiles, total, err := h.professionalRepo.List(c.Context(), repository.ProfessionalListFilter{
		Specialty: specialty,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list professionals"})
	}

	return c.JSON(fiber.Map{
		"professionals": profiles,
		"pagination":    buildPaginationMeta(page, limit, total),
	})
}

func (h *ProfessionalHandler) Get(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid professional id"})
	}

	profile, err := h.professionalRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Professional not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch professional"})
	}

	return c.JSON(fiber.Map{"professional": profile})
}

// UpdateProfile lets a professional edit their own profile. Admins may
// edit any profile via the user_id query param.
func (h *ProfessionalHandler) UpdateProfile(c *fiber.Ctx) error {
	role := actorRole(c)
	actorID, err := parseActorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	targetID := actorID
	if role == models.RoleAdmin {
		if id := c.QueryInt("user_id", 0); id > 0 {
			targetID = int64(id)
		}
	} else if role != models.RoleProfessional {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req updateProfessionalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	profile, err := h.professionalRepo.Update(c.Context(), targetID, repository.UpdateProfessionalInput{
		FullName:  req.FullName,
		Specialty: req.Specialty,
		Title:     req.Title,
		Bio:       req.Bio,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Professional not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"professional": profile})
}
