package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intern-service/internal/api/dto"
	"github.com/spec-kit/intern-service/internal/auth"
	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/service"
	"github.com/spec-kit/intern-service/internal/storage"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

// UsersHandler exposes registration, session and profile endpoints.
type UsersHandler struct {
	identity *service.IdentityService
	files    storage.BlobStore
}

// NewUsersHandler constructs handler. files may be nil, in which case resume uploads are ignored.
func NewUsersHandler(identityService *service.IdentityService, files storage.BlobStore) *UsersHandler {
	return &UsersHandler{identity: identityService, files: files}
}

// Register handles POST /api/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	req, resumeFile, err := readRegistration(c)
	if err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	dob, err := dto.ParseDate(req.DOB)
	if err != nil {
		return apperrors.NewValidationError("invalid date of birth", map[string]any{"dob": req.DOB})
	}

	ctx := c.UserContext()
	var resume *string
	if resumeFile != nil && h.files != nil {
		ref, err := h.files.Save(ctx, resumeFile)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedType):
				return apperrors.NewValidationError(err.Error(), map[string]any{"resume": resumeFile.Filename})
			default:
				return apperrors.NewInternalError(err)
			}
		}
		resume = &ref
	}

	user, err := h.identity.Register(ctx, service.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Gender:      req.Gender,
		DateOfBirth: dob,
		University:  req.University,
		Degree:      req.Degree,
		YearOfStudy: int(req.YearOfStudy),
		Skills:      req.Skills,
		Resume:      resume,
		LinkedIn:    req.LinkedIn,
	})
	if err != nil {
		if resume != nil {
			_ = h.files.Delete(ctx, *resume)
		}
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Registration successful",
		"user":    dto.NewUserResponse(user),
	})
}

func readRegistration(c *fiber.Ctx) (*dto.RegisterRequest, *multipart.FileHeader, error) {
	contentType := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	if !strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		var req dto.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, nil, apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
		}
		return &req, nil, nil
	}

	year, err := dto.ParseFlexibleInt(c.FormValue("yearOfStudy"))
	if err != nil {
		return nil, nil, apperrors.NewValidationError("invalid year of study", map[string]any{"yearOfStudy": c.FormValue("yearOfStudy")})
	}
	req := &dto.RegisterRequest{
		FirstName:   c.FormValue("firstName"),
		LastName:    c.FormValue("lastName"),
		Email:       c.FormValue("email"),
		Password:    c.FormValue("password"),
		PhoneNumber: c.FormValue("phoneNumber"),
		Gender:      c.FormValue("gender"),
		DOB:         c.FormValue("dob"),
		University:  c.FormValue("university"),
		Degree:      c.FormValue("degree"),
		YearOfStudy: year,
		Skills:      dto.ParseSkills(c.FormValue("skills")),
		LinkedIn:    c.FormValue("linkedIn"),
	}
	file, err := c.FormFile("resume")
	if err != nil {
		file = nil
	}
	return req, file, nil
}

// Login handles POST /api/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, token, exp, err := h.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.WithStatus(err, http.StatusBadRequest)
		}
		return err
	}
	return c.JSON(dto.LoginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: exp,
		User:      dto.NewUserResponse(user),
	})
}

// Logout handles POST /api/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.identity.Logout(c.UserContext(), principal.Session); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// GetUser handles GET /api/get-user?email=.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}
	user, err := h.identity.FindByEmail(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// SelectDomain handles PATCH /api/select-domain.
func (h *UsersHandler) SelectDomain(c *fiber.Ctx) error {
	var req dto.DomainRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := requireSelf(c, req.Email, ""); err != nil {
		return err
	}
	user, err := h.identity.SelectDomain(c.UserContext(), req.Email, domain.Domain(strings.TrimSpace(req.Domain)))
	if err != nil {
		return err
	}
	token, exp, err := h.identity.IssueToken(user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":   "Domain updated successfully",
		"userEmail": user.Email,
		"token":     token,
		"expiresAt": exp,
	})
}

// requireSelf rejects principals acting on another user's records unless they may view any.
func requireSelf(c *fiber.Ctx, email, userID string) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.Can(auth.CapViewAnyAssignments) || principal.Owns(email, userID) {
		return nil
	}
	return apperrors.NewForbidden("cannot act on another user's records")
}
