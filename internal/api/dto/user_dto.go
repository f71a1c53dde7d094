package dto

import (
	"time"

	"github.com/spec-kit/intern-service/internal/domain"
)

// RegisterRequest payload for new interns. Multipart forms carry the same fields plus a resume file.
type RegisterRequest struct {
	FirstName   string      `json:"firstName" validate:"required"`
	LastName    string      `json:"lastName" validate:"required"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required"`
	PhoneNumber string      `json:"phoneNumber"`
	Gender      string      `json:"gender" validate:"omitempty,oneof=Male Female"`
	DOB         string      `json:"dob"`
	University  string      `json:"university"`
	Degree      string      `json:"degree"`
	YearOfStudy FlexibleInt `json:"yearOfStudy" validate:"gte=0"`
	Skills      SkillList   `json:"skills"`
	LinkedIn    string      `json:"linkedIn" validate:"omitempty,url"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DomainRequest carries an email and a domain; used by select-domain and assign-tasks.
type DomainRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Domain string `json:"domain" validate:"required"`
}

// UserResponse is the public view of a user. The password hash is never exposed.
type UserResponse struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	DOB         *time.Time `json:"dob,omitempty"`
	University  string     `json:"university,omitempty"`
	Degree      string     `json:"degree,omitempty"`
	YearOfStudy int        `json:"yearOfStudy,omitempty"`
	Skills      []string   `json:"skills"`
	Resume      *string    `json:"resume"`
	LinkedIn    string     `json:"linkedIn,omitempty"`
	Domain      *string    `json:"domain"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Gender:      u.Gender,
		DOB:         u.DateOfBirth,
		University:  u.University,
		Degree:      u.Degree,
		YearOfStudy: u.YearOfStudy,
		Skills:      u.Skills,
		Resume:      u.Resume,
		LinkedIn:    u.LinkedIn,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
	if resp.Skills == nil {
		resp.Skills = []string{}
	}
	if u.Domain != nil {
		d := string(*u.Domain)
		resp.Domain = &d
	}
	return resp
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}
