package models

import (
	"time"

	"github.com/gocql/gocql"
)

type User struct {
	ID             int64       `json:"id"`
	Email          string      `json:"email"`
	Password       string      `json:"-"`
	Name           string      `json:"name"`
	Role           string      `json:"role"`
	CompanyID      *gocql.UUID `json:"company_id,omitempty"`
	IsCompanyAdmin bool        `json:"is_company_admin"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
