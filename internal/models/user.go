package models

import "time"

// Departments.
const (
	DeptSales      = "Ventas"
	DeptOperations = "Operaciones"
	DeptSAC        = "SAC"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a local actor. Department and role drive the workflow capability
// checks; they are not CRM identities.
type User struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	Username         string `gorm:"size:64;uniqueIndex;not null"`
	Department       string `gorm:"size:32;index"`
	Role             string `gorm:"size:16;default:user"`
	IsDepartmentHead bool   `gorm:"default:false"`
	Active           bool   `gorm:"default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
