package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"         json:"user_id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null"     json:"username"`
	PasswordHash string    `gorm:"size:255;not null"                json:"-"`
	Address      string    `gorm:"type:text"                        json:"address"`
	Role         string    `gorm:"size:16;not null;default:user"    json:"role"`
	CreatedAt    time.Time `gorm:"index"                            json:"created_at"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"       json:"product_id"`
	Name        string    `gorm:"size:100;not null"              json:"name"`
	Description string    `gorm:"type:text"                      json:"description"`
	Price       float64   `gorm:"type:decimal(10,2);not null"    json:"price"`
	Stock       int       `gorm:"not null;default:0"             json:"stock"`
	Image       *string   `gorm:"size:255"                       json:"image"`
	Category    string    `gorm:"size:50"                        json:"category"`
	CreatedAt   time.Time `gorm:"index"                          json:"created_at"`
}
