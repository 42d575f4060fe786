package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User mendefinisikan struktur untuk pengguna toko, termasuk admin.
type User struct {
	ID                 primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name               string             `json:"name" bson:"name"`
	Email              string             `json:"email" bson:"email"`
	Password           string             `json:"-" bson:"password"`
	Role               string             `json:"role" bson:"role"`
	EmailVerified      bool               `json:"emailVerified" bson:"emailVerified"`
	VerifyTokenHash    string             `json:"-" bson:"verifyTokenHash,omitempty"`
	VerifyTokenExpires *time.Time         `json:"-" bson:"verifyTokenExpires,omitempty"`
	ResetTokenHash     string             `json:"-" bson:"resetTokenHash,omitempty"`
	ResetTokenExpires  *time.Time         `json:"-" bson:"resetTokenExpires,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// LoginRequest mendefinisikan struktur untuk permintaan login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest mendefinisikan struktur untuk permintaan registrasi.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// RoleRequest dipakai admin untuk mengubah peran pengguna.
type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=customer admin"`
}
