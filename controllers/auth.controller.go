package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"modestblooming-backend/middleware"
	"modestblooming-backend/models"
	"modestblooming-backend/services"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register menangani registrasi pelanggan baru. Akun baru belum terverifikasi.
func (ctrl *Controller) Register(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := ctrl.DB.Collection("users")
	email := normalizeEmail(req.Email)
	if n, err := collection.CountDocuments(ctx, bson.M{"email": email}); err == nil && n > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err, "Failed to hash password")
		return
	}
	token, tokenHash, err := services.NewSecret()
	if err != nil {
		fail(c, err, "Failed to create verification token")
		return
	}

	now := time.Now()
	expires := now.Add(verifyTokenTTL)
	user := models.User{
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		Password:           string(hashedPassword),
		Role:               ctrl.roleFor(email),
		VerifyTokenHash:    tokenHash,
		VerifyTokenExpires: &expires,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	result, err := collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		fail(c, err, "Failed to register")
		return
	}
	user.ID = result.InsertedID.(primitive.ObjectID)

	ctrl.sendVerification(user, token)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful, please check your email to verify your account",
		"user":    user,
	})
}

// roleFor memberi peran admin hanya untuk ADMIN_EMAIL.
func (ctrl *Controller) roleFor(email string) string {
	if ctrl.AdminEmail != "" && email == ctrl.AdminEmail {
		return models.RoleAdmin
	}
	return models.RoleCustomer
}

// revokeSessions membuat semua token pengguna yang sudah terbit tidak berlaku lagi.
func (ctrl *Controller) revokeSessions(ctx context.Context, userID primitive.ObjectID) error {
	return ctrl.Cache.RevokeUser(ctx, userID.Hex(), ctrl.Tokens.TTL())
}

// VerifyEmail menandai email pengguna sebagai terverifikasi.
func (ctrl *Controller) VerifyEmail(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	res, err := ctrl.DB.Collection("users").UpdateOne(ctx,
		bson.M{
			"verifyTokenHash":    services.HashSecret(token),
			"verifyTokenExpires": bson.M{"$gt": time.Now()},
		},
		bson.M{
			"$set":   bson.M{"emailVerified": true, "updatedAt": time.Now()},
			"$unset": bson.M{"verifyTokenHash": "", "verifyTokenExpires": ""},
		},
	)
	if err != nil {
		fail(c, err, "Failed to verify email")
		return
	}
	if res.MatchedCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// ResendVerification selalu menjawab 200 agar tidak membocorkan email terdaftar.
func (ctrl *Controller) ResendVerification(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	const reply = "If that account exists and is not yet verified, a new link has been sent"
	token, tokenHash, err := services.NewSecret()
	if err != nil {
		fail(c, err, "Failed to create verification token")
		return
	}
	expires := time.Now().Add(verifyTokenTTL)

	var user models.User
	err = ctrl.DB.Collection("users").FindOneAndUpdate(ctx,
		bson.M{"email": normalizeEmail(req.Email), "emailVerified": false},
		bson.M{"$set": bson.M{
			"verifyTokenHash":    tokenHash,
			"verifyTokenExpires": expires,
			"updatedAt":          time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		fail(c, err, "Failed to resend verification")
		return
	}
	if err == nil {
		ctrl.sendVerification(user, token)
	}
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

// Login menangani proses login pengguna.
func (ctrl *Controller) Login(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := ctrl.DB.Collection("users").FindOne(ctx, bson.M{"email": normalizeEmail(req.Email)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		fail(c, err, "Failed to log in")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in"})
		return
	}

	token, claims, err := ctrl.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		fail(c, err, "Failed to generate token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Login successful",
		"token":     token,
		"expiresAt": claims.ExpiresAt,
		"user":      user,
	})
}

// Logout mencabut token yang sedang dipakai sampai masa berlakunya habis.
func (ctrl *Controller) Logout(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	claims, ok := middleware.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if err := ctrl.Cache.Revoke(ctx, claims.JTI, time.Until(claims.ExpiresAt)); err != nil {
		fail(c, err, "Failed to log out")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me mengembalikan data pengguna yang sedang login.
func (ctrl *Controller) Me(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var user models.User
	err := ctrl.DB.Collection("users").FindOne(ctx, bson.M{"_id": middleware.UserID(c)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		fail(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ForgotPassword selalu menjawab 200 agar tidak membocorkan email terdaftar.
func (ctrl *Controller) ForgotPassword(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, tokenHash, err := services.NewSecret()
	if err != nil {
		fail(c, err, "Failed to create reset token")
		return
	}
	expires := time.Now().Add(resetTokenTTL)

	var user models.User
	err = ctrl.DB.Collection("users").FindOneAndUpdate(ctx,
		bson.M{"email": normalizeEmail(req.Email)},
		bson.M{"$set": bson.M{
			"resetTokenHash":    tokenHash,
			"resetTokenExpires": expires,
			"updatedAt":         time.Now(),
		}},
	).Decode(&user)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		fail(c, err, "Failed to start password reset")
		return
	}
	if err == nil {
		link := ctrl.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
		ctrl.sendAsync(user.Email, "Reset your Modest Blooming password", func() (string, error) {
			return services.ResetPasswordHTML(user.Name, link)
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset link has been sent"})
}

// ResetPassword mengganti password memakai token dari email.
func (ctrl *Controller) ResetPassword(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err, "Failed to hash password")
		return
	}

	var user models.User
	err = ctrl.DB.Collection("users").FindOneAndUpdate(ctx,
		bson.M{
			"resetTokenHash":    services.HashSecret(req.Token),
			"resetTokenExpires": bson.M{"$gt": time.Now()},
		},
		bson.M{
			"$set":   bson.M{"password": string(hashedPassword), "updatedAt": time.Now()},
			"$unset": bson.M{"resetTokenHash": "", "resetTokenExpires": ""},
		},
		options.FindOneAndUpdate().SetProjection(bson.M{"_id": 1}),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset link"})
		return
	}
	if err != nil {
		fail(c, err, "Failed to reset password")
		return
	}
	if err := ctrl.revokeSessions(ctx, user.ID); err != nil {
		fail(c, err, "Failed to end existing sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// ChangePassword mengganti password pengguna yang sedang login.
func (ctrl *Controller) ChangePassword(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := ctrl.DB.Collection("users")
	userID := middleware.UserID(c)
	var user models.User
	if err := collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		fail(c, err, "Failed to change password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err, "Failed to hash password")
		return
	}
	_, err = collection.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"password": string(hashedPassword), "updatedAt": time.Now()}})
	if err != nil {
		fail(c, err, "Failed to change password")
		return
	}

	// Sesi lain ikut berakhir; pemanggil menerima token baru.
	if err := ctrl.revokeSessions(ctx, userID); err != nil {
		fail(c, err, "Failed to end existing sessions")
		return
	}
	token, claims, err := ctrl.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		fail(c, err, "Failed to generate token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Password changed",
		"token":     token,
		"expiresAt": claims.ExpiresAt,
	})
}

// GetUsers menangani pengambilan semua data pengguna untuk admin.
func (ctrl *Controller) GetUsers(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := ctrl.DB.Collection("users").Find(ctx, bson.M{}, opts)
	if err != nil {
		fail(c, err, "Failed to load users")
		return
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err = cursor.All(ctx, &users); err != nil {
		fail(c, err, "Failed to load users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// DeleteUser menghapus pengguna beserta keranjang dan wishlist-nya.
func (ctrl *Controller) DeleteUser(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	if objectID == middleware.UserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account here"})
		return
	}

	result, err := ctrl.DB.Collection("users").DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		fail(c, err, "Failed to delete user")
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err := ctrl.revokeSessions(ctx, objectID); err != nil {
		slog.Error("sessions not revoked", "user", objectID.Hex(), "err", err)
	}

	for _, coll := range []string{"carts", "wishlists"} {
		if _, err := ctrl.DB.Collection(coll).DeleteOne(ctx, bson.M{"userId": objectID}); err != nil {
			slog.Warn("user data not removed", "collection", coll, "user", objectID.Hex(), "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// UpdateUserRole menjadikan pengguna admin atau mengembalikannya menjadi pelanggan.
// Token lama pengguna dicabut agar peran baru langsung berlaku.
func (ctrl *Controller) UpdateUserRole(c *gin.Context) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	var req models.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be customer or admin"})
		return
	}
	if objectID == middleware.UserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot change your own role"})
		return
	}

	var user models.User
	err = ctrl.DB.Collection("users").FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"role": req.Role, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		fail(c, err, "Failed to update role")
		return
	}
	if err := ctrl.revokeSessions(ctx, objectID); err != nil {
		fail(c, err, "Failed to end existing sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "user": user})
}

func (ctrl *Controller) sendVerification(user models.User, token string) {
	link := ctrl.FrontendURL + "/verify-email?token=" + url.QueryEscape(token)
	ctrl.sendAsync(user.Email, "Verify your Modest Blooming account", func() (string, error) {
		return services.VerifyEmailHTML(user.Name, link)
	})
}

// sendAsync mengirim email di background agar tidak menahan response.
func (ctrl *Controller) sendAsync(to, subject string, render func() (string, error)) {
	if ctrl.Mailer == nil {
		return
	}
	go func() {
		log := slog.With("op", "Controller.sendAsync", "subject", subject)
		body, err := render()
		if err != nil {
			log.Error("render email", "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ctrl.Mailer.Send(ctx, to, subject, body); err != nil {
			log.Warn("email not delivered", "err", err)
		}
	}()
}
