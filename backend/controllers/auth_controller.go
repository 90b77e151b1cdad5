package controllers

import (
	"errors"
	"time"

	"infoclass/backend/config"
	"infoclass/backend/mailer"
	"infoclass/backend/middleware"
	"infoclass/backend/models"
	"infoclass/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Mail mailer.Sender
}

func NewAuthController(db *gorm.DB, cfg *config.Config, mail mailer.Sender) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Mail: mail}
}

type registerInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=student teacher admin"`
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input registerInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, "Todos los campos son requeridos")
	}

	var existing models.User
	if err := ac.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return utils.BadRequest(c, "El usuario ya existe")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Error al crear usuario")
	}

	verificationToken := mailer.GenerateVerificationToken()
	verificationExpires := time.Now().Add(24 * time.Hour)

	user := models.User{
		Email:                    input.Email,
		PasswordHash:             string(hashedPassword),
		FirstName:                input.FirstName,
		LastName:                 input.LastName,
		Role:                     input.Role,
		IsActive:                 true,
		VerificationToken:        &verificationToken,
		VerificationTokenExpires: &verificationExpires,
	}

	if err := ac.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Conflict(c, "El usuario ya existe")
		}
		return utils.InternalServerError(c, "Error al crear usuario")
	}

	emailSent := ac.Mail.SendVerification(user.Email, user.FullName(), verificationToken) == nil

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Error al generar token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Usuario creado exitosamente. Revisa tu email para verificar tu cuenta.",
		"access_token": token,
		"user": fiber.Map{
			"id":             user.ID,
			"email":          user.Email,
			"first_name":     user.FirstName,
			"last_name":      user.LastName,
			"role":           user.Role,
			"email_verified": user.EmailVerified,
		},
		"email_verification_sent": emailSent,
	})
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, "Email y contraseña son requeridos")
	}

	var user models.User
	if err := ac.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Credenciales inválidas")
		}
		return utils.InternalServerError(c, "Error al consultar la base de datos")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Credenciales inválidas")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Error al generar token")
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"user": fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
		},
	})
}

func (ac *AuthController) Me(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	return c.JSON(fiber.Map{
		"id":             user.ID,
		"email":          user.Email,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"role":           user.Role,
		"email_verified": user.EmailVerified,
		"created_at":     user.CreatedAt.Format(time.RFC3339),
	})
}

func (ac *AuthController) VerifyEmail(c *fiber.Ctx) error {
	var input struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&input); err != nil || input.Token == "" {
		return utils.BadRequest(c, "Token de verificación requerido")
	}

	var user models.User
	if err := ac.DB.Where("verification_token = ? AND email_verified = ?", input.Token, false).
		First(&user).Error; err != nil {
		return utils.BadRequest(c, "Token de verificación inválido o ya usado")
	}

	if user.VerificationTokenExpires == nil || time.Now().After(*user.VerificationTokenExpires) {
		return utils.BadRequest(c, "El token de verificación ha expirado")
	}

	updates := map[string]interface{}{
		"email_verified":             true,
		"verification_token":         nil,
		"verification_token_expires": nil,
	}
	if err := ac.DB.Model(&user).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Error al verificar email")
	}

	return c.JSON(fiber.Map{
		"message": "Email verificado exitosamente",
		"user": fiber.Map{
			"id":             user.ID,
			"email":          user.Email,
			"first_name":     user.FirstName,
			"last_name":      user.LastName,
			"email_verified": true,
		},
	})
}

func (ac *AuthController) ResendVerification(c *fiber.Ctx) error {
	user := middleware.Actor(c)

	if user.EmailVerified {
		return utils.BadRequest(c, "El email ya está verificado")
	}

	verificationToken := mailer.GenerateVerificationToken()
	verificationExpires := time.Now().Add(24 * time.Hour)

	updates := map[string]interface{}{
		"verification_token":         verificationToken,
		"verification_token_expires": verificationExpires,
	}
	if err := ac.DB.Model(user).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Error al reenviar verificación")
	}

	if err := ac.Mail.SendVerification(user.Email, user.FullName(), verificationToken); err != nil {
		return utils.InternalServerError(c, "Error al enviar email de verificación")
	}

	return c.JSON(fiber.Map{"message": "Email de verificación reenviado"})
}
