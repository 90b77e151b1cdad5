// Package mailer sends account and notification emails through an SMTP relay.
// Delivery is best-effort: callers log failures and never retry or surface
// them to the end user.
package mailer

import (
	"fmt"
	"log"
	"strings"

	"infoclass/backend/config"
	"infoclass/backend/models"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

const subjectPrefix = "[InfoClass] "

var subjectByType = map[string]string{
	models.NotificationTypeAssignment:   "Nueva tarea asignada",
	models.NotificationTypeGrade:        "Nueva calificación disponible",
	models.NotificationTypeAnnouncement: "Nuevo anuncio",
	models.NotificationTypeMessage:      "Nuevo mensaje",
	models.NotificationTypeEnrollment:   "Inscripción a curso",
}

type Sender interface {
	SendVerification(email, name, token string) error
	SendNotification(email, name, notificationType string, data map[string]string) error
}

// GenerateVerificationToken returns a 32-character token for email
// verification links.
func GenerateVerificationToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// New returns an SMTP-backed sender, or a disabled no-op one when no SMTP
// credentials are configured.
func New(cfg *config.Config, logger *log.Logger) Sender {
	if cfg.SMTPUsername == "" {
		logger.Println("mailer: SMTP not configured, email delivery disabled")
		return Disabled{}
	}
	sender := cfg.MailSender
	if sender == "" {
		sender = cfg.SMTPUsername
	}
	return &SMTPMailer{cfg: cfg, sender: sender, logger: logger}
}

type SMTPMailer struct {
	cfg    *config.Config
	sender string
	logger *log.Logger
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUsername, m.cfg.SMTPPassword)
	if err := dialer.DialAndSend(msg); err != nil {
		m.logger.Printf("mailer: failed to send to %s: %v", to, err)
		return err
	}
	return nil
}

func (m *SMTPMailer) SendVerification(email, name, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", m.cfg.FrontendURL, token)
	body := wrap(name, fmt.Sprintf(`
		<p>Gracias por registrarte en InfoClass. Para completar tu registro y activar tu cuenta, necesitas verificar tu dirección de email.</p>
		<p style="text-align:center;"><a href="%s" style="display:inline-block;background:#667eea;color:white;padding:15px 30px;text-decoration:none;border-radius:5px;">Verificar mi cuenta</a></p>
		<p>Si el botón no funciona, copia y pega este enlace en tu navegador:</p>
		<p style="word-break:break-all;background:#eee;padding:10px;border-radius:5px;">%s</p>
		<p><strong>Importante:</strong> Este enlace expirará en 24 horas por seguridad.</p>
		<p>Si no creaste una cuenta en InfoClass, puedes ignorar este email.</p>`,
		verificationURL, verificationURL))
	return m.send(email, subjectPrefix+"Verifica tu cuenta", body)
}

func (m *SMTPMailer) SendNotification(email, name, notificationType string, data map[string]string) error {
	subject, ok := subjectByType[notificationType]
	if !ok {
		subject = "Nueva notificación"
	}
	return m.send(email, subjectPrefix+subject, wrap(name, notificationBody(notificationType, data)))
}

func notificationBody(notificationType string, data map[string]string) string {
	get := func(key, fallback string) string {
		if v := data[key]; v != "" {
			return v
		}
		return fallback
	}

	switch notificationType {
	case models.NotificationTypeAssignment:
		return fmt.Sprintf(`
			<p>Se ha asignado una nueva tarea en el curso <strong>%s</strong>.</p>
			<h3>%s</h3>
			<p><strong>Descripción:</strong> %s</p>
			<p><strong>Fecha límite:</strong> %s</p>`,
			get("course_name", "N/A"), get("title", "Nueva tarea"),
			get("description", "Sin descripción"), get("due_date", "N/A"))
	case models.NotificationTypeGrade:
		return fmt.Sprintf(`
			<p>Tu calificación para la tarea <strong>%s</strong> está disponible.</p>
			<p><strong>Calificación:</strong> %s</p>
			<p><strong>Comentarios:</strong> %s</p>`,
			get("assignment_title", "N/A"), get("grade", "N/A"), get("comments", "Sin comentarios"))
	case models.NotificationTypeAnnouncement:
		return fmt.Sprintf(`
			<p>Hay un nuevo anuncio en el curso <strong>%s</strong>.</p>
			<h3>%s</h3>
			<p>%s</p>`,
			get("course_name", "N/A"), get("title", "Nuevo anuncio"), get("content", "Sin contenido"))
	case models.NotificationTypeMessage:
		return fmt.Sprintf(`
			<p>Has recibido un nuevo mensaje de <strong>%s</strong>.</p>
			<h3>%s</h3>
			<p>%s</p>`,
			get("sender_name", "N/A"), get("subject", "Nuevo mensaje"), get("content", "Sin contenido"))
	case models.NotificationTypeEnrollment:
		return fmt.Sprintf(`
			<p>Te has inscrito exitosamente al curso <strong>%s</strong>.</p>
			<p><strong>Profesor:</strong> %s</p>
			<p><strong>Sección:</strong> %s</p>`,
			get("course_name", "N/A"), get("teacher_name", "N/A"), get("section", "N/A"))
	}
	return "<p>Tienes una nueva notificación en InfoClass.</p>"
}

func wrap(name, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>InfoClass</title></head>
<body style="font-family:Arial,sans-serif;line-height:1.6;color:#333;">
	<div style="max-width:600px;margin:0 auto;padding:20px;">
		<div style="background:linear-gradient(135deg,#667eea 0%%,#764ba2 100%%);color:white;padding:30px;text-align:center;border-radius:10px 10px 0 0;">
			<h1>InfoClass</h1>
		</div>
		<div style="background:#f9f9f9;padding:30px;border-radius:0 0 10px 10px;">
			<h2>Hola %s,</h2>
			%s
			<p>¡Gracias por usar InfoClass!</p>
		</div>
		<div style="text-align:center;margin-top:30px;color:#666;font-size:14px;">
			<p>© 2025 InfoClass. Todos los derechos reservados.</p>
		</div>
	</div>
</body>
</html>`, name, content)
}

// Disabled drops every email on the floor. Used when SMTP is not configured
// and in tests.
type Disabled struct{}

func (Disabled) SendVerification(string, string, string) error { return nil }

func (Disabled) SendNotification(string, string, string, map[string]string) error { return nil }
