package utils

import (
	"fmt"
	"net/smtp"
	"strings"

	"learnhub/config"
	"learnhub/models"
)

// SendEmail sends an HTML email via SMTP
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: LearnHub <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
}

// SendEnrollmentReceipt mails the payer after a new enrollment is recorded.
func SendEnrollmentReceipt(user models.User, course models.Course, txRef string) error {
	body := getEmailTemplate("Enrollment Confirmed", fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your payment was confirmed and you are now enrolled in <b>%s</b>.</p>
		<p>Transaction reference: <code>%s</code></p>
		<p>Happy learning!</p>
	`, user.Name, course.Title, txRef))

	return SendEmail([]string{user.Email}, "Enrollment confirmed: "+course.Title, body)
}

// getEmailTemplate wraps body content in the standard mail layout
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">%s</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}
