package utils

import (
	"certhub/config"
	"fmt"
	"html"
	"log"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// CertificateMail is what the student is told about a newly issued certificate.
type CertificateMail struct {
	Email           string
	Name            string
	SyllabusName    string
	CertificateCode string
	VerificationURL string
}

// SendCertificateEmail mails the student their certificate code through
// SendGrid. Without SENDGRID_API_KEY it does nothing.
func SendCertificateEmail(m CertificateMail) error {
	cfg := config.AppConfig
	if cfg == nil || cfg.SendGridAPIKey == "" || cfg.EmailSender == "" {
		return nil
	}

	from := mail.NewEmail(cfg.OrgName, cfg.EmailSender)
	to := mail.NewEmail(m.Name, m.Email)
	subject := fmt.Sprintf("Your %s certificate is ready", cfg.OrgName)
	plain := fmt.Sprintf(
		"Dear %s,\n\nYour certificate for \"%s\" has been issued.\nCertificate code: %s\nVerify it at: %s\n\n%s",
		m.Name, m.SyllabusName, m.CertificateCode, m.VerificationURL, cfg.OrgName,
	)
	message := mail.NewSingleEmail(from, subject, to, plain, certificateEmailHTML(cfg.OrgName, m))

	resp, err := sendgrid.NewSendClient(cfg.SendGridAPIKey).Send(message)
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if resp.StatusCode >= 300 {
		return errors.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}

	log.Printf("[MAIL] certificate email sent to %s", m.Email)
	return nil
}

func certificateEmailHTML(orgName string, m CertificateMail) string {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations on completing:</p>
		<h3 style="text-align: center; color: #4CAF50;">%s</h3>
		<div style="background: #E8F0FE; padding: 15px; border-radius: 4px; text-align: center;">
			<p style="margin: 0 0 8px;">Your certificate code</p>
			<h2 style="margin: 0; color: #2196F3;">%s</h2>
		</div>
		<p style="text-align: center;"><a href="%s" style="display: inline-block; padding: 12px 24px; background-color: #d7b56d; color: #FFFFFF; text-decoration: none; border-radius: 4px;">View certificate</a></p>
	`,
		html.EscapeString(m.Name),
		html.EscapeString(m.SyllabusName),
		html.EscapeString(m.CertificateCode),
		html.EscapeString(m.VerificationURL),
	)

	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif; background-color: #F6F6F6; padding: 20px;">
		<div style="max-width: 600px; margin: auto; background: #FFFFFF; border-radius: 8px; padding: 30px;">
			<h1 style="text-align: center; color: #00004D;">%s</h1>
			%s
			<p style="text-align: center; font-size: 12px; color: #999999;">%s</p>
		</div>
	</body>
	</html>
	`, html.EscapeString(orgName), body, html.EscapeString(orgName))
}
