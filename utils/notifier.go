package utils

import (
	"certhub/config"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// CertificateEvent is posted to NOTIFY_WEBHOOK_URL when a certificate is issued.
type CertificateEvent struct {
	Event           string `json:"event"`
	CertificateCode string `json:"certificate_code"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	SyllabusName    string `json:"syllabus_name"`
	IssueDate       string `json:"issue_date"`
	VerificationURL string `json:"verification_url"`
}

var notifyClient = resty.New().
	SetTimeout(10 * time.Second).
	SetRetryCount(2).
	SetRetryWaitTime(500 * time.Millisecond)

// NotifyCertificateIssued posts event to the configured webhook. No URL means no call.
func NotifyCertificateIssued(event CertificateEvent) error {
	if config.AppConfig == nil || config.AppConfig.NotifyWebhookURL == "" {
		return nil
	}
	if event.Event == "" {
		event.Event = "certificate.issued"
	}

	resp, err := notifyClient.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(config.AppConfig.NotifyWebhookURL)
	if err != nil {
		return errors.Wrap(err, "post webhook")
	}
	if resp.IsError() {
		return errors.Errorf("webhook responded %d: %s", resp.StatusCode(), resp.String())
	}

	log.Printf("[NOTIFY] %s delivered for %s", event.Event, event.CertificateCode)
	return nil
}

// AnnounceCertificate runs the webhook and the student email in the
// background. Failures are only logged.
func AnnounceCertificate(event CertificateEvent) {
	go func() {
		if err := NotifyCertificateIssued(event); err != nil {
			log.Printf("[NOTIFY] webhook for %s failed: %v", event.CertificateCode, err)
		}
	}()
	go func() {
		err := SendCertificateEmail(CertificateMail{
			Email:           event.Email,
			Name:            event.Name,
			SyllabusName:    event.SyllabusName,
			CertificateCode: event.CertificateCode,
			VerificationURL: event.VerificationURL,
		})
		if err != nil {
			log.Printf("[MAIL] certificate email to %s failed: %v", event.Email, err)
		}
	}()
}
