package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const certificateCodePrefix = "CERT-"

var certificateCodePattern = regexp.MustCompile(`^CERT-[0-9A-F]{13}$`)

// GenerateCertificateCode returns a shareable code such as CERT-3F2A9C01B7D4E.
func GenerateCertificateCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return certificateCodePrefix + strings.ToUpper(raw[:13])
}

// IsCertificateCode reports whether code has the generated shape.
func IsCertificateCode(code string) bool {
	return certificateCodePattern.MatchString(code)
}
