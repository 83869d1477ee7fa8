package bulk

import (
	"certhub/models"
	"encoding/csv"
	"io"
	"time"
)

var exportHeader = []string{"Certificate Code", "Student Name", "Email", "Syllabus", "Issue Date", "Status", "Created Date"}

// Document is a tabular export of certificates.
type Document struct {
	Filename string
	Rows     []models.Certificate
}

func ExportFilename(at time.Time) string {
	return "certificates_export_" + at.Format("2006-01-02_15-04-05") + ".csv"
}

func (d *Document) WriteCSV(w io.Writer) error {
	out := csv.NewWriter(w)
	if err := out.Write(exportHeader); err != nil {
		return err
	}

	for _, c := range d.Rows {
		issueDate := ""
		if t := time.Time(c.IssueDate); !t.IsZero() {
			issueDate = t.Format("2006-01-02")
		}
		record := []string{
			c.CertificateCode,
			c.Name,
			c.Email,
			c.SyllabusName,
			issueDate,
			string(c.Status),
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}
