package routers

import (
	"bytes"
	"certhub/config"
	"certhub/database"
	"certhub/middleware"
	"certhub/models"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app   *fiber.App
	db    *gorm.DB
	admin models.Admin
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	config.AppConfig = &config.Config{
		DBDriver:             "sqlite",
		DBName:               filepath.Join(dir, "api.db"),
		DBLogLevel:           "silent",
		JWTKey:               "test-secret",
		JWTTTLHours:          1,
		SaltRound:            bcrypt.MinCost,
		UploadDir:            filepath.Join(dir, "uploads"),
		MaxCertificateSizeMB: 5,
		MaxSyllabusSizeMB:    10,
		SearchPhonetic:       true,
		PublicBaseURL:        "https://certs.example.com",
		OrgName:              "Gyanhub",
	}

	db, err := database.Open(config.AppConfig)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.Database = database.DbInstance{Db: db}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.Admin{Username: "root", Password: string(hashed), Email: "root@example.com"}
	require.NoError(t, db.Create(&admin).Error)

	token, err := middleware.GenerateJWT(admin.ID, admin.Username)
	require.NoError(t, err)

	app := fiber.New()
	Setup(app)
	return &testServer{app: app, db: db, admin: admin, token: token}
}

func (s *testServer) do(t *testing.T, req *http.Request, auth bool) (*http.Response, []byte) {
	t.Helper()
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func (s *testServer) certificate(t *testing.T, code, name, email string, status models.CertificateStatus, age time.Duration) models.Certificate {
	t.Helper()
	c := models.Certificate{
		Name:                 name,
		Email:                email,
		SyllabusName:         "Cloud Basics",
		CertificateImagePath: "certificates/" + code + ".png",
		IssueDate:            datatypes.Date(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)),
		CertificateCode:      code,
		Status:               status,
		CreatedAt:            time.Now().Add(-age),
	}
	require.NoError(t, s.db.Create(&c).Error)
	return c
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginBlocksAfterThreeFailures(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, jsonRequest("POST", "/auth/login", fiber.Map{"username": "root", "password": "correct-horse"}), false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &login))
	assert.NotEmpty(t, login.Token)

	for i := 0; i < 3; i++ {
		resp, body = s.do(t, jsonRequest("POST", "/auth/login", fiber.Map{"username": "root", "password": "wrong-pass"}), false)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials!", decode(t, body).Message)
	}

	resp, body = s.do(t, jsonRequest("POST", "/auth/login", fiber.Map{"username": "root", "password": "correct-horse"}), false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, decode(t, body).Message, "temporarily blocked")
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, jsonRequest("POST", "/auth/login", fiber.Map{"username": " "}), false)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "Username is required!")
}

func TestVerify(t *testing.T) {
	s := newTestServer(t)
	s.certificate(t, "CERT-AAAAAAAAAAAA1", "Jo Ann OBrien", "joann.obrien@example.com", models.CertificateActive, time.Hour)
	s.certificate(t, "CERT-AAAAAAAAAAAA2", "Jo Ann OBrien", "joann.obrien@example.com", models.CertificateRevoked, time.Minute)
	s.certificate(t, "CERT-AAAAAAAAAAAA3", "Someone Else", "else@example.com", models.CertificateActive, time.Minute)

	q := url.Values{"name": {"jo ann obrien"}, "email": {"JoAnnOBrien@Example.com"}}
	resp, body := s.do(t, httptest.NewRequest("GET", "/verify?"+q.Encode(), nil), false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var hits []map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "CERT-AAAAAAAAAAAA1", hits[0]["certificate_code"])
	assert.Equal(t, "CERT-AAAAAAAAAAAA1_certificate.png", hits[0]["download_name"])
	assert.Equal(t, "/uploads/certificates/CERT-AAAAAAAAAAAA1.png", hits[0]["image_url"])
	assert.Equal(t, `I completed "Cloud Basics" from Gyanhub!`, hits[0]["share_text"])
	assert.True(t, strings.HasPrefix(hits[0]["verification_url"].(string), "https://certs.example.com/verify?"))
	assert.NotContains(t, hits[0], "email")

	resp, body = s.do(t, httptest.NewRequest("GET", "/verify?name=Jo", nil), false)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "email")
}

func TestPublicStats(t *testing.T) {
	s := newTestServer(t)
	syllabus := models.Syllabus{SyllabusName: "Cloud Basics", SyllabusPdfPath: "syllabi/cloud.pdf"}
	require.NoError(t, s.db.Create(&syllabus).Error)
	c := s.certificate(t, "CERT-BBBBBBBBBBBB1", "Ada", "ada@example.com", models.CertificateActive, time.Hour)
	require.NoError(t, s.db.Model(&c).Update("syllabus_id", syllabus.ID).Error)
	s.certificate(t, "CERT-BBBBBBBBBBBB2", "Bob", "bob@example.com", models.CertificateRevoked, time.Hour)

	resp, body := s.do(t, httptest.NewRequest("GET", "/verify/stats", nil), false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var stats struct {
		Active  int64 `json:"active_certificates"`
		Syllabi int64 `json:"total_syllabi"`
	}
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &stats))
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 1, stats.Syllabi)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/admin/certificates", nil),
		formRequest("POST", "/admin/certificates/bulk", url.Values{"certificates": {"1"}, "action": {"delete"}}),
		httptest.NewRequest("GET", "/admin/dashboard/stats", nil),
	} {
		resp, _ := s.do(t, req, false)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, req.URL.Path)
	}
}

func TestBulkValidationMessages(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		values url.Values
		want   string
	}{
		{url.Values{"action": {"delete"}}, "Please select at least one certificate."},
		{url.Values{"certificates": {"1"}}, "Please select an action."},
		{url.Values{"certificates": {"x", "0"}, "action": {"delete"}}, "Invalid certificate selection."},
		{url.Values{"certificates[]": {"1"}, "action": {"archive"}}, "Invalid action selected."},
	}
	for _, tc := range cases {
		resp, body := s.do(t, formRequest("POST", "/admin/certificates/bulk", tc.values), true)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, tc.want, decode(t, body).Message)
	}
}

func TestBulkRevokeAndDelete(t *testing.T) {
	s := newTestServer(t)
	a := s.certificate(t, "CERT-CCCCCCCCCCCC1", "A", "a@example.com", models.CertificateActive, time.Hour)
	b := s.certificate(t, "CERT-CCCCCCCCCCCC2", "B", "b@example.com", models.CertificateActive, time.Hour)

	resp, body := s.do(t, jsonRequest("POST", "/admin/certificates/bulk", fiber.Map{
		"certificates": []uint{a.ID, b.ID, 999},
		"action":       "revoke",
	}), true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Successfully revoked 2 certificate(s).", decode(t, body).Message)

	resp, body = s.do(t, formRequest("POST", "/admin/certificates/bulk", url.Values{
		"certificates[]": {fmt.Sprint(a.ID)},
		"action":         {"delete"},
	}), true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Successfully deleted 1 certificate(s) and associated files.", decode(t, body).Message)

	var remaining int64
	require.NoError(t, s.db.Model(&models.Certificate{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
}

func TestBulkExportCSV(t *testing.T) {
	s := newTestServer(t)
	first := s.certificate(t, "CERT-DDDDDDDDDDDD1", "First", "first@example.com", models.CertificateActive, 3*time.Hour)
	s.certificate(t, "CERT-DDDDDDDDDDDD2", "Second", "second@example.com", models.CertificateActive, 2*time.Hour)
	third := s.certificate(t, "CERT-DDDDDDDDDDDD3", "Third", "third@example.com", models.CertificateRevoked, time.Hour)

	resp, body := s.do(t, formRequest("POST", "/admin/certificates/bulk", url.Values{
		"certificates": {fmt.Sprint(first.ID), fmt.Sprint(third.ID)},
		"action":       {"export"},
	}), true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "certificates_export_")

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Certificate Code", records[0][0])
	assert.Equal(t, "CERT-DDDDDDDDDDDD3", records[1][0])
	assert.Equal(t, "CERT-DDDDDDDDDDDD1", records[2][0])

	resp, body = s.do(t, formRequest("POST", "/admin/certificates/bulk", url.Values{
		"certificates": {"4242"},
		"action":       {"export"},
	}), true)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No certificates found for export.", decode(t, body).Message)
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateCertificate(t *testing.T) {
	s := newTestServer(t)
	syllabus := models.Syllabus{SyllabusName: "Data Engineering", SyllabusPdfPath: "syllabi/data.pdf"}
	require.NoError(t, s.db.Create(&syllabus).Error)

	fields := map[string]string{
		"name":        "Grace Hopper",
		"email":       "grace@example.com",
		"syllabus_id": fmt.Sprint(syllabus.ID),
		"issue_date":  "2025-02-01",
	}
	resp, body := s.do(t, multipartRequest(t, "POST", "/admin/certificates", fields, "certificate_image", "grace.png", []byte("png")), true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, decode(t, body).Message, "Certificate created successfully! Certificate Code: CERT-")

	var created models.Certificate
	require.NoError(t, s.db.Where("email = ?", "grace@example.com").First(&created).Error)
	assert.Equal(t, "Data Engineering", created.SyllabusName)
	assert.Equal(t, "syllabi/data.pdf", created.SyllabusPdfPath)
	assert.Equal(t, models.CertificateActive, created.Status)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, s.admin.ID, *created.CreatedBy)
	assert.FileExists(t, filepath.Join(config.AppConfig.UploadDir, filepath.FromSlash(created.CertificateImagePath)))

	resp, body = s.do(t, multipartRequest(t, "POST", "/admin/certificates", fields, "certificate_image", "again.png", []byte("png")), true)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "A certificate has already been issued for this email address.", decode(t, body).Message)

	fields["email"] = "other@example.com"
	resp, body = s.do(t, multipartRequest(t, "POST", "/admin/certificates", fields, "certificate_image", "cert.exe", []byte("MZ")), true)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "Only JPG, PNG, GIF, or PDF files are allowed")

	resp, body = s.do(t, multipartRequest(t, "POST", "/admin/certificates", fields, "", "", nil), true)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "Please upload a certificate image.")
}

func failCertificateWrites(t *testing.T, db *gorm.DB, op string) {
	t.Helper()
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == "certificates" {
			tx.AddError(errors.New("disk full"))
		}
	}
	switch op {
	case "create":
		require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_certificate_create", fail))
	case "update":
		require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_certificate_update", fail))
	}
}

func storedCertificateFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(config.AppConfig.UploadDir, "certificates"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreateCertificateInsertFailureRemovesUpload(t *testing.T) {
	s := newTestServer(t)
	syllabus := models.Syllabus{SyllabusName: "Networks", SyllabusPdfPath: "syllabi/net.pdf"}
	require.NoError(t, s.db.Create(&syllabus).Error)
	failCertificateWrites(t, s.db, "create")

	fields := map[string]string{
		"name":        "Radia Perlman",
		"email":       "radia@example.com",
		"syllabus_id": fmt.Sprint(syllabus.ID),
	}
	resp, body := s.do(t, multipartRequest(t, "POST", "/admin/certificates", fields, "certificate_image", "radia.png", []byte("png")), true)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to create certificate!", decode(t, body).Message)
	assert.Empty(t, storedCertificateFiles(t))
}

func TestUpdateCertificateFailureKeepsOldImage(t *testing.T) {
	s := newTestServer(t)
	syllabus := models.Syllabus{SyllabusName: "Networks", SyllabusPdfPath: "syllabi/net.pdf"}
	require.NoError(t, s.db.Create(&syllabus).Error)

	existing := s.certificate(t, "CERT-GGGGGGGGGGGG1", "Radia", "radia@example.com", models.CertificateActive, time.Hour)
	store := filepath.Join(config.AppConfig.UploadDir, "certificates")
	require.NoError(t, os.MkdirAll(store, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store, "CERT-GGGGGGGGGGGG1.png"), []byte("old"), 0o644))
	failCertificateWrites(t, s.db, "update")

	fields := map[string]string{
		"name":        "Radia Perlman",
		"email":       "radia@example.com",
		"syllabus_id": fmt.Sprint(syllabus.ID),
		"status":      "active",
	}
	target := fmt.Sprintf("/admin/certificates/%d", existing.ID)
	resp, body := s.do(t, multipartRequest(t, "PUT", target, fields, "certificate_image", "new.png", []byte("new")), true)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to update certificate!", decode(t, body).Message)
	assert.Equal(t, []string{"CERT-GGGGGGGGGGGG1.png"}, storedCertificateFiles(t))
}

func TestDeleteSyllabusDetachesOrCascades(t *testing.T) {
	s := newTestServer(t)

	detach := models.Syllabus{SyllabusName: "Keep", SyllabusPdfPath: "syllabi/keep.pdf"}
	cascade := models.Syllabus{SyllabusName: "Drop", SyllabusPdfPath: "syllabi/drop.pdf"}
	require.NoError(t, s.db.Create(&detach).Error)
	require.NoError(t, s.db.Create(&cascade).Error)

	kept := s.certificate(t, "CERT-EEEEEEEEEEEE1", "Kept", "kept@example.com", models.CertificateActive, time.Hour)
	require.NoError(t, s.db.Model(&kept).Updates(map[string]interface{}{"syllabus_id": detach.ID, "syllabus_name": "Keep"}).Error)
	dropped := s.certificate(t, "CERT-EEEEEEEEEEEE2", "Dropped", "dropped@example.com", models.CertificateActive, time.Hour)
	require.NoError(t, s.db.Model(&dropped).Update("syllabus_id", cascade.ID).Error)

	resp, body := s.do(t, httptest.NewRequest("DELETE", fmt.Sprintf("/admin/syllabi/%d", detach.ID), nil), true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var reloaded models.Certificate
	require.NoError(t, s.db.First(&reloaded, kept.ID).Error)
	assert.Nil(t, reloaded.SyllabusID)
	assert.Equal(t, "Keep", reloaded.SyllabusName)

	resp, body = s.do(t, httptest.NewRequest("DELETE", fmt.Sprintf("/admin/syllabi/%d?delete_certificates=yes", cascade.ID), nil), true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.ErrorIs(t, s.db.First(&models.Certificate{}, dropped.ID).Error, gorm.ErrRecordNotFound)

	resp, _ = s.do(t, httptest.NewRequest("DELETE", fmt.Sprintf("/admin/syllabi/%d", cascade.ID), nil), true)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListCertificatesWithStats(t *testing.T) {
	s := newTestServer(t)
	s.certificate(t, "CERT-FFFFFFFFFFFF1", "Alan Turing", "alan@example.com", models.CertificateActive, time.Hour)
	s.certificate(t, "CERT-FFFFFFFFFFFF2", "Alonzo Church", "alonzo@example.com", models.CertificateRevoked, time.Hour)

	resp, body := s.do(t, httptest.NewRequest("GET", "/admin/certificates?search=alan&status=active", nil), true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var list struct {
		Certificates []map[string]interface{} `json:"certificates"`
		Stats        struct {
			Total   int64 `json:"total"`
			Active  int64 `json:"active"`
			Revoked int64 `json:"revoked"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(decode(t, body).Data, &list))
	require.Len(t, list.Certificates, 1)
	assert.Equal(t, "Alan Turing", list.Certificates[0]["name"])
	assert.EqualValues(t, 2, list.Stats.Total)
	assert.EqualValues(t, 1, list.Stats.Revoked)

	resp, _ = s.do(t, httptest.NewRequest("GET", "/admin/certificates?status=archived", nil), true)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}
