package utils

import (
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrFileType = errors.New("file type not allowed")
	ErrFileSize = errors.New("file too large")
)

// UploadRule restricts what an upload may contain and where it lands.
type UploadRule struct {
	Dir        string   // sub-directory under the store root
	Extensions []string // lower-case, without dot
	MaxBytes   int64
}

var (
	CertificateUploadRule = UploadRule{Dir: "certificates", Extensions: []string{"jpg", "jpeg", "png", "gif", "pdf"}}
	SyllabusUploadRule    = UploadRule{Dir: "syllabi", Extensions: []string{"pdf"}}
)

// WithMaxMB returns a copy of the rule limited to mb megabytes.
func (r UploadRule) WithMaxMB(mb int) UploadRule {
	r.MaxBytes = int64(mb) * 1024 * 1024
	return r
}

func (r UploadRule) allows(ext string) bool {
	for _, e := range r.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// LocalFileStore keeps uploads on the local filesystem. Paths handed out and
// accepted are relative to Root using forward slashes.
type LocalFileStore struct {
	Root string
}

func NewLocalFileStore(root string) *LocalFileStore {
	return &LocalFileStore{Root: root}
}

// Save validates the upload against rule and copies it to a uuid-named file.
func (s *LocalFileStore) Save(file *multipart.FileHeader, rule UploadRule) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	if !rule.allows(ext) {
		return "", ErrFileType
	}
	if rule.MaxBytes > 0 && file.Size > rule.MaxBytes {
		return "", ErrFileSize
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	return s.write(src, rule.Dir, ext)
}

func (s *LocalFileStore) write(src io.Reader, dir, ext string) (string, error) {
	// Create destination directory if it doesn't exist
	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0755); err != nil {
		return "", err
	}

	relPath := path.Join(dir, uuid.NewString()+"."+ext)

	dst, err := os.Create(s.abs(relPath))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(s.abs(relPath))
		return "", err
	}

	return relPath, nil
}

func (s *LocalFileStore) Exists(relPath string) bool {
	if relPath == "" {
		return false
	}
	info, err := os.Stat(s.abs(relPath))
	return err == nil && !info.IsDir()
}

// Delete removes relPath. Deleting a missing file is not an error.
func (s *LocalFileStore) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	err := os.Remove(s.abs(relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalFileStore) abs(relPath string) string {
	clean := path.Clean("/" + relPath)
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

func GetFileURL(filePath string) string {
	if filePath == "" {
		return ""
	}
	return "/uploads/" + filePath
}
