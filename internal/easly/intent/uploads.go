package intent

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes bounds a decoded image attachment.
const MaxUploadBytes = 8 << 20

// ErrEmptyUpload is returned for an attachment that decodes to nothing.
var ErrEmptyUpload = errors.New("attachment is empty")

// Uploads writes image attachments to a directory served under URLPrefix.
type Uploads struct {
	Dir       string
	URLPrefix string

	newName func() string
}

// NewUploads returns an Uploads rooted at dir. urlPrefix defaults to
// "/images/uploads".
func NewUploads(dir, urlPrefix string) *Uploads {
	if urlPrefix == "" {
		urlPrefix = "/images/uploads"
	}
	return &Uploads{
		Dir:       dir,
		URLPrefix: strings.TrimRight(urlPrefix, "/"),
		newName:   func() string { return "upload-" + uuid.NewString() + ".png" },
	}
}

// Save decodes a base64 attachment (optionally a data: URL) and returns the
// public URL of the stored file.
func (u *Uploads) Save(attachment string) (string, error) {
	b64 := strings.TrimSpace(attachment)
	if strings.HasPrefix(b64, "data:") {
		if _, rest, ok := strings.Cut(b64, ","); ok {
			b64 = rest
		}
	}
	if base64.StdEncoding.DecodedLen(len(b64)) > MaxUploadBytes {
		return "", fmt.Errorf("attachment exceeds %d bytes", MaxUploadBytes)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("attachment is not valid base64: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}

	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("intent: create upload dir: %w", err)
	}
	name := u.newName()
	if err := os.WriteFile(filepath.Join(u.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("intent: write upload: %w", err)
	}
	return u.URLPrefix + "/" + name, nil
}
