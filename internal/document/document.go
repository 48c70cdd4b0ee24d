// Package document validates uploaded files before they reach the model:
// media type allow-list, size ceiling and base64 transport encoding.
package document

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"demystifier-backend/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmpty           = errors.New("file is empty")
	ErrBadEncoding     = errors.New("file data is not valid base64")
)

const DefaultMaxBytes = 10 * 1024 * 1024

var DefaultAllowedTypes = []string{
	"application/pdf",
	"text/plain",
	"text/markdown",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Policy is the set of files the service accepts.
type Policy struct {
	MaxBytes     int64
	AllowedTypes []string
}

func DefaultPolicy() Policy {
	return Policy{MaxBytes: DefaultMaxBytes, AllowedTypes: DefaultAllowedTypes}
}

// NewPolicy falls back to the defaults for zero values.
func NewPolicy(maxBytes int64, allowed []string) Policy {
	p := DefaultPolicy()
	if maxBytes > 0 {
		p.MaxBytes = maxBytes
	}
	if len(allowed) > 0 {
		p.AllowedTypes = allowed
	}
	return p
}

func (p Policy) Allowed(mimeType string) bool {
	mimeType = normalize(mimeType)
	for _, a := range p.AllowedTypes {
		if normalize(a) == mimeType {
			return true
		}
	}
	return false
}

// FromBytes wraps raw file content for transport. The media type is detected
// from name and content when mimeType is empty or generic.
func (p Policy) FromBytes(name string, data []byte, mimeType string) (*model.FileData, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mimeType = p.resolveType(name, data, mimeType)
	if !p.Allowed(mimeType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	return &model.FileData{
		Name:     name,
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}, nil
}

// Decode validates an incoming file and returns its content together with
// the effective media type.
func (p Policy) Decode(f *model.FileData) ([]byte, string, error) {
	if f == nil || f.Data == "" {
		return nil, "", ErrEmpty
	}
	if int64(base64.StdEncoding.DecodedLen(len(f.Data))) > p.MaxBytes+2 {
		return nil, "", fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}

	data, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	mimeType := p.resolveType(f.Name, data, f.MimeType)
	if !p.Allowed(mimeType) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return data, mimeType, nil
}

// IsText reports whether content of this type can be passed to the model as
// plain text.
func IsText(mimeType string) bool {
	return strings.HasPrefix(normalize(mimeType), "text/")
}

// Message is the user-facing explanation for a validation error.
func (p Policy) Message(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedType):
		return "Invalid file type. Please upload a supported document (e.g., PDF, DOCX, TXT)."
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("File is too large. Please upload a file smaller than %dMB.", p.MaxBytes/(1024*1024))
	case errors.Is(err, ErrEmpty):
		return "The uploaded file is empty."
	case errors.Is(err, ErrBadEncoding):
		return "The uploaded file could not be read."
	default:
		return "The uploaded file could not be processed."
	}
}

func (p Policy) resolveType(name string, data []byte, declared string) string {
	declared = normalize(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	// mimetype reports markdown as text/plain, so trust a known extension first.
	if byExt := normalize(mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))); byExt != "" && p.Allowed(byExt) {
		return byExt
	}
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return "text/markdown"
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if t := normalize(m.String()); p.Allowed(t) {
			return t
		}
	}
	return normalize(detected.String())
}

func normalize(mimeType string) string {
	t, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return t
}
