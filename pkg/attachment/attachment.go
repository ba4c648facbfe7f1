// Package attachment handles the binary files that can be attached to
// question and answer nodes.
//
// Attachments are content-addressed: the identifier is the hex SHA-256 of
// the raw bytes, so the same file attached twice yields the same id and the
// same exported file name. Payloads are kept inline as base64 data URLs and
// are stripped from the compiled hierarchy; they travel next to it, keyed
// by FileName.
package attachment

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// MaxSize is the largest payload accepted by New.
const MaxSize = 2 * 1024 * 1024

const (
	TypeFile  = "file"
	TypeImage = "image"
)

var (
	// ErrTooLarge is returned when a payload exceeds MaxSize.
	ErrTooLarge = errors.New("attachment exceeds maximum size")
	// ErrInvalidData is returned when a payload cannot be decoded.
	ErrInvalidData = errors.New("invalid attachment data")
	// ErrEmptyName is returned when an attachment has no file name.
	ErrEmptyName = errors.New("attachment name is required")
)

// New builds an attachment from raw file content.
func New(name string, data []byte) (domain.Attachment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Attachment{}, ErrEmptyName
	}
	if len(data) > MaxSize {
		return domain.Attachment{}, fmt.Errorf("%w: %s is %s, limit is %s",
			ErrTooLarge, name, FormatSize(int64(len(data))), FormatSize(MaxSize))
	}

	sum := sha256.Sum256(data)
	typ := TypeFile
	if IsImage(name) {
		typ = TypeImage
	}

	return domain.Attachment{
		ID:   hex.EncodeToString(sum[:]),
		Name: name,
		Type: typ,
		Data: DataURL(MimeType(name), data),
	}, nil
}

// MimeType guesses the media type from the file extension.
func MimeType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	return "application/octet-stream"
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode returns the raw bytes carried by the attachment. Both data URLs
// and bare base64 strings are accepted.
func Decode(a domain.Attachment) ([]byte, error) {
	payload := a.Data
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("%w: %s: malformed data url", ErrInvalidData, a.Name)
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: %s: data url is not base64 encoded", ErrInvalidData, a.Name)
		}
		payload = body
	}

	out, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, a.Name, err)
	}
	return out, nil
}

// Extension returns the text after the last dot of name, or "" when the
// name has no extension. A leading dot does not count (".env" has none).
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}

// FileName is the name under which the payload is exported.
func FileName(a domain.Attachment) string {
	if ext := Extension(a.Name); ext != "" {
		return a.ID + "." + ext
	}
	return a.ID
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
}

// IsImage reports whether the file name looks like a picture.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(Extension(name))]
}

// Payloads collects the decoded content of every attachment in the graph,
// keyed by FileName. Identical files collapse into one entry.
func Payloads(g domain.Graph) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, n := range g.Nodes {
		for _, a := range n.Attachments {
			name := FileName(a)
			if _, done := out[name]; done {
				continue
			}
			data, err := Decode(a)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n.ID, err)
			}
			out[name] = data
		}
	}
	return out, nil
}

// FormatSize renders a byte count for humans (e.g. "2 MB", "1.5 KB").
func FormatSize(n int64) string {
	if n == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + " " + units[i]
}
