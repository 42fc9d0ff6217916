package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

const (
	MaxFileSize = 5 << 20

	// room for the other form fields and multipart framing
	formOverhead = 1 << 20
	sniffLen     = 3072
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileRejected = errors.New("upload rejected")
	ErrNoFile       = errors.New("no file uploaded")
)

var allowedTypes = map[string]struct{}{
	"jpeg": {},
	"jpg":  {},
	"png":  {},
	"gif":  {},
	"webp": {},
}

var allowedSniffed = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Storage persists an accepted file and returns the path or URL recorded on the product.
type Storage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, stored string) error
}

type Uploader struct {
	Storage Storage
	MaxSize int64
	Now     func() time.Time
	Rand    func() int64
}

func New(s Storage) *Uploader {
	return &Uploader{
		Storage: s,
		MaxSize: MaxFileSize,
		Now:     time.Now,
		Rand:    func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

// UniqueName builds "<unix millis>-<random><ext>". Uniqueness is likely, not guaranteed.
func UniqueName(original string, now time.Time, rnd int64) string {
	return fmt.Sprintf("%d-%d%s", now.UnixMilli(), rnd, strings.ToLower(filepath.Ext(original)))
}

// FromRequest stores the single file sent in field. It must run before any
// other form access so the body limit applies. A request without the file
// returns nil and no error.
func (u *Uploader) FromRequest(c echo.Context, field string) (*string, error) {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, u.MaxSize+formOverhead)

	fh, err := c.FormFile(field)
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		case isTooLarge(err):
			return nil, ErrFileTooLarge
		default:
			return nil, fmt.Errorf("%w: %v", ErrFileRejected, err)
		}
	}

	stored, err := u.Store(req.Context(), fh)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Store validates one multipart file and hands it to the storage backend.
func (u *Uploader) Store(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > u.MaxSize {
		return "", ErrFileTooLarge
	}
	if err := checkDeclared(fh.Filename, fh.Header.Get(echo.HeaderContentType)); err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	sniffed := mimetype.Detect(head)
	if !mimetype.EqualsAny(sniffed.String(), allowedSniffed...) {
		return "", fmt.Errorf("%w: content is %s", ErrFileRejected, sniffed.String())
	}

	name := UniqueName(fh.Filename, u.Now(), u.Rand())
	return u.Storage.Save(ctx, name, sniffed.String(), io.MultiReader(bytes.NewReader(head), f))
}

// checkDeclared requires both the extension and the declared type to name an
// allowed image format.
func checkDeclared(filename, contentType string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if _, ok := allowedTypes[ext]; !ok {
		return fmt.Errorf("%w: extension %q", ErrFileRejected, ext)
	}

	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	sub, ok := strings.CutPrefix(mt, "image/")
	if !ok {
		return fmt.Errorf("%w: content type %q", ErrFileRejected, contentType)
	}
	if _, ok := allowedTypes[sub]; !ok {
		return fmt.Errorf("%w: content type %q", ErrFileRejected, contentType)
	}
	return nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
