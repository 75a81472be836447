package handlers

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/alextreichler/bookstore/internal/apperr"
)

const (
	coverWidth     = 400
	coverURLPrefix = "/uploads/"
	maxUploadBytes = 10 << 20 // 10MB
)

// CoverStore writes resized book covers into Dir, served under /uploads/.
type CoverStore struct {
	Dir string
}

func NewCoverStore(dir string) (*CoverStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &CoverStore{Dir: dir}, nil
}

// Save decodes a PNG or JPEG, scales it to coverWidth keeping the aspect
// ratio, and stores it as JPEG. It returns the public URL.
func (cs *CoverStore) Save(src io.Reader, filename string) (string, error) {
	const op = "handlers.CoverStore.Save"

	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(src)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(src)
	default:
		return "", apperr.Validationf(op, "Formato de imagen no soportado. Usa PNG o JPG.")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, op, "No se pudo leer la imagen de portada.", err)
	}

	if img.Bounds().Dx() > coverWidth {
		img = resize.Resize(coverWidth, 0, img, resize.Lanczos3)
	}

	name := uuid.NewString() + ".jpg"
	out, err := os.Create(filepath.Join(cs.Dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create cover file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("failed to encode cover: %w", err)
	}
	return coverURLPrefix + name, nil
}

// Remove deletes a cover previously returned by Save. Other URLs are ignored.
func (cs *CoverStore) Remove(url string) error {
	if !strings.HasPrefix(url, coverURLPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, coverURLPrefix))
	err := os.Remove(filepath.Join(cs.Dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
