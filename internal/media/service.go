package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// DefaultMaxImageBytes is the per-image ceiling when none is configured.
const DefaultMaxImageBytes int64 = 10 << 20

// ObjectStore is the bucket surface needed for order artwork.
type ObjectStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, object string) error
}

// Image is one customer photo as received from the client.
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// StoredImage records where an uploaded image lives.
type StoredImage struct {
	Key         string
	URL         string
	ContentType string
}

// Service validates and stores customer images.
type Service struct {
	store    ObjectStore
	folder   string
	maxBytes int64
	logg     *logger.Logger
}

// NewService constructs a media service writing under folder in the store's bucket.
func NewService(store ObjectStore, folder string, maxBytes int64, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Service{
		store:    store,
		folder:   strings.Trim(strings.TrimSpace(folder), "/"),
		maxBytes: maxBytes,
		logg:     logg,
	}, nil
}

// MaxBytes returns the per-image size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// ValidateImages checks every image and returns the sniffed content types by position.
func (s *Service) ValidateImages(images []Image) ([]string, error) {
	types := make([]string, len(images))
	for i, img := range images {
		contentType, err := ValidateImage(img, s.maxBytes)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("image %d is invalid", i+1)).
				WithDetails(map[string]any{"position": i, "reason": err.Error()})
		}
		types[i] = contentType
	}
	return types, nil
}

// ValidateImage enforces a non-empty body, the size limit and an allowed sniffed type.
func ValidateImage(img Image, maxBytes int64) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	if int64(len(img.Data)) > maxBytes {
		return "", fmt.Errorf("image exceeds %d MB", maxBytes>>20)
	}
	contentType, ok := sniffImageType(img.Data)
	if !ok {
		return "", fmt.Errorf("image must be %s, got %s", allowedImageDescription(), contentType)
	}
	return contentType, nil
}

// UploadAll stores images in order. When any upload fails, the ones already
// stored are removed before the error is returned.
func (s *Service) UploadAll(ctx context.Context, images []Image) ([]StoredImage, error) {
	contentTypes, err := s.ValidateImages(images)
	if err != nil {
		return nil, err
	}

	batch := uuid.NewString()
	stored := make([]StoredImage, 0, len(images))
	for i, img := range images {
		key := s.objectKey(batch, i, img.FileName, contentTypes[i])
		url, err := s.store.Upload(ctx, key, contentTypes[i], img.Data)
		if err != nil {
			cleanupErr := s.DeleteAll(ctx, keysOf(stored))
			if cleanupErr != nil && s.logg != nil {
				s.logg.Error(ctx, "media.upload.cleanup_failed", cleanupErr)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image upload failed, please try again")
		}
		stored = append(stored, StoredImage{Key: key, URL: url, ContentType: contentTypes[i]})
	}
	return stored, nil
}

// DeleteAll removes every key and combines the failures.
func (s *Service) DeleteAll(ctx context.Context, keys []string) error {
	var errs error
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errs
}

func (s *Service) objectKey(batch string, position int, fileName, contentType string) string {
	name := sanitizeFileName(fileName)
	ext := extensionFor(contentType)
	if name == "" {
		name = "image" + ext
	} else if ext != "" {
		name = strings.TrimSuffix(name, path.Ext(name)) + ext
	}
	key := fmt.Sprintf("%s/%02d-%s", batch, position, name)
	if s.folder == "" {
		return key
	}
	return s.folder + "/" + key
}

func keysOf(images []StoredImage) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.Key)
	}
	return keys
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
