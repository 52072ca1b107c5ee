package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"move-quote-be/internal/config"
	"move-quote-be/internal/dto"
	"move-quote-be/internal/entity"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/internal/repository/specification"
	"move-quote-be/internal/repository/unitofwork"
	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/intake/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type IItemService interface {
	RecognitionLookup
	Upload(ctx context.Context, s *session.Session, file *multipart.FileHeader) (*dto.UploadImageResponse, error)
	Catalog() []items.CatalogGroup
	Search(q string) *dto.ItemSearchResponse
	Validate(req *dto.ValidateItemsRequest) items.Selection
}

type itemService struct {
	sessions   *session.Manager
	uowFactory unitofwork.RepositoryFactory
	extractor  items.Extractor
	uploadDir  string
	maxBytes   int64
	timeout    time.Duration
	logger     logger.ILogger
}

func NewItemService(
	sessions *session.Manager,
	uowFactory unitofwork.RepositoryFactory,
	extractor items.Extractor,
	cfg *config.Config,
	log logger.ILogger,
) IItemService {
	timeout := cfg.Intake.CollaboratorTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.Intake.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &itemService{
		sessions:   sessions,
		uowFactory: uowFactory,
		extractor:  extractor,
		uploadDir:  cfg.App.UploadDir,
		maxBytes:   maxBytes,
		timeout:    timeout,
		logger:     log,
	}
}

// Upload stores a room photo and runs item detection on it. The detected
// items are not staged here; the client reviews them and reports back with
// image_uploaded on its socket.
func (s *itemService) Upload(ctx context.Context, sess *session.Session, file *multipart.FileHeader) (*dto.UploadImageResponse, error) {
	if file.Size > s.maxBytes {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("Image exceeds %d MB", s.maxBytes>>20))
	}

	if err := s.sessions.Do(sess, func(tx *session.Tx) error {
		if tx.Tray().HasPending() {
			return intakeerr.ErrRecognitionPending
		}
		return nil
	}); err != nil {
		return nil, err
	}

	data, err := readUpload(file, s.maxBytes)
	if err != nil {
		return nil, err
	}
	mimeType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[mimeType]
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Only JPEG, PNG, WebP and GIF images are accepted")
	}

	image := &entity.UploadedImage{
		Id:           uuid.New(),
		SessionToken: sess.Token,
		FileSize:     int64(len(data)),
		MimeType:     mimeType,
		Status:       entity.ImagePending,
		CreatedAt:    time.Now(),
	}
	image.FilePath, err = s.save(sess, image.Id, ext, data)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.UploadedImageRepository().Create(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	detected, extractErr := s.extractor.Extract(callCtx, data, mimeType)
	cancel()

	if extractErr != nil {
		image.Status = entity.ImageFailed
	} else {
		image.Status = entity.ImageRecognized
		image.RecognitionResult = detected
	}
	if err := uow.UploadedImageRepository().Update(ctx, image); err != nil {
		s.logger.Warn("ITEMS", "Failed to store recognition result", map[string]interface{}{"image_id": image.Id.String(), "error": err.Error()})
	}

	if extractErr != nil {
		s.logger.Error("ITEMS", "Item recognition failed", map[string]interface{}{"image_id": image.Id.String(), "error": extractErr.Error()})
		return nil, intakeerr.CollaboratorUnavailable("vision extractor", extractErr)
	}

	s.logger.Info("ITEMS", "Image recognized", map[string]interface{}{
		"image_id": image.Id.String(),
		"items":    len(detected),
	})
	if detected == nil {
		detected = []items.Item{}
	}
	return &dto.UploadImageResponse{ImageId: image.Id, Status: string(image.Status), Items: detected}, nil
}

func readUpload(file *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("Image exceeds %d MB", limit>>20))
	}
	if len(data) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Empty image")
	}
	return data, nil
}

func (s *itemService) save(sess *session.Session, id uuid.UUID, ext string, data []byte) (string, error) {
	dir := filepath.Join(s.uploadDir, sess.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(dir, id.String()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// Recognition returns the stored detection result of an image uploaded by
// the same session. Images of other sessions are reported as not found.
func (s *itemService) Recognition(ctx context.Context, token, imageID string) ([]items.Item, error) {
	id, err := uuid.Parse(imageID)
	if err != nil {
		return nil, intakeerr.Malformed(fmt.Errorf("invalid image id %q", imageID))
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	image, err := uow.UploadedImageRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.BySessionToken{Token: token},
	)
	if err != nil {
		return nil, intakeerr.CollaboratorUnavailable("uploaded images", err)
	}
	if image == nil {
		return nil, intakeerr.Malformed(fmt.Errorf("unknown image id %q", imageID))
	}
	return image.RecognitionResult, nil
}

func (s *itemService) Catalog() []items.CatalogGroup {
	return items.Catalog()
}

func (s *itemService) Search(q string) *dto.ItemSearchResponse {
	results := items.Search(q)
	if results == nil {
		results = []items.CatalogEntry{}
	}
	return &dto.ItemSearchResponse{Query: q, Results: results}
}

func (s *itemService) Validate(req *dto.ValidateItemsRequest) items.Selection {
	sel := items.ValidateSelection(req.Items)
	if sel.Items == nil {
		sel.Items = []items.Item{}
	}
	return sel
}
