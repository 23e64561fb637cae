package attachments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/askservice/leadmarket-backend/pkg/errors"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

// allowed maps sniffed MIME types to the stored extension.
var allowed = map[string]string{
	"application/pdf":    ".pdf",
	"image/png":          ".png",
	"image/jpeg":         ".jpg",
	"image/webp":         ".webp",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

type uploader interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

// Result points at the stored object. The URL is passed back verbatim on
// quote submission.
type Result struct {
	AttachmentURL string `json:"attachmentUrl"`
	ContentType   string `json:"contentType"`
	Size          int64  `json:"size"`
}

// Service stores quote attachments in the blob store.
type Service interface {
	Upload(ctx context.Context, vendorID uuid.UUID, body io.Reader) (*Result, error)
}

type service struct {
	store    uploader
	maxBytes int64
	logg     *logger.Logger
}

func NewService(store uploader, maxBytes int64, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: store, maxBytes: maxBytes, logg: logg}, nil
}

// Upload sniffs the content type instead of trusting the client header.
func (s *service) Upload(ctx context.Context, vendorID uuid.UUID, body io.Reader) (*Result, error) {
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds upload limit").
			WithDetails(map[string]any{"maxBytes": s.maxBytes})
	}

	detected := mimetype.Detect(data)
	contentType, ext := match(detected)
	if contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type").
			WithDetails(map[string]any{"contentType": detected.String()})
	}

	object := path.Join("quotes", vendorID.String(), uuid.NewString()+ext)
	url, err := s.store.Upload(ctx, object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attachment")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"vendor_id":    vendorID.String(),
		"object":       object,
		"content_type": contentType,
	}), "attachment stored")

	return &Result{AttachmentURL: url, ContentType: contentType, Size: int64(len(data))}, nil
}

func match(detected *mimetype.MIME) (string, string) {
	for contentType, ext := range allowed {
		if detected.Is(contentType) {
			return contentType, ext
		}
	}
	return "", ""
}
