package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

// ObjectUploader is satisfied by *manager.Uploader
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ObjectRemover is satisfied by *s3.Client
type ObjectRemover interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

const maxStoredNameLength = 200

type S3Service struct {
	uploader    ObjectUploader
	remover     ObjectRemover
	bucket      string
	constraints types.AttachmentConstraints
}

func NewS3Service(uploader ObjectUploader, remover ObjectRemover, bucket string, constraints types.AttachmentConstraints) *S3Service {
	return &S3Service{
		uploader:    uploader,
		remover:     remover,
		bucket:      bucket,
		constraints: constraints,
	}
}

// ValidateAttachment runs every check UploadAttachment applies before storing,
// returning the detected mime type and the sanitized stored name.
// Every failure is reported as types.ErrUploadFailed.
func (s3s *S3Service) ValidateAttachment(attachment *types.Attachment) (string, string, error) {
	if attachment == nil || len(attachment.Content) == 0 {
		return "", "", fmt.Errorf("%w: empty attachment", types.ErrUploadFailed)
	}
	size := int64(len(attachment.Content))
	if s3s.constraints.MaxSize > 0 && size > s3s.constraints.MaxSize {
		return "", "", fmt.Errorf("%w: %s is %d bytes, the limit is %d bytes", types.ErrUploadFailed, attachment.Filename, size, s3s.constraints.MaxSize)
	}

	name := SanitizeFilename(attachment.Filename)
	detected := mimetype.Detect(attachment.Content)
	mimeType, _, _ := strings.Cut(detected.String(), ";")

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if _, denied := types.DENIED_EXTENSIONS[ext]; denied {
		return "", "", fmt.Errorf("%w: file type .%s is not allowed", types.ErrUploadFailed, ext)
	}
	if _, denied := types.DENIED_EXTENSIONS[strings.TrimPrefix(detected.Extension(), ".")]; denied {
		return "", "", fmt.Errorf("%w: content of %s is not allowed", types.ErrUploadFailed, name)
	}
	if !s3s.allowed(mimeType) {
		return "", "", fmt.Errorf("%w: content type %s is not allowed", types.ErrUploadFailed, mimeType)
	}
	return mimeType, name, nil
}

// UploadAttachment validates the attachment and stores it under <sender>/<uuid>/<name>.
// Every failure is reported as types.ErrUploadFailed.
func (s3s *S3Service) UploadAttachment(ctx context.Context, sender string, attachment *types.Attachment) (*types.AttachmentRef, error) {
	mimeType, name, err := s3s.ValidateAttachment(attachment)
	if err != nil {
		return nil, err
	}
	size := int64(len(attachment.Content))

	key := fmt.Sprintf("%s/%s/%s", sender, uuid.NewString(), name)
	_, uErr := s3s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s3s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(attachment.Content),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(size),
	})
	if uErr != nil {
		level.Error(global.Logger).Log("msg", "failed to upload attachment", "key", key, "err", describeS3Error(uErr))
		return nil, fmt.Errorf("%w: %s", types.ErrUploadFailed, describeS3Error(uErr))
	}
	return &types.AttachmentRef{
		StoragePath:  fmt.Sprintf("s3://%s/%s", s3s.bucket, key),
		OriginalName: attachment.Filename,
		MimeType:     mimeType,
		Size:         size,
	}, nil
}

// DeleteAttachment removes an uploaded attachment (storagePath as returned by UploadAttachment)
func (s3s *S3Service) DeleteAttachment(ctx context.Context, storagePath string) error {
	key, ok := strings.CutPrefix(storagePath, "s3://"+s3s.bucket+"/")
	if !ok || key == "" {
		return types.ErrBadRequest
	}
	_, err := s3s.remover.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3Types.NoSuchKey
		var apiErr smithy.APIError
		if errors.As(err, &noKey) {
			level.Warn(global.Logger).Log("msg", "object does not exist", "objectKey", key)
			return types.ErrNotFound
		} else if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied" {
			level.Warn(global.Logger).Log("msg", "access denied", "objectKey", key)
			return types.ErrNotAuthorized
		}
		level.Error(global.Logger).Log("msg", "error deleting object", "objectKey", key, "err", err)
		return err
	}
	return nil
}

func (s3s *S3Service) allowed(mimeType string) bool {
	if len(s3s.constraints.AllowedTypes) == 0 {
		return true
	}
	for _, t := range s3s.constraints.AllowedTypes {
		if strings.HasSuffix(t, "/") {
			if strings.HasPrefix(mimeType, t) {
				return true
			}
		} else if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

func describeS3Error(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

// SanitizeFilename keeps the base name with letters, digits, dot, dash and underscore
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := strings.TrimLeft(b.String(), ".")
	if len(sanitized) > maxStoredNameLength {
		sanitized = sanitized[len(sanitized)-maxStoredNameLength:]
	}
	if sanitized == "" || sanitized == "_" {
		return "attachment"
	}
	return sanitized
}
