// Package profile serves the current user's profile and avatar.
package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/user"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const sniffLen = 512

type userStore interface {
	SetAvatar(ctx context.Context, userID int64, objectKey string) (user.User, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Profile is the public view of the current user.
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Confirmed bool      `json:"confirmed"`
	AvatarURL *string   `json:"avatar"`
}

// Service manages profile reads and avatar uploads.
type Service struct {
	users        userStore
	tx           transactor
	objects      objectStore
	objectBucket string
	presignTTL   time.Duration
	maxBytes     int64
	log          *zap.Logger
}

// NewService constructs a profile service.
func NewService(users userStore, tx transactor, objects objectStore, objectBucket string, presignTTL time.Duration, maxBytes int64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:        users,
		tx:           tx,
		objects:      objects,
		objectBucket: objectBucket,
		presignTTL:   presignTTL,
		maxBytes:     maxBytes,
		log:          log,
	}
}

// Me renders u with a presigned avatar link when one is stored.
func (s *Service) Me(ctx context.Context, u user.User) (Profile, error) {
	p := Profile{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt.UTC(), Confirmed: u.Confirmed}
	if u.Avatar == nil || *u.Avatar == "" {
		return p, nil
	}

	link, err := s.objects.PresignedGetObject(ctx, s.objectBucket, *u.Avatar, s.presignTTL, url.Values{})
	if err != nil {
		return Profile{}, fmt.Errorf("presign avatar: %w", err)
	}
	str := link.String()
	p.AvatarURL = &str
	return p, nil
}

// UploadAvatar stores a new avatar image and points the user at it.
// The previous object is removed once the new key is committed.
func (s *Service) UploadAvatar(ctx context.Context, u user.User, fileHeader *multipart.FileHeader) (Profile, error) {
	if fileHeader == nil {
		return Profile{}, ErrMissingFile
	}
	if fileHeader.Size > s.maxBytes {
		return Profile{}, ErrAvatarTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Profile{}, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Profile{}, fmt.Errorf("read upload file: %w", err)
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return Profile{}, ErrUnsupportedImage
	}

	objectName := fmt.Sprintf("avatars/%d/%s", u.ID, uuid.NewString())
	body := io.MultiReader(bytes.NewReader(head), file)
	if _, err := s.objects.PutObject(ctx, s.objectBucket, objectName, body, fileHeader.Size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return Profile{}, fmt.Errorf("store avatar: %w", err)
	}

	var updated user.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.users.SetAvatar(ctx, u.ID, objectName)
		return err
	})
	if err != nil {
		s.removeObject(ctx, objectName)
		return Profile{}, fmt.Errorf("save avatar: %w", err)
	}

	if u.Avatar != nil && *u.Avatar != "" && *u.Avatar != objectName {
		s.removeObject(ctx, *u.Avatar)
	}
	return s.Me(ctx, updated)
}

func (s *Service) removeObject(ctx context.Context, objectName string) {
	if err := s.objects.RemoveObject(context.WithoutCancel(ctx), s.objectBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		logger.FromContext(ctx, s.log).Warn("avatar object not removed", zap.String("object", objectName), zap.Error(err))
	}
}
