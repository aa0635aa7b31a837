// Package photostore сохраняет фотографии профиля, присланные как data URL,
// в S3-совместимое хранилище и возвращает их публичный адрес.
package photostore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/config"
)

// MaxSize максимальный размер фотографии после декодирования.
const MaxSize = 5 << 20

// Ошибки разбора фотографии.
var (
	ErrUnsupportedType = errors.New("unsupported photo type")
	ErrTooLarge        = errors.New("photo is too large")
	ErrMalformed       = errors.New("malformed photo data")
)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// ObjectPutter часть клиента S3, нужная для загрузки.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store загружает фотографии в бакет. Без клиента значение сохраняется как есть.
type Store struct {
	client     ObjectPutter
	bucket     string
	publicBase string
}

// New создаёт Store по настройкам S3. Если бакет не задан, загрузка отключена
// и Save возвращает исходную строку.
func New(ctx context.Context, cfg config.S3) (*Store, error) {
	const op = "photostore.New"
	if cfg.Bucket == "" {
		return &Store{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		publicBase = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return NewWithClient(client, cfg.Bucket, publicBase), nil
}

// NewWithClient создаёт Store с готовым клиентом.
func NewWithClient(client ObjectPutter, bucket, publicBase string) *Store {
	return &Store{client: client, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}
}

// Save загружает фотографию пользователя, если photo является data URL,
// и возвращает адрес, который нужно сохранить в профиле.
// Остальные строки (обычные ссылки, пустая строка) возвращаются без изменений.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, photo string) (string, error) {
	const op = "photostore.Save"
	if s.client == nil || !strings.HasPrefix(photo, "data:") {
		return photo, nil
	}

	contentType, data, err := decodeDataURL(photo)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := fmt.Sprintf("profile/%s/%s.%s", userID, uuid.NewString(), extensions[contentType])
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.publicBase + "/" + key, nil
}

func decodeDataURL(raw string) (string, []byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrMalformed
	}
	contentType := strings.ToLower(strings.TrimSuffix(meta, ";base64"))
	if _, ok := extensions[contentType]; !ok {
		return "", nil, ErrUnsupportedType
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxSize+3 {
		return "", nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(data) > MaxSize {
		return "", nil, ErrTooLarge
	}
	return contentType, data, nil
}
