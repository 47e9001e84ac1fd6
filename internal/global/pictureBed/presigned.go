package pictureBed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// defaultPresignTTL 直传地址有效期
const defaultPresignTTL = 10 * time.Minute

var ErrNotImage = errors.New("只允许上传图片")

type PresignedUploadRequest struct {
	Filename    string
	ContentType string        // 必须是 image/*
	TTL         time.Duration // 0 使用默认有效期
}

// PresignedUploadResponse 前端按 Method 和 Headers 直接 PUT 到 UploadURL
type PresignedUploadResponse struct {
	UploadURL string            `json:"upload_url"`
	FileKey   string            `json:"file_key"`
	FileURL   string            `json:"file_url"`
	ExpiresAt time.Time         `json:"expires_at"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

func (req PresignedUploadRequest) validate() error {
	if req.Filename == "" {
		return errors.New("文件名不能为空")
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return ErrNotImage
	}
	return nil
}

// GeneratePresignedUploadURL 生成头像直传地址，上传完成后由调用方把 FileURL 写入资料
func (pb *PictureBed) GeneratePresignedUploadURL(ctx context.Context, req PresignedUploadRequest) (*PresignedUploadResponse, error) {
	if err := pb.InitS3(ctx); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	key := pb.objectKey(req.Filename)
	signed, err := s3.NewPresignClient(pb.s3Client).PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(pb.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("生成预签名 URL 失败: %w", err)
	}

	headers := map[string]string{"Content-Type": req.ContentType}
	for name, values := range signed.SignedHeader {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return &PresignedUploadResponse{
		UploadURL: signed.URL,
		FileKey:   key,
		FileURL:   pb.fileURL(key),
		ExpiresAt: time.Now().Add(ttl),
		Method:    signed.Method,
		Headers:   headers,
	}, nil
}
