package pictureBed

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxImageSize 头像大小上限
const MaxImageSize = 5 << 20

// SaveImage 经后端中转上传图片并返回访问 URL
func (pb *PictureBed) SaveImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxImageSize {
		return "", fmt.Errorf("图片不能超过 %d MB", MaxImageSize>>20)
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}
	if err := pb.InitS3(ctx); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := pb.objectKey(fileHeader.Filename)
	_, err = pb.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(pb.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	}, func(u *manager.Uploader) {
		u.PartSize = manager.MinUploadPartSize
	})
	if err != nil {
		return "", fmt.Errorf("上传图片失败: %w", err)
	}
	return pb.fileURL(key), nil
}
