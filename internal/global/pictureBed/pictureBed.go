package pictureBed

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	appconfig "meetup-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured 未配置对象存储
var ErrNotConfigured = errors.New("S3 bucket 未配置")

// PictureBed 基于 S3 兼容存储的图片床，保存用户头像
type PictureBed struct {
	Endpoint     string
	BaseURL      string
	Bucket       string
	Region       string
	Prefix       string
	UsePathStyle bool

	accessKey string
	secretKey string

	initOnce sync.Once
	initErr  error
	s3Client *s3.Client
	uploader *manager.Uploader
}

var Default *PictureBed

func Init() {
	Default = New(appconfig.Get().S3)
}

func New(cfg appconfig.S3) *PictureBed {
	return &PictureBed{
		Endpoint:     cfg.Endpoint,
		BaseURL:      cfg.BaseURL,
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Prefix:       cfg.Prefix,
		UsePathStyle: cfg.UsePathStyle,
		accessKey:    cfg.AccessKey,
		secretKey:    cfg.SecretAccessKey,
	}
}

// InitS3 懒加载 S3 客户端，只会初始化一次
func (pb *PictureBed) InitS3(ctx context.Context) error {
	pb.initOnce.Do(func() {
		if pb.Bucket == "" {
			pb.initErr = ErrNotConfigured
			return
		}

		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(pb.Region)}
		if pb.accessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(pb.accessKey, pb.secretKey, ""),
			))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			pb.initErr = fmt.Errorf("加载 S3 配置失败: %w", err)
			return
		}

		pb.s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if pb.Endpoint != "" {
				o.BaseEndpoint = aws.String(pb.Endpoint)
			}
			o.UsePathStyle = pb.UsePathStyle
		})
		pb.uploader = manager.NewUploader(pb.s3Client)
	})
	return pb.initErr
}

// objectKey 生成唯一的对象 key，保留原始扩展名
func (pb *PictureBed) objectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	key := path.Join(strings.Trim(pb.Prefix, "/"), uuid.NewString()+ext)
	return strings.TrimLeft(key, "/")
}

// fileURL 上传成功后的公开访问地址
func (pb *PictureBed) fileURL(key string) string {
	base := strings.TrimRight(pb.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(pb.Endpoint, "/")
	}
	if pb.BaseURL == "" && pb.UsePathStyle {
		return base + "/" + pb.Bucket + "/" + key
	}
	return base + "/" + key
}
