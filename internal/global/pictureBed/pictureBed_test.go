package pictureBed

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"meetup-backend/config"

	"github.com/stretchr/testify/require"
)

func newTestBed() *PictureBed {
	return New(config.S3{
		Endpoint:        "http://localhost:9000",
		Bucket:          "meetup",
		Region:          "us-east-1",
		AccessKey:       "minio",
		SecretAccessKey: "minio-secret",
		Prefix:          "/avatars/",
		UsePathStyle:    true,
	})
}

func TestGeneratePresignedUploadURL(t *testing.T) {
	pb := newTestBed()

	resp, err := pb.GeneratePresignedUploadURL(context.Background(), PresignedUploadRequest{
		Filename:    "Me.PNG",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(resp.FileKey, "avatars/"))
	require.True(t, strings.HasSuffix(resp.FileKey, ".png"))
	require.Equal(t, "http://localhost:9000/meetup/"+resp.FileKey, resp.FileURL)
	require.Equal(t, "PUT", resp.Method)
	require.Equal(t, "image/png", resp.Headers["Content-Type"])

	u, err := url.Parse(resp.UploadURL)
	require.NoError(t, err)
	require.Equal(t, "localhost:9000", u.Host)
	require.Equal(t, "/meetup/"+resp.FileKey, u.Path)
	require.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignRequiresBucket(t *testing.T) {
	pb := New(config.S3{Region: "us-east-1"})
	_, err := pb.GeneratePresignedUploadURL(context.Background(), PresignedUploadRequest{Filename: "a.png"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestPresignRejectsNonImage(t *testing.T) {
	pb := newTestBed()
	_, err := pb.GeneratePresignedUploadURL(context.Background(), PresignedUploadRequest{
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
	})
	require.ErrorIs(t, err, ErrNotImage)
}

func TestFileURLWithBaseURL(t *testing.T) {
	pb := newTestBed()
	pb.BaseURL = "https://cdn.example.com/"
	require.Equal(t, "https://cdn.example.com/avatars/x.png", pb.fileURL("avatars/x.png"))
}

func TestObjectKeysAreUnique(t *testing.T) {
	pb := newTestBed()
	require.NotEqual(t, pb.objectKey("a.jpg"), pb.objectKey("a.jpg"))
}
