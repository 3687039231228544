package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/youtube/v3"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

type fakePutter struct {
	key         string
	bucket      string
	body        string
	contentType string
	err         error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func writeVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestS3PublishUploadsUnderJobPrefix(t *testing.T) {
	putter := &fakePutter{}
	cfg := config.Publish{Bucket: "reels", Prefix: "/videos/"}
	publisher := NewS3WithClient(putter, cfg, logging.NewNop())
	video := writeVideo(t, "My Story.mp4")

	url, err := publisher.Publish(context.Background(), "job-1", video)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if putter.bucket != "reels" || putter.key != "videos/job-1/My Story.mp4" {
		t.Fatalf("unexpected object %s/%s", putter.bucket, putter.key)
	}
	if putter.body != "video-bytes" || putter.contentType != "video/mp4" {
		t.Fatalf("unexpected upload body=%q type=%q", putter.body, putter.contentType)
	}
	if url != "s3://reels/videos/job-1/My Story.mp4" {
		t.Fatalf("url = %q", url)
	}
}

func TestS3PublishPresignsWhenConfigured(t *testing.T) {
	putter := &fakePutter{}
	cfg := config.Publish{Bucket: "reels", PresignMinutes: 30}
	var gotExpiry time.Duration
	publisher := NewS3WithClient(putter, cfg, logging.NewNop()).WithPresigner(
		func(_ context.Context, bucket, key string, expires time.Duration) (string, error) {
			gotExpiry = expires
			return "https://signed.example/" + bucket + "/" + key, nil
		})

	url, err := publisher.Publish(context.Background(), "job-2", writeVideo(t, "clip.mov"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://signed.example/reels/job-2/clip.mov" {
		t.Fatalf("url = %q", url)
	}
	if gotExpiry != 30*time.Minute {
		t.Fatalf("expiry = %s", gotExpiry)
	}
	if putter.contentType != "video/quicktime" {
		t.Fatalf("content type = %q", putter.contentType)
	}
}

func TestS3PublishClassifiesFailures(t *testing.T) {
	publisher := NewS3WithClient(&fakePutter{err: errors.New("access denied")}, config.Publish{Bucket: "reels"}, logging.NewNop())

	_, err := publisher.Publish(context.Background(), "job-3", writeVideo(t, "a.mp4"))
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}

	_, err = publisher.Publish(context.Background(), "job-3", filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, services.ErrFileSystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}

func TestYouTubePublishBuildsShortsURL(t *testing.T) {
	var got *youtube.Video
	var media string
	insert := func(_ context.Context, video *youtube.Video, r io.Reader) (string, error) {
		got = video
		data, _ := io.ReadAll(r)
		media = string(data)
		return "abc123", nil
	}
	cfg := config.Publish{YouTubePrivacy: "unlisted", YouTubeCategory: "24"}
	publisher := NewYouTubeWithInserter(insert, cfg, logging.NewNop())

	url, err := publisher.Publish(context.Background(), "job-4", writeVideo(t, "The Neighbor.mp4"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://youtube.com/shorts/abc123" {
		t.Fatalf("url = %q", url)
	}
	if got.Snippet.Title != "The Neighbor" || got.Status.PrivacyStatus != "unlisted" || got.Snippet.CategoryId != "24" {
		t.Fatalf("unexpected video resource %+v %+v", got.Snippet, got.Status)
	}
	if media != "video-bytes" {
		t.Fatalf("media = %q", media)
	}
}

func TestYouTubePublishRejectsEmptyID(t *testing.T) {
	insert := func(context.Context, *youtube.Video, io.Reader) (string, error) { return " ", nil }
	publisher := NewYouTubeWithInserter(insert, config.Publish{YouTubePrivacy: "private"}, logging.NewNop())
	if _, err := publisher.Publish(context.Background(), "job-5", writeVideo(t, "a.mp4")); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestVideoTitleTruncates(t *testing.T) {
	long := strings.Repeat("word ", 40) + ".mp4"
	title := VideoTitle(long)
	if len([]rune(title)) > maxYouTubeTitle || !strings.HasSuffix(title, "...") {
		t.Fatalf("title not truncated: %q", title)
	}
	if VideoTitle("/out/.mp4") != "Untitled story" {
		t.Fatalf("empty title fallback = %q", VideoTitle("/out/.mp4"))
	}
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	publisher, err := New(context.Background(), config.Publish{}, logging.NewNop())
	if err != nil || publisher != nil {
		t.Fatalf("expected nil publisher, got %v %v", publisher, err)
	}
}
