package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

const maxYouTubeTitle = 100

// VideoInserter uploads a video resource with its media and returns the new
// video ID.
type VideoInserter func(ctx context.Context, video *youtube.Video, media io.Reader) (string, error)

// YouTubePublisher uploads finished videos as Shorts.
type YouTubePublisher struct {
	insert   VideoInserter
	privacy  string
	category string
	logger   *slog.Logger
}

// NewYouTube authenticates with a service account key file.
func NewYouTube(ctx context.Context, cfg config.Publish, logger *slog.Logger) (*YouTubePublisher, error) {
	keyPath, err := config.ExpandPath(cfg.YouTubeServiceAccount)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "read service account", keyPath, err)
	}
	jwt, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "parse service account", keyPath, err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "publish", "create youtube service", "", err)
	}
	insert := func(ctx context.Context, video *youtube.Video, media io.Reader) (string, error) {
		resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(media).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return resp.Id, nil
	}
	return NewYouTubeWithInserter(insert, cfg, logger), nil
}

// NewYouTubeWithInserter builds a publisher around a custom upload function.
func NewYouTubeWithInserter(insert VideoInserter, cfg config.Publish, logger *slog.Logger) *YouTubePublisher {
	return &YouTubePublisher{
		insert:   insert,
		privacy:  cfg.YouTubePrivacy,
		category: cfg.YouTubeCategory,
		logger:   logging.NewComponentLogger(logger, "publish"),
	}
}

// Publish uploads the file and returns its Shorts URL. The video title is
// taken from the output file name, which is the story title.
func (p *YouTubePublisher) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "publish", "open output", localPath, err)
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:      VideoTitle(localPath),
			Tags:       []string{"shorts", "story"},
			CategoryId: p.category,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           p.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}
	id, err := p.insert(ctx, video, file)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "publish", "youtube upload", jobID, err)
	}
	if strings.TrimSpace(id) == "" {
		return "", services.Wrap(services.ErrExternalService, "publish", "youtube upload", "empty video id", nil)
	}
	url := fmt.Sprintf("https://youtube.com/shorts/%s", id)
	p.logger.Info("video uploaded",
		logging.String(logging.FieldEventType, "publish_uploaded"),
		logging.String("video_id", id),
		logging.String("privacy", p.privacy),
	)
	return url, nil
}

// VideoTitle derives an upload title from an output file name, truncated to
// the platform limit.
func VideoTitle(localPath string) string {
	base := filepath.Base(localPath)
	title := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if title == "" {
		title = "Untitled story"
	}
	if utf8.RuneCountInString(title) <= maxYouTubeTitle {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxYouTubeTitle-3])) + "..."
}
