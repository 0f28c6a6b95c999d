package service

import (
	"context"
	"errors"
	"image"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/tidechat/tide-api/internal/observability"
	"github.com/tidechat/tide-api/pkg/mediaprobe"
	"github.com/tidechat/tide-api/pkg/storage"
)

// Offset into a video at which the representative thumbnail frame is taken.
const videoFrameOffset = time.Second

// ThumbnailOptions bounds a single ingestion run.
type ThumbnailOptions struct {
	Width      int
	Height     int
	AllowVideo bool
	AllowAudio bool
}

// Attachment is the immutable result of a completed ingestion. It is computed
// before any database transaction opens so transaction retries never re-run
// the external side effects.
type Attachment struct {
	FileURL       string
	ThumbnailURL  string
	FileSize      int64
	FileType      string
	MediaWidth    int
	MediaHeight   int
	MediaDuration float64
}

// MediaIngestor turns an uploaded object into a tokenized URL plus derivative.
type MediaIngestor interface {
	Ingest(ctx context.Context, storagePath string, opts ThumbnailOptions) (Attachment, error)
}

type mediaService struct {
	bucket   storage.Bucket
	prober   *mediaprobe.Prober
	maxBytes int64
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewMediaService constructs the media ingestion pipeline.
func NewMediaService(bucket storage.Bucket, prober *mediaprobe.Prober, maxSizeMB int64, logger zerolog.Logger) MediaIngestor {
	if maxSizeMB <= 0 {
		maxSizeMB = 300
	}

	return &mediaService{
		bucket:   bucket,
		prober:   prober,
		maxBytes: maxSizeMB * 1024 * 1024,
		logger:   logger.With().Str("component", "media_service").Logger(),
		tracer:   otel.Tracer("github.com/tidechat/tide-api/internal/service/media"),
	}
}

func (s *mediaService) Ingest(ctx context.Context, storagePath string, opts ThumbnailOptions) (Attachment, error) {
	if storagePath == "" {
		return Attachment{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "media.ingest", trace.WithAttributes(
		attribute.String("media.path", storagePath),
		attribute.Int("media.target_width", opts.Width),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.MediaIngestLatency().Observe(time.Since(start).Seconds())
	}()

	info, err := s.bucket.Stat(ctx, storagePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		// A dangling reference is treated as "no media".
		return Attachment{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return Attachment{}, upstream(err, "Could not read the uploaded file.")
	}

	attachment := Attachment{
		FileURL:  s.bucket.DownloadURL(storagePath, info.DownloadToken),
		FileSize: info.Size,
		FileType: info.ContentType,
	}

	if info.Size > s.maxBytes {
		observability.MediaRejected().WithLabelValues("size").Inc()
		return Attachment{}, s.reject(ctx, storagePath, invalidArgument("File is too large."))
	}

	tmpDir, err := os.MkdirTemp("", "tide-ingest-*")
	if err != nil {
		span.RecordError(err)
		return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not prepare the media workspace."))
	}
	defer os.RemoveAll(tmpDir)

	contentType := info.ContentType
	originalFile := filepath.Join(tmpDir, filepath.Base(storagePath))
	downloaded := false

	if contentType == "" || contentType == "application/octet-stream" {
		if err := s.bucket.Download(ctx, storagePath, originalFile); err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not download the uploaded file."))
		}
		downloaded = true
		if detected, err := mimetype.DetectFile(originalFile); err == nil {
			contentType = detected.String()
			attachment.FileType = contentType
		}
	}

	kind := mediaKind(contentType)

	if kind == "video" && !opts.AllowVideo {
		observability.MediaRejected().WithLabelValues("type").Inc()
		return Attachment{}, s.reject(ctx, storagePath, invalidArgument("Video file is not allowed."))
	}
	if kind == "audio" && !opts.AllowAudio {
		observability.MediaRejected().WithLabelValues("type").Inc()
		return Attachment{}, s.reject(ctx, storagePath, invalidArgument("Audio file is not allowed."))
	}
	if kind == "other" {
		// Unrecognized payloads pass through without a derivative.
		return attachment, nil
	}

	if !downloaded {
		if err := s.bucket.Download(ctx, storagePath, originalFile); err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not download the uploaded file."))
		}
	}

	thumbnailFile := filepath.Join(tmpDir, derivativeBase(storagePath)+"_thumbnail.jpeg")

	switch kind {
	case "image":
		width, height, err := imageDimensions(originalFile)
		if err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not decode the image."))
		}
		attachment.MediaWidth = width
		attachment.MediaHeight = height

		if width <= opts.Width {
			return attachment, nil
		}

		if err := s.renderThumbnail(originalFile, thumbnailFile, opts); err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, err)
		}

	case "video":
		stream, err := s.prober.Probe(ctx, originalFile)
		if err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not probe the video."))
		}
		attachment.MediaWidth = stream.Width
		attachment.MediaHeight = stream.Height
		attachment.MediaDuration = stream.Duration

		frameFile := filepath.Join(tmpDir, derivativeBase(storagePath)+"_frame.png")
		if err := s.prober.ExtractFrame(ctx, originalFile, frameFile, videoFrameOffset); err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not extract a video frame."))
		}
		if err := s.renderThumbnail(frameFile, thumbnailFile, opts); err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, err)
		}

	case "audio":
		stream, err := s.prober.Probe(ctx, originalFile)
		if err != nil {
			span.RecordError(err)
			return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not probe the audio."))
		}
		attachment.MediaDuration = stream.Duration
		return attachment, nil
	}

	thumbnailPath := path.Join(path.Dir(storagePath), derivativeBase(storagePath)+"_thumbnail.jpeg")
	token := uuid.NewString()
	if err := s.bucket.Upload(ctx, thumbnailPath, thumbnailFile, "image/jpeg", token); err != nil {
		observability.MediaRejected().WithLabelValues("upload").Inc()
		span.RecordError(err)
		return Attachment{}, s.reject(ctx, storagePath, upstream(err, "Could not upload the thumbnail."))
	}

	attachment.ThumbnailURL = s.bucket.DownloadURL(thumbnailPath, token)
	observability.MediaIngested().WithLabelValues(kind).Inc()

	return attachment, nil
}

// renderThumbnail resizes source into a JPEG derivative. A zero height keeps
// the aspect ratio; a fixed box crops to cover it.
func (s *mediaService) renderThumbnail(source, destination string, opts ThumbnailOptions) error {
	img, err := imaging.Open(source)
	if err != nil {
		return upstream(err, "Could not decode the image.")
	}

	var thumb image.Image
	if opts.Height > 0 {
		thumb = imaging.Fill(img, opts.Width, opts.Height, imaging.Center, imaging.Lanczos)
	} else {
		thumb = imaging.Resize(img, opts.Width, 0, imaging.Lanczos)
	}

	if err := imaging.Save(thumb, destination, imaging.JPEGQuality(85)); err != nil {
		observability.MediaRejected().WithLabelValues("encode").Inc()
		return upstream(err, "Could not encode the thumbnail.")
	}
	return nil
}

// reject deletes the accepted original so a failed ingestion leaves no
// orphaned, unreferenced asset behind, then returns the causing error.
func (s *mediaService) reject(ctx context.Context, storagePath string, cause error) error {
	if err := s.bucket.Delete(ctx, storagePath); err != nil {
		s.logger.Warn().Err(err).Str("path", storagePath).Msg("failed to delete rejected original")
	}
	return cause
}

// DeleteDerivative removes an uploaded thumbnail whose owning transaction
// failed after ingestion completed.
func DeleteDerivative(ctx context.Context, bucket storage.Bucket, thumbnailURL string, logger zerolog.Logger) {
	if thumbnailURL == "" || bucket == nil {
		return
	}
	derivativePath := storagePathFromURL(thumbnailURL)
	if derivativePath == "" {
		return
	}
	if err := bucket.Delete(ctx, derivativePath); err != nil {
		logger.Warn().Err(err).Str("path", derivativePath).Msg("failed to delete orphaned derivative")
	}
}

func mediaKind(contentType string) string {
	prefix := strings.SplitN(strings.ToLower(contentType), "/", 2)[0]
	switch prefix {
	case "image", "video", "audio":
		return prefix
	default:
		return "other"
	}
}

func imageDimensions(file string) (int, int, error) {
	handle, err := os.Open(file)
	if err != nil {
		return 0, 0, err
	}
	defer handle.Close()

	cfg, _, err := image.DecodeConfig(handle)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// derivativeBase strips the extension and the client-side upload suffixes so
// sibling derivatives get a stable name.
func derivativeBase(storagePath string) string {
	base := strings.TrimSuffix(path.Base(storagePath), path.Ext(storagePath))
	base = strings.ReplaceAll(base, "_photo", "")
	base = strings.ReplaceAll(base, "_file", "")
	return base
}

// storagePathFromURL recovers the object path embedded in a persistent URL.
func storagePathFromURL(rawURL string) string {
	trimmed := rawURL
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	idx := strings.Index(trimmed, ".amazonaws.com/")
	if idx >= 0 {
		escaped := trimmed[idx+len(".amazonaws.com/"):]
		if unescaped, err := url.PathUnescape(escaped); err == nil {
			return unescaped
		}
		return escaped
	}
	// Endpoint-style URL: <endpoint>/<bucket>/<path>.
	parts := strings.SplitN(trimmed, "://", 2)
	if len(parts) != 2 {
		return ""
	}
	segments := strings.SplitN(parts[1], "/", 3)
	if len(segments) < 3 {
		return ""
	}
	if unescaped, err := url.PathUnescape(segments[2]); err == nil {
		return unescaped
	}
	return segments[2]
}
