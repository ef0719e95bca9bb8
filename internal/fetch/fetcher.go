package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"soundscout/internal/config"
	"soundscout/internal/logging"
	"soundscout/internal/media"
)

// Normalizer converts a downloaded file into canonical mono PCM WAV.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
}

// Result carries a normalized artifact: the canonical WAV bytes, the decoded
// samples, and a descriptor for persistence.
type Result struct {
	WAV        []byte
	Audio      *media.Audio
	Descriptor media.Descriptor
}

// Fetcher acquires remote audio, normalizes it, and enforces size and
// duration ceilings. All intermediate files live in a per-fetch scratch
// directory that is removed when the fetch returns.
type Fetcher struct {
	cfg        config.Fetch
	workDir    string
	transport  Transport
	resolver   Resolver
	normalizer Normalizer
	logger     *slog.Logger
}

// Option adjusts fetcher construction, mainly for tests.
type Option func(*Fetcher)

// WithTransport overrides the direct-download transport.
func WithTransport(transport Transport) Option {
	return func(f *Fetcher) { f.transport = transport }
}

// WithResolver overrides the streaming-site resolver.
func WithResolver(resolver Resolver) Option {
	return func(f *Fetcher) { f.resolver = resolver }
}

// WithNormalizer overrides the ffmpeg normalization step.
func WithNormalizer(normalizer Normalizer) Option {
	return func(f *Fetcher) { f.normalizer = normalizer }
}

// New builds a fetcher from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		cfg:        cfg.Fetch,
		workDir:    cfg.Paths.WorkDir,
		transport:  NewHTTPTransport(cfg.Fetch.UserAgent),
		resolver:   NewYTDLPResolver(),
		normalizer: media.NewFFmpegNormalizer(cfg.FFmpegBinary(), cfg.Fetch.SampleRate),
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch acquires and normalizes one source reference. Failures carry one of
// the package sentinel errors so callers can classify them.
func (f *Fetcher) Fetch(ctx context.Context, rawSource string) (*Result, error) {
	source, err := media.ParseSource(rawSource)
	if err != nil {
		return nil, Wrap(ErrUnsupported, "parse", rawSource, err)
	}

	if timeout := time.Duration(f.cfg.Timeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	scratch, err := os.MkdirTemp(f.workDir, "fetch-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	rawPath := filepath.Join(scratch, "download")
	if err := f.acquire(ctx, source, rawPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(rawPath)
	if err != nil {
		return nil, Wrap(ErrUnreachable, "acquire", "no payload produced", err)
	}
	if f.cfg.MaxBytes > 0 && info.Size() > f.cfg.MaxBytes {
		return nil, Wrap(ErrTooLarge, "acquire", fmt.Sprintf("payload %d exceeds limit %d", info.Size(), f.cfg.MaxBytes), nil)
	}

	wavPath := filepath.Join(scratch, "normalized.wav")
	if err := f.normalizer.Normalize(ctx, rawPath, wavPath); err != nil {
		if ctx.Err() != nil {
			return nil, Wrap(ErrTimeout, "normalize", "deadline exceeded", ctx.Err())
		}
		return nil, Wrap(ErrUnsupported, "normalize", "payload is not decodable audio", err)
	}

	wav, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("read normalized audio: %w", err)
	}
	audio, err := media.DecodeWAV(wav)
	if err != nil {
		return nil, Wrap(ErrUnsupported, "decode", "normalized audio unreadable", err)
	}

	if max := f.cfg.MaxDurationSeconds; max > 0 && audio.Duration() > time.Duration(max)*time.Second {
		return nil, Wrap(ErrTooLarge, "decode",
			fmt.Sprintf("duration %.0fs exceeds limit %ds", audio.Duration().Seconds(), max), nil)
	}

	f.logger.Debug("source normalized",
		logging.String(logging.FieldSource, source.Raw),
		logging.Int64("size_bytes", int64(len(wav))),
		logging.Float64("duration_seconds", audio.Duration().Seconds()))

	return &Result{
		WAV:        wav,
		Audio:      audio,
		Descriptor: media.Describe(audio, int64(len(wav))),
	}, nil
}

// acquire downloads the raw payload, retrying transient transport failures
// with exponential backoff. Permanent failures return immediately.
func (f *Fetcher) acquire(ctx context.Context, source media.Source, destPath string) error {
	attempts := f.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	delays := retrySchedule(attempts, time.Duration(f.cfg.RetryBackoffMillis)*time.Millisecond)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		switch source.Kind {
		case media.SourceResolved:
			lastErr = f.resolver.Resolve(ctx, source.Raw, destPath)
		default:
			_, lastErr = f.transport.Download(ctx, source.Raw, destPath, f.cfg.MaxBytes)
		}
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == attempts {
			return lastErr
		}

		f.logger.Warn("fetch attempt failed, retrying",
			logging.String(logging.FieldSource, source.Raw),
			logging.Int("attempt", attempt),
			logging.Error(lastErr))

		select {
		case <-ctx.Done():
			return Wrap(ErrTimeout, "acquire", "deadline exceeded during backoff", ctx.Err())
		case <-time.After(delays[attempt-1]):
		}
	}
	return lastErr
}

// retrySchedule returns the delay before each retry, doubling from base on
// every subsequent attempt.
func retrySchedule(attempts int, base time.Duration) []time.Duration {
	if attempts < 2 {
		return nil
	}
	delays := make([]time.Duration, attempts-1)
	for i := range delays {
		delays[i] = base << i
	}
	return delays
}
