// Package bot implements the Telegram transport around the conversion
// pipeline: it receives video messages, materializes the file into a job
// workspace, runs the pipeline and replies with the produced GIF. All
// conversion policy lives in the pipeline; the bot only translates between
// Telegram updates and pipeline calls.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/convert"
	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/storage"
)

// outputFileName is the name the delivered GIF carries in the chat.
const outputFileName = "converted.gif"

// Bot wires Telegram updates to the conversion pipeline.
type Bot struct {
	api      *tgbotapi.BotAPI
	pipeline *convert.Pipeline
	store    storage.Storage
	logger   *slog.Logger
	client   *http.Client
	// sem bounds the number of conversions running at once.
	sem chan struct{}
	// wg tracks in-flight conversions so Run can drain them on shutdown;
	// a job killed mid-flight would skip its deferred workspace release.
	wg sync.WaitGroup
}

// Option is a function that configures a Bot instance.
type Option func(*Bot)

// WithMaxConcurrentJobs bounds how many conversions may run concurrently.
func WithMaxConcurrentJobs(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.sem = make(chan struct{}, n)
		}
	}
}

// WithHTTPClient overrides the HTTP client used to download Telegram files.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Bot) {
		if client != nil {
			b.client = client
		}
	}
}

// New creates a Bot around an authorized Telegram API client.
func New(api *tgbotapi.BotAPI, pipeline *convert.Pipeline, store storage.Storage, logger *slog.Logger, opts ...Option) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		api:      api,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
		client:   http.DefaultClient,
		sem:      make(chan struct{}, 3),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls Telegram for updates until ctx is cancelled. Each media message
// is handled on its own goroutine, bounded by the concurrency semaphore.
// After the poll loop stops, Run blocks until every in-flight conversion
// has finished and released its workspace.
func (b *Bot) Run(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)

	b.logger.Info("bot polling started",
		slog.String("username", b.api.Self.UserName),
	)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot polling stopped, draining in-flight jobs")
			b.wg.Wait()
			b.logger.Info("in-flight jobs drained")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	fileID, fileSize, ok := incomingVideo(msg)
	if !ok {
		if msg.Document != nil {
			b.reply(msg.Chat.ID, msgNotAVideo)
		}
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		select {
		case b.sem <- struct{}{}:
			defer func() { <-b.sem }()
		case <-ctx.Done():
			return
		}
		b.processVideo(ctx, msg, fileID, fileSize)
	}()
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, msgStart)
	case "help":
		b.reply(msg.Chat.ID, msgHelp)
	}
}

// incomingVideo extracts the file reference from a video message or a
// document whose MIME type declares video content.
func incomingVideo(msg *tgbotapi.Message) (fileID string, fileSize int64, ok bool) {
	if msg.Video != nil {
		return msg.Video.FileID, int64(msg.Video.FileSize), true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "video/") {
		return msg.Document.FileID, int64(msg.Document.FileSize), true
	}
	return "", 0, false
}

// processVideo runs one conversion job end to end: workspace acquisition,
// download, pipeline, delivery. The deferred workspace release is the
// job-level cleanup guarantee; it runs on success, on every error and on
// panic, so no job artifact survives its terminal outcome.
func (b *Bot) processVideo(ctx context.Context, msg *tgbotapi.Message, fileID string, fileSize int64) {
	log := b.logger.With(
		slog.Int64("chat_id", msg.Chat.ID),
		slog.String("file_id", fileID),
	)

	notice := b.reply(msg.Chat.ID, msgProcessing)

	ws, err := b.store.NewWorkspace(uuid.NewString())
	if err != nil {
		log.Error("workspace acquisition failed", slog.String("error", err.Error()))
		b.editNotice(msg.Chat.ID, notice, msgInternalError)
		return
	}
	defer func() {
		if err := ws.Release(); err != nil {
			cleanupErr := &convert.CleanupError{Dir: ws.Dir(), Err: err}
			log.Error("workspace cleanup failed", slog.String("error", cleanupErr.Error()))
		}
	}()

	srcPath := ws.Path("source.bin")
	downloaded, err := b.download(ctx, fileID, srcPath)
	if err != nil {
		log.Error("source download failed", slog.String("error", err.Error()))
		b.editNotice(msg.Chat.ID, notice, msgDownloadFailed)
		return
	}
	if fileSize <= 0 {
		fileSize = downloaded
	}

	result, err := b.pipeline.Convert(ctx, ws, convert.Source{Path: srcPath, SizeBytes: fileSize})
	if err != nil {
		b.editNotice(msg.Chat.ID, notice, userMessage(err))
		return
	}

	b.archiveResult(ctx, log, result)

	if err := b.sendGIF(msg, result.OutputPath); err != nil {
		log.Error("gif delivery failed", slog.String("error", err.Error()))
		b.editNotice(msg.Chat.ID, notice, msgInternalError)
		return
	}

	b.deleteNotice(msg.Chat.ID, notice)
}

// download fetches the Telegram file behind fileID into dest and returns the
// number of bytes written.
func (b *Bot) download(ctx context.Context, fileID, dest string) (int64, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest) // #nosec G304 - dest is inside the job workspace
	if err != nil {
		return 0, fmt.Errorf("create source file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("write source file: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close source file: %w", err)
	}

	return written, nil
}

// archiveResult uploads the artifact to the configured archive, if any. The
// archive is best effort and never affects delivery.
func (b *Bot) archiveResult(ctx context.Context, log *slog.Logger, result *convert.Result) {
	f, err := os.Open(result.OutputPath) // #nosec G304 - path produced by the pipeline
	if err != nil {
		log.Warn("archive skipped: cannot open artifact", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = f.Close() }()

	url, err := b.store.Archive(ctx, "gifs/"+result.JobID+".gif", f)
	if err != nil {
		if !errors.Is(err, storage.ErrArchiveNotConfigured) {
			log.Warn("archive upload failed", slog.String("error", err.Error()))
		}
		return
	}
	log.Info("artifact archived", slog.String("url", url))
}

// sendGIF replies with the artifact as a named document.
func (b *Bot) sendGIF(msg *tgbotapi.Message, path string) error {
	f, err := os.Open(path) // #nosec G304 - path produced by the pipeline
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileReader{
		Name:   outputFileName,
		Reader: f,
	})
	doc.Caption = msgCaption
	doc.ReplyToMessageID = msg.MessageID

	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// reply sends a plain text message and returns its ID, or 0 on failure.
func (b *Bot) reply(chatID int64, text string) int {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		b.logger.Warn("reply failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) editNotice(chatID int64, messageID int, text string) {
	if messageID == 0 {
		b.reply(chatID, text)
		return
	}
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		b.logger.Warn("notice edit failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) deleteNotice(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Warn("notice delete failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
