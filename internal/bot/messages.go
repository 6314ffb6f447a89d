package bot

import (
	"errors"

	"github.com/Bas4nt/telegram-video-to-gif-bot2/internal/convert"
)

// User-facing message texts.
const (
	msgStart = "👋 Hi! I'm a Video to GIF converter bot.\n\n" +
		"Just send me any video file and I'll convert it to GIF format!"

	msgHelp = "How to use this bot:\n\n" +
		"1. Send me any video file\n" +
		"2. Wait for processing\n" +
		"3. Receive your GIF!\n\n" +
		"Note: For best results, send videos less than 10MB."

	msgProcessing = "Processing your video to GIF..."
	msgCaption    = "Here's your GIF!"
	msgNotAVideo  = "Please send a video file to convert to GIF."

	msgTooLarge       = "Sorry, that video is too large for me to convert. Please send a smaller file."
	msgUnsupported    = "Sorry, I don't recognize that file as a video. Please send a common video format like MP4."
	msgUnreadable     = "Sorry, I couldn't read that file. Please try sending it again."
	msgCorrupt        = "Sorry, that video looks damaged and I couldn't read its contents."
	msgNoVideo        = "Sorry, I couldn't find any video content in that file."
	msgTimeout        = "Sorry, that video is too long or complex to convert in time. Please try a shorter clip."
	msgTranscodeFail  = "Sorry, I couldn't convert your video to GIF. Please try again with a different video."
	msgSizeExceeded   = "Sorry, I couldn't shrink the GIF enough to send it. Please try a shorter or smaller video."
	msgDownloadFailed = "Sorry, I couldn't download your video from Telegram. Please try again."
	msgInternalError  = "Sorry, something went wrong on my side. Please try again."
)

// userMessage translates a pipeline error into the text shown to the user.
// The pipeline returns structured failures only; anything unrecognized maps
// to the generic internal error.
func userMessage(err error) string {
	var validationErr *convert.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Kind {
		case convert.ValidationTooLarge:
			return msgTooLarge
		case convert.ValidationUnsupportedFormat:
			return msgUnsupported
		default:
			return msgUnreadable
		}
	}

	var probeErr *convert.ProbeError
	if errors.As(err, &probeErr) {
		if probeErr.Kind == convert.ProbeNoVideoStream {
			return msgNoVideo
		}
		return msgCorrupt
	}

	var transcodeErr *convert.TranscodeError
	if errors.As(err, &transcodeErr) {
		if transcodeErr.Kind == convert.TranscodeTimeout {
			return msgTimeout
		}
		return msgTranscodeFail
	}

	var optimizeErr *convert.OptimizeError
	if errors.As(err, &optimizeErr) {
		return msgSizeExceeded
	}

	return msgInternalError
}
