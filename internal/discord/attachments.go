package discord

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const attachmentLimit = 8 << 20 // Discord free-tier attachment ceiling

var attachmentClient = &http.Client{Timeout: 30 * time.Second}

// collectAttachments folds message attachments into the turn: text files are
// appended to the message content, images become base64 payloads for the
// oracle. Fetch failures degrade to the bare text message.
func (b *Bot) collectAttachments(ctx context.Context, content string, m *discordgo.MessageCreate) (string, []string) {
	images := []string{}
	for _, att := range m.Attachments {
		data, err := fetchAttachment(ctx, att.URL)
		if err != nil {
			b.logger.Warn("attachment fetch failed",
				zap.String("filename", att.Filename),
				zap.Error(err))
			continue
		}
		if strings.HasSuffix(strings.ToLower(att.Filename), ".txt") {
			content = content + "\n\n" + string(data)
			continue
		}
		images = append(images, base64.StdEncoding.EncodeToString(data))
	}
	return content, images
}

func fetchAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := attachmentClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment status %d", res.StatusCode)
	}
	return io.ReadAll(io.LimitReader(res.Body, attachmentLimit))
}
