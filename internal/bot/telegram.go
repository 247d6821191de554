package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient adapts *tgbotapi.BotAPI to the capability interfaces the
// gate and pipeline consume, so neither package imports the SDK.
type TelegramClient struct {
	bot  *tgbotapi.BotAPI
	http *http.Client
}

func NewTelegramClient(bot *tgbotapi.BotAPI) *TelegramClient {
	return &TelegramClient{bot: bot, http: http.DefaultClient}
}

func (c *TelegramClient) Reply(chatID int64, replyTo int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *TelegramClient) Edit(chatID int64, messageID int, text string) error {
	_, err := c.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (c *TelegramClient) SendVideo(chatID int64, replyTo int, path, caption string) error {
	v := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	v.Caption = caption
	v.ReplyToMessageID = replyTo
	_, err := c.bot.Send(v)
	return err
}

func (c *TelegramClient) SendPhoto(chatID int64, replyTo int, fileID, caption string) error {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	p.Caption = caption
	p.ReplyToMessageID = replyTo
	_, err := c.bot.Send(p)
	return err
}

// Download resolves a file_id through getFile and streams the blob into
// destDir. The local name is prefixed with the file's unique id so two
// concurrent runs cannot collide.
func (c *TelegramClient) Download(ctx context.Context, fileID, destDir string) (string, error) {
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getFile: %w", err)
	}

	name := filepath.Base(f.FilePath)
	if name == "." || name == "/" || name == "" {
		name = fileID
	}
	dest := filepath.Join(destDir, fmt.Sprintf("%s_%s", f.FileUniqueID, name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Link(c.bot.Token), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file download: unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return dest, err
	}
	if err := out.Close(); err != nil {
		return dest, err
	}
	return dest, nil
}

// IsMember asks Telegram whether userID participates in the channel.
// "left" and "kicked" are the definite not-a-participant answers; any API
// error is surfaced for the gate's fail-open handling.
func (c *TelegramClient) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: "@" + channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "left", "kicked":
		return false, nil
	}
	return true, nil
}
