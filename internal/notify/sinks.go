package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"payadmin/internal/logging"
	"payadmin/internal/types"
)

// ToastQueue buffers notices for the dashboard to render one at a time.
type ToastQueue struct {
	notices chan Notice
}

func NewToastQueue(size int) *ToastQueue {
	if size <= 0 {
		size = 32
	}
	return &ToastQueue{notices: make(chan Notice, size)}
}

func (q *ToastQueue) Method() types.NotificationMethod {
	return types.NotificationMethodToast
}

// Deliver drops the oldest queued toast when the queue is full.
func (q *ToastQueue) Deliver(ctx context.Context, notice Notice) error {
	for {
		select {
		case q.notices <- notice:
			return nil
		default:
		}
		select {
		case <-q.notices:
		default:
		}
	}
}

// Next blocks until a toast is queued or ctx is done.
func (q *ToastQueue) Next(ctx context.Context) (Notice, bool) {
	select {
	case notice := <-q.notices:
		return notice, true
	case <-ctx.Done():
		return Notice{}, false
	}
}

type logSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) Sink {
	if logger == nil {
		logger = logging.Nop()
	}
	return logSink{logger: logger}
}

func (logSink) Method() types.NotificationMethod {
	return types.NotificationMethodLog
}

func (s logSink) Deliver(ctx context.Context, notice Notice) error {
	fields := []logging.Field{
		logging.F("level", string(notice.Level)),
		logging.F("title", notice.Title),
		logging.F("message", notice.Message),
	}
	if notice.Source != "" {
		fields = append(fields, logging.F("source", notice.Source))
	}
	switch notice.Level {
	case types.NoticeError:
		s.logger.Error("notice", fields...)
	case types.NoticeWarning:
		s.logger.Warn("notice", fields...)
	default:
		s.logger.Info("notice", fields...)
	}
	return nil
}

type bellSink struct {
	out io.Writer
}

func NewBellSink(out io.Writer) Sink {
	if out == nil {
		out = os.Stdout
	}
	return bellSink{out: out}
}

func (bellSink) Method() types.NotificationMethod {
	return types.NotificationMethodBell
}

func (s bellSink) Deliver(ctx context.Context, notice Notice) error {
	_, err := fmt.Fprint(s.out, "\a")
	return err
}

type notifySendSink struct{}

func NewNotifySendSink() Sink {
	return notifySendSink{}
}

func (notifySendSink) Method() types.NotificationMethod {
	return types.NotificationMethodNotifySend
}

func (notifySendSink) Deliver(ctx context.Context, notice Notice) error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return err
	}
	urgency := "normal"
	if notice.Level == types.NoticeError {
		urgency = "critical"
	}
	title := strings.TrimSpace(notice.Title)
	if title == "" {
		title = "payadmin"
	}
	cmd := exec.CommandContext(ctx, "notify-send", "--app-name=payadmin", "--urgency="+urgency, title, notice.Message)
	return cmd.Run()
}

// TelegramSink posts notices to an ops chat. The bot is created on first use
// because creating it calls getMe.
type TelegramSink struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegramSink(token string, chatID int64) *TelegramSink {
	return &TelegramSink{
		token:    strings.TrimSpace(token),
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{},
	}
}

// WithEndpoint points the sink at another Bot API server. The endpoint is a
// format string taking the token and the method name.
func (s *TelegramSink) WithEndpoint(endpoint string, client *http.Client) *TelegramSink {
	if strings.TrimSpace(endpoint) != "" {
		s.endpoint = endpoint
	}
	if client != nil {
		s.client = client
	}
	return s
}

func (s *TelegramSink) Method() types.NotificationMethod {
	return types.NotificationMethodTelegram
}

func (s *TelegramSink) Deliver(ctx context.Context, notice Notice) error {
	if s.token == "" || s.chatID == 0 {
		return errors.New("telegram token and chat id are required")
	}
	bot, err := s.botAPI()
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}
	msg := tgbotapi.NewMessage(s.chatID, telegramText(notice))
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (s *TelegramSink) botAPI() (*tgbotapi.BotAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot != nil {
		return s.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(s.token, s.endpoint, s.client)
	if err != nil {
		return nil, err
	}
	s.bot = bot
	return bot, nil
}

func telegramText(notice Notice) string {
	prefix := "ℹ️"
	switch notice.Level {
	case types.NoticeSuccess:
		prefix = "✅"
	case types.NoticeWarning:
		prefix = "⚠️"
	case types.NoticeError:
		prefix = "❌"
	}
	return prefix + " " + notice.Text()
}

// DefaultSinks builds the sinks for the configured methods. Telegram is only
// added when credentials are present.
func DefaultSinks(logger logging.Logger, toast *ToastQueue, telegramToken string, telegramChatID int64) []Sink {
	sinks := []Sink{
		NewLogSink(logger),
		NewBellSink(nil),
		NewNotifySendSink(),
	}
	if toast != nil {
		sinks = append(sinks, toast)
	}
	if strings.TrimSpace(telegramToken) != "" && telegramChatID != 0 {
		sinks = append(sinks, NewTelegramSink(telegramToken, telegramChatID))
	}
	return sinks
}
