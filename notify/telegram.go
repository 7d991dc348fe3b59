package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fxhook/config"
	"fxhook/pkg/logger"
)

// Telegram 执行结果通知器，纯观测用途
// 发送失败只记录日志，绝不影响信号执行
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegram 创建通知器，未启用时返回 nil（调用方做 nil 判断）
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram Bot失败: %w", err)
	}

	return &Telegram{
		bot:    bot,
		chatID: cfg.ChatID,
		log:    logger.NewModuleLogger("notify"),
	}, nil
}

// Send 推送一条文本消息
func (t *Telegram) Send(text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		t.log.Warn("Telegram通知发送失败", zap.Error(err))
	}
}
