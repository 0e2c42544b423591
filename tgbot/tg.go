package tgbot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"paydue/db"
	"paydue/schedule"
)

const cbqMarkPaid = "paid"

const (
	txtPaymentRecorded   = "✅ Payment recorded, the remaining reminders are cancelled"
	txtMarkPaidFailed    = "Couldn't record the payment, please retry"
	txtOverdueSummaryTop = "Payments that need your attention:"

	fmtDueNow        = "🔴 URGENT: %s %s\nDue now! Amount: %s"
	fmtDueNextUnit   = "⚠️ %s %s\nDue next %s. Amount: %s"
	fmtDueInUnits    = "📅 %s %s\nDue in %d %s. Amount: %s"
	fmtOverdueTitle  = "⚠️ ATTENTION: %d %s overdue"
	fmtOverdueLine   = "%s %s - %s - overdue %d %s"
	btnMarkPaidLabel = "I paid it"
)

var errUnknownCallback = errors.New("unknown callback format")

// TBot renders scheduler output into one Telegram chat and feeds the
// mark-paid button presses back into the dispatch handler.
type TBot struct {
	Bot           *tg.BotAPI
	ChatID        int64
	UnitName      string // granularity word for messages: "day", "minute", ...
	Logger        *zap.SugaredLogger
	RetryAttempts int
	RetryDelay    time.Duration

	mu    sync.Mutex
	shown map[int64]int // obligation ID -> message ID of its displayed reminder
}

func NewTBot(token string, chatID int64, unitName string, l *zap.SugaredLogger) (*TBot, error) {
	b, err := tg.NewBotAPI(token)
	if err != nil {
		l.Errorw("failed to initialize Telegram Bot", "err", err)
		return nil, err
	}

	b.Debug = false

	l.Infof("authorized on account %q (%q, %d)", b.Self.FirstName, b.Self.UserName, b.Self.ID)

	return &TBot{
		Bot:           b,
		ChatID:        chatID,
		UnitName:      unitName,
		Logger:        l,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
		shown:         make(map[int64]int),
	}, nil
}

// ShowReminder sends a reminder message with the mark-paid button and
// remembers its message ID so ConfirmPaid can dismiss it later.
func (b *TBot) ShowReminder(p schedule.Payload) error {
	msg := tg.NewMessage(b.ChatID, reminderText(p, b.UnitName))
	msg.ReplyMarkup = paidKeyboard(p.ObligationID, p.Kind)

	sent, err := b.send(msg)
	if err != nil {
		return errors.Wrap(err, "failed sending reminder")
	}

	b.mu.Lock()
	b.shown[p.ObligationID] = sent.MessageID
	b.mu.Unlock()

	return nil
}

// ShowOverdueSummary sends the single aggregate message for payments whose
// due instant has already passed.
func (b *TBot) ShowOverdueSummary(items []schedule.OverdueItem) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, fmtOverdueTitle, len(items), plural(len(items), "payment"))
	sb.WriteString("\n")
	sb.WriteString(txtOverdueSummaryTop)
	for _, item := range items {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, fmtOverdueLine, kindMarker(item.Kind), item.Title,
			item.Amount.StringFixed(2), item.UnitsOverdue, plural(int(item.UnitsOverdue), b.UnitName))
	}

	_, err := b.send(tg.NewMessage(b.ChatID, sb.String()))
	if err != nil {
		return errors.Wrap(err, "failed sending overdue summary")
	}
	return nil
}

// ConfirmPaid dismisses the reminder the user acted on (its action button is
// removed so it can't be pressed twice) and sends a short confirmation.
func (b *TBot) ConfirmPaid(obligationID int64) error {
	b.mu.Lock()
	msgID, ok := b.shown[obligationID]
	delete(b.shown, obligationID)
	b.mu.Unlock()

	if ok {
		edit := tg.NewEditMessageReplyMarkup(b.ChatID, msgID,
			tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{}})
		if _, err := b.Bot.Request(edit); err != nil {
			b.Logger.Errorw("failed dismissing reminder message", "err", err)
		}
	}

	_, err := b.send(tg.NewMessage(b.ChatID, txtPaymentRecorded))
	if err != nil {
		return errors.Wrap(err, "failed sending confirmation")
	}
	return nil
}

// Run consumes Telegram updates and routes mark-paid button presses to
// onMarkPaid. Blocks until the update channel closes.
func (b *TBot) Run(onMarkPaid func(obligationID int64, kind db.Kind) error) {
	uCfg := tg.NewUpdate(0)
	uCfg.Timeout = 60

	for u := range b.Bot.GetUpdatesChan(uCfg) {
		if u.CallbackQuery == nil {
			continue
		}
		go b.handleCallback(u.CallbackQuery, onMarkPaid)
	}
}

func (b *TBot) handleCallback(cbq *tg.CallbackQuery, onMarkPaid func(int64, db.Kind) error) {
	id, kind, err := parseMarkPaid(cbq.Data)
	if err != nil {
		b.Logger.Errorw("ignoring malformed callback", "data", cbq.Data, "err", err)
		b.answer(cbq.ID, "")
		return
	}

	if err := onMarkPaid(id, kind); err != nil {
		b.Logger.Errorw("failed handling mark-paid action", "id", id, "err", err)
		b.answer(cbq.ID, txtMarkPaidFailed)
		return
	}

	b.answer(cbq.ID, "")
}

func (b *TBot) answer(cbqID, text string) {
	if _, err := b.Bot.Request(tg.NewCallback(cbqID, text)); err != nil {
		b.Logger.Errorw("failed answering callback query", "err", err)
	}
}

// send retries transient Telegram failures a few times before giving up.
func (b *TBot) send(msg tg.MessageConfig) (tg.Message, error) {
	var sent tg.Message
	var err error
	for i := 0; i < b.RetryAttempts; i++ {
		if i > 0 {
			time.Sleep(b.RetryDelay)
		}
		sent, err = b.Bot.Send(msg)
		if err == nil {
			return sent, nil
		}
	}
	return sent, err
}

func reminderText(p schedule.Payload, unitName string) string {
	amount := p.Amount.StringFixed(2)
	marker := kindMarker(p.Kind)

	switch {
	case p.UnitsRemaining == 0:
		return fmt.Sprintf(fmtDueNow, marker, p.Title, amount)
	case p.UnitsRemaining == 1:
		return fmt.Sprintf(fmtDueNextUnit, marker, p.Title, unitName, amount)
	default:
		return fmt.Sprintf(fmtDueInUnits, marker, p.Title, p.UnitsRemaining,
			plural(p.UnitsRemaining, unitName), amount)
	}
}

func kindMarker(kind db.Kind) string {
	if kind == db.KindLoanInstallment {
		return "💳"
	}
	return "📺"
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func paidKeyboard(obligationID int64, kind db.Kind) tg.InlineKeyboardMarkup {
	data := fmt.Sprintf("%s:%d:%d", cbqMarkPaid, kind, obligationID)
	return tg.NewInlineKeyboardMarkup(
		tg.NewInlineKeyboardRow(tg.NewInlineKeyboardButtonData(btnMarkPaidLabel, data)))
}

func parseMarkPaid(data string) (int64, db.Kind, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != cbqMarkPaid {
		return 0, 0, errUnknownCallback
	}

	kind, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || kind > uint64(db.KindLoanInstallment) {
		return 0, 0, errUnknownCallback
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, errUnknownCallback
	}

	return id, db.Kind(kind), nil
}
