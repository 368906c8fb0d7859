package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/service"
)

// AccountHandler handles profile, history, leaderboard and transfer
// commands.
type AccountHandler struct {
	accounts *service.AccountService
	ledger   *service.LedgerService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, ledger *service.LedgerService) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger}
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}

	return c.Reply(fmt.Sprintf(
		"🌍 Добро пожаловать в игру, %s!\n\n"+
			"💰 Баланс: %d очков\n\n"+
			"Команды:\n"+
			"/profile — профиль\n"+
			"/join <страна> — вступить в страну\n"+
			"/createcountry — основать страну\n"+
			"/casino <ставка> — казино\n"+
			"/top — рейтинг игроков\n"+
			"/topcountries — рейтинг стран",
		displayName(user), user.Points,
	))
}

// HandleProfile handles the /profile command.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID := sender.ID
	if target := replyTarget(c); target != nil && !target.IsBot {
		targetID = target.ID
	}

	profile, err := h.accounts.GetProfile(context.Background(), targetID)
	if err != nil {
		return c.Reply(errText(err))
	}

	var sb strings.Builder
	u := profile.User
	fmt.Fprintf(&sb, "👤 %s\n", displayName(u))
	fmt.Fprintf(&sb, "💰 Очки: %d\n", u.Points)
	fmt.Fprintf(&sb, "🎖 Должность: %s\n", u.Position)
	if profile.Country != nil {
		fmt.Fprintf(&sb, "🏳️ Страна: %s\n", profile.Country.Name)
	}
	if u.AdminLevel > 0 {
		fmt.Fprintf(&sb, "🛡 Уровень администратора: %d\n", u.AdminLevel)
	}
	if u.LostInCasino > 0 {
		fmt.Fprintf(&sb, "🎰 Проиграно в казино: %d\n", u.LostInCasino)
	}

	return c.Reply(sb.String())
}

// HandleHistory handles the /history command, showing recent ledger rows.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	records, err := h.accounts.GetHistory(context.Background(), sender.ID, 10)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load history")
		return c.Reply(errText(err))
	}
	if len(records) == 0 {
		return c.Reply("📜 История пуста")
	}

	var sb strings.Builder
	sb.WriteString("📜 Последние события:\n")
	for _, r := range records {
		sign := ""
		if r.Points > 0 {
			sign = "+"
		}
		fmt.Fprintf(&sb, "• %s%d — %s (%s)\n",
			sign, r.Points, r.Reason, r.CreatedAt.Format("02.01 15:04"))
	}
	return c.Reply(sb.String())
}

// HandleTop handles the /top command.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	users, err := h.accounts.GetTopUsers(context.Background(), 10)
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(users) == 0 {
		return c.Reply("Рейтинг пока пуст")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Богатейшие игроки:\n")
	for i, u := range users {
		fmt.Fprintf(&sb, "%d. %s — %d\n", i+1, displayName(u), u.Points)
	}
	return c.Reply(sb.String())
}

// HandlePay handles the /pay command: reply to a user with /pay <amount>.
func (h *AccountHandler) HandlePay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target := replyTarget(c)
	if target == nil {
		return c.Reply("Ответьте на сообщение получателя: /pay <сумма>")
	}
	if target.IsBot {
		return c.Reply(errText(service.ErrBotTarget))
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Использование: /pay <сумма>")
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return c.Reply("❌ Некорректная сумма")
	}

	ctx := context.Background()
	// The receiver may have never talked to the bot
	fullName := target.FirstName
	if target.LastName != "" {
		fullName += " " + target.LastName
	}
	if _, _, err := h.accounts.EnsureUser(ctx, target.ID, target.Username, fullName); err != nil {
		return c.Reply(errText(err))
	}

	if err := h.ledger.Transfer(ctx, sender.ID, target.ID, amount); err != nil {
		return c.Reply(errText(err))
	}

	return c.Reply(fmt.Sprintf("✅ Переведено %d очков пользователю %s", amount, userLink(target)))
}

// HandleDonate handles the /donate command crediting the country treasury.
func (h *AccountHandler) HandleDonate(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Использование: /donate <сумма>")
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return c.Reply("❌ Некорректная сумма")
	}

	country, err := h.ledger.Donate(context.Background(), sender.ID, amount)
	if err != nil {
		return c.Reply(errText(err))
	}

	return c.Reply(fmt.Sprintf("💸 Вы пожертвовали %d очков. Казна страны «%s»: %d",
		amount, country.Name, country.Treasury))
}

func userLink(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
