package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/service"
)

// CasinoHandler handles the slot machine commands and the loss
// leaderboard.
type CasinoHandler struct {
	accounts *service.AccountService
	casino   *service.CasinoService
}

// NewCasinoHandler creates a new CasinoHandler.
func NewCasinoHandler(accounts *service.AccountService, casino *service.CasinoService) *CasinoHandler {
	return &CasinoHandler{accounts: accounts, casino: casino}
}

// HandleReel handles /casino <ставка>: the 1×3 machine.
func (h *CasinoHandler) HandleReel(c tele.Context) error {
	return h.play(c, "casino")
}

// HandleGrid handles /casino3 <ставка>: the 3×3 machine.
func (h *CasinoHandler) HandleGrid(c tele.Context) error {
	return h.play(c, "casino3")
}

func (h *CasinoHandler) play(c tele.Context, command string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply(fmt.Sprintf("Использование: /%s <ставка>", command))
	}
	bet, err := parseAmount(args[0])
	if err != nil || bet <= 0 {
		return c.Reply("❌ Некорректная ставка")
	}

	outcome, err := h.casino.Play(context.Background(), sender.ID, command, bet)
	if err != nil {
		return c.Reply(errText(err))
	}

	var sb strings.Builder
	sb.WriteString("🎰\n")
	sb.WriteString(outcome.Result.Display)
	sb.WriteByte('\n')
	switch {
	case outcome.Net > 0:
		fmt.Fprintf(&sb, "🎊 Выигрыш! +%d очков\n", outcome.Net)
	case outcome.Net == 0:
		sb.WriteString("😐 Ставка вернулась\n")
	default:
		fmt.Fprintf(&sb, "😢 Проигрыш: %d очков\n", outcome.Net)
	}
	fmt.Fprintf(&sb, "💰 Баланс: %d", outcome.Balance)
	return c.Reply(sb.String())
}

// HandleGames handles /games: list the available machines.
func (h *CasinoHandler) HandleGames(c tele.Context) error {
	var sb strings.Builder
	sb.WriteString("🎰 Доступные игры:\n")
	for _, g := range h.casino.Machines() {
		fmt.Fprintf(&sb, "• %s — /%s <ставка> (до %d)\n  %s\n",
			g.Name(), g.Command(), g.MaxBet(), g.Description())
	}
	return c.Reply(sb.String())
}

// HandleLudoman handles /ludoman: the lifetime casino loss leaderboard.
func (h *CasinoHandler) HandleLudoman(c tele.Context) error {
	losers, err := h.accounts.GetTopLosers(context.Background(), 10)
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(losers) == 0 {
		return c.Reply("🎰 Пока никто ничего не проиграл. Подозрительно.")
	}

	var sb strings.Builder
	sb.WriteString("🎰 Лудоманы чата:\n")
	for i, u := range losers {
		fmt.Fprintf(&sb, "%d. %s — проиграно %d\n", i+1, displayName(u), u.LostInCasino)
	}
	return c.Reply(sb.String())
}
