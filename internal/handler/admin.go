package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/model"
	"nation-game-bot/internal/repository"
	"nation-game-bot/internal/service"
)

// AdminHandler handles the point ledger and punishment commands. All of
// these are registered behind the admin middleware.
type AdminHandler struct {
	accounts   *service.AccountService
	ledger     *service.LedgerService
	punishRepo *repository.PunishmentRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	accounts *service.AccountService,
	ledger *service.LedgerService,
	punishRepo *repository.PunishmentRepository,
) *AdminHandler {
	return &AdminHandler{accounts: accounts, ledger: ledger, punishRepo: punishRepo}
}

// resolveTarget finds the target user: reply takes priority, then an
// @username or numeric ID as the first argument.
func (h *AdminHandler) resolveTarget(ctx context.Context, c tele.Context, args []string) (*model.User, []string, error) {
	if target := replyTarget(c); target != nil {
		if target.IsBot {
			return nil, nil, service.ErrBotTarget
		}
		fullName := target.FirstName
		if target.LastName != "" {
			fullName += " " + target.LastName
		}
		user, _, err := h.accounts.EnsureUser(ctx, target.ID, target.Username, fullName)
		return user, args, err
	}

	if len(args) == 0 {
		return nil, nil, service.ErrUserNotFound
	}

	ref := args[0]
	rest := args[1:]
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		user, err := h.accounts.GetUser(ctx, id)
		return user, rest, err
	}
	user, err := h.accounts.GetUserByUsername(ctx, ref)
	return user, rest, err
}

// HandleGive handles /give: adjust the target's points by a signed delta.
func (h *AdminHandler) HandleGive(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	target, rest, err := h.resolveTarget(ctx, c, c.Args())
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(rest) < 1 {
		return c.Reply("Использование: /give [@кому] <±сумма> [причина]")
	}

	delta, err := parseAmount(rest[0])
	if err != nil {
		return c.Reply("❌ Некорректная сумма")
	}
	reason := "Решение администрации"
	if len(rest) > 1 {
		reason = strings.Join(rest[1:], " ")
	}

	updated, err := h.ledger.AdjustPoints(ctx, sender.ID, target.TelegramID, delta, reason)
	if err != nil {
		return c.Reply(errText(err))
	}

	verb := "начислено"
	if delta < 0 {
		verb = "списано"
	}
	return c.Reply(fmt.Sprintf("✅ %s: %s %d очков. Баланс: %d",
		displayName(updated), verb, delta, updated.Points))
}

// HandleSetAdmin handles /setadmin <level>: assign an admin level.
func (h *AdminHandler) HandleSetAdmin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	target, rest, err := h.resolveTarget(ctx, c, c.Args())
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(rest) != 1 {
		return c.Reply("Использование: /setadmin [@кому] <уровень 0-5>")
	}
	level, err := strconv.Atoi(rest[0])
	if err != nil {
		return c.Reply(errText(service.ErrLevelOutOfRange))
	}

	if err := h.ledger.SetAdminLevel(ctx, sender.ID, target.TelegramID, level); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("✅ %s теперь администратор уровня %d", displayName(target), level))
}

// HandleBan handles /ban: impose a country-creation ban, optionally
// time-limited with a duration like 72h as the first argument.
func (h *AdminHandler) HandleBan(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	target, rest, err := h.resolveTarget(ctx, c, c.Args())
	if err != nil {
		return c.Reply(errText(err))
	}

	var expiresAt *time.Time
	reason := "Нарушение правил"
	if len(rest) > 0 {
		if d, err := time.ParseDuration(rest[0]); err == nil && d > 0 {
			t := time.Now().Add(d)
			expiresAt = &t
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		reason = strings.Join(rest, " ")
	}

	adminID := sender.ID
	if _, err := h.punishRepo.Add(ctx, target.TelegramID, model.PunishCountryCreationBan, reason, &adminID, expiresAt); err != nil {
		log.Error().Err(err).Int64("target", target.TelegramID).Msg("Failed to add punishment")
		return c.Reply(errText(err))
	}

	msg := fmt.Sprintf("🚫 %s запрещено создавать страны", displayName(target))
	if expiresAt != nil {
		msg += fmt.Sprintf(" до %s", expiresAt.Format("02.01.2006 15:04"))
	}
	return c.Reply(msg)
}

// HandleUnban handles /unban: lift an active country-creation ban.
func (h *AdminHandler) HandleUnban(c tele.Context) error {
	ctx := context.Background()
	target, _, err := h.resolveTarget(ctx, c, c.Args())
	if err != nil {
		return c.Reply(errText(err))
	}

	lifted, err := h.punishRepo.Deactivate(ctx, target.TelegramID, model.PunishCountryCreationBan)
	if err != nil {
		return c.Reply(errText(err))
	}
	if !lifted {
		return c.Reply("ℹ️ Активных запретов не найдено")
	}
	return c.Reply(fmt.Sprintf("✅ Запрет для %s снят", displayName(target)))
}

// HandlePunishments handles /punishments: list a user's active punishments.
func (h *AdminHandler) HandlePunishments(c tele.Context) error {
	ctx := context.Background()
	target, _, err := h.resolveTarget(ctx, c, c.Args())
	if err != nil {
		return c.Reply(errText(err))
	}

	punishments, err := h.punishRepo.ListActive(ctx, target.TelegramID)
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(punishments) == 0 {
		return c.Reply(fmt.Sprintf("✅ У %s нет активных наказаний", displayName(target)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⚖️ Наказания %s:\n", displayName(target))
	for _, p := range punishments {
		fmt.Fprintf(&sb, "• %s — %s", p.ActionType, p.Reason)
		if p.ExpiresAt != nil {
			fmt.Fprintf(&sb, " (до %s)", p.ExpiresAt.Format("02.01.2006 15:04"))
		}
		sb.WriteByte('\n')
	}
	return c.Reply(sb.String())
}
