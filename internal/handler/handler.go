// Package handler provides Telegram bot command handlers.
package handler

import (
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/game/grid"
	"nation-game-bot/internal/game/reel"
	"nation-game-bot/internal/model"
	"nation-game-bot/internal/service"
)

// UserContextKey is the telebot context key the ensure-user middleware
// stores the *model.User under.
const UserContextKey = "user"

// CurrentUser extracts the ensured user from the telebot context.
func CurrentUser(c tele.Context) (*model.User, bool) {
	user, ok := c.Get(UserContextKey).(*model.User)
	return user, ok
}

// displayName prefers the @handle, falling back to the full name.
func displayName(u *model.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName
}

// replyTarget returns the user a command is aimed at: the replied-to
// message's sender when present, otherwise nil.
func replyTarget(c tele.Context) *tele.User {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil {
		return nil
	}
	return msg.ReplyTo.Sender
}

// parseAmount parses a signed point amount argument.
func parseAmount(arg string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
}

// errText maps service errors onto user-facing rejection messages.
// Unknown errors get a generic message; the caller logs the original.
func errText(err error) string {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return "❌ Пользователь не найден"
	case errors.Is(err, service.ErrCountryNotFound):
		return "❌ Страна не найдена"
	case errors.Is(err, service.ErrInsufficientBalance):
		return "❌ Недостаточно очков"
	case errors.Is(err, service.ErrInvalidAmount):
		return "❌ Сумма должна быть положительной"
	case errors.Is(err, service.ErrSelfTarget):
		return "❌ Нельзя применить к самому себе"
	case errors.Is(err, service.ErrBotTarget):
		return "❌ Боты не могут участвовать в игре"
	case errors.Is(err, service.ErrZeroDelta):
		return "❌ Изменение должно быть ненулевым"
	case errors.Is(err, service.ErrHierarchyViolation):
		return "❌ Недостаточно прав для этого действия"
	case errors.Is(err, service.ErrLevelOutOfRange):
		return "❌ Уровень должен быть от 0 до 5"
	case errors.Is(err, service.ErrAlreadyRuler):
		return "❌ Вы уже правите страной"
	case errors.Is(err, service.ErrAlreadyCitizen):
		return "❌ Вы уже гражданин этой страны"
	case errors.Is(err, service.ErrAlreadyInCountry):
		return "❌ Вы уже состоите в стране. Сначала выйдите: /leave"
	case errors.Is(err, service.ErrNotRuler):
		return "❌ Вы не правите страной"
	case errors.Is(err, service.ErrNotCitizen):
		return "❌ Вы не состоите в стране"
	case errors.Is(err, service.ErrCreationCooldown):
		return "⏳ Новую страну можно основать раз в неделю"
	case errors.Is(err, service.ErrCreationBanned):
		return "🚫 Вам запрещено создавать страны"
	case errors.Is(err, service.ErrNameReserved):
		return "❌ Это название зарезервировано"
	case errors.Is(err, service.ErrNameTaken):
		return "❌ Страна с таким названием уже существует"
	case errors.Is(err, service.ErrMemenameTaken):
		return "❌ Это мемное название уже занято"
	case errors.Is(err, service.ErrChatTaken):
		return "❌ Этот чат уже привязан к другой стране"
	case errors.Is(err, service.ErrBlacklisted):
		return "🚫 Вам запрещён въезд в эту страну"
	case errors.Is(err, service.ErrCountryNotEmpty):
		return "❌ Сначала все граждане должны покинуть страну"
	case errors.Is(err, service.ErrRulerCannotLeave):
		return "❌ Правитель должен передать власть или распустить страну"
	case errors.Is(err, service.ErrTaxRateOutOfRange):
		return "❌ Налоговая ставка вне допустимого диапазона"
	case errors.Is(err, service.ErrFieldTooLong):
		return "❌ Недопустимая длина текста"
	case errors.Is(err, service.ErrTargetNotInCountry):
		return "❌ Пользователь не гражданин вашей страны"
	case errors.Is(err, service.ErrRatingOutOfRange):
		return "❌ Оценка должна быть от 1 до 5"
	case errors.Is(err, service.ErrReviewCooldown):
		return "⏳ Повторно оценить страну можно позже"
	case errors.Is(err, service.ErrOwnCountryReview):
		return "❌ Нельзя оценивать собственную страну"
	case errors.Is(err, service.ErrEventNotFound):
		return "❌ Ивент не найден"
	case errors.Is(err, service.ErrEventAlreadyActive):
		return "❌ У вас уже есть активный ивент"
	case errors.Is(err, service.ErrNotEventOwner):
		return "❌ Ивентом управляет только его организатор"
	case errors.Is(err, service.ErrAlreadyJoined):
		return "❌ Вы уже участвуете в этом ивенте"
	case errors.Is(err, service.ErrNotParticipant):
		return "❌ Вы не участвуете в этом ивенте"
	case errors.Is(err, service.ErrUnknownGame):
		return "❌ Такой игры нет"
	case errors.Is(err, service.ErrNotAuthorized):
		return "❌ Недостаточно прав"
	case errors.Is(err, reel.ErrInvalidBet), errors.Is(err, grid.ErrInvalidBet):
		return "❌ Ставка должна быть положительной"
	case errors.Is(err, reel.ErrBetTooHigh), errors.Is(err, grid.ErrBetTooHigh):
		return "❌ Ставка превышает максимум"
	default:
		return "❌ Что-то пошло не так, попробуйте позже"
	}
}
