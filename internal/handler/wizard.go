package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/repository"
	"nation-game-bot/internal/service"
)

// Wizard steps, in order.
const (
	stepName = iota
	stepMemename
	stepIdeology
	stepDescription
	stepMapURL
)

// skipToken lets the user skip optional wizard steps.
const skipToken = "-"

// wizardTTL bounds how long an abandoned dialog occupies memory.
const wizardTTL = 15 * time.Minute

// wizardSession is the in-flight state of one user's creation dialog.
type wizardSession struct {
	chatID  int64
	step    int
	params  repository.CreateParams
	started time.Time
}

// expired reports whether the session has outlived the wizard TTL.
func (s *wizardSession) expired() bool {
	return time.Since(s.started) > wizardTTL
}

// WizardHandler drives the multi-step country creation dialog. Sessions
// are keyed by user ID and survive until finished or cancelled.
type WizardHandler struct {
	countries *service.CountryService
	sessions  sync.Map // int64 -> *wizardSession
}

// NewWizardHandler creates a new WizardHandler.
func NewWizardHandler(countries *service.CountryService) *WizardHandler {
	return &WizardHandler{countries: countries}
}

// HandleCreate handles /createcountry: group-only, requires the sender
// to be an administrator of that group, and starts the dialog.
func (h *WizardHandler) HandleCreate(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return c.Reply("Страну можно основать только в групповом чате")
	}

	member, err := c.Bot().ChatMemberOf(chat, sender)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to check chat membership")
		return c.Reply("❌ Не удалось проверить права в чате")
	}
	if member.Role != tele.Administrator && member.Role != tele.Creator {
		return c.Reply("❌ Основать страну может только администратор чата")
	}

	if err := h.countries.CheckCreationAllowed(context.Background(), sender.ID); err != nil {
		return c.Reply(errText(err))
	}

	h.sessions.Store(sender.ID, &wizardSession{
		chatID:  chat.ID,
		step:    stepName,
		params:  repository.CreateParams{RulerID: sender.ID, ChatID: chat.ID},
		started: time.Now(),
	})
	return c.Reply("🏗 Основание страны начато!\n\nШаг 1/5. Введите название страны (/cancel — отмена):")
}

// HandleCancel handles /cancel inside the wizard.
func (h *WizardHandler) HandleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if _, ok := h.sessions.LoadAndDelete(sender.ID); !ok {
		return nil
	}
	return c.Reply("Основание страны отменено")
}

// HandleText routes free-form text into the active wizard session.
// Returns false when the sender has no session so the caller can pass
// the update on.
func (h *WizardHandler) HandleText(c tele.Context) (bool, error) {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return false, nil
	}

	value, ok := h.sessions.Load(sender.ID)
	if !ok {
		return false, nil
	}
	session := value.(*wizardSession)
	if session.expired() {
		h.sessions.Delete(sender.ID)
		return true, c.Reply("⏳ Диалог основания страны истёк. Начните заново: /createcountry")
	}
	if session.chatID != chat.ID {
		return false, nil
	}

	text := strings.TrimSpace(c.Text())
	if text == "" || strings.HasPrefix(text, "/") {
		return false, nil
	}

	ctx := context.Background()
	switch session.step {
	case stepName:
		if err := h.countries.ValidateName(ctx, text); err != nil {
			return true, c.Reply(errText(err) + "\nВведите другое название:")
		}
		session.params.Name = text
		session.step = stepMemename
		return true, c.Reply("Шаг 2/5. Введите мемное название (краткий псевдоним страны):")

	case stepMemename:
		session.params.Memename = text
		session.step = stepIdeology
		return true, c.Reply("Шаг 3/5. Введите идеологию (от 3 до 50 символов):")

	case stepIdeology:
		session.params.Ideology = text
		session.step = stepDescription
		return true, c.Reply(fmt.Sprintf("Шаг 4/5. Введите описание страны (или «%s», чтобы пропустить):", skipToken))

	case stepDescription:
		if text != skipToken {
			session.params.Description = text
		}
		session.step = stepMapURL
		return true, c.Reply(fmt.Sprintf("Шаг 5/5. Отправьте ссылку на карту (или «%s», чтобы пропустить):", skipToken))

	case stepMapURL:
		if text != skipToken {
			session.params.MapURL = &text
		}
		h.sessions.Delete(sender.ID)

		country, err := h.countries.Create(ctx, session.params)
		if err != nil {
			return true, c.Reply(errText(err))
		}
		return true, c.Reply(fmt.Sprintf(
			"🎉 Страна «%s» основана!\n👑 Вы — её правитель.\n\n"+
				"/mycountry — панель управления\n/settax — налоговая ставка",
			country.Name))
	}

	return false, nil
}
