package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/service"
)

// EventHandler handles roleplay event commands. Starting and finishing
// events is registered behind the admin middleware; joining is open.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// HandleStart handles /event <награда> <название>.
func (h *EventHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	args := strings.SplitN(strings.TrimSpace(c.Message().Payload), " ", 2)
	if len(args) != 2 {
		return c.Reply("Использование: /event <награда> <название>")
	}
	reward, err := parseAmount(args[0])
	if err != nil || reward < 0 {
		return c.Reply("❌ Некорректная награда")
	}
	title := strings.TrimSpace(args[1])

	event, err := h.events.Start(context.Background(), sender.ID, chat.ID, title, nil, reward)
	if err != nil {
		return c.Reply(errText(err))
	}

	return c.Reply(fmt.Sprintf(
		"🎭 РП-ивент «%s» начат!\n💰 Награда участникам: %d очков\n\n"+
			"Вступить: /joinevent %d",
		event.Title, event.RewardPoints, event.ID))
}

// HandleJoin handles /joinevent <id>.
func (h *EventHandler) HandleJoin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	eventID, ok := h.eventIDArg(c)
	if !ok {
		return c.Reply("Использование: /joinevent <ID ивента>")
	}

	event, err := h.events.Join(context.Background(), eventID, sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Вы участвуете в ивенте «%s»", event.Title))
}

// HandleLeave handles /leaveevent <id>.
func (h *EventHandler) HandleLeave(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	eventID, ok := h.eventIDArg(c)
	if !ok {
		return c.Reply("Использование: /leaveevent <ID ивента>")
	}

	if err := h.events.Leave(context.Background(), eventID, sender.ID); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply("👋 Вы вышли из ивента")
}

// HandleKickParticipant handles /kickevent <id> (reply).
func (h *EventHandler) HandleKickParticipant(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("Ответьте на сообщение участника: /kickevent <ID ивента>")
	}

	eventID, ok := h.eventIDArg(c)
	if !ok {
		return c.Reply("Использование: /kickevent <ID ивента>")
	}

	if err := h.events.Kick(context.Background(), sender.ID, eventID, target.ID); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("⚔️ %s исключён из ивента", userLink(target)))
}

// HandleFinish handles /finishevent: close the admin's active event and
// pay out the reward.
func (h *EventHandler) HandleFinish(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	active, err := h.events.ActiveByAdmin(ctx, sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}

	event, participants, err := h.events.Finish(ctx, sender.ID, active.ID)
	if err != nil {
		return c.Reply(errText(err))
	}

	return c.Reply(fmt.Sprintf(
		"🏁 Ивент «%s» завершён!\n👥 Участников: %d\n💰 Каждый получил %d очков",
		event.Title, len(participants), event.RewardPoints))
}

// HandleList handles /events: list active events in this chat.
func (h *EventHandler) HandleList(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	events, err := h.events.ActiveInChat(context.Background(), chat.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(events) == 0 {
		return c.Reply("🎭 Активных ивентов нет")
	}

	var sb strings.Builder
	sb.WriteString("🎭 Активные ивенты:\n")
	for _, e := range events {
		fmt.Fprintf(&sb, "• #%d «%s» — награда %d (/joinevent %d)\n",
			e.ID, e.Title, e.RewardPoints, e.ID)
	}
	return c.Reply(sb.String())
}

func (h *EventHandler) eventIDArg(c tele.Context) (int64, bool) {
	args := c.Args()
	if len(args) < 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
