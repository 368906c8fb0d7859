package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/repository"
	"nation-game-bot/internal/service"
)

// CountryHandler handles country membership, governance and listing
// commands.
type CountryHandler struct {
	accounts  *service.AccountService
	countries *service.CountryService
}

// NewCountryHandler creates a new CountryHandler.
func NewCountryHandler(accounts *service.AccountService, countries *service.CountryService) *CountryHandler {
	return &CountryHandler{accounts: accounts, countries: countries}
}

// HandleJoin handles /join <страна>: by ID, exact or fuzzy name.
func (h *CountryHandler) HandleJoin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	query := strings.TrimSpace(c.Message().Payload)
	if query == "" {
		return c.Reply("Использование: /join <название или ID страны>")
	}

	ctx := context.Background()
	country, err := h.countries.Resolve(ctx, query)
	if err != nil {
		return c.Reply(errText(err))
	}

	country, err = h.countries.Join(ctx, sender.ID, country.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("🎉 Добро пожаловать в страну «%s»!", country.Name))
}

// HandleLeave handles /leave.
func (h *CountryHandler) HandleLeave(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	country, err := h.countries.Leave(context.Background(), sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("👋 Вы покинули страну «%s»", country.Name))
}

// HandleKick handles /kick (reply), with optional "бан" argument to
// blacklist the expelled citizen.
func (h *CountryHandler) HandleKick(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("Ответьте на сообщение гражданина: /kick [бан]")
	}

	blacklist := false
	for _, arg := range c.Args() {
		if strings.EqualFold(arg, "бан") || strings.EqualFold(arg, "ban") {
			blacklist = true
		}
	}

	if err := h.countries.Kick(context.Background(), sender.ID, target.ID, blacklist); err != nil {
		return c.Reply(errText(err))
	}
	msg := fmt.Sprintf("⚔️ %s изгнан из страны", userLink(target))
	if blacklist {
		msg += " и внесён в чёрный список"
	}
	return c.Reply(msg)
}

// HandlePardon handles /pardon (reply): lift a country blacklist entry.
func (h *CountryHandler) HandlePardon(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("Ответьте на сообщение пользователя: /pardon")
	}

	lifted, err := h.countries.Pardon(context.Background(), sender.ID, target.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	if !lifted {
		return c.Reply("ℹ️ Пользователь не в чёрном списке")
	}
	return c.Reply(fmt.Sprintf("✅ %s снова может вступить в страну", userLink(target)))
}

// HandleSetPosition handles /setposition (reply) <должность>.
func (h *CountryHandler) HandleSetPosition(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("Ответьте на сообщение гражданина: /setposition <должность>")
	}

	position := strings.TrimSpace(c.Message().Payload)
	if position == "" {
		return c.Reply("Использование: /setposition <должность>")
	}

	if err := h.countries.SetPosition(context.Background(), sender.ID, target.ID, position); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("🎖 %s теперь «%s»", userLink(target), position))
}

// HandleTransferPower handles /transferpower (reply).
func (h *CountryHandler) HandleTransferPower(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("Ответьте на сообщение наследника: /transferpower")
	}
	if target.IsBot {
		return c.Reply(errText(service.ErrBotTarget))
	}

	if err := h.countries.TransferPower(context.Background(), sender.ID, target.ID); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("👑 %s коронован как новый правитель!", userLink(target)))
}

// HandleDelete handles /deletecountry.
func (h *CountryHandler) HandleDelete(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	country, err := h.countries.Delete(context.Background(), sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("🏳️ Страна «%s» распущена", country.Name))
}

// HandleSetTax handles /settax <ставка в процентах>.
func (h *CountryHandler) HandleSetTax(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Использование: /settax <процент, например 10>")
	}
	percent, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return c.Reply(errText(service.ErrTaxRateOutOfRange))
	}

	if err := h.countries.SetTaxRate(context.Background(), sender.ID, percent/100); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply(fmt.Sprintf("🧾 Налоговая ставка: %.0f%%", percent))
}

// HandleCollect handles /collect: run a tax collection.
func (h *CountryHandler) HandleCollect(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	total, taxed, err := h.countries.CollectTaxes(context.Background(), sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}
	if total == 0 {
		return c.Reply("🧾 Собирать нечего")
	}
	return c.Reply(fmt.Sprintf("🧾 Собрано %d очков налогов с %d граждан. Влияние страны выросло!",
		total, taxed))
}

// HandleMyCountry handles /mycountry: the ruler's dashboard.
func (h *CountryHandler) HandleMyCountry(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	country, err := h.countries.GetByRuler(ctx, sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}

	forecast, err := h.countries.TaxForecast(ctx, sender.ID)
	if err != nil {
		return c.Reply(errText(err))
	}

	stats, err := h.countries.GetStats(ctx, country.ID)
	if err != nil {
		return c.Reply(errText(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👑 «%s» (%s)\n", country.Name, country.Memename)
	fmt.Fprintf(&sb, "🏛 Идеология: %s\n", country.Ideology)
	fmt.Fprintf(&sb, "👥 Граждан: %d\n", stats.CitizenCount)
	fmt.Fprintf(&sb, "✨ Влияние: %d\n", country.InfluencePoints)
	fmt.Fprintf(&sb, "💰 Казна: %d\n", country.Treasury)
	fmt.Fprintf(&sb, "🧾 Налог: %.0f%% (ожидаемый сбор: %d)\n", country.TaxRate*100, forecast)
	fmt.Fprintf(&sb, "⭐ Рейтинг: %.1f (%d оценок)\n", country.AvgRating, country.TotalReviews)
	return c.Reply(sb.String())
}

// HandleCountry handles /country <страна>: a public profile card.
func (h *CountryHandler) HandleCountry(c tele.Context) error {
	query := strings.TrimSpace(c.Message().Payload)
	if query == "" {
		return c.Reply("Использование: /country <название или ID страны>")
	}

	ctx := context.Background()
	country, err := h.countries.Resolve(ctx, query)
	if err != nil {
		return c.Reply(errText(err))
	}
	stats, err := h.countries.GetStats(ctx, country.ID)
	if err != nil {
		return c.Reply(errText(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏳️ «%s» (%s)\n", country.Name, country.Memename)
	fmt.Fprintf(&sb, "👑 Правитель: %s\n", stats.RulerName)
	fmt.Fprintf(&sb, "🏛 Идеология: %s\n", country.Ideology)
	if country.Description != "" {
		fmt.Fprintf(&sb, "📖 %s\n", country.Description)
	}
	fmt.Fprintf(&sb, "👥 Граждан: %d\n", stats.CitizenCount)
	fmt.Fprintf(&sb, "✨ Влияние: %d\n", country.InfluencePoints)
	fmt.Fprintf(&sb, "⭐ Рейтинг: %.1f (%d оценок)\n", country.AvgRating, country.TotalReviews)
	if country.MapURL != nil {
		fmt.Fprintf(&sb, "🗺 Карта: %s\n", *country.MapURL)
	}
	return c.Reply(sb.String())
}

// HandleTopCountries handles /topcountries [influence|rating|newest].
func (h *CountryHandler) HandleTopCountries(c tele.Context) error {
	sortBy := repository.SortByInfluence
	if args := c.Args(); len(args) > 0 {
		switch args[0] {
		case "rating", "рейтинг":
			sortBy = repository.SortByRating
		case "newest", "новые":
			sortBy = repository.SortByNewest
		}
	}

	countries, total, err := h.countries.List(context.Background(), sortBy, 0, 10)
	if err != nil {
		return c.Reply(errText(err))
	}
	if len(countries) == 0 {
		return c.Reply("Стран пока нет. Станьте первым: /createcountry")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌍 Страны (%d всего):\n", total)
	for i, country := range countries {
		fmt.Fprintf(&sb, "%d. «%s» — ✨%d ⭐%.1f\n",
			i+1, country.Name, country.InfluencePoints, country.AvgRating)
	}
	return c.Reply(sb.String())
}

// HandleEdit handles the ruler's edit commands sharing one entry point:
// /editcountry <name|memename|ideology|description|map> <значение>.
func (h *CountryHandler) HandleEdit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := strings.SplitN(strings.TrimSpace(c.Message().Payload), " ", 2)
	if len(args) != 2 {
		return c.Reply("Использование: /editcountry <name|memename|ideology|description|map> <значение>")
	}
	field, value := args[0], strings.TrimSpace(args[1])

	ctx := context.Background()
	var err error
	switch strings.ToLower(field) {
	case "name", "название":
		err = h.countries.EditName(ctx, sender.ID, value)
	case "memename", "мемнейм":
		err = h.countries.EditMemename(ctx, sender.ID, value)
	case "ideology", "идеология":
		err = h.countries.EditIdeology(ctx, sender.ID, value)
	case "description", "описание":
		err = h.countries.EditDescription(ctx, sender.ID, value)
	case "map", "карта":
		err = h.countries.SetMapURL(ctx, sender.ID, value)
	case "link", "ссылка":
		err = h.countries.SetCountryURL(ctx, sender.ID, value)
	default:
		return c.Reply("Неизвестное поле. Доступно: name, memename, ideology, description, map, link")
	}
	if err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply("✅ Страна обновлена")
}

// HandleSetFlag handles /setflag: reply to a photo to set the flag.
func (h *CountryHandler) HandleSetFlag(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	msg := c.Message()
	var photo *tele.Photo
	if msg.Photo != nil {
		photo = msg.Photo
	} else if msg.ReplyTo != nil && msg.ReplyTo.Photo != nil {
		photo = msg.ReplyTo.Photo
	}
	if photo == nil {
		return c.Reply("Отправьте /setflag подписью к изображению флага")
	}

	if err := h.countries.SetFlag(context.Background(), sender.ID, photo.FileID); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply("🏳️ Флаг обновлён")
}

// HandleBindChat handles /bindchat: bind the current group to the
// ruler's country for daily bonus broadcasts.
func (h *CountryHandler) HandleBindChat(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return c.Reply("Команда доступна только в группе")
	}

	if err := h.countries.BindChat(context.Background(), sender.ID, chat.ID); err != nil {
		return c.Reply(errText(err))
	}
	return c.Reply("🔗 Чат привязан к вашей стране")
}
