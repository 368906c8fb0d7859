package handler

import (
	"context"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/service"
)

// ReviewHandler handles the country rating command.
type ReviewHandler struct {
	countries *service.CountryService
	reviews   *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(countries *service.CountryService, reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{countries: countries, reviews: reviews}
}

// HandleRate handles /rate <страна> <1-5>.
func (h *ReviewHandler) HandleRate(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	payload := strings.TrimSpace(c.Message().Payload)
	idx := strings.LastIndex(payload, " ")
	if idx < 0 {
		return c.Reply("Использование: /rate <страна> <оценка 1-5>")
	}
	query := strings.TrimSpace(payload[:idx])
	rating, err := strconv.Atoi(payload[idx+1:])
	if err != nil {
		return c.Reply(errText(service.ErrRatingOutOfRange))
	}

	ctx := context.Background()
	country, err := h.countries.Resolve(ctx, query)
	if err != nil {
		return c.Reply(errText(err))
	}

	country, err = h.reviews.Rate(ctx, sender.ID, country.ID, rating)
	if err != nil {
		return c.Reply(errText(err))
	}

	return c.Reply(strings.Repeat("⭐", rating) +
		"\nОценка принята! Рейтинг «" + country.Name + "»: " +
		strconv.FormatFloat(country.AvgRating, 'f', 1, 64))
}
