package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"nation-game-bot/internal/config"
	"nation-game-bot/internal/handler"
	"nation-game-bot/internal/repository"
	"nation-game-bot/internal/service"
)

// minEventAdminLevel gates roleplay event management commands.
const minEventAdminLevel = 1

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
	countryHandler *handler.CountryHandler
	wizardHandler  *handler.WizardHandler
	casinoHandler  *handler.CasinoHandler
	reviewHandler  *handler.ReviewHandler
	eventHandler   *handler.EventHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	LedgerService  *service.LedgerService
	CountryService *service.CountryService
	ReviewService  *service.ReviewService
	EventService   *service.EventService
	CasinoService  *service.CasinoService
	PunishmentRepo *repository.PunishmentRepository
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,

		accountHandler: handler.NewAccountHandler(deps.AccountService, deps.LedgerService),
		adminHandler:   handler.NewAdminHandler(deps.AccountService, deps.LedgerService, deps.PunishmentRepo),
		countryHandler: handler.NewCountryHandler(deps.AccountService, deps.CountryService),
		wizardHandler:  handler.NewWizardHandler(deps.CountryService),
		casinoHandler:  handler.NewCasinoHandler(deps.AccountService, deps.CasinoService),
		reviewHandler:  handler.NewReviewHandler(deps.CountryService, deps.ReviewService),
		eventHandler:   handler.NewEventHandler(deps.EventService),
	}

	b.registerMiddleware(deps.AccountService)
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware(accounts *service.AccountService) {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(EnsureUserMiddleware(accounts))
}

func (b *Bot) registerHandlers() {
	// Account surface
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/pay", b.accountHandler.HandlePay)
	b.bot.Handle("/donate", b.accountHandler.HandleDonate)

	// Country lifecycle
	b.bot.Handle("/createcountry", b.wizardHandler.HandleCreate)
	b.bot.Handle("/cancel", b.wizardHandler.HandleCancel)
	b.bot.Handle("/join", b.countryHandler.HandleJoin)
	b.bot.Handle("/leave", b.countryHandler.HandleLeave)
	b.bot.Handle("/kick", b.countryHandler.HandleKick)
	b.bot.Handle("/pardon", b.countryHandler.HandlePardon)
	b.bot.Handle("/setposition", b.countryHandler.HandleSetPosition)
	b.bot.Handle("/transferpower", b.countryHandler.HandleTransferPower)
	b.bot.Handle("/deletecountry", b.countryHandler.HandleDelete)
	b.bot.Handle("/settax", b.countryHandler.HandleSetTax)
	b.bot.Handle("/collect", b.countryHandler.HandleCollect)
	b.bot.Handle("/mycountry", b.countryHandler.HandleMyCountry)
	b.bot.Handle("/country", b.countryHandler.HandleCountry)
	b.bot.Handle("/topcountries", b.countryHandler.HandleTopCountries)
	b.bot.Handle("/editcountry", b.countryHandler.HandleEdit)
	b.bot.Handle("/setflag", b.countryHandler.HandleSetFlag)
	b.bot.Handle("/bindchat", b.countryHandler.HandleBindChat)

	// Reviews
	b.bot.Handle("/rate", b.reviewHandler.HandleRate)

	// Casino
	b.bot.Handle("/casino", b.casinoHandler.HandleReel)
	b.bot.Handle("/casino3", b.casinoHandler.HandleGrid)
	b.bot.Handle("/games", b.casinoHandler.HandleGames)
	b.bot.Handle("/ludoman", b.casinoHandler.HandleLudoman)

	// Roleplay events: joining is open, management needs an admin level
	b.bot.Handle("/joinevent", b.eventHandler.HandleJoin)
	b.bot.Handle("/leaveevent", b.eventHandler.HandleLeave)
	b.bot.Handle("/events", b.eventHandler.HandleList)

	eventAdmin := b.bot.Group()
	eventAdmin.Use(AdminMiddleware(b.cfg, minEventAdminLevel))
	eventAdmin.Handle("/event", b.eventHandler.HandleStart)
	eventAdmin.Handle("/finishevent", b.eventHandler.HandleFinish)
	eventAdmin.Handle("/kickevent", b.eventHandler.HandleKickParticipant)

	// Ledger administration
	admin := b.bot.Group()
	admin.Use(AdminMiddleware(b.cfg, minEventAdminLevel))
	admin.Handle("/give", b.adminHandler.HandleGive)
	admin.Handle("/setadmin", b.adminHandler.HandleSetAdmin)
	admin.Handle("/ban", b.adminHandler.HandleBan)
	admin.Handle("/unban", b.adminHandler.HandleUnban)
	admin.Handle("/punishments", b.adminHandler.HandlePunishments)

	// Free-form text feeds the creation wizard
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		handled, err := b.wizardHandler.HandleText(c)
		if handled {
			return err
		}
		return nil
	})
}

// NotifyBonus broadcasts a daily bonus announcement to a country's
// bound chat. Implements the scheduler's Notifier interface.
func (b *Bot) NotifyBonus(chatID int64, countryName string, bonus int64, citizens int) {
	_, err := b.bot.Send(tele.ChatID(chatID), fmt.Sprintf(
		"🌅 Ежедневный бонус страны «%s»!\n💰 %d очков каждому из %d граждан",
		countryName, bonus, citizens))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send bonus notification")
	}
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
