package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/config"
	"nation-game-bot/internal/model"
	"nation-game-bot/internal/pkg/fuzzy"
	"nation-game-bot/internal/repository"
)

// Country lifecycle errors.
var (
	ErrAlreadyRuler       = errors.New("user already rules a country")
	ErrAlreadyCitizen     = errors.New("user is already a citizen of this country")
	ErrAlreadyInCountry   = errors.New("user is already a citizen of a country")
	ErrNotRuler           = errors.New("user does not rule a country")
	ErrNotCitizen         = errors.New("user is not a citizen")
	ErrCreationCooldown   = errors.New("country creation cooldown active")
	ErrCreationBanned     = errors.New("user is banned from creating countries")
	ErrNameReserved       = errors.New("country name is reserved")
	ErrNameTaken          = errors.New("country name is already taken")
	ErrMemenameTaken      = errors.New("country memename is already taken")
	ErrChatTaken          = errors.New("chat is already bound to a country")
	ErrBlacklisted        = errors.New("user is blacklisted from this country")
	ErrCountryNotEmpty    = errors.New("country still has citizens besides the ruler")
	ErrRulerCannotLeave   = errors.New("ruler must transfer power or delete the country first")
	ErrTaxRateOutOfRange  = errors.New("tax rate out of range")
	ErrFieldTooLong       = errors.New("field value out of bounds")
	ErrTargetNotInCountry = errors.New("target is not a citizen of this country")
)

// Field length bounds for editable country attributes.
const (
	maxNameLen        = 100
	minIdeologyLen    = 3
	maxIdeologyLen    = 50
	maxDescriptionLen = 1000
)

// CountryService handles the country lifecycle: creation, membership,
// power transfer, taxation and deletion.
type CountryService struct {
	db          TxBeginner
	cfg         *config.Config
	userRepo    *repository.UserRepository
	countryRepo *repository.CountryRepository
	historyRepo *repository.HistoryRepository
	reviewRepo  *repository.ReviewRepository
	punishRepo  *repository.PunishmentRepository
}

// NewCountryService creates a new CountryService instance.
func NewCountryService(
	db TxBeginner,
	cfg *config.Config,
	userRepo *repository.UserRepository,
	countryRepo *repository.CountryRepository,
	historyRepo *repository.HistoryRepository,
	reviewRepo *repository.ReviewRepository,
	punishRepo *repository.PunishmentRepository,
) *CountryService {
	return &CountryService{
		db:          db,
		cfg:         cfg,
		userRepo:    userRepo,
		countryRepo: countryRepo,
		historyRepo: historyRepo,
		reviewRepo:  reviewRepo,
		punishRepo:  punishRepo,
	}
}

// CheckCreationAllowed verifies that the user may start the creation
// wizard: not banned, not already a ruler or citizen anywhere, cooldown
// elapsed.
func (s *CountryService) CheckCreationAllowed(ctx context.Context, userID int64) error {
	banned, err := s.punishRepo.HasActive(ctx, userID, model.PunishCountryCreationBan)
	if err != nil {
		return fmt.Errorf("failed to check creation ban: %w", err)
	}
	if banned {
		return ErrCreationBanned
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return classifyUserErr(err)
	}
	if user.IsRuler {
		return ErrAlreadyRuler
	}
	if user.CountryID != nil {
		return ErrAlreadyInCountry
	}
	if user.LastCountryCreation != nil {
		if elapsed := time.Since(*user.LastCountryCreation); elapsed < s.cfg.Economy.CreationCooldown {
			return fmt.Errorf("%w: %s remaining", ErrCreationCooldown,
				(s.cfg.Economy.CreationCooldown - elapsed).Round(time.Minute))
		}
	}
	return nil
}

// ValidateName checks a proposed country name against length bounds and
// the reserved names table.
func (s *CountryService) ValidateName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxNameLen {
		return ErrFieldTooLong
	}
	reserved, err := s.countryRepo.IsNameReserved(ctx, name)
	if err != nil {
		return err
	}
	if reserved {
		return ErrNameReserved
	}
	return nil
}

// Create founds a new country with the wizard-collected fields. The
// founder becomes ruler and citizen, receives the coronation bonus, and
// the creation cooldown is stamped, all in one transaction.
func (s *CountryService) Create(ctx context.Context, p repository.CreateParams) (*model.Country, error) {
	if err := s.CheckCreationAllowed(ctx, p.RulerID); err != nil {
		return nil, err
	}
	if err := s.ValidateName(ctx, p.Name); err != nil {
		return nil, err
	}
	if n := len([]rune(p.Ideology)); n < minIdeologyLen || n > maxIdeologyLen {
		return nil, ErrFieldTooLong
	}
	if len([]rune(p.Description)) > maxDescriptionLen {
		return nil, ErrFieldTooLong
	}

	var country *model.Country
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		var err error
		country, err = countries.Create(ctx, p)
		if err != nil {
			return err
		}
		if err := users.SetCitizenship(ctx, p.RulerID, &country.ID, model.PositionRuler, true); err != nil {
			return err
		}
		if err := users.StampCreationCooldown(ctx, p.RulerID); err != nil {
			return err
		}
		if bonus := s.cfg.Economy.CoronationBonus; bonus > 0 {
			if _, err := users.AddPoints(ctx, p.RulerID, bonus); err != nil {
				return err
			}
			if _, err := history.Append(ctx, nil, p.RulerID, model.EventCoronation, bonus,
				fmt.Sprintf("Основание страны «%s»", country.Name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classifyCountryConflict(err)
	}
	return country, nil
}

// classifyCountryConflict maps unique violations onto specific reasons.
func classifyCountryConflict(err error) error {
	constraint, ok := repository.UniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(constraint, "memename"):
		return ErrMemenameTaken
	case strings.Contains(constraint, "name"):
		return ErrNameTaken
	case strings.Contains(constraint, "chat"):
		return ErrChatTaken
	default:
		return err
	}
}

// Resolve finds a country by numeric ID, exact name, or fuzzy name match
// against names and memenames using the configured threshold.
func (s *CountryService) Resolve(ctx context.Context, query string) (*model.Country, error) {
	query = strings.TrimSpace(query)
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		country, err := s.countryRepo.GetByID(ctx, id)
		if err == nil {
			return country, nil
		}
		if !errors.Is(err, repository.ErrCountryNotFound) {
			return nil, err
		}
	}

	country, err := s.countryRepo.GetByName(ctx, query)
	if err == nil {
		return country, nil
	}
	if !errors.Is(err, repository.ErrCountryNotFound) {
		return nil, err
	}

	refs, err := s.countryRepo.AllNames(ctx)
	if err != nil {
		return nil, err
	}

	bestScore := 0.0
	var bestID int64
	for _, ref := range refs {
		score := fuzzy.Similarity(query, ref.Name)
		if ms := fuzzy.Similarity(query, ref.Memename); ms > score {
			score = ms
		}
		if score > bestScore {
			bestScore = score
			bestID = ref.ID
		}
	}
	if bestScore < s.cfg.Economy.FuzzyMatchThreshold {
		return nil, ErrCountryNotFound
	}
	return s.countryRepo.GetByID(ctx, bestID)
}

// Join makes the user a citizen of the country. Rulers must abdicate
// first; blacklisted users are rejected. Switching countries is recorded
// distinctly from a first join.
func (s *CountryService) Join(ctx context.Context, userID, countryID int64) (*model.Country, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	if user.IsRuler {
		return nil, ErrAlreadyRuler
	}
	if user.CountryID != nil && *user.CountryID == countryID {
		return nil, ErrAlreadyCitizen
	}

	country, err := s.countryRepo.GetByID(ctx, countryID)
	if err != nil {
		return nil, classifyCountryErr(err)
	}

	blacklisted, err := s.countryRepo.IsBlacklisted(ctx, countryID, userID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrBlacklisted
	}

	eventType := model.EventJoinCountry
	reason := fmt.Sprintf("Вступление в страну «%s»", country.Name)
	if user.CountryID != nil {
		eventType = model.EventChangeCountry
		reason = fmt.Sprintf("Переезд в страну «%s»", country.Name)
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		if err := users.SetCitizenship(ctx, userID, &countryID, model.PositionCitizen, false); err != nil {
			return err
		}
		_, err := history.Append(ctx, nil, userID, eventType, 0, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join country: %w", err)
	}
	return country, nil
}

// Leave removes the user from their country. Rulers cannot leave.
func (s *CountryService) Leave(ctx context.Context, userID int64) (*model.Country, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, classifyUserErr(err)
	}
	if user.IsRuler {
		return nil, ErrRulerCannotLeave
	}
	if user.CountryID == nil {
		return nil, ErrNotCitizen
	}

	country, err := s.countryRepo.GetByID(ctx, *user.CountryID)
	if err != nil {
		return nil, classifyCountryErr(err)
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		if err := users.SetCitizenship(ctx, userID, nil, model.PositionTraveler, false); err != nil {
			return err
		}
		_, err := history.Append(ctx, nil, userID, model.EventLeaveCountry, 0,
			fmt.Sprintf("Выход из страны «%s»", country.Name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to leave country: %w", err)
	}
	return country, nil
}

// Kick expels a citizen from the ruler's country, optionally adding the
// user to the country blacklist so they cannot rejoin.
func (s *CountryService) Kick(ctx context.Context, rulerID, targetID int64, blacklist bool) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if targetID == rulerID {
		return ErrSelfTarget
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return classifyUserErr(err)
	}
	if target.CountryID == nil || *target.CountryID != country.ID {
		return ErrTargetNotInCountry
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		if err := users.SetCitizenship(ctx, targetID, nil, model.PositionTraveler, false); err != nil {
			return err
		}
		if blacklist {
			if err := countries.AddToBlacklist(ctx, country.ID, targetID); err != nil {
				return err
			}
		}
		_, err := history.Append(ctx, &rulerID, targetID, model.EventKicked, 0,
			fmt.Sprintf("Изгнание из страны «%s»", country.Name))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to kick citizen: %w", err)
	}
	return nil
}

// Pardon lifts a country blacklist entry. Returns false when the user
// was not blacklisted.
func (s *CountryService) Pardon(ctx context.Context, rulerID, targetID int64) (bool, error) {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return false, err
	}
	return s.countryRepo.RemoveFromBlacklist(ctx, country.ID, targetID)
}

// SetPosition lets the ruler set a citizen's role label.
func (s *CountryService) SetPosition(ctx context.Context, rulerID, targetID int64, position string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if n := len([]rune(position)); n == 0 || n > maxIdeologyLen {
		return ErrFieldTooLong
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return classifyUserErr(err)
	}
	if target.CountryID == nil || *target.CountryID != country.ID {
		return ErrTargetNotInCountry
	}
	if target.IsRuler {
		return ErrSelfTarget
	}
	return s.userRepo.SetPosition(ctx, targetID, position)
}

// TransferPower crowns a new ruler. Bots (negative IDs) and sitting
// rulers of other countries are rejected; a heir who is not yet a
// citizen is enrolled as part of the same transaction. The new ruler
// receives the coronation bonus and the old ruler stays a citizen with
// the former-ruler label.
func (s *CountryService) TransferPower(ctx context.Context, rulerID, newRulerID int64) error {
	if newRulerID < 0 {
		return ErrBotTarget
	}
	if newRulerID == rulerID {
		return ErrSelfTarget
	}

	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	heir, err := s.userRepo.GetByID(ctx, newRulerID)
	if err != nil {
		return classifyUserErr(err)
	}
	if heir.IsRuler {
		return ErrAlreadyRuler
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		if err := countries.SetRuler(ctx, country.ID, newRulerID); err != nil {
			return err
		}
		if err := users.SetCitizenship(ctx, rulerID, &country.ID, model.PositionFormerRuler, false); err != nil {
			return err
		}
		if err := users.SetCitizenship(ctx, newRulerID, &country.ID, model.PositionRuler, true); err != nil {
			return err
		}
		if bonus := s.cfg.Economy.CoronationBonus; bonus > 0 {
			if _, err := users.AddPoints(ctx, newRulerID, bonus); err != nil {
				return err
			}
			if _, err := history.Append(ctx, &rulerID, newRulerID, model.EventCoronation, bonus,
				fmt.Sprintf("Коронация в стране «%s»", country.Name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to transfer power: %w", err)
	}
	return nil
}

// Delete dissolves the ruler's country. Rejected while any non-ruler
// citizen remains; cascades reviews and blacklist entries.
func (s *CountryService) Delete(ctx context.Context, rulerID int64) (*model.Country, error) {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return nil, err
	}

	population, err := s.countryRepo.PopulationExcludingRuler(ctx, country.ID, rulerID)
	if err != nil {
		return nil, err
	}
	if population > 0 {
		return nil, ErrCountryNotEmpty
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)
		reviews := s.reviewRepo.WithTx(tx)

		if err := reviews.DeleteFor(ctx, country.ID); err != nil {
			return err
		}
		if err := countries.DeleteBlacklistFor(ctx, country.ID); err != nil {
			return err
		}
		if err := users.SetCitizenship(ctx, rulerID, nil, model.PositionFormerRuler, false); err != nil {
			return err
		}
		return countries.Delete(ctx, country.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete country: %w", err)
	}
	return country, nil
}

// SetTaxRate sets the country's tax rate, capped by configuration.
func (s *CountryService) SetTaxRate(ctx context.Context, rulerID int64, rate float64) error {
	if rate < 0 || rate > s.cfg.Economy.TaxRateCap {
		return ErrTaxRateOutOfRange
	}
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	return s.countryRepo.SetTaxRate(ctx, country.ID, rate)
}

// taxBasisPoints converts a fractional tax rate into basis points so the
// forecast and the collection sweep share exact integer arithmetic.
func taxBasisPoints(rate float64) int64 {
	return int64(math.Round(rate * 10000))
}

// taxOf computes floor(points × bp / 10000) for positive points without
// overflowing on large balances.
func taxOf(points, bp int64) int64 {
	return points/10000*bp + points%10000*bp/10000
}

// TaxForecast returns how much a collection run would currently yield.
func (s *CountryService) TaxForecast(ctx context.Context, rulerID int64) (int64, error) {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return 0, err
	}
	return s.countryRepo.TaxableSum(ctx, country.ID, rulerID, taxBasisPoints(country.TaxRate))
}

// CollectTaxes deducts floor(points × rate) from every non-ruler citizen
// with a positive balance and credits the total to the country's
// influence score. One history row per taxed citizen, all atomic.
func (s *CountryService) CollectTaxes(ctx context.Context, rulerID int64) (int64, int, error) {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return 0, 0, err
	}
	bp := taxBasisPoints(country.TaxRate)
	if bp <= 0 {
		return 0, 0, nil
	}

	var total int64
	var taxed int
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		countries := s.countryRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)

		citizens, err := users.CitizensOf(ctx, country.ID)
		if err != nil {
			return err
		}
		for _, citizen := range citizens {
			if citizen.TelegramID == rulerID || citizen.Points <= 0 {
				continue
			}
			tax := taxOf(citizen.Points, bp)
			if tax <= 0 {
				continue
			}
			if _, err := users.AddPoints(ctx, citizen.TelegramID, -tax); err != nil {
				return err
			}
			if _, err := history.Append(ctx, &rulerID, citizen.TelegramID, model.EventTaxCollected, -tax,
				fmt.Sprintf("Налог страны «%s»", country.Name)); err != nil {
				return err
			}
			total += tax
			taxed++
		}
		if total > 0 {
			return countries.AddInfluence(ctx, country.ID, total)
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to collect taxes: %w", err)
	}
	return total, taxed, nil
}

// EditName renames the ruler's country after reserved-name validation.
func (s *CountryService) EditName(ctx context.Context, rulerID int64, name string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if err := s.ValidateName(ctx, name); err != nil {
		return err
	}
	if err := s.countryRepo.UpdateField(ctx, country.ID, "name", strings.TrimSpace(name)); err != nil {
		return classifyCountryConflict(err)
	}
	return nil
}

// EditMemename changes the country's short meme handle.
func (s *CountryService) EditMemename(ctx context.Context, rulerID int64, memename string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	memename = strings.TrimSpace(memename)
	if n := len([]rune(memename)); n == 0 || n > maxNameLen {
		return ErrFieldTooLong
	}
	if err := s.countryRepo.UpdateField(ctx, country.ID, "memename", memename); err != nil {
		return classifyCountryConflict(err)
	}
	return nil
}

// EditIdeology updates the country's ideology within length bounds.
func (s *CountryService) EditIdeology(ctx context.Context, rulerID int64, ideology string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if n := len([]rune(ideology)); n < minIdeologyLen || n > maxIdeologyLen {
		return ErrFieldTooLong
	}
	return s.countryRepo.UpdateField(ctx, country.ID, "ideology", ideology)
}

// EditDescription updates the country's description within length bounds.
func (s *CountryService) EditDescription(ctx context.Context, rulerID int64, description string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if len([]rune(description)) > maxDescriptionLen {
		return ErrFieldTooLong
	}
	return s.countryRepo.UpdateField(ctx, country.ID, "description", description)
}

// SetFlag stores the Telegram file ID of the country's flag image.
func (s *CountryService) SetFlag(ctx context.Context, rulerID int64, fileID string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	return s.countryRepo.UpdateField(ctx, country.ID, "flag_file_id", fileID)
}

// SetMapURL stores the country's map link. "-" clears it.
func (s *CountryService) SetMapURL(ctx context.Context, rulerID int64, url string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if url == "-" {
		return s.countryRepo.UpdateField(ctx, country.ID, "map_url", nil)
	}
	return s.countryRepo.UpdateField(ctx, country.ID, "map_url", url)
}

// SetCountryURL stores the country's external link. "-" clears it.
func (s *CountryService) SetCountryURL(ctx context.Context, rulerID int64, url string) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if url == "-" {
		return s.countryRepo.UpdateField(ctx, country.ID, "country_url", nil)
	}
	return s.countryRepo.UpdateField(ctx, country.ID, "country_url", url)
}

// BindChat binds the ruler's country to an external chat for broadcasts.
func (s *CountryService) BindChat(ctx context.Context, rulerID, chatID int64) error {
	country, err := s.requireRuler(ctx, rulerID)
	if err != nil {
		return err
	}
	if err := s.countryRepo.UpdateField(ctx, country.ID, "chat_id", chatID); err != nil {
		return classifyCountryConflict(err)
	}
	return nil
}

// GetStats assembles a country's profile card.
func (s *CountryService) GetStats(ctx context.Context, countryID int64) (*model.CountryStats, error) {
	country, err := s.countryRepo.GetByID(ctx, countryID)
	if err != nil {
		return nil, classifyCountryErr(err)
	}

	ruler, err := s.userRepo.GetByID(ctx, country.RulerID)
	if err != nil {
		return nil, classifyUserErr(err)
	}

	citizens, err := s.userRepo.CitizensOf(ctx, countryID)
	if err != nil {
		return nil, err
	}

	stats := &model.CountryStats{
		Country:      country,
		RulerName:    ruler.FullName,
		CitizenCount: len(citizens),
	}
	for _, c := range citizens {
		stats.CitizenPoints += c.Points
	}
	return stats, nil
}

// GetByRuler retrieves the country ruled by the given user.
func (s *CountryService) GetByRuler(ctx context.Context, rulerID int64) (*model.Country, error) {
	return s.requireRuler(ctx, rulerID)
}

// List retrieves a page of countries with the given sort order.
func (s *CountryService) List(ctx context.Context, sortBy string, offset, limit int) ([]*model.Country, int, error) {
	countries, err := s.countryRepo.List(ctx, sortBy, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.countryRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return countries, total, nil
}

func (s *CountryService) requireRuler(ctx context.Context, rulerID int64) (*model.Country, error) {
	country, err := s.countryRepo.GetByRulerID(ctx, rulerID)
	if err != nil {
		if errors.Is(err, repository.ErrCountryNotFound) {
			return nil, ErrNotRuler
		}
		return nil, err
	}
	return country, nil
}

func classifyCountryErr(err error) error {
	if errors.Is(err, repository.ErrCountryNotFound) {
		return ErrCountryNotFound
	}
	return err
}
