package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nation-game-bot/internal/model"
	"nation-game-bot/internal/repository"
)

// Roleplay event errors.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAlreadyActive = errors.New("admin already has an active event")
	ErrNotEventOwner      = errors.New("only the event's admin can manage it")
	ErrAlreadyJoined      = errors.New("already participating in this event")
	ErrNotParticipant     = errors.New("not participating in this event")
)

// EventService handles roleplay events: an admin opens one per chat,
// users enroll, and finishing the event pays every participant the
// reward in one transaction.
type EventService struct {
	db          TxBeginner
	userRepo    *repository.UserRepository
	historyRepo *repository.HistoryRepository
	eventRepo   *repository.EventRepository
}

// NewEventService creates a new EventService instance.
func NewEventService(
	db TxBeginner,
	userRepo *repository.UserRepository,
	historyRepo *repository.HistoryRepository,
	eventRepo *repository.EventRepository,
) *EventService {
	return &EventService{
		db:          db,
		userRepo:    userRepo,
		historyRepo: historyRepo,
		eventRepo:   eventRepo,
	}
}

// Start opens a roleplay event. One active event per admin.
func (s *EventService) Start(ctx context.Context, adminID, chatID int64, title string, description *string, reward int64) (*model.Event, error) {
	if reward < 0 {
		return nil, ErrInvalidAmount
	}
	if title == "" {
		return nil, errors.New("event title required")
	}

	_, err := s.eventRepo.ActiveByAdmin(ctx, adminID)
	if err == nil {
		return nil, ErrEventAlreadyActive
	}
	if !errors.Is(err, repository.ErrEventNotFound) {
		return nil, err
	}

	event, err := s.eventRepo.Create(ctx, adminID, chatID, title, description, reward)
	if err != nil {
		return nil, fmt.Errorf("failed to start event: %w", err)
	}
	return event, nil
}

// Join enrolls a user in an event.
func (s *EventService) Join(ctx context.Context, eventID, userID int64) (*model.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, classifyEventErr(err)
	}
	if event.Status != model.EventStatusActive {
		return nil, ErrEventNotFound
	}

	added, err := s.eventRepo.AddParticipant(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, ErrAlreadyJoined
	}
	return event, nil
}

// Leave withdraws a user from an event before it finishes.
func (s *EventService) Leave(ctx context.Context, eventID, userID int64) error {
	removed, err := s.eventRepo.RemoveParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotParticipant
	}
	return nil
}

// Kick removes a participant; only the event's admin may do this.
func (s *EventService) Kick(ctx context.Context, adminID, eventID, userID int64) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return classifyEventErr(err)
	}
	if event.AdminID != adminID {
		return ErrNotEventOwner
	}
	return s.Leave(ctx, eventID, userID)
}

// Finish closes the event and pays every participant the reward, with
// one history row each, atomically.
func (s *EventService) Finish(ctx context.Context, adminID, eventID int64) (*model.Event, []int64, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, classifyEventErr(err)
	}
	if event.AdminID != adminID {
		return nil, nil, ErrNotEventOwner
	}

	var participants []int64
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)
		history := s.historyRepo.WithTx(tx)
		events := s.eventRepo.WithTx(tx)

		if err := events.Finish(ctx, eventID); err != nil {
			return err
		}

		participants, err = events.Participants(ctx, eventID)
		if err != nil {
			return err
		}
		if event.RewardPoints == 0 {
			return nil
		}
		for _, userID := range participants {
			if _, err := users.AddPoints(ctx, userID, event.RewardPoints); err != nil {
				return err
			}
			if _, err := history.Append(ctx, &adminID, userID, model.EventRPReward, event.RewardPoints,
				fmt.Sprintf("Награда за РП-ивент «%s»", event.Title)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, fmt.Errorf("failed to finish event: %w", err)
	}
	return event, participants, nil
}

// ActiveByAdmin retrieves the admin's currently running event.
func (s *EventService) ActiveByAdmin(ctx context.Context, adminID int64) (*model.Event, error) {
	event, err := s.eventRepo.ActiveByAdmin(ctx, adminID)
	if err != nil {
		return nil, classifyEventErr(err)
	}
	return event, nil
}

// ActiveInChat lists the events currently running in a chat.
func (s *EventService) ActiveInChat(ctx context.Context, chatID int64) ([]*model.Event, error) {
	return s.eventRepo.ActiveInChat(ctx, chatID)
}

func classifyEventErr(err error) error {
	if errors.Is(err, repository.ErrEventNotFound) {
		return ErrEventNotFound
	}
	return err
}
