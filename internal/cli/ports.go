package cli

import (
	"context"

	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/quest"
)

// API is the slice of the REST client the commands call directly.
type API interface {
	Login(ctx context.Context, providerToken string) (*domain.LoginResponse, error)
	Me(ctx context.Context) (*domain.User, error)
	StartQuest(ctx context.Context, questID domain.QuestID) (*domain.QuestResponse, error)
	Interact(ctx context.Context, req domain.InteractRequest) (*domain.QuestResponse, error)
	Report(ctx context.Context, questID domain.QuestID) (*domain.QuestReport, error)
}

// QuestSession drives one questionnaire attempt over the quest channel.
type QuestSession interface {
	InitQuest(ctx context.Context, questID domain.QuestID, token string) error
	SubmitAnswer(answer string, questionIndex int) error
	RequestResult() error
	ResetQuest()
	Snapshot() quest.Snapshot
	Subscribe(fn func(quest.Snapshot)) (unsubscribe func())
}

var _ QuestSession = (*quest.Store)(nil)
