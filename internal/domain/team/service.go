package team

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/dailylog/internal/domain/account"
	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/repository"
	"github.com/ganot/dailylog/internal/tracking"
	"github.com/google/uuid"
)

// Service manages group to project bindings.
type Service struct {
	repo     Repository
	accounts Accounts
	projects Projects
	activity ActivityRecorder
	logger   *slog.Logger
}

// NewService creates a new team service. activity may be nil.
func NewService(repo Repository, accounts Accounts, projects Projects, activity ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, accounts: accounts, projects: projects, activity: activity, logger: logger}
}

// Bind validates the project with the requester's credential and binds the
// group to it, replacing any prior binding.
func (s *Service) Bind(ctx context.Context, req BindRequest) (*BindResult, error) {
	name := strings.TrimSpace(req.Name)
	if req.GroupID == 0 || req.ProjectID <= 0 || name == "" {
		return nil, ErrInvalidInput
	}

	credential, err := s.credential(ctx, req.RequesterID)
	if err != nil {
		return nil, err
	}

	proj, err := s.projects.Project(ctx, credential, req.ProjectID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, req.ProjectID)
		}
		return nil, fmt.Errorf("looking up project %d: %w", req.ProjectID, err)
	}

	team := &Team{
		ID:          uuid.New().String(),
		GroupID:     req.GroupID,
		ProjectID:   proj.ID,
		ProjectCode: proj.Identifier,
		Name:        name,
		CreatedBy:   req.RequesterID,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	previous, err := s.repo.Replace(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("replacing team binding: %w", err)
	}

	s.logger.Info("team bound", "group_id", req.GroupID, "project_id", proj.ID, "project_code", proj.Identifier, "replaced", previous != nil)
	s.record(ctx, req.GroupID, req.RequesterID, activity.TypeTeamBound,
		fmt.Sprintf("Team %q bound to project %s", name, proj.Identifier))
	return &BindResult{Team: team, Previous: previous}, nil
}

// Unbind removes the group's binding. Only its creator may do so.
func (s *Service) Unbind(ctx context.Context, groupID, requesterID int64) (*Team, error) {
	team, err := s.ForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if team.CreatedBy != requesterID {
		return nil, ErrNotCreator
	}
	if err := s.repo.Delete(ctx, team.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("deleting team: %w", err)
	}

	s.logger.Info("team unbound", "group_id", groupID, "team", team.Name)
	s.record(ctx, groupID, requesterID, activity.TypeTeamUnbound, fmt.Sprintf("Team %q removed", team.Name))
	return team, nil
}

// ForGroup returns the group's binding.
func (s *Service) ForGroup(ctx context.Context, groupID int64) (*Team, error) {
	team, err := s.repo.GetByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return team, nil
}

// ListByCreator lists bindings created by a user.
func (s *Service) ListByCreator(ctx context.Context, creatorID int64) ([]Team, error) {
	teams, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

// Projects lists projects the requester can see.
func (s *Service) Projects(ctx context.Context, requesterID int64) ([]tracking.Project, error) {
	credential, err := s.credential(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return s.projects.Projects(ctx, credential)
}

func (s *Service) credential(ctx context.Context, chatID int64) (string, error) {
	acct, err := s.accounts.ResolveByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return "", ErrNoCredential
		}
		return "", err
	}
	credential, ok := s.accounts.CredentialFor(ctx, acct)
	if !ok {
		return "", ErrNoCredential
	}
	return credential, nil
}

func (s *Service) record(ctx context.Context, groupID, actorID int64, kind activity.ActivityType, summary string) {
	if s.activity == nil {
		return
	}
	actor := actorID
	if err := s.activity.LogActivity(ctx, &activity.ActivityEntry{
		GroupID:      groupID,
		ActorID:      &actor,
		ActivityType: kind,
		Summary:      summary,
	}); err != nil {
		s.logger.Warn("activity log failed", "group_id", groupID, "type", kind, "error", err)
	}
}
