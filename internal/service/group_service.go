package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipflow/api/internal/model"
	"github.com/clipflow/api/internal/store"
)

// GroupStore is the slice of the store the group service needs.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
	UpsertGroupItem(ctx context.Context, item *model.GroupItem) error
}

// GroupService manages groups and their per-platform sessions
type GroupService struct {
	store GroupStore
}

func NewGroupService(groupStore GroupStore) *GroupService {
	return &GroupService{store: groupStore}
}

// CreateGroup creates a new group for the user
func (s *GroupService) CreateGroup(ctx context.Context, userID, name string) (*model.Group, error) {
	group := &model.Group{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// PutSession stores or replaces the session credential for one
// (group, platform) pair
func (s *GroupService) PutSession(ctx context.Context, userID string, groupID int64, platform model.Platform, data model.SessionData) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get group: %w", err)
	}
	if group.UserID != userID {
		return ErrNotFound
	}

	item := &model.GroupItem{
		GroupID: groupID,
		Type:    platform,
		Data:    data,
	}
	if err := s.store.UpsertGroupItem(ctx, item); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}
