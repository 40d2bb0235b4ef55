// Package subscriber keeps a client-side copy of the marketplace lists in
// step with the server's broadcast stream. It holds a pure reducer over the
// cached lists, the per-connection subscription state machine and the
// WebSocket reader that reconnects after a drop.
package subscriber

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/client/models"
	"github.com/dmitrijs2005/sketchhub/internal/common"
)

var ErrUnknownEvent = errors.New("unknown event")

// Action is the change kind carried by category and user events. Model
// events arrive with the short create/delete forms and are normalized.
type Action string

const (
	Created Action = common.ActionCreated
	Updated Action = common.ActionUpdated
	Deleted Action = common.ActionDeleted
)

// Event is a decoded broadcast frame.
type Event interface {
	Channel() string
}

type ModelCreated struct {
	Model models.Model
}

type ModelDeleted struct {
	ID int64
}

// FavoriteCountChanged patches one model's counter. A nil Count means the
// sender only knows that a favorite was added.
type FavoriteCountChanged struct {
	ModelID int64
	Count   *int64
}

type CategoryChanged struct {
	Action   Action
	Category models.Category
}

type UserChanged struct {
	Action Action
	User   models.User
}

// SubscribeAck acknowledges one joined channel.
type SubscribeAck struct {
	Name string
}

func (ModelCreated) Channel() string         { return common.ChannelModels }
func (ModelDeleted) Channel() string         { return common.ChannelModels }
func (FavoriteCountChanged) Channel() string { return common.ChannelModels }
func (CategoryChanged) Channel() string      { return common.ChannelCategories }
func (UserChanged) Channel() string          { return common.ChannelUsers }
func (e SubscribeAck) Channel() string       { return e.Name }

type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Decode parses one WebSocket frame.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Event {
	case common.EventSubscribed:
		return SubscribeAck{Name: env.Channel}, nil

	case common.EventModel:
		var p struct {
			Model  json.RawMessage `json:"model"`
			Action string          `json:"action"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		switch p.Action {
		case common.ActionCreate, common.ActionCreated:
			var m models.Model
			if err := json.Unmarshal(p.Model, &m); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Event, err)
			}
			return ModelCreated{Model: m}, nil
		case common.ActionDelete, common.ActionDeleted:
			var id struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(p.Model, &id); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Event, err)
			}
			return ModelDeleted{ID: id.ID}, nil
		}
		return nil, fmt.Errorf("%w: %s action %q", ErrUnknownEvent, env.Event, p.Action)

	case common.EventFavoriteCount:
		var p struct {
			PostID        int64  `json:"post_id"`
			FavoriteCount *int64 `json:"favorite_count"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return FavoriteCountChanged{ModelID: p.PostID, Count: p.FavoriteCount}, nil

	case common.EventCategory:
		var p struct {
			Category models.Category `json:"category"`
			Action   Action          `json:"action"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return CategoryChanged{Action: p.Action, Category: p.Category}, nil

	case common.EventUser:
		var p struct {
			User   models.User `json:"user"`
			Action Action      `json:"action"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return UserChanged{Action: p.Action, User: p.User}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}
