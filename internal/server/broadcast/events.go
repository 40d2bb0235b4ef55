// Package broadcast publishes database-change events to WebSocket
// subscribers. Delivery is fire-and-forget: at most once per subscriber,
// no acknowledgement, no persistence.
package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/server/models"
)

// ChangeEvent is emitted after a successful store mutation.
type ChangeEvent interface {
	Channel() string
	Name() string
	Payload() any
}

// ModelCreated carries the full model with author and category.
type ModelCreated struct {
	Model models.Model
}

// ModelDeleted carries only the id of the removed model.
type ModelDeleted struct {
	ID int64
}

// FavoriteCountChanged tells subscribers to refresh the counter of a model.
// Count is the value after the mutation.
type FavoriteCountChanged struct {
	ModelID int64
	Count   int64
}

type CategoryChanged struct {
	Category models.Category
	Action   string
}

type UserChanged struct {
	User   models.User
	Action string
}

type modelPayload struct {
	Model  any    `json:"model"`
	Action string `json:"action"`
}

type idOnly struct {
	ID int64 `json:"id"`
}

type favoriteCountPayload struct {
	PostID        int64  `json:"post_id"`
	FavoriteCount *int64 `json:"favorite_count,omitempty"`
}

type categoryPayload struct {
	Category models.Category `json:"category"`
	Action   string          `json:"action"`
}

type userPayload struct {
	User   models.User `json:"user"`
	Action string      `json:"action"`
}

func (e ModelCreated) Channel() string { return common.ChannelModels }
func (e ModelCreated) Name() string    { return common.EventModel }
func (e ModelCreated) Payload() any {
	return modelPayload{Model: e.Model, Action: common.ActionCreate}
}

func (e ModelDeleted) Channel() string { return common.ChannelModels }
func (e ModelDeleted) Name() string    { return common.EventModel }
func (e ModelDeleted) Payload() any {
	return modelPayload{Model: idOnly{ID: e.ID}, Action: common.ActionDelete}
}

func (e FavoriteCountChanged) Channel() string { return common.ChannelModels }
func (e FavoriteCountChanged) Name() string    { return common.EventFavoriteCount }
func (e FavoriteCountChanged) Payload() any {
	count := e.Count
	return favoriteCountPayload{PostID: e.ModelID, FavoriteCount: &count}
}

func (e CategoryChanged) Channel() string { return common.ChannelCategories }
func (e CategoryChanged) Name() string    { return common.EventCategory }
func (e CategoryChanged) Payload() any {
	return categoryPayload{Category: e.Category, Action: e.Action}
}

func (e UserChanged) Channel() string { return common.ChannelUsers }
func (e UserChanged) Name() string    { return common.EventUser }
func (e UserChanged) Payload() any {
	return userPayload{User: e.User, Action: e.Action}
}

// Envelope is the wire frame sent to WebSocket clients and through the relay.
type Envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Encode renders an event into its envelope.
func Encode(ev ChangeEvent) (Envelope, error) {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", ev.Name(), err)
	}
	return Envelope{Channel: ev.Channel(), Event: ev.Name(), Data: data}, nil
}
