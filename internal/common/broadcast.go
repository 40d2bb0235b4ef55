package common

// Broadcast channels.
const (
	ChannelModels     = "model-broadcast"
	ChannelCategories = "category-broadcast"
	ChannelUsers      = "user-broadcast"
)

// Event names carried in the "event" field of a broadcast envelope.
const (
	EventModel         = "ModelBroadCastEvent"
	EventFavoriteCount = "ModelFavoriteCountEvent"
	EventCategory      = "CategoryBroadcastEvent"
	EventUser          = "UserBroadcastEvent"
)

// Actions. Model events use the short create/delete forms.
const (
	ActionCreate  = "create"
	ActionDelete  = "delete"
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Channels lists every broadcast channel.
var Channels = []string{ChannelModels, ChannelCategories, ChannelUsers}

// EventSubscribed is sent once per joined channel right after the
// WebSocket upgrade.
const EventSubscribed = "subscription_succeeded"
