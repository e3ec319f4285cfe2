package browser

import (
	"encoding/json"
	"fmt"
)

// Event is the closed union of lifecycle notifications the browser emits.
// The extension host delivers one event per call, in observation order.
type Event interface {
	isEvent()
}

// TabChanges carries the fields of a tab-updated notification; nil means
// "unchanged". GroupID uses NoGroup for "removed from its group".
type TabChanges struct {
	URL     *string `json:"url,omitempty"`
	Title   *string `json:"title,omitempty"`
	Pinned  *bool   `json:"pinned,omitempty"`
	GroupID *int64  `json:"group_id,omitempty"`
}

// GroupChanges carries the fields of a group-updated notification.
type GroupChanges struct {
	Title     *string `json:"title,omitempty"`
	Color     *string `json:"color,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

type TabCreated struct {
	Tab Tab `json:"tab"`
}

type TabRemoved struct {
	TabID    int64 `json:"tab_id"`
	WindowID int64 `json:"window_id"`
}

type TabUpdated struct {
	TabID   int64      `json:"tab_id"`
	Changes TabChanges `json:"changes"`
}

type TabMoved struct {
	TabID     int64 `json:"tab_id"`
	WindowID  int64 `json:"window_id"`
	FromIndex int   `json:"from_index"`
	ToIndex   int   `json:"to_index"`
}

type TabDetached struct {
	TabID       int64 `json:"tab_id"`
	OldWindowID int64 `json:"old_window_id"`
	OldPosition int   `json:"old_position"`
}

type TabAttached struct {
	TabID       int64 `json:"tab_id"`
	NewWindowID int64 `json:"new_window_id"`
	NewPosition int   `json:"new_position"`
}

type GroupCreated struct {
	Group Group `json:"group"`
}

type GroupUpdated struct {
	GroupID int64        `json:"group_id"`
	Changes GroupChanges `json:"changes"`
}

type GroupRemoved struct {
	GroupID int64 `json:"group_id"`
}

func (TabCreated) isEvent()   {}
func (TabRemoved) isEvent()   {}
func (TabUpdated) isEvent()   {}
func (TabMoved) isEvent()     {}
func (TabDetached) isEvent()  {}
func (TabAttached) isEvent()  {}
func (GroupCreated) isEvent() {}
func (GroupUpdated) isEvent() {}
func (GroupRemoved) isEvent() {}

// Wire names for events as the extension host tags them.
const (
	EventTabCreated   = "tab-created"
	EventTabRemoved   = "tab-removed"
	EventTabUpdated   = "tab-updated"
	EventTabMoved     = "tab-moved"
	EventTabDetached  = "tab-detached"
	EventTabAttached  = "tab-attached"
	EventGroupCreated = "group-created"
	EventGroupUpdated = "group-updated"
	EventGroupRemoved = "group-removed"
)

// DecodeEvent parses a tagged wire payload into its typed event.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	switch name {
	case EventTabCreated:
		return decode[TabCreated](data)
	case EventTabRemoved:
		return decode[TabRemoved](data)
	case EventTabUpdated:
		return decode[TabUpdated](data)
	case EventTabMoved:
		return decode[TabMoved](data)
	case EventTabDetached:
		return decode[TabDetached](data)
	case EventTabAttached:
		return decode[TabAttached](data)
	case EventGroupCreated:
		return decode[GroupCreated](data)
	case EventGroupUpdated:
		return decode[GroupUpdated](data)
	case EventGroupRemoved:
		return decode[GroupRemoved](data)
	default:
		return nil, fmt.Errorf("browser: unknown event %q", name)
	}
}

func decode[T Event](data json.RawMessage) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("browser: decode event: %w", err)
	}
	return ev, nil
}

// EventName returns the wire tag for a typed event.
func EventName(ev Event) string {
	switch ev.(type) {
	case TabCreated:
		return EventTabCreated
	case TabRemoved:
		return EventTabRemoved
	case TabUpdated:
		return EventTabUpdated
	case TabMoved:
		return EventTabMoved
	case TabDetached:
		return EventTabDetached
	case TabAttached:
		return EventTabAttached
	case GroupCreated:
		return EventGroupCreated
	case GroupUpdated:
		return EventGroupUpdated
	case GroupRemoved:
		return EventGroupRemoved
	default:
		return "unknown"
	}
}
