package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RoomKind classifies broadcast rooms.
type RoomKind string

const (
	RoomKindDashboard RoomKind = "dashboard"
	RoomKindUser      RoomKind = "user"
	RoomKindRole      RoomKind = "role"
	RoomKindTicket    RoomKind = "ticket"
)

// Room is a named broadcast group that realtime sessions join and leave.
// Rooms have no stored state beyond their (ephemeral) membership set.
type Room string

// DashboardRoom is the room every authenticated session joins for
// ticket-list level notifications.
func DashboardRoom() Room {
	return Room("dashboard")
}

// UserRoom is the per-user room for targeted notifications.
func UserRoom(userID uuid.UUID) Room {
	return Room("user_" + userID.String())
}

// RoleRoom is the shared room for everyone holding a role. Spaces in the
// role name are normalized to underscores.
func RoleRoom(role Role) Room {
	return Room("role_" + strings.ReplaceAll(string(role), " ", "_"))
}

// TicketRoom is the room for sessions viewing a specific ticket.
func TicketRoom(ticketID int64) Room {
	return Room("ticket_" + strconv.FormatInt(ticketID, 10))
}

// Kind returns the room's classification, derived from its name.
func (r Room) Kind() RoomKind {
	name := string(r)
	switch {
	case name == "dashboard":
		return RoomKindDashboard
	case strings.HasPrefix(name, "user_"):
		return RoomKindUser
	case strings.HasPrefix(name, "role_"):
		return RoomKindRole
	case strings.HasPrefix(name, "ticket_"):
		return RoomKindTicket
	}
	return RoomKind("")
}
