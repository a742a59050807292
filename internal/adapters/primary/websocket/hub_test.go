package websocket

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

func newTestHub() *Hub {
	return NewHub(slog.Default())
}

func newTestClient(h *Hub, userID uuid.UUID, role domain.Role) *Client {
	c := NewClient(h, nil, userID, "Test User", role, slog.Default())
	h.registerClient(c)
	return c
}

func drain(c *Client) []Envelope {
	var msgs []Envelope
	for {
		select {
		case msg := <-c.Send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnician)

	room := h.JoinTicket(c, 100)
	h.JoinTicket(c, 100)
	h.JoinTicket(c, 100)

	assert.Equal(t, 1, h.MembersOf(room))
	assert.True(t, c.InRoom(room))

	delivered := h.Publish(domain.TicketEvent{
		Kind:    domain.EventNewReply,
		Rooms:   []domain.Room{room},
		Payload: domain.Payload{"ticket_id": int64(100)},
	})
	assert.Equal(t, 1, delivered, "duplicate joins must not cause duplicate delivery")
	assert.Len(t, drain(c), 1)
}

func TestLeaveWhenAbsentIsNoOp(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleMember)

	// Never joined ticket 42.
	h.LeaveTicket(c, 42)
	assert.Equal(t, 0, h.MembersOf(domain.TicketRoom(42)))

	room := h.JoinTicket(c, 7)
	h.LeaveTicket(c, 42)
	assert.Equal(t, 1, h.MembersOf(room), "leaving another room must not affect held memberships")
}

func TestJoinLeaveReplayYieldsFinalMembership(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleMember)

	h.JoinTicket(c, 1)
	h.JoinTicket(c, 2)
	h.LeaveTicket(c, 1)
	h.JoinTicket(c, 3)
	h.JoinTicket(c, 2)
	h.LeaveTicket(c, 3)

	rooms := c.Rooms()
	assert.ElementsMatch(t, []domain.Room{domain.TicketRoom(2)}, rooms)
	assert.Equal(t, 0, h.MembersOf(domain.TicketRoom(1)))
	assert.Equal(t, 1, h.MembersOf(domain.TicketRoom(2)))
	assert.Equal(t, 0, h.MembersOf(domain.TicketRoom(3)))
}

func TestPublishReachesMembersAtPublishTimeOnly(t *testing.T) {
	h := newTestHub()
	member := newTestClient(h, uuid.New(), domain.RoleTechnician)
	late := newTestClient(h, uuid.New(), domain.RoleTechnician)

	room := h.JoinTicket(member, 100)

	delivered := h.Publish(domain.TicketEvent{
		Kind:    domain.EventTicketForwarded,
		Rooms:   []domain.Room{room},
		Payload: domain.Payload{"ticket_id": int64(100)},
	})
	require.Equal(t, 1, delivered)

	// Joining after publish must not deliver the earlier event.
	h.JoinTicket(late, 100)
	assert.Len(t, drain(member), 1)
	assert.Empty(t, drain(late))
}

func TestPublishToNonMemberRoomDeliversNothing(t *testing.T) {
	h := newTestHub()
	dashboardOnly := newTestClient(h, uuid.New(), domain.RoleTechnician)
	h.JoinDashboard(dashboardOnly)

	delivered := h.Publish(domain.TicketEvent{
		Kind:    domain.EventTicketForwarded,
		Rooms:   []domain.Room{domain.TicketRoom(100)},
		Payload: domain.Payload{"ticket_id": int64(100)},
	})

	assert.Equal(t, 0, delivered)
	assert.Empty(t, drain(dashboardOnly))
}

func TestPublishFIFOPerRoom(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnician)
	room := h.JoinTicket(c, 5)

	kinds := []domain.EventKind{
		domain.EventNewReply,
		domain.EventStatusChanged,
		domain.EventPriorityChanged,
		domain.EventTicketBookmarked,
	}
	for _, kind := range kinds {
		h.Publish(domain.TicketEvent{Kind: kind, Rooms: []domain.Room{room}})
	}

	msgs := drain(c)
	require.Len(t, msgs, len(kinds))
	for i, kind := range kinds {
		assert.Equal(t, string(kind), msgs[i].Event)
	}
}

func TestPublishDedupsAcrossTargetRooms(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnician)
	h.JoinDashboard(c)
	h.JoinTicket(c, 9)

	// A client in both target rooms receives the event once.
	delivered := h.Publish(domain.TicketEvent{
		Kind:  domain.EventTicketBookmarked,
		Rooms: []domain.Room{domain.DashboardRoom(), domain.TicketRoom(9)},
	})

	assert.Equal(t, 1, delivered)
	assert.Len(t, drain(c), 1)
}

func TestPublishSkipsFullBuffers(t *testing.T) {
	h := newTestHub()
	healthy := newTestClient(h, uuid.New(), domain.RoleTechnician)
	stuck := newTestClient(h, uuid.New(), domain.RoleTechnician)
	room := h.JoinTicket(healthy, 3)
	h.JoinTicket(stuck, 3)

	for i := 0; i < sendBufferSize; i++ {
		stuck.Send <- Envelope{Event: "filler"}
	}

	delivered := h.Publish(domain.TicketEvent{
		Kind:  domain.EventNewReply,
		Rooms: []domain.Room{room},
	})

	assert.Equal(t, 1, delivered, "a stuck connection must not abort delivery to the rest")
	assert.Len(t, drain(healthy), 1)
}

func TestPublishExceptSkipsSender(t *testing.T) {
	h := newTestHub()
	sender := newTestClient(h, uuid.New(), domain.RoleMember)
	other := newTestClient(h, uuid.New(), domain.RoleTechnician)
	room := h.JoinTicket(sender, 12)
	h.JoinTicket(other, 12)

	delivered := h.PublishExcept(domain.TypingEvent(12, sender.UserID, "Alice"), sender)

	assert.Equal(t, 1, delivered)
	assert.Empty(t, drain(sender))

	msgs := drain(other)
	require.Len(t, msgs, 1)
	assert.Equal(t, string(domain.EventTyping), msgs[0].Event)
	assert.True(t, sender.InRoom(room), "skipping delivery must not drop the sender's membership")
	assert.Equal(t, 2, h.MembersOf(room))
}

func TestJoinUserRoomDerivesFromIdentity(t *testing.T) {
	h := newTestHub()
	userID := uuid.New()
	c := newTestClient(h, userID, domain.RoleMember)

	room, err := h.JoinUserRoom(c, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoom(userID), room)
	assert.Equal(t, 1, h.MembersOf(room))
}

func TestJoinUserRoomExplicitOwnIDIsAllowed(t *testing.T) {
	h := newTestHub()
	userID := uuid.New()
	c := newTestClient(h, userID, domain.RoleMember)

	room, err := h.JoinUserRoom(c, &userID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoom(userID), room)
}

func TestJoinUserRoomStaffMayNameAnotherUser(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnician)

	requested := uuid.New()
	room, err := h.JoinUserRoom(c, &requested)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoom(requested), room)
}

func TestJoinUserRoomMemberCannotNameAnotherUser(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleMember)

	requested := uuid.New()
	_, err := h.JoinUserRoom(c, &requested)
	require.ErrorIs(t, err, apperrors.ErrRoomForbidden)
	assert.Equal(t, 0, h.RoomCount(), "a rejected join must not create a room")
	assert.Empty(t, c.Rooms())
}

func TestJoinUserRoomWithoutIdentityIsRejected(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.Nil, "")

	_, err := h.JoinUserRoom(c, nil)
	require.ErrorIs(t, err, apperrors.ErrNoIdentity)
	assert.Equal(t, 0, h.RoomCount(), "a rejected join must not create a room")
	assert.Empty(t, c.Rooms())
}

func TestJoinRoleRoomFallsBackToSessionRole(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnicalDirector)

	room, err := h.JoinRoleRoom(c, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRoom(domain.RoleTechnicalDirector), room)

	_, err = h.JoinRoleRoom(newTestClient(h, uuid.Nil, ""), "")
	assert.ErrorIs(t, err, apperrors.ErrNoIdentity)
}

func TestJoinRoleRoomRejectsMembers(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleMember)

	_, err := h.JoinRoleRoom(c, "")
	require.ErrorIs(t, err, apperrors.ErrRoomForbidden)

	_, err = h.JoinRoleRoom(c, domain.RoleTechnicalDirector)
	require.ErrorIs(t, err, apperrors.ErrRoomForbidden)
	assert.Equal(t, 0, h.RoomCount())
}

func TestJoinRoleRoomRejectsOtherRoles(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnician)

	_, err := h.JoinRoleRoom(c, domain.RoleTechnicalDirector)
	require.ErrorIs(t, err, apperrors.ErrRoomForbidden)
	assert.Empty(t, c.Rooms())
}

func TestUnregisterReleasesAllMemberships(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleTechnician)
	other := newTestClient(h, uuid.New(), domain.RoleTechnician)

	h.JoinDashboard(c)
	h.JoinTicket(c, 1)
	h.JoinTicket(c, 2)
	h.JoinDashboard(other)

	h.unregisterClient(c)

	assert.Equal(t, 1, h.ClientCount())
	assert.Equal(t, 0, h.MembersOf(domain.TicketRoom(1)))
	assert.Equal(t, 0, h.MembersOf(domain.TicketRoom(2)))
	assert.Equal(t, 1, h.MembersOf(domain.DashboardRoom()))
	assert.Equal(t, 1, h.RoomCount(), "emptied rooms must be removed from the registry")
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, uuid.New(), domain.RoleMember)
	h.JoinDashboard(c)

	h.unregisterClient(c)
	assert.NotPanics(t, func() { h.unregisterClient(c) })
}

func TestIsUserConnected(t *testing.T) {
	h := newTestHub()
	userID := uuid.New()
	c := newTestClient(h, userID, domain.RoleMember)

	assert.True(t, h.IsUserConnected(userID))
	assert.False(t, h.IsUserConnected(uuid.New()))

	h.unregisterClient(c)
	assert.False(t, h.IsUserConnected(userID))
}
