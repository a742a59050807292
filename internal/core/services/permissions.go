package services

// Permission names as seeded in the permissions table. Roles map to
// these through role_permissions.
const (
	PermTicketCreate    = "tickets:create"
	PermTicketRead      = "tickets:read"
	PermTicketReadAll   = "tickets:read_all"
	PermTicketUpdate    = "tickets:update"
	PermTicketAssign    = "tickets:assign"
	PermTicketForward   = "tickets:forward"
	PermTicketBookmark  = "tickets:bookmark"
	PermReplyCreate     = "replies:create"
	PermReplyInternal   = "replies:internal"
	PermUsersManage     = "users:manage"
	PermAnalyticsRead   = "analytics:read"
)
