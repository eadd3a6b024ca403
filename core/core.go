package core

// Roles the auth proxy can assert for an operator.
const (
	RoleAdmin  = "admin"
	RoleClerk  = "clerk"
	RoleSender = "sender"
)

// Actions an operator can perform on the invitation surface.
const (
	ActionInviteLogs  = "invite.logs"
	ActionInviteRetry = "invite.retry"
	ActionInviteSend  = "invite.send"
)

var rolePermissions = map[string]map[string]struct{}{
	RoleAdmin: {
		ActionInviteLogs:  {},
		ActionInviteRetry: {},
		ActionInviteSend:  {},
	},
	RoleClerk: {
		ActionInviteLogs: {},
		ActionInviteSend: {},
	},
	RoleSender: {
		ActionInviteLogs:  {},
		ActionInviteRetry: {},
		ActionInviteSend:  {},
	},
}

// Origin is the provenance of an operator request as asserted by the
// upstream auth proxy.
type Origin struct {
	IP     string
	Role   string
	UserID string
}

// IsAdmin indicates if the origin carries the admin role.
func (o Origin) IsAdmin() bool {
	return o.Role == RoleAdmin
}

func canPerform(o Origin, action string) error {
	if o.UserID == "" {
		return wrapError(ErrUnauthorized, "missing operator identity")
	}

	as, ok := rolePermissions[o.Role]
	if !ok {
		return wrapError(ErrUnauthorized, "role '%s' not recognised", o.Role)
	}

	if _, ok := as[action]; !ok {
		return wrapError(ErrUnauthorized, "role '%s' can't perform %s", o.Role, action)
	}

	return nil
}
