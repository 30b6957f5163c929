package domain

type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)

func (r Role) String() string { return string(r) }
