package models

type TeamRegistrationStatus string

const (
	TeamPending  TeamRegistrationStatus = "PENDING"
	TeamApproved TeamRegistrationStatus = "APPROVED"
	TeamRejected TeamRegistrationStatus = "REJECTED"
)

type Team struct {
	ID                 int                    `json:"id"`
	Name               string                 `json:"name"`
	Color              string                 `json:"color,omitempty"`
	CaptainName        string                 `json:"captain_name,omitempty"`
	MemberCount        int                    `json:"member_count,omitempty"`
	RegistrationStatus TeamRegistrationStatus `json:"registration_status,omitempty"`
}
