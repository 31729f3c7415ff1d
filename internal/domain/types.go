package domain

type UserID string
type PrincipleID string
type CoachingSessionID string

// FlowID identifies an in-progress onboarding or coaching flow.
type FlowID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UserID      UserID
	DisplayName string
}
