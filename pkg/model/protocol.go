package model

// ProtocolSuggestion is the structured response of the protocol-suggestion
// endpoint: a session name with ordered operation names, plus the recommended
// security level and authentication mechanisms.
type ProtocolSuggestion struct {
	SessionName            string               `json:"sessionName"`
	Operations             []string             `json:"operations"`
	RecommendedLevel       SecurityLevel        `json:"recommendedLevel"`
	RequiredAuthentication []AuthenticationType `json:"requiredAuthentication"`
}
