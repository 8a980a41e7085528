package cx

// Risk is the C1 return-risk rating.
type Risk string

const (
	RiskLow    Risk = "Bajo"
	RiskMedium Risk = "Medio"
	RiskHigh   Risk = "Alto"
)

var riskRank = map[Risk]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Valid reports whether r is one of the three ratings.
func (r Risk) Valid() bool {
	_, ok := riskRank[r]
	return ok
}

// AtLeast returns the higher of r and floor.
func (r Risk) AtLeast(floor Risk) Risk {
	if riskRank[r] < riskRank[floor] {
		return floor
	}
	return r
}

// C1Output is the technical validation of a post.
type C1Output struct {
	IntentLevel              string   `json:"intent_level"`
	VehicleDetected          string   `json:"vehicle_detected"`
	PieceDetected            string   `json:"piece_detected"`
	RiskScore                Risk     `json:"risk_score"`
	RequiredValidationFields []string `json:"required_validation_fields"`
	TechnicalNotes           string   `json:"technical_notes"`
	VariantAmbiguity         bool     `json:"variant_ambiguity"`
	RiskEscalated            bool     `json:"risk_escalated,omitempty"`
	EscalationReason         string   `json:"escalation_reason,omitempty"`
}

// PrivateFlow is the three-step private conversation: authority,
// diagnosis, offer.
type PrivateFlow struct {
	Step1 string `json:"step_1"`
	Step2 string `json:"step_2"`
	Step3 string `json:"step_3"`
}

// Steps returns the steps in conversation order.
func (f PrivateFlow) Steps() []string {
	return []string{f.Step1, f.Step2, f.Step3}
}

// JodaOutput is the conversational activation built on a C1Output.
type JodaOutput struct {
	PublicReply           string      `json:"public_reply"`
	PrivateFlow           PrivateFlow `json:"private_flow"`
	PsychologicalStrategy string      `json:"psychological_strategy"`
	FollowUpSequence      string      `json:"follow_up_sequence"`
}

// Result pairs both engines' output for one post.
type Result struct {
	C1   *C1Output   `json:"c1"`
	Joda *JodaOutput `json:"joda"`
}
