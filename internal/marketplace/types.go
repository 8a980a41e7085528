package marketplace

// Part is one sourcing candidate offered by a platform.
type Part struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Platform      string   `json:"platform,omitempty"`
	Price         float64  `json:"price,omitempty"`
	Stock         int      `json:"stock,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Compatibility []string `json:"compatibility,omitempty"`
	AffiliateURL  string   `json:"affiliateUrl,omitempty"`
}

// Recommendation is the model's verdict on one candidate. Exactly one
// recommendation of a ranking is marked most recommended.
type Recommendation struct {
	PartID            string  `json:"partId"`
	Recommendation    string  `json:"recommendation"`
	ViabilityScore    float64 `json:"viabilityScore"`
	IsMostRecommended bool    `json:"isMostRecommended"`
	Part              *Part   `json:"part,omitempty"`
}

// Result is a full sourcing run: the part names found in the query and the
// ranked candidates.
type Result struct {
	VehicleADN      string           `json:"vehicle_adn"`
	Keywords        []string         `json:"keywords"`
	Recommendations []Recommendation `json:"recommendations"`
}

type keywordsResponse struct {
	Keywords []string `json:"keywords"`
}

type rankingResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}
