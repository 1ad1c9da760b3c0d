package models

// Nutrition holds the per-serving values read from a label. Missing values
// default to 0.
type Nutrition struct {
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Fat         float64 `json:"fat"`
	Carbs       float64 `json:"carbs"`
	Sugar       float64 `json:"sugar"`
	Sodium      float64 `json:"sodium"`
	Fiber       float64 `json:"fiber"`
	Cholesterol float64 `json:"cholesterol"`
	Calcium     float64 `json:"calcium"`
	Iron        float64 `json:"iron"`
	Potassium   float64 `json:"potassium"`
}

// AnalysisResult is the outcome of one label-photo analysis. HealthScore and
// Grade are always populated, back-filled deterministically when the model
// omits them.
type AnalysisResult struct {
	Nutrition   Nutrition `json:"nutrition"`
	HealthScore int       `json:"health_score"`
	Grade       string    `json:"grade"`
	Summary     string    `json:"summary"`
	Pros        []string  `json:"pros"`
	Cons        []string  `json:"cons"`
	Ingredients string    `json:"ingredients"`
	Warnings    []string  `json:"warnings"`
}

// GradeForScore maps a health score to its letter grade.
// Bands: >80 A, 65-80 B, 50-64 C, 35-49 D, <35 E.
func GradeForScore(score int) string {
	switch {
	case score > 80:
		return "A"
	case score >= 65:
		return "B"
	case score >= 50:
		return "C"
	case score >= 35:
		return "D"
	default:
		return "E"
	}
}

// FallbackScore computes a health score from sugar, sodium and fiber when the
// model did not return one. Safety net only, never the primary scoring path.
func FallbackScore(n Nutrition) int {
	score := 70

	if n.Sugar > 20 {
		score -= 15
	} else if n.Sugar > 10 {
		score -= 10
	}

	if n.Sodium > 500 {
		score -= 15
	} else if n.Sodium > 300 {
		score -= 10
	}

	if n.Fiber < 1 {
		score -= 5
	} else if n.Fiber >= 3 {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
