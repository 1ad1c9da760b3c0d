package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"nutricek/internal/models"
)

// Client talks to the vision model with credential rotation. One instance is
// shared by all request handlers; the pool cursor is process-wide state.
type Client struct {
	pool   *KeyPool
	invoke Invoker

	attemptTimeout time.Duration
	retryBackoff   time.Duration
	sleep          func(time.Duration)
}

// NewClient creates a client over the configured credential pool.
func NewClient(keys []string) *Client {
	return &Client{
		pool:           NewKeyPool(keys),
		invoke:         geminiInvoke,
		attemptTimeout: 60 * time.Second,
		retryBackoff:   2 * time.Second,
		sleep:          time.Sleep,
	}
}

// generate runs the retry loop: up to 2*len(pool) attempts, rotating
// immediately on quota errors when the pool allows it, linear backoff on the
// same key otherwise, short fixed backoff for other transient failures.
// Parse errors abort immediately.
func (c *Client) generate(ctx context.Context, prompt string, image []byte) (string, error) {
	if c.pool.Size() == 0 {
		return "", fmt.Errorf("vision: no API keys configured")
	}

	budget := c.pool.Size() * 2
	canRotate := c.pool.Size() > 1

	var lastErr error
	state := stateAttempting
	for attempt := 0; attempt < budget; attempt++ {
		key := c.pool.Current()

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		raw, err := c.invoke(attemptCtx, key, prompt, image)
		cancel()

		state = nextState(state, classify(err), canRotate)
		switch state {
		case stateSucceeded:
			return raw, nil
		case stateFailed:
			return "", err
		case stateRotating:
			log.Printf("WARNING: vision attempt %d hit quota, rotating credential: %v", attempt+1, err)
			c.pool.Rotate()
		case stateBackoff:
			if classify(err) == classQuota {
				// Single-key pool: nothing to rotate to, wait longer each try.
				c.sleep(time.Duration(attempt+1) * c.retryBackoff)
			} else {
				log.Printf("WARNING: vision attempt %d failed: %v", attempt+1, err)
				c.sleep(c.retryBackoff)
			}
		}
		lastErr = err
		state = stateAttempting

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	if classify(lastErr) == classQuota {
		return "", fmt.Errorf("%w: %v", ErrQuotaExhausted, lastErr)
	}
	return "", fmt.Errorf("vision: attempts exhausted: %w", lastErr)
}

// Analyze runs the nutrition-label analysis on an image. The returned result
// always carries every field: numeric defaults are 0 and HealthScore/Grade
// are back-filled deterministically when the model omits them.
func (c *Client) Analyze(ctx context.Context, imageData []byte, language string) (*models.AnalysisResult, error) {
	normalized, err := normalizeImage(imageData)
	if err != nil {
		return nil, err
	}

	raw, err := c.generate(ctx, analysisPrompt(language), normalized)
	if err != nil {
		return nil, err
	}

	return parseAnalysis(raw)
}

// Chat answers a free-text question about a product. Markup characters are
// stripped because the consuming surface renders plain text.
func (c *Client) Chat(ctx context.Context, productContext, question, language string) (string, error) {
	raw, err := c.generate(ctx, chatPrompt(productContext, question, language), nil)
	if err != nil {
		return "", err
	}
	return stripMarkup(raw), nil
}

// flexFloat accepts a JSON number or a numeric string. Models regularly
// return "25" or "25 g" where a number was requested.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	// Keep the leading numeric run, dropping trailing units.
	end := 0
	for end < len(s) && (s[end] == '-' || s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type analysisWire struct {
	Nutrition struct {
		Calories    flexFloat `json:"calories"`
		Protein     flexFloat `json:"protein"`
		Fat         flexFloat `json:"fat"`
		Carbs       flexFloat `json:"carbs"`
		Sugar       flexFloat `json:"sugar"`
		Sodium      flexFloat `json:"sodium"`
		Fiber       flexFloat `json:"fiber"`
		Cholesterol flexFloat `json:"cholesterol"`
		Calcium     flexFloat `json:"calcium"`
		Iron        flexFloat `json:"iron"`
		Potassium   flexFloat `json:"potassium"`
	} `json:"nutrition"`
	HealthScore flexFloat `json:"health_score"`
	Grade       string    `json:"grade"`
	Summary     string    `json:"summary"`
	Pros        []string  `json:"pros"`
	Cons        []string  `json:"cons"`
	Ingredients string    `json:"ingredients"`
	Warnings    []string  `json:"warnings"`
}

// parseAnalysis extracts and validates the model's JSON, then back-fills
// score and grade so both are always present.
func parseAnalysis(raw string) (*models.AnalysisResult, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result := &models.AnalysisResult{
		Nutrition: models.Nutrition{
			Calories:    float64(wire.Nutrition.Calories),
			Protein:     float64(wire.Nutrition.Protein),
			Fat:         float64(wire.Nutrition.Fat),
			Carbs:       float64(wire.Nutrition.Carbs),
			Sugar:       float64(wire.Nutrition.Sugar),
			Sodium:      float64(wire.Nutrition.Sodium),
			Fiber:       float64(wire.Nutrition.Fiber),
			Cholesterol: float64(wire.Nutrition.Cholesterol),
			Calcium:     float64(wire.Nutrition.Calcium),
			Iron:        float64(wire.Nutrition.Iron),
			Potassium:   float64(wire.Nutrition.Potassium),
		},
		HealthScore: int(wire.HealthScore),
		Grade:       strings.ToUpper(strings.TrimSpace(wire.Grade)),
		Summary:     strings.TrimSpace(wire.Summary),
		Pros:        wire.Pros,
		Cons:        wire.Cons,
		Ingredients: strings.TrimSpace(wire.Ingredients),
		Warnings:    wire.Warnings,
	}

	if result.HealthScore <= 0 {
		result.HealthScore = models.FallbackScore(result.Nutrition)
		result.Grade = models.GradeForScore(result.HealthScore)
	}
	if result.Grade == "" {
		result.Grade = models.GradeForScore(result.HealthScore)
	}
	if result.Pros == nil {
		result.Pros = []string{}
	}
	if result.Cons == nil {
		result.Cons = []string{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}

	return result, nil
}
