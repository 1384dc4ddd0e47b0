package queryvalidator

import "time"

// ComplexityLevel buckets a query's complexity score
type ComplexityLevel int

const (
	ComplexitySimple ComplexityLevel = iota
	ComplexityModerate
	ComplexityComplex
	ComplexityCritical
)

func (l ComplexityLevel) String() string {
	switch l {
	case ComplexitySimple:
		return "simple"
	case ComplexityModerate:
		return "moderate"
	case ComplexityComplex:
		return "complex"
	case ComplexityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ComplexityMetrics describes the cost and shape of a validated query
type ComplexityMetrics struct {
	EntityCount            int             `json:"entity_count"`
	OperatorCount          int             `json:"operator_count"`
	NestingDepth           int             `json:"nesting_depth"`
	ComplexityScore        float64         `json:"complexity_score"`
	ComplexityLevel        ComplexityLevel `json:"complexity_level"`
	EstimatedExecutionTime time.Duration   `json:"estimated_execution_time"`
	ResourceEstimate       ResourceEstimate `json:"resource_estimate"`
}

// ResourceEstimate is a linear projection of the resources a query will
// consume downstream.
type ResourceEstimate struct {
	MemoryMB        float64 `json:"memory_mb"`
	CPUScore        float64 `json:"cpu_score"`
	ExpectedQueries int     `json:"expected_queries"`
}

// ValidationResult carries every independently evaluated rule outcome.
// Validation never returns an error; malformed input shows up in Errors.
type ValidationResult struct {
	IsValid         bool              `json:"is_valid"`
	Errors          []string          `json:"errors,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	Metrics         ComplexityMetrics `json:"metrics"`
	ShouldCache     bool              `json:"should_cache"`
	RateLimitFactor float64           `json:"rate_limit_factor"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// Limits bounds query size and tunes complexity scoring
type Limits struct {
	MaxEntities         int `json:"max_entities"`
	MaxNestingDepth     int `json:"max_nesting_depth"`
	MaxExpressionLength int `json:"max_expression_length"`

	// Complexity score weights; nesting is weighted most heavily
	EntityWeight   float64 `json:"entity_weight"`
	OperatorWeight float64 `json:"operator_weight"`
	NestingWeight  float64 `json:"nesting_weight"`

	// Score thresholds for the complexity buckets
	ModerateThreshold float64 `json:"moderate_threshold"`
	ComplexThreshold  float64 `json:"complex_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`

	// Entity count at which results become worth caching
	CacheEntityThreshold int `json:"cache_entity_threshold"`
}

// DefaultLimits returns the production defaults
func DefaultLimits() Limits {
	return Limits{
		MaxEntities:          20,
		MaxNestingDepth:      5,
		MaxExpressionLength:  1000,
		EntityWeight:         1.0,
		OperatorWeight:       1.5,
		NestingWeight:        3.0,
		ModerateThreshold:    10,
		ComplexThreshold:     25,
		CriticalThreshold:    50,
		CacheEntityThreshold: 5,
	}
}
