package queryvalidator

import (
	"fmt"
	"strings"
	"time"
)

// Validator validates and scores boolean entity queries before any
// execution is planned. Validation is total: malformed input is reported
// through the result, never as an error.
type Validator interface {
	Validate(expression string, entityIDs []string) *ValidationResult
}

type service struct {
	limits Limits
}

// NewService creates a query validator with the given limits
func NewService(limits Limits) Validator {
	if limits.MaxEntities <= 0 {
		limits = DefaultLimits()
	}
	return &service{limits: limits}
}

// Validate evaluates every rule independently and reports all violations
func (s *service) Validate(expression string, entityIDs []string) *ValidationResult {
	result := &ValidationResult{
		IsValid:         true,
		RateLimitFactor: 1.0,
	}

	expression = strings.TrimSpace(expression)

	if expression == "" {
		result.addError("Expression cannot be empty")
	}
	if len(entityIDs) == 0 {
		result.addError("No entities provided for investigation")
	}
	if len(expression) > s.limits.MaxExpressionLength {
		result.addError(fmt.Sprintf("Expression length %d exceeds maximum of %d",
			len(expression), s.limits.MaxExpressionLength))
	}
	if len(entityIDs) > s.limits.MaxEntities {
		result.addError(fmt.Sprintf("Too many entities: %d exceeds maximum of %d",
			len(entityIDs), s.limits.MaxEntities))
	}

	s.checkDuplicates(entityIDs, result)

	shape := parseExpression(expression)

	if !shape.balanced {
		result.addError("Unbalanced parentheses in expression")
	}
	if shape.leadingOperator {
		result.addError("Expression cannot start with an operator")
	}
	if shape.consecutiveOperators {
		result.addError("Consecutive operators in expression")
	}
	if shape.maxDepth > s.limits.MaxNestingDepth {
		result.addError(fmt.Sprintf("Nesting depth %d exceeds maximum of %d",
			shape.maxDepth, s.limits.MaxNestingDepth))
	}

	result.Metrics = s.computeMetrics(len(entityIDs), shape)
	result.ShouldCache = len(entityIDs) >= s.limits.CacheEntityThreshold ||
		result.Metrics.ComplexityLevel >= ComplexityModerate
	result.RateLimitFactor = 1.0 + result.Metrics.ComplexityScore/s.limits.CriticalThreshold
	result.Recommendations = s.recommend(result)

	return result
}

func (r *ValidationResult) addError(msg string) {
	r.IsValid = false
	r.Errors = append(r.Errors, msg)
}

func (s *service) checkDuplicates(entityIDs []string, result *ValidationResult) {
	seen := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		if seen[id] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Duplicate entity id: %s", id))
			continue
		}
		seen[id] = true
	}
}

func (s *service) computeMetrics(entityCount int, shape expressionShape) ComplexityMetrics {
	score := s.limits.EntityWeight*float64(entityCount) +
		s.limits.OperatorWeight*float64(shape.operatorCount) +
		s.limits.NestingWeight*float64(shape.maxDepth)

	level := ComplexitySimple
	switch {
	case score >= s.limits.CriticalThreshold:
		level = ComplexityCritical
	case score >= s.limits.ComplexThreshold:
		level = ComplexityComplex
	case score >= s.limits.ModerateThreshold:
		level = ComplexityModerate
	}

	estimated := 2*time.Second +
		time.Duration(entityCount)*500*time.Millisecond +
		time.Duration(shape.operatorCount)*200*time.Millisecond +
		time.Duration(shape.maxDepth)*300*time.Millisecond

	return ComplexityMetrics{
		EntityCount:            entityCount,
		OperatorCount:          shape.operatorCount,
		NestingDepth:           shape.maxDepth,
		ComplexityScore:        score,
		ComplexityLevel:        level,
		EstimatedExecutionTime: estimated,
		ResourceEstimate: ResourceEstimate{
			MemoryMB:        16 + 4*float64(entityCount) + 2*float64(shape.operatorCount),
			CPUScore:        0.1*float64(entityCount) + 0.05*float64(shape.operatorCount),
			ExpectedQueries: entityCount*5 + shape.operatorCount,
		},
	}
}

func (s *service) recommend(result *ValidationResult) []string {
	var recs []string

	if result.Metrics.ComplexityLevel >= ComplexityComplex {
		recs = append(recs, "Split the investigation into smaller entity groups")
	}
	if result.Metrics.NestingDepth > s.limits.MaxNestingDepth/2 && result.Metrics.NestingDepth <= s.limits.MaxNestingDepth {
		recs = append(recs, "Flatten nested groups to reduce execution cost")
	}
	if len(result.Warnings) > 0 {
		recs = append(recs, "Remove duplicate entity identifiers")
	}
	if result.ShouldCache {
		recs = append(recs, "Results will be cached; identical queries are served from cache")
	}

	return recs
}

// expressionShape is the parsed structure of a boolean expression
type expressionShape struct {
	operatorCount        int
	maxDepth             int
	balanced             bool
	leadingOperator      bool
	consecutiveOperators bool
}

// parseExpression tokenizes the expression in one pass, tracking
// parenthesis depth and operator placement. The expression grammar is
// entity identifiers joined by AND/OR/NOT with parenthesized groups.
func parseExpression(expression string) expressionShape {
	shape := expressionShape{balanced: true}

	depth := 0
	prev := "" // previous meaningful token; "" at start and after "("

	for _, token := range tokenize(expression) {
		switch token {
		case "(":
			depth++
			if depth > shape.maxDepth {
				shape.maxDepth = depth
			}
			prev = ""
		case ")":
			depth--
			if depth < 0 {
				shape.balanced = false
				depth = 0
			}
			prev = token
		case "AND", "OR":
			shape.operatorCount++
			if prev == "" {
				shape.leadingOperator = true
			} else if isOperatorToken(prev) {
				shape.consecutiveOperators = true
			}
			prev = token
		case "NOT":
			shape.operatorCount++
			prev = token
		default:
			prev = token
		}
	}

	if depth != 0 {
		shape.balanced = false
	}

	return shape
}

func isOperatorToken(token string) bool {
	return token == "AND" || token == "OR" || token == "NOT"
}

func tokenize(expression string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		token := word.String()
		if upper := strings.ToUpper(token); isOperatorToken(upper) {
			token = upper
		}
		tokens = append(tokens, token)
		word.Reset()
	}

	for _, r := range expression {
		switch r {
		case '(', ')':
			flush()
			tokens = append(tokens, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return tokens
}
