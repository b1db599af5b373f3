package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// defaultNAV is assumed when a caller does not supply a portfolio value.
const defaultNAV = 100_000

// Collector supplies market input snapshots to the engine.
type Collector interface {
	Collect(ctx context.Context) (MarketInputs, error)
}

// AnalysisRequest parameterizes a full pipeline run. Zero NAV means the
// default; empty objective means "income".
type AnalysisRequest struct {
	NAV       float64        `json:"nav,omitempty"`
	Objective string         `json:"objective,omitempty"`
	Positions []PositionView `json:"positions,omitempty"`
}

// Engine is the decision engine facade wiring the classifier, selector,
// sizer, tail-risk manager, and rule engines over one inputs collector.
//
// The previous-regime slot feeds the regime-change rules (A8/X6). It is
// written by FullAnalysis, GetRegime, and Recommend; under concurrent
// callers it is last-writer-wins, which is acceptable for advisory state.
type Engine struct {
	collector  Collector
	classifier *Classifier
	selector   *Selector
	sizer      *Sizer
	tailRisk   *TailRiskManager
	universe   *Universe
	log        zerolog.Logger

	mu         sync.Mutex
	prevRegime *Regime
}

// New creates a decision engine over the given collector.
func New(collector Collector, log zerolog.Logger) *Engine {
	universe := NewUniverse()
	return &Engine{
		collector:  collector,
		classifier: NewClassifier(log),
		selector:   NewSelector(universe, log),
		sizer:      NewSizer(DefaultRiskLimits()),
		tailRisk:   NewTailRiskManager(log),
		universe:   universe,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Universe returns the strategy catalog.
func (e *Engine) Universe() *Universe { return e.universe }

// PreviousRegime returns the regime recorded by the most recent
// classification, or nil before the first one.
func (e *Engine) PreviousRegime() *Regime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prevRegime
}

// snapshot collects and validates a fresh market inputs snapshot.
func (e *Engine) snapshot(ctx context.Context) (MarketInputs, error) {
	in, err := e.collector.Collect(ctx)
	if err != nil {
		return MarketInputs{}, err
	}
	if err := in.Validate(); err != nil {
		return MarketInputs{}, err
	}
	return in, nil
}

// FullAnalysis runs the complete pipeline: classify, select, assess tail
// risk, detect conflicts, attach the active playbook, and check position
// health. The previous regime is updated last so the rule engines see the
// value from before this run.
func (e *Engine) FullAnalysis(ctx context.Context, req AnalysisRequest) (FullAnalysisResult, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return FullAnalysisResult{}, err
	}

	objective := req.Objective
	if objective == "" {
		objective = "income"
	}
	nav := req.NAV
	if nav == 0 {
		nav = defaultNAV
	}

	regime := e.classifier.Classify(in)
	recommendation := e.selector.Select(regime, in, objective)
	tail := e.tailRisk.Assess(in)
	conflicts := DetectConflicts(regime, in)

	var playbook *EventPlaybook
	if regime.EventActive && regime.EventType != EventNone {
		if pb, err := PlaybookFor(regime.EventType); err == nil {
			playbook = &pb
		}
	}

	e.mu.Lock()
	prev := e.prevRegime
	e.mu.Unlock()

	health := make([]PositionHealthCheck, 0, len(req.Positions))
	for _, pos := range req.Positions {
		health = append(health, evaluatePosition(pos, regime, in, prev, nav))
	}

	e.setPreviousRegime(regime)

	return FullAnalysisResult{
		Regime:         regime,
		Recommendation: recommendation,
		TailRisk:       tail,
		Conflicts:      conflicts,
		ActivePlaybook: playbook,
		PositionHealth: health,
		MarketInputs:   in,
		Timestamp:      time.Now().UTC(),
	}, nil
}

// GetRegime classifies the current regime and records it as the previous
// regime for subsequent rule evaluations.
func (e *Engine) GetRegime(ctx context.Context) (Regime, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return Regime{}, err
	}
	regime := e.classifier.Classify(in)
	e.setPreviousRegime(regime)
	return regime, nil
}

// Recommend runs gates, scoring, and parameterization for the objective.
func (e *Engine) Recommend(ctx context.Context, nav float64, objective string) (StrategyRecommendation, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return StrategyRecommendation{}, err
	}
	if objective == "" {
		objective = "income"
	}
	regime := e.classifier.Classify(in)
	e.setPreviousRegime(regime)
	return e.selector.Select(regime, in, objective), nil
}

// EvaluatePosition checks one position against the adjustment and exit
// rules. It does not advance the previous-regime slot, so repeated health
// checks between analyses keep seeing the same transition.
func (e *Engine) EvaluatePosition(ctx context.Context, pos PositionView) (PositionHealthCheck, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return PositionHealthCheck{}, err
	}
	regime := e.classifier.Classify(in)

	e.mu.Lock()
	prev := e.prevRegime
	e.mu.Unlock()

	return evaluatePosition(pos, regime, in, prev, defaultNAV), nil
}

// TailRisk assesses the tail-risk posture on a fresh snapshot.
func (e *Engine) TailRisk(ctx context.Context) (TailRiskAssessment, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return TailRiskAssessment{}, err
	}
	return e.tailRisk.Assess(in), nil
}

// Conflicts returns the detected signal conflicts.
func (e *Engine) Conflicts(ctx context.Context) ([]ConflictScenario, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return DetectConflicts(e.classifier.Classify(in), in), nil
}

// AllConflicts returns every conflict scenario with detection status.
func (e *Engine) AllConflicts(ctx context.Context) ([]ConflictScenario, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return AllConflicts(e.classifier.Classify(in), in), nil
}

// Size calculates a premium budget for the current regime.
func (e *Engine) Size(ctx context.Context, req SizingRequest) (PositionSizeResult, error) {
	in, err := e.snapshot(ctx)
	if err != nil {
		return PositionSizeResult{}, err
	}
	if req.NAV == 0 {
		req.NAV = defaultNAV
	}
	return e.sizer.Calculate(e.classifier.Classify(in), in, req), nil
}

func (e *Engine) setPreviousRegime(r Regime) {
	e.mu.Lock()
	e.prevRegime = &r
	e.mu.Unlock()
}

// evaluatePosition runs both rule engines and summarizes the verdict.
func evaluatePosition(pos PositionView, regime Regime, in MarketInputs, prev *Regime, nav float64) PositionHealthCheck {
	adjustments := EvaluateAdjustments(pos, regime, in, prev)
	exits := EvaluateExits(pos, regime, in, prev, nav)

	triggered := make([]RuleEvaluation, 0, len(adjustments)+len(exits))
	triggered = append(triggered, adjustments...)
	triggered = append(triggered, exits...)

	var critical []string
	for _, r := range triggered {
		if r.Priority == PriorityCritical {
			critical = append(critical, r.Action)
		}
	}

	var action string
	switch {
	case len(critical) > 0:
		action = "IMMEDIATE ACTION REQUIRED: " + strings.Join(critical, "; ")
	case len(triggered) > 0:
		head := triggered
		if len(head) > 3 {
			head = head[:3]
		}
		actions := make([]string, 0, len(head))
		for _, r := range head {
			actions = append(actions, r.Action)
		}
		action = "Review: " + strings.Join(actions, "; ")
	default:
		action = "No action needed - position healthy"
	}

	id := pos.ID
	if id == "" {
		id = "unknown"
	}
	return PositionHealthCheck{
		PositionID:        id,
		AdjustmentRules:   adjustments,
		ExitRules:         exits,
		TriggeredCount:    len(triggered),
		CriticalCount:     len(critical),
		RecommendedAction: action,
	}
}
