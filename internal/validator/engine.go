package validator

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agentmanifest/registry/internal/domain"
)

var tracer = otel.Tracer("manifest-validator")

var (
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifest_validations_total",
			Help: "Total number of manifest validations by outcome",
		},
		[]string{"mode", "outcome"},
	)

	validationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "manifest_validation_duration_seconds",
			Help:    "Duration of full validation pipelines",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

// TokenIssuer signs a verification credential binding source identity,
// validation timestamp and spec version. The engine treats the signing
// secret as an opaque, externally managed dependency.
type TokenIssuer interface {
	Issue(source string, validatedAt time.Time, specVersion string) (string, error)
}

// Config holds engine configuration.
type Config struct {
	Probe               *Probe
	Issuer              TokenIssuer
	BoilerplatePatterns []*regexp.Regexp
	Logger              *slog.Logger
}

// Engine runs the validation pipeline. One validation call is sequential
// and keeps all state on the stack; concurrent calls share only the probe's
// HTTP client and the issuer's secret, so no locking is needed.
type Engine struct {
	probe       *Probe
	issuer      TokenIssuer
	boilerplate []*regexp.Regexp
	logger      *slog.Logger
}

// New creates a validation engine.
func New(cfg Config) *Engine {
	if cfg.Probe == nil {
		cfg.Probe = NewProbe(DefaultProbeTimeout, cfg.Logger)
	}
	if cfg.BoilerplatePatterns == nil {
		cfg.BoilerplatePatterns = DefaultBoilerplatePatterns()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		probe:       cfg.Probe,
		issuer:      cfg.Issuer,
		boilerplate: cfg.BoilerplatePatterns,
		logger:      cfg.Logger,
	}
}

// ValidateURL fetches the manifest from the provider's well-known path and
// runs the full pipeline against it. A failed fetch is the single early-exit
// branch: no document means nothing else is checkable.
func (e *Engine) ValidateURL(ctx context.Context, baseURL string) *domain.ValidationResult {
	ctx, span := tracer.Start(ctx, "validate.url")
	defer span.End()
	span.SetAttributes(attribute.String("manifest.url", baseURL))

	result := newResult(baseURL)

	m, fetchCheck := e.probe.FetchManifest(ctx, baseURL)
	result.Add(fetchCheck)
	if m == nil {
		result.Passed = false
		e.observe("url", result)
		return result
	}

	e.runPipeline(ctx, result, m, baseURL)
	e.observe("url", result)
	return result
}

// ValidateManifest runs the pipeline against an already-parsed document.
// Endpoint reachability is reported as skipped: the document was not
// necessarily served from any origin the declared paths resolve against.
func (e *Engine) ValidateManifest(ctx context.Context, m *domain.Manifest, source string) *domain.ValidationResult {
	ctx, span := tracer.Start(ctx, "validate.manifest")
	defer span.End()
	span.SetAttributes(attribute.String("manifest.source", source))

	result := newResult(source)
	result.Add(domain.InfoCheck(domain.CheckLocalManifest, "validating local manifest from "+source))

	e.runPipeline(ctx, result, m, "")
	e.observe("local", result)
	return result
}

func newResult(source string) *domain.ValidationResult {
	return &domain.ValidationResult{
		URL:         source,
		ValidatedAt: time.Now().UTC(),
		Checks:      []domain.ValidationCheck{},
		Badges:      []string{},
	}
}

// runPipeline executes every check stage in fixed order. No check's failure
// prevents later checks from running; the output list order is significant
// and preserved for deterministic display.
func (e *Engine) runPipeline(ctx context.Context, result *domain.ValidationResult, m *domain.Manifest, baseURL string) {
	version := m.Version()
	shape := m.PaymentShape()
	result.SpecVersion = m.SpecVersion

	schema := SchemaCheck(m)
	result.Add(schema)
	result.SchemaValid = schema.Passed

	result.Add(SpecVersionCheck(m))
	result.Add(DescriptionQuality(m, e.boilerplate))
	result.Add(AgentNotesQuality(m, version, e.boilerplate))

	if baseURL != "" {
		result.Add(e.probe.CheckEndpoints(ctx, baseURL, m.Endpoints)...)
	} else {
		result.Add(domain.InfoCheck(domain.CheckEndpointReachability,
			"local manifest: endpoint reachability not tested (no serving origin)"))
	}

	result.Add(PricingConsistency(m)...)
	result.Add(CategoryValidity(m)...)
	result.Add(AuthenticationConsistency(m)...)
	result.Add(PaymentConsistency(m, shape)...)

	completeness := OperationalCompleteness(m.AgentNotes, m.HasNonFreePayment(), version)
	result.Add(completeness.Check)
	result.OperationallyComplete = completeness.OperationallyComplete

	if m.Authentication != nil && m.Authentication.Required {
		verified, checks := e.probe.VerifyAuthFlow(ctx, m, baseURL)
		result.Add(checks...)
		result.AuthVerified = verified
	}

	if shape != domain.PaymentShapeNone {
		verified, checks := e.probe.VerifyPaymentFlow(ctx, m, shape, baseURL)
		result.Add(checks...)
		result.PaymentFlowVerified = verified
	}

	e.finalize(result, m, shape)
}

// finalize computes the aggregate verdict, derived fields, badges, and the
// verification token.
func (e *Engine) finalize(result *domain.ValidationResult, m *domain.Manifest, shape domain.PaymentShape) {
	result.Passed = result.ComputePassed()
	result.EndpointsReachable = result.ComputeEndpointsReachable()

	if result.AuthVerified {
		result.Badges = append(result.Badges, domain.BadgeAuthVerified)
	}
	if result.PaymentFlowVerified {
		result.Badges = append(result.Badges, domain.BadgePaymentReady)
	}
	if shape == domain.PaymentShapeCurrent && m.Payment.BudgetControls != nil {
		bc := m.Payment.BudgetControls
		if bc.SupportsSpendCaps || bc.SupportsPerRequestLimits {
			result.Badges = append(result.Badges, domain.BadgeBudgetAware)
		}
	}

	if result.Passed && e.issuer != nil {
		token, err := e.issuer.Issue(result.URL, result.ValidatedAt, m.SpecVersion)
		if err != nil {
			// Signing failures are engine faults, not manifest problems.
			e.logger.Error("failed to issue verification token",
				"source", result.URL,
				"error", err,
			)
		} else {
			result.VerificationToken = token
		}
	}
}

func (e *Engine) observe(mode string, result *domain.ValidationResult) {
	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	validationsTotal.WithLabelValues(mode, outcome).Inc()
	validationDuration.Observe(time.Since(result.ValidatedAt).Seconds())

	e.logger.Info("validation completed",
		"source", result.URL,
		"passed", result.Passed,
		"spec_version", result.SpecVersion,
		"checks", len(result.Checks),
		"badges", result.Badges,
	)
}
