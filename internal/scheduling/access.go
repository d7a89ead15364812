package scheduling

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

var schedulingTracer = otel.Tracer("hospital-appointment.internal.scheduling")

// guard runs access decisions and records denials
type guard struct {
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

func (g guard) authorize(span trace.Span, op rbac.Operation, caller *types.Caller, resourceID string, owns rbac.OwnerFunc) error {
	decision, err := rbac.Evaluate(op, caller, resourceID, owns)
	if err != nil {
		g.deny(span, decision, err)
	}
	return err
}

// admit checks only that the caller's role may attempt op
func (g guard) admit(span trace.Span, op rbac.Operation, caller *types.Caller, resourceID string) error {
	return g.authorize(span, op, caller, resourceID, func(*types.Caller) bool { return true })
}

func (g guard) deny(span trace.Span, decision *rbac.AccessDecision, err error) {
	span.RecordError(err)
	g.metrics.RecordAuthorizationDenial(string(decision.Request.Operation), string(decision.Request.Role))
	g.logger.Audit(decision.Request.UserID, string(decision.Request.Operation), decision.Request.ResourceID, false, decision.Fields())
}
