/*
Package health provides the HTTP readiness checker used to decide when a
freshly launched FHIR server may start receiving benchmark traffic.

A Status tracks consecutive successes and failures of repeated Checks against
a Config. The lifecycle controller (pkg/lifecycle) polls a Checker on an
interval and asks the Status whether it has reached a stable run of
successes (readiness). Status.Abandoned reports a stable run of failures;
the lifecycle controller does not consult it and waits out its launch
deadline instead.

	checker := health.NewHTTPChecker(baseURL + "/metadata")
	status := health.NewStatus()
	for {
		result := checker.Check(ctx)
		status.Update(result, cfg)
		if status.Stable(cfg) {
			break // ready
		}
	}
*/
package health
