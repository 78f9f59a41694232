package status

import (
	"fmt"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
)

// Severity classifies a display status for operator attention.
type Severity string

const (
	SeverityNeutral Severity = "neutral"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DisplayStatus is the reconciled, human-facing view of one broadcast.
type DisplayStatus struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	// NeedsAttention flags statuses an operator should act on.
	NeedsAttention bool `json:"needsAttention"`
}

var lifecycleLabels = map[domain.LifecycleStatus]string{
	domain.LifecycleComplete:     "Completed",
	domain.LifecycleLive:         "Live",
	domain.LifecycleLiveStarting: "Starting",
	domain.LifecycleReady:        "Ready",
	domain.LifecycleRevoked:      "Revoked",
	domain.LifecycleTestStarting: "Test Starting",
	domain.LifecycleTesting:      "Testing",
}

var healthLabels = map[domain.HealthStatus]string{
	domain.HealthActive:   "Broadcasting",
	domain.HealthCreated:  "No Data Yet",
	domain.HealthError:    "Stream Error",
	domain.HealthInactive: "Not Sending Data",
	domain.HealthReady:    "Waiting For Data",
}

var lifecycleSeverities = map[domain.LifecycleStatus]Severity{
	domain.LifecycleComplete:     SeverityNeutral,
	domain.LifecycleLive:         SeveritySuccess,
	domain.LifecycleLiveStarting: SeverityWarning,
	domain.LifecycleReady:        SeverityInfo,
	domain.LifecycleRevoked:      SeverityError,
	domain.LifecycleTestStarting: SeverityWarning,
	domain.LifecycleTesting:      SeverityWarning,
}

// Derive reconciles one platform status into a display status. Rules apply
// in order, first match wins:
//
//  1. Lifecycle says live/testing but no encoder is pushing data: error,
//     label carries both sides ("Live (Not Sending Data)"). This is the most
//     operationally important signal and must never be masked by the nominal
//     lifecycle label.
//  2. Ready with auto-start off: the operator suppressed automatic start on
//     purpose. "Disabled", neutral, no alarm.
//  3. Otherwise the lifecycle label with its fixed severity.
//
// Same inputs always produce the same output.
func Derive(ps domain.PlatformStatus) DisplayStatus {
	claimsActive := ps.Lifecycle == domain.LifecycleLive || ps.Lifecycle == domain.LifecycleTesting

	if claimsActive && !ps.IsLive {
		return DisplayStatus{
			Label:          fmt.Sprintf("%s (%s)", lifecycleLabel(ps.Lifecycle), healthLabel(ps.Health)),
			Severity:       SeverityError,
			NeedsAttention: true,
		}
	}

	if ps.Lifecycle == domain.LifecycleReady && !ps.AutoStart {
		return DisplayStatus{Label: "Disabled", Severity: SeverityNeutral}
	}

	sev, ok := lifecycleSeverities[ps.Lifecycle]
	if !ok {
		sev = SeverityNeutral
	}
	return DisplayStatus{
		Label:          lifecycleLabel(ps.Lifecycle),
		Severity:       sev,
		NeedsAttention: sev == SeverityError,
	}
}

// StopAllowed reports whether a stop request for this status should be
// attempted at all. Stopping a completed or auto-start-disabled broadcast is
// a no-op at best and a user-confusing error at worst, so it is refused
// before any network call.
func StopAllowed(ps domain.PlatformStatus) bool {
	if ps.Lifecycle == domain.LifecycleComplete || ps.Lifecycle == domain.LifecycleRevoked {
		return false
	}
	// Auto-start disabled means the operator is managing this broadcast by
	// hand; never offer remote stop for it, whatever the lifecycle says.
	if !ps.AutoStart {
		return false
	}
	return true
}

// HealthWarnings returns the platform's health messages, suppressed once the
// broadcast is complete (stale warnings on a finished stream are noise).
func HealthWarnings(ps domain.PlatformStatus) []string {
	if ps.Lifecycle == domain.LifecycleComplete {
		return nil
	}
	return ps.HealthMessages
}

func lifecycleLabel(ls domain.LifecycleStatus) string {
	if label, ok := lifecycleLabels[ls]; ok {
		return label
	}
	return "Unknown"
}

func healthLabel(hs domain.HealthStatus) string {
	if label, ok := healthLabels[hs]; ok {
		return label
	}
	return "Unknown"
}
