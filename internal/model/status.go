package model

// Deployment status values. Transitions run
// uploaded -> building -> {deployed | build-failed | deployment-failed}
// and never revert once a terminal value is reached.
const (
	StatusUploaded         = "uploaded"
	StatusBuilding         = "building"
	StatusDeployed         = "deployed"
	StatusBuildFailed      = "build-failed"
	StatusDeploymentFailed = "deployment-failed"

	// StatusUnknown is the sentinel returned for ids that were never
	// submitted. Callers treat unknown and "not yet set" identically.
	StatusUnknown = "unknown"
)

// IsTerminal reports whether no further transition occurs after status.
func IsTerminal(status string) bool {
	switch status {
	case StatusDeployed, StatusBuildFailed, StatusDeploymentFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another follows
// the deployment state machine.
func CanTransition(from, to string) bool {
	switch from {
	case StatusUnknown:
		return to == StatusUploaded
	case StatusUploaded:
		return to == StatusBuilding
	case StatusBuilding:
		return to == StatusDeployed || to == StatusBuildFailed || to == StatusDeploymentFailed
	}
	return false
}
