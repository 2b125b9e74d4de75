package docker

import "maps"

// testdb label keys for managed containers.
const (
	// LabelPrefix is the prefix for all testdb labels.
	LabelPrefix = "dev.testdb."

	// LabelManaged marks a container as created by testdb.
	LabelManaged = LabelPrefix + "managed"

	// LabelContainer stores the configured container name.
	LabelContainer = LabelPrefix + "container"

	// LabelRunID identifies the provisioning run that created the container.
	LabelRunID = LabelPrefix + "run-id"
)

// ManagedLabelValue is the value of LabelManaged on managed containers.
const ManagedLabelValue = "true"

// ContainerLabels returns the labels applied to a provisioned container.
// Extra labels are applied first so they can never override testdb's own.
func ContainerLabels(name, runID string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+3)
	maps.Copy(labels, extra)
	labels[LabelManaged] = ManagedLabelValue
	labels[LabelContainer] = name
	if runID != "" {
		labels[LabelRunID] = runID
	}
	return labels
}

// IsManaged reports whether labels mark a container as testdb-managed.
func IsManaged(labels map[string]string) bool {
	return labels[LabelManaged] == ManagedLabelValue
}
