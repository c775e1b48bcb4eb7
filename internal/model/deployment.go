package model

import "time"

// Deployment is one build-and-serve unit. The ID doubles as the queue
// payload, the object-store key prefix, and the public subdomain label.
type Deployment struct {
	ID          string     `json:"id"`
	SourceRef   string     `json:"source_ref"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SourceKeyPrefix returns the object-store prefix holding the cloned source
// tree for the given deployment.
func SourceKeyPrefix(id string) string {
	return "source/" + id + "/"
}

// DistKeyPrefix returns the object-store prefix holding the build output for
// the given deployment. The Edge Gateway composes keys under this prefix
// purely from Host and path, so the layout is a byte-for-byte contract.
func DistKeyPrefix(id string) string {
	return "dist/" + id + "/"
}
