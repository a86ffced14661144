// Package finalizer manages a single finalizer token on a Kubernetes
// object's metadata.finalizers list. Each Controller owns exactly one token
// (its Descriptor's Finalizer); pkg/opkit's add/modify and delete state
// machines use this to test for and mutate it.
package finalizer

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// Manager gates deletion on a single finalizer token.
type Manager struct {
	token string
}

// New returns a Manager for the given finalizer token.
func New(token string) *Manager {
	return &Manager{token: token}
}

// Has reports whether obj's finalizer list already contains the token.
func (m *Manager) Has(obj metav1.Object) bool {
	return containsString(obj.GetFinalizers(), m.token)
}

// Add appends the token to obj's finalizer list if it isn't already present.
// It reports whether a mutation was made.
func (m *Manager) Add(obj metav1.Object) bool {
	if m.Has(obj) {
		return false
	}
	obj.SetFinalizers(append(obj.GetFinalizers(), m.token))
	return true
}

// Remove strips the token from obj's finalizer list. It reports whether a
// mutation was made.
func (m *Manager) Remove(obj metav1.Object) bool {
	if !m.Has(obj) {
		return false
	}
	obj.SetFinalizers(removeString(obj.GetFinalizers(), m.token))
	return true
}

func containsString(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

func removeString(slice []string, s string) []string {
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if item != s {
			result = append(result, item)
		}
	}
	return result
}
