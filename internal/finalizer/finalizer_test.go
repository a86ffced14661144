package finalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestHas(t *testing.T) {
	m := New("finalizer1")

	t.Run("present", func(t *testing.T) {
		obj := &metav1.ObjectMeta{Finalizers: []string{"finalizer1", "finalizer2"}}
		assert.True(t, m.Has(obj))
	})

	t.Run("absent", func(t *testing.T) {
		obj := &metav1.ObjectMeta{Finalizers: []string{"finalizer2"}}
		assert.False(t, m.Has(obj))
	})
}

func TestAdd(t *testing.T) {
	m := New("finalizer1")

	t.Run("adds when absent", func(t *testing.T) {
		obj := &metav1.ObjectMeta{Finalizers: []string{"other"}}
		changed := m.Add(obj)
		assert.True(t, changed)
		assert.Equal(t, []string{"other", "finalizer1"}, obj.Finalizers)
	})

	t.Run("no-op when present", func(t *testing.T) {
		obj := &metav1.ObjectMeta{Finalizers: []string{"finalizer1"}}
		changed := m.Add(obj)
		assert.False(t, changed)
		assert.Equal(t, []string{"finalizer1"}, obj.Finalizers)
	})
}

func TestRemove(t *testing.T) {
	m := New("finalizer1")

	t.Run("removes when present", func(t *testing.T) {
		obj := &metav1.ObjectMeta{Finalizers: []string{"finalizer1", "other"}}
		changed := m.Remove(obj)
		assert.True(t, changed)
		assert.Equal(t, []string{"other"}, obj.Finalizers)
	})

	t.Run("no-op when absent", func(t *testing.T) {
		obj := &metav1.ObjectMeta{Finalizers: []string{"other"}}
		changed := m.Remove(obj)
		assert.False(t, changed)
		assert.Equal(t, []string{"other"}, obj.Finalizers)
	})
}
