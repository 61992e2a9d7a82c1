package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// NamespaceTag creates a cache namespace tag.
func NamespaceTag(namespace string) string {
	return Tag("namespace", namespace)
}

// BackendTag creates a backend store tag (memory/bolt/redis).
func BackendTag(backend string) string {
	return Tag("backend", backend)
}
