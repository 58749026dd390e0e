package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// keyNamespace is the fixed UUID namespace for resource keys. Keys are
// version-5 UUIDs over the canonical spec serialization, so equal specs
// always hash to equal keys on every node and across restarts.
var keyNamespace = uuid.MustParse("b4df00d8-7a5e-4b1f-9c2e-6e1a0c3d9f42")

// foreignKeyNamespace derives keys for sandboxes the agent finds on the
// runtime without a parseable key of their own. Deriving from the sandbox id
// keeps such pods stable across listings so termination converges on them.
var foreignKeyNamespace = uuid.MustParse("3c8e2f17-52aa-4d0b-8f6d-4e9b1d7a5c03")

// ResourceKey identifies a pod by its desired specification. Two specs that
// differ in any field, including the pod name, produce different keys, so
// key equality implies spec equality and reconciliation never compares spec
// contents.
type ResourceKey uuid.UUID

// ZeroKey is the absent key.
var ZeroKey ResourceKey

// String returns the canonical UUID form.
func (k ResourceKey) String() string {
	return uuid.UUID(k).String()
}

// ParseKey parses the canonical UUID form back into a key.
func ParseKey(s string) (ResourceKey, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ZeroKey, fmt.Errorf("invalid resource key %q: %w", s, err)
	}
	return ResourceKey(u), nil
}

// KeyFor computes the resource key of a pod spec. The Key field of the input
// is ignored; everything else participates: pod name and each container's
// name, image, command, args and env, all in canonical order.
func KeyFor(pod PodConfig) ResourceKey {
	var b strings.Builder
	writeField(&b, "pod", pod.Name)

	for _, name := range pod.ContainerNames() {
		c := pod.Containers[name]
		writeField(&b, "container", c.Name)
		writeField(&b, "image", c.Image)
		for _, arg := range c.Command {
			writeField(&b, "command", arg)
		}
		for _, arg := range c.Args {
			writeField(&b, "arg", arg)
		}
		envKeys := make([]string, 0, len(c.Env))
		for k := range c.Env {
			envKeys = append(envKeys, k)
		}
		sort.Strings(envKeys)
		for _, k := range envKeys {
			writeField(&b, "env", k+"="+c.Env[k])
		}
	}

	return ResourceKey(uuid.NewSHA1(keyNamespace, []byte(b.String())))
}

// ForeignKey computes a stable key for a sandbox whose metadata does not
// carry one (a pod this agent did not create). Such pods appear in observed
// state but never in any target, so the differencer terminates them.
func ForeignKey(sandbox Identifier) ResourceKey {
	return ResourceKey(uuid.NewSHA1(foreignKeyNamespace, []byte(sandbox)))
}

// writeField appends one length-prefixed field so that no concatenation of
// values can collide with a different field split.
func writeField(b *strings.Builder, kind, value string) {
	fmt.Fprintf(b, "%s:%d:%s;", kind, len(value), value)
}
