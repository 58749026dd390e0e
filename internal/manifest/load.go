package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"podlet/internal/config"
	"podlet/internal/state"
)

// Load scans a directory of pod manifests and builds the desired target.
// Every *.yaml / *.yml file must hold exactly one valid pod; any rejected
// file rejects the whole scan (returning a *ScanError), because the target
// is replaced wholesale and a partial directory would contradict itself.
func Load(dir string) (state.Target, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory %s: %w", dir, err)
	}

	scanErr := &ScanError{Directory: dir}
	target := state.Target{}
	podFiles := map[string]string{} // pod name -> file that declared it

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		pod, err := parseFile(path)
		if err != nil {
			scanErr.Add(path, "parse", err.Error())
			continue
		}

		if verrs := validatePod(pod); verrs.HasErrors() {
			scanErr.Add(path, "validation", verrs.Error())
			continue
		}

		cfg := podConfigFrom(pod)
		if prev, dup := podFiles[cfg.Name]; dup {
			scanErr.Add(path, "conflict", fmt.Sprintf("pod %q already declared in %s", cfg.Name, prev))
			continue
		}
		podFiles[cfg.Name] = name

		target[cfg.Key] = cfg
	}

	if scanErr.HasErrors() {
		return nil, scanErr
	}
	return target, nil
}

func parseFile(path string) (*corev1.Pod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}

	var pod corev1.Pod
	if err := yaml.Unmarshal(data, &pod); err != nil {
		return nil, fmt.Errorf("failed to decode pod manifest: %w", err)
	}
	return &pod, nil
}

// validatePod checks the subset of the pod schema the agent supports.
func validatePod(pod *corev1.Pod) config.ValidationErrors {
	var verrs config.ValidationErrors

	if pod.Kind != "" && pod.Kind != "Pod" {
		verrs.Add("kind", fmt.Sprintf("must be Pod, got %q", pod.Kind), pod.Kind)
	}
	if strings.TrimSpace(pod.Name) == "" {
		verrs.Add("metadata.name", "is required")
	}
	if len(pod.Spec.Containers) == 0 {
		verrs.Add("spec.containers", "must declare at least one container")
	}

	seen := map[string]bool{}
	for i, c := range pod.Spec.Containers {
		field := fmt.Sprintf("spec.containers[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			verrs.Add(field+".name", "is required")
			continue
		}
		if seen[c.Name] {
			verrs.Add(field+".name", fmt.Sprintf("duplicate container name %q", c.Name), c.Name)
		}
		seen[c.Name] = true

		if strings.TrimSpace(c.Image) == "" {
			verrs.Add(field+".image", "is required", c.Name)
		}
		for _, env := range c.Env {
			if env.ValueFrom != nil {
				verrs.Add(field+".env."+env.Name, "valueFrom is not supported; only literal values")
			}
		}
	}

	return verrs
}

// podConfigFrom converts a validated manifest into the desired spec and
// computes its resource key.
func podConfigFrom(pod *corev1.Pod) state.PodConfig {
	cfg := state.PodConfig{
		Name:       pod.Name,
		Containers: make(map[string]state.ContainerConfig, len(pod.Spec.Containers)),
	}
	for _, c := range pod.Spec.Containers {
		cc := state.ContainerConfig{
			Name:    c.Name,
			Image:   c.Image,
			Command: append([]string(nil), c.Command...),
			Args:    append([]string(nil), c.Args...),
		}
		if len(c.Env) > 0 {
			cc.Env = make(map[string]string, len(c.Env))
			for _, env := range c.Env {
				cc.Env[env.Name] = env.Value
			}
		}
		cfg.Containers[c.Name] = cc
	}
	cfg.Key = state.KeyFor(cfg)
	return cfg
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func baseName(path string) string {
	return filepath.Base(path)
}
